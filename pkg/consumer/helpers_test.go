package consumer

import (
	"context"
	"net/http"
	"sync"

	"github.com/form3tech-oss/pact-consumer/pkg/contract"
	"github.com/form3tech-oss/pact-consumer/pkg/mockserver"
	"github.com/pact-foundation/pact-go/dsl"
)

// ordersSubject declares one contract for the Orders provider.
type ordersSubject struct {
	dir string
}

func (s *ordersSubject) GetOrder(b *contract.Builder) contract.Document {
	return b.
		UponReceiving("a request for order 1").
		WithRequest(dsl.Request{
			Method: http.MethodGet,
			Path:   dsl.String("/order/1"),
		}).
		WillRespondWith(dsl.Response{
			Status:  http.StatusOK,
			Headers: dsl.MapMatcher{"Content-Type": dsl.String("application/json")},
			Body:    map[string]interface{}{"id": 1, "status": "open"},
		}).
		ToPact()
}

func (s *ordersSubject) CreateOrder(b *contract.Builder) contract.Document {
	return b.
		UponReceiving("a request to create an order").
		WithRequest(dsl.Request{
			Method:  http.MethodPost,
			Path:    dsl.String("/orders"),
			Headers: dsl.MapMatcher{"Content-Type": dsl.String("application/json")},
			Body:    map[string]interface{}{"item": "tea", "quantities": []int{1, 2}},
		}).
		WillRespondWith(dsl.Response{Status: http.StatusCreated}).
		ToPact()
}

func (s *ordersSubject) ListOrders(b *contract.Builder) contract.Document {
	return b.
		UponReceiving("a request for a page of orders").
		WithRequest(dsl.Request{
			Method:  http.MethodGet,
			Path:    dsl.String("/orders"),
			Query:   dsl.MapMatcher{"page": dsl.Like("1")},
			Headers: dsl.MapMatcher{"Authorization": dsl.Like("Bearer example")},
		}).
		WillRespondWith(dsl.Response{
			Status:  http.StatusOK,
			Headers: dsl.MapMatcher{"Content-Type": dsl.String("application/json")},
			Body:    map[string]interface{}{"orders": []interface{}{}},
		}).
		ToPact()
}

func (s *ordersSubject) PactFixtures() []Fixture {
	return []Fixture{
		ContractFixture(Metadata{Provider: "Orders", Consumer: "web", Fragment: "getOrder"}, s.GetOrder),
		ContractFixture(Metadata{Provider: "Orders", Consumer: "web", Fragment: "createOrder"}, s.CreateOrder),
		ContractFixture(Metadata{Provider: "Orders", Consumer: "web", Fragment: "listOrders"}, s.ListOrders),
	}
}

func (s *ordersSubject) PactDirectory() string {
	return s.dir
}

func interactionFixture(provider, fragment, description string) Fixture {
	return ContractFixture(Metadata{Provider: provider, Consumer: "web", Fragment: fragment},
		func(b *contract.Builder) contract.Document {
			return b.
				UponReceiving(description).
				WithRequest(dsl.Request{Method: http.MethodGet, Path: dsl.String("/" + description)}).
				WillRespondWith(dsl.Response{Status: http.StatusOK}).
				ToPact()
		})
}

type fakeServer struct {
	mu         sync.Mutex
	stops      int
	mismatches []mockserver.Mismatch
	stopErr    error
}

func (s *fakeServer) URL() string {
	return "http://127.0.0.1:1234"
}

func (s *fakeServer) Port() int {
	return 1234
}

func (s *fakeServer) WaitForInteractions(context.Context) error {
	return nil
}

func (s *fakeServer) Stop(context.Context) ([]mockserver.Mismatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return s.mismatches, s.stopErr
}

func (s *fakeServer) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

type fakeFactory struct {
	server   *fakeServer
	startErr error
	docs     []contract.Document
	configs  []mockserver.Config
}

func (f *fakeFactory) Start(_ context.Context, doc contract.Document, config mockserver.Config) (mockserver.MockServer, error) {
	f.docs = append(f.docs, doc)
	f.configs = append(f.configs, config)
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.server, nil
}

// recordingDocument records persistence requests instead of writing files.
type recordingDocument struct {
	*contract.Pact
	writes   []string
	writeErr error
}

func (d *recordingDocument) WriteTo(dir string) error {
	d.writes = append(d.writes, dir)
	return d.writeErr
}

func newRecordingDocument() *recordingDocument {
	return &recordingDocument{Pact: (&ordersSubject{}).GetOrder(contract.NewBuilder("web").WithProvider("Orders")).(*contract.Pact)}
}
