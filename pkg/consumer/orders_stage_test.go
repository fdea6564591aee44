package consumer

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/form3tech-oss/pact-consumer/pkg/contract"
	"github.com/form3tech-oss/pact-consumer/pkg/mockserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type OrdersStage struct {
	t          *testing.T
	assert     *assert.Assertions
	require    *require.Assertions
	subject    *ordersSubject
	rule       *Rule
	client     *http.Client
	desc       Description
	headers    map[string]string
	mockURL    string
	response   *http.Response
	body       []byte
	result     error
	bodyCalled bool
}

func NewOrdersStage(t *testing.T) (*OrdersStage, *OrdersStage, *OrdersStage) {
	s := &OrdersStage{
		t:       t,
		assert:  assert.New(t),
		require: require.New(t),
		subject: &ordersSubject{dir: filepath.Join(t.TempDir(), "pacts")},
		client:  &http.Client{Transport: &http.Transport{DisableKeepAlives: true}},
		desc:    Description{DisplayName: t.Name()},
		headers: map[string]string{},
	}
	return s, s, s
}

func (s *OrdersStage) and() *OrdersStage {
	return s
}

func (s *OrdersStage) an_orders_rule_using_the_echo_mock_service() *OrdersStage {
	return s.an_orders_rule_using_the_mock_service_(mockserver.ImplementationEcho)
}

func (s *OrdersStage) an_orders_rule_using_the_mock_service_(implementation mockserver.Implementation) *OrdersStage {
	s.rule = NewRule(s.subject, "Orders",
		WithConfig(mockserver.HTTPConfig("", 0, contract.V3, implementation)))
	return s
}

func (s *OrdersStage) the_test_requests_the_orders_provider() *OrdersStage {
	s.desc.Verification = &Verification{Providers: []string{"Orders"}}
	return s
}

func (s *OrdersStage) the_test_requests_the_fragment_(fragment string) *OrdersStage {
	s.desc.Verification = &Verification{Providers: []string{"Orders"}, Fragments: []string{fragment}}
	return s
}

func (s *OrdersStage) the_request_carries_the_header_(name, value string) *OrdersStage {
	s.headers[name] = value
	return s
}

func (s *OrdersStage) the_test_gets_(path string) *OrdersStage {
	return s.the_test_sends_(http.MethodGet, path, "")
}

func (s *OrdersStage) the_test_posts_(path, body string) *OrdersStage {
	return s.the_test_sends_(http.MethodPost, path, body)
}

func (s *OrdersStage) the_test_sends_(method, path, body string) *OrdersStage {
	s.result = s.rule.Apply(s.desc, func() error {
		s.bodyCalled = true
		url, ok := s.rule.URL()
		s.require.True(ok, "mock service should be running while the test body executes")
		s.mockURL = url

		req, err := http.NewRequest(method, url+path, strings.NewReader(body))
		if err != nil {
			return err
		}
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		for name, value := range s.headers {
			req.Header.Set(name, value)
		}

		res, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()
		s.response = res
		s.body, err = io.ReadAll(res.Body)
		return err
	})()
	return s
}

func (s *OrdersStage) the_test_passes() *OrdersStage {
	s.require.NoError(s.result)
	return s
}

func (s *OrdersStage) the_response_is_(status int) *OrdersStage {
	s.require.NotNil(s.response)
	s.assert.Equal(status, s.response.StatusCode)
	return s
}

func (s *OrdersStage) the_response_body_is_(body string) *OrdersStage {
	s.assert.JSONEq(body, string(s.body))
	return s
}

func (s *OrdersStage) the_result_is_a_pact_mismatch_mentioning_(descriptions ...string) *OrdersStage {
	var assertionErr *AssertionError
	s.require.ErrorAs(s.result, &assertionErr)
	s.require.IsType(PactMismatch{}, assertionErr.Result)
	for _, d := range descriptions {
		s.assert.Contains(assertionErr.Error(), d)
	}
	return s
}

func (s *OrdersStage) the_mock_service_is_no_longer_available() *OrdersStage {
	_, ok := s.rule.MockServer()
	s.assert.False(ok)
	_, err := s.client.Get(s.mockURL)
	s.assert.Error(err)
	return s
}

func (s *OrdersStage) the_pact_file_contains_(interactions int) *OrdersStage {
	return s.the_pact_file_contains_the_interaction_(interactions, "a request for order 1")
}

func (s *OrdersStage) the_pact_file_contains_the_interaction_(interactions int, description string) *OrdersStage {
	data, err := os.ReadFile(filepath.Join(s.subject.dir, "web-Orders.json"))
	s.require.NoError(err)
	s.assert.Equal(int64(interactions), gjson.GetBytes(data, "interactions.#").Int())
	s.assert.Equal(description, gjson.GetBytes(data, "interactions.0.description").String())
	return s
}

func (s *OrdersStage) no_pact_file_is_written() *OrdersStage {
	_, err := os.Stat(filepath.Join(s.subject.dir, "web-Orders.json"))
	s.assert.True(os.IsNotExist(err), "pact file should not exist, got %v", err)
	return s
}

func (s *OrdersStage) the_test_body_ran() *OrdersStage {
	s.assert.True(s.bodyCalled)
	return s
}
