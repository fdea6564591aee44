package mockserver

import (
	"context"

	"github.com/form3tech-oss/pact-consumer/pkg/contract"
)

// MockServer is a running mock service replaying the interactions of a contract.
type MockServer interface {
	URL() string
	Port() int
	// WaitForInteractions blocks until every expected interaction was
	// received, the configured wait duration elapsed or ctx is done.
	WaitForInteractions(ctx context.Context) error
	// Stop stops accepting requests and reports every mismatch recorded.
	// The returned error is reserved for infrastructure failures.
	Stop(ctx context.Context) ([]Mismatch, error)
}

// Factory starts mock services.
type Factory interface {
	Start(ctx context.Context, doc contract.Document, config Config) (MockServer, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context, doc contract.Document, config Config) (MockServer, error)

func (f FactoryFunc) Start(ctx context.Context, doc contract.Document, config Config) (MockServer, error) {
	return f(ctx, doc, config)
}
