package consumer

import (
	"net/http"
	"testing"

	"github.com/form3tech-oss/pact-consumer/pkg/contract"
	"github.com/pact-foundation/pact-go/dsl"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSignature(t *testing.T) {
	tests := []struct {
		name    string
		fixture Fixture
		wantErr bool
	}{
		{
			name:    "contract returning a document",
			fixture: ContractFixture(Metadata{}, func(b *contract.Builder) contract.Document { return b.ToPact() }),
		},
		{
			name:    "contract returning a pact",
			fixture: ContractFixture(Metadata{}, func(b *contract.Builder) *contract.Pact { return b.ToPact() }),
		},
		{
			name: "contract returning an error",
			fixture: ContractFixture(Metadata{}, func(b *contract.Builder) (contract.Document, error) {
				return b.ToPact(), nil
			}),
		},
		{
			name:    "contract without parameter",
			fixture: ContractFixture(Metadata{}, func() contract.Document { return nil }),
			wantErr: true,
		},
		{
			name:    "contract with wrong parameter",
			fixture: ContractFixture(Metadata{}, func(string) contract.Document { return nil }),
			wantErr: true,
		},
		{
			name:    "contract without return",
			fixture: ContractFixture(Metadata{}, func(*contract.Builder) {}),
			wantErr: true,
		},
		{
			name:    "contract returning something else",
			fixture: ContractFixture(Metadata{}, func(*contract.Builder) string { return "" }),
			wantErr: true,
		},
		{
			name:    "not a function",
			fixture: ContractFixture(Metadata{Fragment: "value"}, "not a function"),
			wantErr: true,
		},
		{
			name:    "nil function",
			fixture: Fixture{Metadata: Metadata{Fragment: "nil"}, Kind: KindContract},
			wantErr: true,
		},
		{
			name:    "default request",
			fixture: DefaultRequestFixture(func(*contract.RequestDefaults) {}),
		},
		{
			name:    "default request returning a value",
			fixture: DefaultRequestFixture(func(d *contract.RequestDefaults) *contract.RequestDefaults { return d }),
			wantErr: true,
		},
		{
			name:    "default request with response parameter",
			fixture: DefaultRequestFixture(func(*contract.ResponseDefaults) {}),
			wantErr: true,
		},
		{
			name:    "default response",
			fixture: DefaultResponseFixture(func(*contract.ResponseDefaults) {}),
		},
		{
			name:    "default response with two parameters",
			fixture: DefaultResponseFixture(func(*contract.ResponseDefaults, int) {}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSignature(tt.fixture)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			var signatureErr *SignatureError
			require.True(t, errors.As(err, &signatureErr), "got %v", err)
			assert.Equal(t, tt.fixture.Name(), signatureErr.Fixture)
			assert.Equal(t, expectedSignatures[tt.fixture.Kind], signatureErr.Expected)
		})
	}
}

func TestSignatureErrorMessage(t *testing.T) {
	err := validateSignature(ContractFixture(Metadata{Fragment: "getOrder"}, func(string) contract.Document { return nil }))
	assert.EqualError(t, err,
		"fixture getOrder does not conform to required signature 'func(*contract.Builder) contract.Document', got 'func(string) contract.Document'")
}

func TestFragmentDefaultsToFunctionName(t *testing.T) {
	s := &ordersSubject{}
	assert.Equal(t, "GetOrder", ContractFixture(Metadata{}, s.GetOrder).Fragment)
	assert.Equal(t, "getOrder", ContractFixture(Metadata{Fragment: "getOrder"}, s.GetOrder).Fragment)
}

func TestInvokeContract(t *testing.T) {
	builder := contract.NewBuilder("web").WithProvider("Orders")

	doc, err := invokeContract((&ordersSubject{}).PactFixtures()[0], builder)
	require.NoError(t, err)
	assert.Len(t, doc.Interactions(), 1)
}

func TestInvokeContractFailures(t *testing.T) {
	for _, tt := range []struct {
		name string
		fn   interface{}
	}{
		{
			name: "returns an error",
			fn: func(*contract.Builder) (contract.Document, error) {
				return nil, errors.New("boom")
			},
		},
		{
			name: "returns nil",
			fn:   func(*contract.Builder) *contract.Pact { return nil },
		},
		{
			name: "panics",
			fn: func(b *contract.Builder) contract.Document {
				b.UponReceiving("x").WithRequest(dsl.Request{Method: http.MethodGet})
				panic("boom")
			},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f := ContractFixture(Metadata{Fragment: "broken"}, tt.fn)
			require.NoError(t, validateSignature(f))

			_, err := invokeContract(f, contract.NewBuilder("web"))
			assert.Error(t, err)
		})
	}
}

func TestDiscoverStopsAtFirstSignatureError(t *testing.T) {
	subject := Fixtures{
		interactionFixture("Orders", "a", "a"),
		ContractFixture(Metadata{Fragment: "broken"}, func() {}),
		DefaultRequestFixture(func(*contract.RequestDefaults) {}),
	}

	_, err := discover(subject)
	var signatureErr *SignatureError
	require.True(t, errors.As(err, &signatureErr))
	assert.Equal(t, "broken", signatureErr.Fixture)
}

func TestDiscoverSplitsByKind(t *testing.T) {
	subject := Fixtures{
		DefaultResponseFixture(func(*contract.ResponseDefaults) {}),
		interactionFixture("Orders", "a", "a"),
		DefaultRequestFixture(func(*contract.RequestDefaults) {}),
		interactionFixture("Orders", "b", "b"),
	}

	d, err := discover(subject)
	require.NoError(t, err)
	require.Len(t, d.contracts, 2)
	assert.Equal(t, "a", d.contracts[0].Fragment)
	assert.Equal(t, "b", d.contracts[1].Fragment)
	assert.Len(t, d.requestDefaults, 1)
	assert.Len(t, d.responseDefaults, 1)
}
