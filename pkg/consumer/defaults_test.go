package consumer

import (
	"net/http"
	"testing"

	"github.com/form3tech-oss/pact-consumer/pkg/contract"
	"github.com/pact-foundation/pact-go/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaultsLastWins(t *testing.T) {
	subject := Fixtures{
		DefaultRequestFixture(func(d *contract.RequestDefaults) {
			d.Method(http.MethodPost).Header("X-Source", dsl.String("first"))
		}),
		DefaultRequestFixture(func(d *contract.RequestDefaults) {
			d.Header("X-Source", dsl.String("last"))
		}),
		DefaultResponseFixture(func(d *contract.ResponseDefaults) {
			d.Status(http.StatusAccepted)
		}),
	}
	d, err := discover(subject)
	require.NoError(t, err)

	builder := contract.NewBuilder("web").WithProvider("Orders")
	require.NoError(t, applyDefaults(builder, d))

	pact := builder.
		UponReceiving("defaults").
		WithRequest(dsl.Request{Method: http.MethodGet, Path: dsl.String("/")}).
		WillRespondWith(dsl.Response{}).
		ToPact()

	interaction := pact.Interactions()[0]
	assert.Equal(t, http.MethodGet, interaction.Request.Method)
	assert.Equal(t, dsl.MapMatcher{"X-Source": dsl.String("last")}, interaction.Request.Headers)
	assert.Equal(t, http.StatusAccepted, interaction.Response.Status)
}

func TestApplyDefaultsVisibleToFixture(t *testing.T) {
	var seen int
	subject := Fixtures{
		DefaultResponseFixture(func(d *contract.ResponseDefaults) {
			d.Status(http.StatusTeapot)
		}),
		ContractFixture(Metadata{Provider: "Orders", Consumer: "web"}, func(b *contract.Builder) contract.Document {
			pact := b.UponReceiving("teapot").
				WithRequest(dsl.Request{Method: http.MethodGet, Path: dsl.String("/tea")}).
				WillRespondWith(dsl.Response{}).
				ToPact()
			seen = pact.Interactions()[0].Response.Status
			return pact
		}),
	}

	r := NewRule(subject, "Orders", WithFactory(&fakeFactory{server: &fakeServer{}}))
	_, err := r.singleProviderContract(Description{Verification: &Verification{}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, seen)
}

func TestApplyDefaultsPanickingFixture(t *testing.T) {
	d, err := discover(Fixtures{
		DefaultRequestFixture(func(*contract.RequestDefaults) { panic("boom") }),
	})
	require.NoError(t, err)

	assert.Error(t, applyDefaults(contract.NewBuilder("web"), d))
}
