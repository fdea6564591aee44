package configuration

import (
	"testing"
	"time"

	"github.com/form3tech-oss/pact-consumer/pkg/contract"
	"github.com/form3tech-oss/pact-consumer/pkg/mockserver"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromLookuperDefaults(t *testing.T) {
	config, err := newFromLookuper(envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, mockserver.Localhost, config.Hostname)
	assert.Equal(t, 0, config.Port)
	assert.Equal(t, contract.V3, config.SpecVersion)
	assert.Equal(t, mockserver.ImplementationEcho, config.Implementation)
	assert.Equal(t, mockserver.DefaultWaitDelay, config.WaitDelay)
	assert.Equal(t, mockserver.DefaultWaitDuration, config.WaitDuration)
	assert.False(t, config.TLS())
}

func TestNewFromLookuper(t *testing.T) {
	config, err := newFromLookuper(envconfig.MapLookuper(map[string]string{
		"PACT_MOCK_HOST":           "0.0.0.0",
		"PACT_MOCK_PORT":           "9090",
		"PACT_SPEC_VERSION":        "4",
		"PACT_MOCK_IMPLEMENTATION": "nethttp",
		"PACT_WAIT_DELAY":          "10ms",
		"PACT_WAIT_DURATION":       "1s",
	}))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", config.Hostname)
	assert.Equal(t, 9090, config.Port)
	assert.Equal(t, contract.V4, config.SpecVersion)
	assert.Equal(t, mockserver.ImplementationNetHTTP, config.Implementation)
	assert.Equal(t, 10*time.Millisecond, config.WaitDelay)
	assert.Equal(t, time.Second, config.WaitDuration)
}

func TestNewFromLookuperErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown implementation", env: map[string]string{"PACT_MOCK_IMPLEMENTATION": "jetty"}},
		{name: "unknown spec version", env: map[string]string{"PACT_SPEC_VERSION": "7"}},
		{name: "invalid port", env: map[string]string{"PACT_MOCK_PORT": "70000"}},
		{name: "mTLS without cert", env: map[string]string{"PACT_TLS_CA_FILE": "ca.pem"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newFromLookuper(envconfig.MapLookuper(tc.env))
			assert.Error(t, err)
		})
	}
}

func TestNewRunConfigFromLookuper(t *testing.T) {
	config, err := newRunConfigFromLookuper(envconfig.MapLookuper(map[string]string{
		"PACT_DIR":          "build/pacts",
		"PACT_ENV_FILE":     "pact.env",
		"PACT_SPEC_VERSION": "V2",
	}))
	require.NoError(t, err)

	assert.Equal(t, "build/pacts", config.PactDirectory)
	assert.Equal(t, "pact.env", config.EnvFile)
	assert.Equal(t, contract.V2, config.MockServer.SpecVersion)
	assert.Equal(t, mockserver.Localhost, config.MockServer.Hostname)
}

func TestNewStubConfigFromLookuper(t *testing.T) {
	config, err := newStubConfigFromLookuper(envconfig.MapLookuper(map[string]string{
		"PACT_FILES": "pacts/a-orders.json;pacts/a-payments.json",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"pacts/a-orders.json", "pacts/a-payments.json"}, config.PactFiles)
	assert.Equal(t, 8080, config.AdminPort)
}

func TestNewStubConfigFromLookuperRejectsFixedPortForSeveralFiles(t *testing.T) {
	_, err := newStubConfigFromLookuper(envconfig.MapLookuper(map[string]string{
		"PACT_FILES":     "a.json;b.json",
		"PACT_MOCK_PORT": "9000",
	}))
	assert.Error(t, err)
}
