package configuration

import (
	"context"

	"github.com/form3tech-oss/pact-consumer/pkg/mockserver"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
)

// StubConfig configures the pact-stub command.
type StubConfig struct {
	MockServer mockserver.Config
	PactFiles  []string `env:"PACT_FILES,delimiter=;"` // pact files to serve, one mock service each
	AdminPort  int      `env:"ADMIN_PORT,default=8080"`
	EnvFile    string   `env:"PACT_ENV_FILE"`
}

// RunConfig configures the rules of a test binary.
type RunConfig struct {
	MockServer    mockserver.Config
	PactDirectory string `env:"PACT_DIR"`
	EnvFile       string `env:"PACT_ENV_FILE"` // values for ${name} placeholders in fixture metadata
}

func NewRunConfigFromEnv() (RunConfig, error) {
	return newRunConfigFromLookuper(envconfig.OsLookuper())
}

func newRunConfigFromLookuper(lookuper envconfig.Lookuper) (RunConfig, error) {
	var config RunConfig
	if err := envconfig.ProcessWith(context.Background(), &config, lookuper); err != nil {
		return config, errors.Wrap(err, "process env config")
	}
	config.MockServer = config.MockServer.WithDefaults()
	return config, config.MockServer.Validate()
}

// NewFromEnv reads a mock service configuration from the environment.
func NewFromEnv() (mockserver.Config, error) {
	return newFromLookuper(envconfig.OsLookuper())
}

func newFromLookuper(lookuper envconfig.Lookuper) (mockserver.Config, error) {
	var config mockserver.Config
	if err := envconfig.ProcessWith(context.Background(), &config, lookuper); err != nil {
		return config, errors.Wrap(err, "process env config")
	}
	config = config.WithDefaults()
	return config, config.Validate()
}

func NewStubConfigFromEnv() (StubConfig, error) {
	return newStubConfigFromLookuper(envconfig.OsLookuper())
}

func newStubConfigFromLookuper(lookuper envconfig.Lookuper) (StubConfig, error) {
	var config StubConfig
	if err := envconfig.ProcessWith(context.Background(), &config, lookuper); err != nil {
		return config, errors.Wrap(err, "process env config")
	}
	config.MockServer = config.MockServer.WithDefaults()
	if len(config.PactFiles) > 1 && config.MockServer.Port != 0 {
		return config, errors.New("a fixed PACT_MOCK_PORT cannot serve more than one pact file")
	}
	return config, config.MockServer.Validate()
}
