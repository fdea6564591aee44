package mockserver

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/form3tech-oss/pact-consumer/pkg/contract"
	"github.com/pkg/errors"
)

const (
	// Localhost is the default interface a mock service binds to.
	Localhost = "127.0.0.1"

	DefaultWaitDelay    = 100 * time.Millisecond
	DefaultWaitDuration = 5 * time.Second
)

// Implementation selects the engine serving a mock service.
type Implementation string

const (
	ImplementationDefault Implementation = ""
	ImplementationEcho    Implementation = "echo"
	ImplementationNetHTTP Implementation = "nethttp"
)

// EnvDecode lets envconfig populate an Implementation from the environment.
func (i *Implementation) EnvDecode(value string) error {
	switch impl := Implementation(strings.ToLower(strings.TrimSpace(value))); impl {
	case ImplementationDefault, ImplementationEcho, ImplementationNetHTTP:
		*i = impl
		return nil
	}
	return errors.Errorf("unknown mock server implementation %q", value)
}

// Config describes how a mock service listens. A Port of 0 picks a free port.
type Config struct {
	Hostname       string               `env:"PACT_MOCK_HOST"`
	Port           int                  `env:"PACT_MOCK_PORT"`
	SpecVersion    contract.SpecVersion `env:"PACT_SPEC_VERSION"`
	Implementation Implementation       `env:"PACT_MOCK_IMPLEMENTATION"`
	TLSCertFile    string               `env:"PACT_TLS_CERT_FILE"`
	TLSKeyFile     string               `env:"PACT_TLS_KEY_FILE"`
	TLSCAFile      string               `env:"PACT_TLS_CA_FILE"`
	WaitDelay      time.Duration        `env:"PACT_WAIT_DELAY"`    // polling delay for WaitForInteractions
	WaitDuration   time.Duration        `env:"PACT_WAIT_DURATION"` // upper bound for WaitForInteractions
}

// HTTPConfig returns a plain HTTP configuration, filling blanks with defaults.
func HTTPConfig(hostname string, port int, version contract.SpecVersion, implementation Implementation) Config {
	return Config{
		Hostname:       hostname,
		Port:           port,
		SpecVersion:    version,
		Implementation: implementation,
	}.WithDefaults()
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.Hostname == "" {
		c.Hostname = Localhost
	}
	c.SpecVersion = c.SpecVersion.OrDefault()
	if c.Implementation == ImplementationDefault {
		c.Implementation = ImplementationEcho
	}
	if c.WaitDelay == 0 {
		c.WaitDelay = DefaultWaitDelay
	}
	if c.WaitDuration == 0 {
		c.WaitDuration = DefaultWaitDuration
	}
	return c
}

func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.Errorf("invalid mock server port %d", c.Port)
	}
	if c.TLSCAFile != "" && (c.TLSCertFile == "" || c.TLSKeyFile == "") {
		return errors.New("cannot run in mTLS mode without TLS cert and key")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return errors.New("TLS cert and key must be configured together")
	}
	return nil
}

func (c Config) TLS() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

func (c Config) Scheme() string {
	if c.TLS() {
		return "https"
	}
	return "http"
}

// Address is the host:port the mock service binds to.
func (c Config) Address() string {
	return net.JoinHostPort(c.Hostname, strconv.Itoa(c.Port))
}

func (c Config) String() string {
	return fmt.Sprintf("%s://%s (%s, %s)", c.Scheme(), c.Address(), c.SpecVersion, c.Implementation)
}
