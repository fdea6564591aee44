package configuration

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/form3tech-oss/pact-consumer/internal/app/mockservice"
	"github.com/form3tech-oss/pact-consumer/pkg/contract"
	"github.com/form3tech-oss/pact-consumer/pkg/mockserver"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	readyAttempts = 10
	readyDelay    = 50 * time.Millisecond
	dialTimeout   = time.Second
)

// MockService is a mock service bound to its own server.
type MockService struct {
	service *mockservice.Service
	server  *Server

	stopOnce sync.Once
	stopErr  error
}

var _ mockserver.MockServer = (*MockService)(nil)

// StartMockService serves the interactions of doc. It satisfies
// mockserver.FactoryFunc.
func StartMockService(ctx context.Context, doc contract.Document, config mockserver.Config) (mockserver.MockServer, error) {
	definitions, err := contract.InteractionDefinitions(doc)
	if err != nil {
		return nil, err
	}
	return StartMockServiceFromDefinitions(ctx, definitions, config)
}

func StartMockServiceFromDefinitions(ctx context.Context, definitions []json.RawMessage, config mockserver.Config) (*MockService, error) {
	config = config.WithDefaults()
	service, err := mockservice.New(definitions, config)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load interactions")
	}

	server, err := StartServer(config, service.Handler(config.Implementation))
	if err != nil {
		return nil, err
	}

	if err := waitUntilReady(ctx, server); err != nil {
		_ = server.Shutdown(ctx)
		return nil, err
	}

	log.WithFields(log.Fields{
		"url":            server.URL(),
		"implementation": config.Implementation,
		"spec_version":   config.SpecVersion,
	}).Infof("mock service started with %d interactions", len(definitions))

	return &MockService{
		service: service,
		server:  server,
	}, nil
}

func waitUntilReady(ctx context.Context, server *Server) error {
	err := retry.Do(func() error {
		conn, err := net.DialTimeout("tcp", server.key(), dialTimeout)
		if err != nil {
			return err
		}
		return conn.Close()
	},
		retry.Context(ctx),
		retry.Attempts(readyAttempts),
		retry.Delay(readyDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	return errors.Wrapf(err, "mock service at %s is not ready", server.URL())
}

func (m *MockService) URL() string {
	return m.server.URL()
}

func (m *MockService) Port() int {
	return m.server.Port()
}

func (m *MockService) WaitForInteractions(ctx context.Context) error {
	return m.service.WaitForInteractions(ctx)
}

// Mismatches reports what the service observed so far.
func (m *MockService) Mismatches() []mockserver.Mismatch {
	return m.service.Mismatches()
}

// Stop shuts the server down once; later calls only report mismatches.
func (m *MockService) Stop(ctx context.Context) ([]mockserver.Mismatch, error) {
	m.stopOnce.Do(func() {
		log.WithField("url", m.URL()).Info("stopping mock service")
		m.stopErr = m.server.Shutdown(ctx)
	})
	if m.stopErr != nil {
		return nil, errors.Wrap(m.stopErr, "unable to stop mock service")
	}
	return m.service.Mismatches(), nil
}
