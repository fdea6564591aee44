package configuration

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/form3tech-oss/pact-consumer/pkg/mockserver"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var servers sync.Map

// Server is an HTTP server bound to a listener. The listener is open as soon
// as StartServer returns, so the port is known even when 0 was requested.
type Server struct {
	server   *http.Server
	listener net.Listener
	scheme   string
	host     string
	port     int
	done     chan struct{}
}

func StartServer(config mockserver.Config, handler http.Handler) (*Server, error) {
	tlsConfig, err := newTLSConfig(config)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", config.Address())
	if err != nil {
		return nil, errors.Wrapf(err, "unable to listen on %s", config.Address())
	}

	s := &Server{
		server:   &http.Server{Handler: handler, TLSConfig: tlsConfig},
		listener: listener,
		scheme:   config.Scheme(),
		host:     urlHost(config.Hostname),
		port:     listener.Addr().(*net.TCPAddr).Port,
		done:     make(chan struct{}),
	}

	if _, loaded := servers.LoadOrStore(s.key(), s); loaded {
		listener.Close()
		return nil, fmt.Errorf("server already running at %s", s.URL())
	}

	if tlsConfig != nil {
		s.listener = tls.NewListener(listener, tlsConfig)
	}

	go func() {
		defer close(s.done)
		if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			log.Error(err)
		}
	}()
	return s, nil
}

func (s *Server) URL() string {
	return fmt.Sprintf("%s://%s", s.scheme, net.JoinHostPort(s.host, strconv.Itoa(s.port)))
}

func (s *Server) Port() int {
	return s.port
}

// Shutdown stops the server and waits for its serve loop to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	servers.Delete(s.key())
	err := s.server.Shutdown(ctx)
	select {
	case <-s.done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

func (s *Server) key() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

func ShutdownAllServers(ctx context.Context) {
	servers.Range(func(key, _ interface{}) bool {
		server, loaded := servers.LoadAndDelete(key)
		if loaded {
			if err := server.(*Server).Shutdown(ctx); err != nil {
				log.Error(err)
			}
		}
		return true
	})
}

func urlHost(hostname string) string {
	switch hostname {
	case "", "0.0.0.0", "::":
		return mockserver.Localhost
	}
	return hostname
}

func newTLSConfig(config mockserver.Config) (*tls.Config, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if !config.TLS() {
		return nil, nil
	}

	certificate, err := tls.LoadX509KeyPair(config.TLSCertFile, config.TLSKeyFile)
	if err != nil {
		return nil, errors.Wrap(err, "error loading TLS certificate")
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{certificate},
		MinVersion:   tls.VersionTLS12,
	}

	if config.TLSCAFile != "" {
		caCertFile, err := os.ReadFile(config.TLSCAFile)
		if err != nil {
			return nil, errors.Wrap(err, "error reading CA certificate")
		}
		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(caCertFile) {
			return nil, errors.Errorf("no certificates found in %s", config.TLSCAFile)
		}
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
		tlsConfig.ClientCAs = certPool
	}
	return tlsConfig, nil
}
