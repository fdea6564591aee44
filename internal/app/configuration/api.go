package configuration

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/form3tech-oss/pact-consumer/internal/app/httpresponse"
	"github.com/form3tech-oss/pact-consumer/pkg/mockserver"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Stubs are the mock services run by the pact-stub command, by pact file path.
type Stubs struct {
	mu       sync.Mutex
	services map[string]*MockService
}

func NewStubs() *Stubs {
	return &Stubs{services: map[string]*MockService{}}
}

// Add registers service under name. A name can only be registered once.
func (s *Stubs) Add(name string, service *MockService) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.services[name]; ok {
		return errors.Errorf("stub %s is already registered", name)
	}
	s.services[name] = service
	return nil
}

// StopAll stops every stub and returns their mismatches by pact file.
func (s *Stubs) StopAll(ctx context.Context) (map[string][]mockserver.Mismatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make(map[string][]mockserver.Mismatch, len(s.services))
	for name, service := range s.services {
		mismatches, err := service.Stop(ctx)
		if err != nil {
			return results, err
		}
		results[name] = mismatches
		delete(s.services, name)
	}
	return results, nil
}

// StubStatus is what the admin API reports for one stub.
type StubStatus struct {
	URL        string   `json:"url"`
	Mismatches []string `json:"mismatches"`
}

func (s *Stubs) status() map[string]StubStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := make(map[string]StubStatus, len(s.services))
	for name, service := range s.services {
		descriptions := []string{}
		for _, m := range service.Mismatches() {
			descriptions = append(descriptions, m.Describe())
		}
		status[name] = StubStatus{URL: service.URL(), Mismatches: descriptions}
	}
	return status
}

// WaitForInteractions waits for every stub to receive all its interactions.
func (s *Stubs) WaitForInteractions(ctx context.Context) error {
	s.mu.Lock()
	services := make(map[string]*MockService, len(s.services))
	for name, service := range s.services {
		services[name] = service
	}
	s.mu.Unlock()

	for name, service := range services {
		if err := service.WaitForInteractions(ctx); err != nil {
			return errors.Wrapf(err, "stub %s", name)
		}
	}
	return nil
}

func ServeAdminAPI(port int, stubs *Stubs) *echo.Echo {
	adminServer := NewAdminAPI(stubs)

	go func() {
		address := fmt.Sprintf(":%d", port)
		if err := adminServer.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	return adminServer
}

func NewAdminAPI(stubs *Stubs) *echo.Echo {
	adminServer := echo.New()
	adminServer.HideBanner = true

	adminServer.GET("/ready", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	adminServer.GET("/mismatches", func(c echo.Context) error {
		return c.JSON(http.StatusOK, stubs.status())
	})
	adminServer.GET("/interactions/wait", func(c echo.Context) error {
		if err := stubs.WaitForInteractions(c.Request().Context()); err != nil {
			return c.JSON(http.StatusRequestTimeout, httpresponse.NewError(err.Error()))
		}
		return c.NoContent(http.StatusOK)
	})
	adminServer.DELETE("/stubs", func(c echo.Context) error {
		log.Infof("closing all stubs")
		if _, err := stubs.StopAll(c.Request().Context()); err != nil {
			return c.JSON(
				http.StatusInternalServerError,
				httpresponse.NewErrorf("unable to stop stubs. %s", err.Error()),
			)
		}
		return c.NoContent(http.StatusNoContent)
	})

	return adminServer
}
