package mockservice

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/form3tech-oss/pact-consumer/internal/app/httpresponse"
	"github.com/form3tech-oss/pact-consumer/pkg/mockserver"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Service replays a set of interactions and records every request that
// does not match one of them.
type Service struct {
	interactions *Interactions
	notify       *notify
	delay        time.Duration
	duration     time.Duration

	mu         sync.Mutex
	mismatches []mockserver.Mismatch
}

func New(definitions []json.RawMessage, config mockserver.Config) (*Service, error) {
	config = config.WithDefaults()
	s := &Service{
		interactions: &Interactions{},
		notify:       newNotify(),
		delay:        config.WaitDelay,
		duration:     config.WaitDuration,
	}

	for _, definition := range definitions {
		interaction, err := loadInteraction(definition)
		if err != nil {
			return nil, err
		}
		log.Debugf("storing interaction '%s'", interaction.Description)
		s.interactions.Store(interaction)
	}
	return s, nil
}

// Handler returns the HTTP handler for the requested engine.
func (s *Service) Handler(implementation mockserver.Implementation) http.Handler {
	if implementation == mockserver.ImplementationNetHTTP {
		return s
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Any("/*", echo.WrapHandler(s))
	return e
}

func (s *Service) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	logger := log.WithFields(log.Fields{
		"method": req.Method,
		"path":   req.URL.Path,
	})
	logger.Info("received request")

	candidates, ok := s.interactions.FindAll(req.URL.Path, req.Method)
	if !ok {
		s.record(mockserver.UnexpectedRequest{Method: req.Method, Path: req.URL.Path})
		httpresponse.Errorf(res, http.StatusInternalServerError, "unexpected request '%s %s'", req.Method, req.URL.Path)
		return
	}

	request, err := newRequestDocument(req)
	if err != nil {
		s.record(mockserver.RequestMismatch{
			Method:     req.Method,
			Path:       req.URL.Path,
			Violations: map[string][]string{"request": {err.Error()}},
		})
		httpresponse.Errorf(res, http.StatusBadRequest, "unable to read request. %s", err.Error())
		return
	}

	violations := make(map[string][]string)
	matched := make([]*interaction, 0, len(candidates))
	for _, candidate := range candidates {
		ok, info := candidate.EvaluateConstraints(request)
		if ok {
			matched = append(matched, candidate)
			continue
		}
		violations[candidate.Description] = append(violations[candidate.Description], info...)
	}

	if len(matched) == 0 {
		for desc, info := range violations {
			logger.Infof("constraints do not match for '%s'.\n\n%s", desc, strings.Join(info, "\n"))
		}
		s.record(mockserver.RequestMismatch{Method: req.Method, Path: req.URL.Path, Violations: violations})
		httpresponse.Error(res, http.StatusInternalServerError, "request does not match any interaction")
		return
	}

	chosen := s.claim(matched, request)
	s.notify.Notify()

	logger.Infof("matched interaction '%s'", chosen.Description)
	if err := chosen.response.write(res); err != nil {
		logger.Error(err)
	}
}

// claim prefers an interaction that has not been received yet, so repeated
// identical interactions each need their own request.
func (s *Service) claim(matched []*interaction, request requestDocument) *interaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	chosen := matched[0]
	for _, m := range matched {
		if !m.HasRequests(1) {
			chosen = m
			break
		}
	}
	chosen.StoreRequest(request)
	return chosen
}

func (s *Service) record(mismatch mockserver.Mismatch) {
	log.Warn(mismatch.Describe())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mismatches = append(s.mismatches, mismatch)
}

// Mismatches returns the recorded mismatches followed by one MissingRequest
// per interaction that was never received.
func (s *Service) Mismatches() []mockserver.Mismatch {
	s.mu.Lock()
	mismatches := append([]mockserver.Mismatch(nil), s.mismatches...)
	s.mu.Unlock()

	for _, i := range s.interactions.All() {
		if !i.HasRequests(1) {
			mismatches = append(mismatches, mockserver.MissingRequest{
				Description: i.Description,
				Method:      i.Method,
				Path:        i.pathMatcher.String(),
			})
		}
	}
	return mismatches
}

// WaitForInteractions blocks until all interactions have been received.
func (s *Service) WaitForInteractions(ctx context.Context) error {
	log.Info("waiting for all interactions")
	ok := retryFor(ctx, func(timeLeft time.Duration) bool {
		if s.interactions.AllHaveRequests() {
			return true
		}
		if timeLeft > 0 {
			s.notify.Wait(ctx, timeLeft)
		}
		return false
	}, s.delay, s.duration)

	if ok || s.interactions.AllHaveRequests() {
		return nil
	}
	for _, i := range s.interactions.All() {
		if !i.HasRequests(1) {
			log.Infof("'%s' has no requests", i.Description)
		}
	}
	return errors.New("timeout waiting for interactions to be met")
}
