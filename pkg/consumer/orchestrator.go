package consumer

import (
	"context"

	"github.com/form3tech-oss/pact-consumer/pkg/contract"
	"github.com/form3tech-oss/pact-consumer/pkg/mockserver"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// RunState is a step of an orchestrated run.
type RunState int

const (
	StateIdle RunState = iota
	StateServiceStarting
	StateServiceRunning
	StateBodyExecuting
	StateServiceStopping
	StatePersisted
	StateDone
	StateFailed
)

var runStateNames = map[RunState]string{
	StateIdle:            "Idle",
	StateServiceStarting: "ServiceStarting",
	StateServiceRunning:  "ServiceRunning",
	StateBodyExecuting:   "BodyExecuting",
	StateServiceStopping: "ServiceStopping",
	StatePersisted:       "Persisted",
	StateDone:            "Done",
	StateFailed:          "Failed",
}

func (s RunState) String() string {
	if name, ok := runStateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Orchestrator brackets a test body with the lifecycle of a mock service.
type Orchestrator struct {
	Factory mockserver.Factory
	// PactDirectory is passed to Document.WriteTo after a clean run.
	PactDirectory string
	// OnTransition, when set, observes every state change.
	OnTransition func(from, to RunState)
}

type run struct {
	orchestrator Orchestrator
	state        RunState
	logger       *log.Entry
}

func (r *run) transition(to RunState) {
	r.logger.Debugf("pact run %s -> %s", r.state, to)
	if r.orchestrator.OnTransition != nil {
		r.orchestrator.OnTransition(r.state, to)
	}
	r.state = to
}

// RunContractTest starts a mock service for doc, runs body against it and
// stops the service on every exit path. The contract is persisted only when
// the body succeeded and the service recorded no mismatch.
func (o Orchestrator) RunContractTest(ctx context.Context, doc contract.Document, config mockserver.Config,
	body func(mockserver.MockServer) error) VerificationResult {
	r := &run{
		orchestrator: o,
		state:        StateIdle,
		logger: log.WithFields(log.Fields{
			"consumer": doc.Consumer(),
			"provider": doc.Provider(),
		}),
	}

	if o.Factory == nil {
		r.transition(StateFailed)
		return ExceptionOccurred{Err: errors.New("no mock service factory configured")}
	}

	r.transition(StateServiceStarting)
	server, err := o.Factory.Start(ctx, doc, config)
	if err != nil {
		r.transition(StateFailed)
		return ExceptionOccurred{Err: errors.Wrap(err, "unable to start mock service")}
	}
	r.transition(StateServiceRunning)
	r.logger.WithField("url", server.URL()).Info("mock service running")

	var (
		stopped    bool
		mismatches []mockserver.Mismatch
		stopErr    error
	)
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		r.transition(StateServiceStopping)
		mismatches, stopErr = server.Stop(ctx)
	}
	// The body may leave through runtime.Goexit (t.FailNow), skipping
	// everything after runBody.
	defer stop()

	r.transition(StateBodyExecuting)
	bodyErr := runBody(body, server)
	stop()

	switch {
	case bodyErr != nil:
		r.transition(StateFailed)
		return UserCodeFailed{Err: bodyErr}
	case stopErr != nil:
		r.transition(StateFailed)
		return ExceptionOccurred{Err: stopErr}
	case len(mismatches) > 0:
		r.transition(StateFailed)
		return PactMismatch{Mismatches: mismatches}
	}

	if err := doc.WriteTo(o.PactDirectory); err != nil {
		r.transition(StateFailed)
		return ExceptionOccurred{Err: errors.Wrap(err, "unable to persist pact")}
	}
	r.transition(StatePersisted)
	r.transition(StateDone)
	return Ok{}
}

func runBody(body func(mockserver.MockServer) error, server mockserver.MockServer) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("test body panicked: %v", p)
		}
	}()
	return body(server)
}
