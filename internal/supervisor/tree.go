// Package supervisor runs the long-lived parts of the process under a
// suture supervision tree so a crashed service is restarted with backoff.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// Defaults match suture's own.
const (
	defaultFailureThreshold = 5.0
	defaultFailureDecay     = 30.0
	defaultFailureBackoff   = 15 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
)

// Tree is the process supervisor. The api layer holds the HTTP server and
// the background layer holds periodic jobs, so a failing job never takes
// the listener down with it.
type Tree struct {
	root       *suture.Supervisor
	api        *suture.Supervisor
	background *suture.Supervisor
}

type settings struct {
	failureThreshold float64
	failureDecay     float64
	failureBackoff   time.Duration
	shutdownTimeout  time.Duration
}

// Option configures a Tree.
type Option func(*settings)

// WithShutdownTimeout bounds how long each service gets to stop.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithFailureBackoff sets how long a supervisor pauses once a service
// fails more than threshold times within the decay window.
func WithFailureBackoff(threshold float64, backoff time.Duration) Option {
	return func(s *settings) {
		if threshold > 0 {
			s.failureThreshold = threshold
		}
		if backoff > 0 {
			s.failureBackoff = backoff
		}
	}
}

// NewTree builds the tree. Supervisor events are logged through log.
func NewTree(log *slog.Logger, opts ...Option) *Tree {
	s := settings{
		failureThreshold: defaultFailureThreshold,
		failureDecay:     defaultFailureDecay,
		failureBackoff:   defaultFailureBackoff,
		shutdownTimeout:  defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(&s)
	}

	spec := suture.Spec{
		FailureThreshold: s.failureThreshold,
		FailureDecay:     s.failureDecay,
		FailureBackoff:   s.failureBackoff,
		Timeout:          s.shutdownTimeout,
	}
	rootSpec := spec
	rootSpec.EventHook = (&sutureslog.Handler{Logger: log}).MustHook()

	t := &Tree{
		root:       suture.New("marquee", rootSpec),
		api:        suture.New("api", spec),
		background: suture.New("background", spec),
	}
	t.root.Add(t.api)
	t.root.Add(t.background)
	return t
}

// AddAPIService adds a request-serving service.
func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// AddBackgroundService adds a periodic or housekeeping service.
func (t *Tree) AddBackgroundService(svc suture.Service) suture.ServiceToken {
	return t.background.Add(svc)
}

// ServeBackground starts the tree. The channel yields the root's exit error
// once ctx ends or the tree gives up.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that missed the shutdown timeout.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
