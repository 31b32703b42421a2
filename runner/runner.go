package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"convokit/core"
)

// Runner starts services in order and stops them in reverse. A service that fails to start stops
// the ones already started.
type Runner struct {
	Services []core.IService

	mu      sync.Mutex
	started int
	cancel  context.CancelFunc
	logger  *core.Logger
}

func NewRunner(services []core.IService, logger *core.Logger) *Runner {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Runner{
		Services: services,
		logger:   logger.With(map[string]any{"component": "runner"}),
	}
}

// Start calls Init on each service. ctx bounds the lifetime of every service.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return errors.New("runner already started")
	}

	ctx, r.cancel = context.WithCancel(ctx)
	for i, svc := range r.Services {
		if err := svc.Init(ctx); err != nil {
			r.logger.WithError(err).Error("service failed to start", "index", i)
			r.stopLocked()
			return fmt.Errorf("service %d: %w", i, err)
		}
		r.started = i + 1
	}
	return nil
}

// Stop cleans up every started service, last started first, and returns all cleanup errors
// joined. Stop is a no-op on a runner that is not running.
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopLocked()
}

func (r *Runner) stopLocked() error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()

	var errs []error
	for i := r.started - 1; i >= 0; i-- {
		if err := r.Services[i].Cleanup(); err != nil {
			r.logger.WithError(err).Warn("service cleanup failed", "index", i)
			errs = append(errs, err)
		}
	}
	r.started = 0
	r.cancel = nil
	return errors.Join(errs...)
}

// Reset drops transient state of every service that supports it.
func (r *Runner) Reset() error {
	var errs []error
	for _, svc := range r.Services {
		if resettable, ok := svc.(core.IResettable); ok {
			if err := resettable.Reset(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// CleanupFunc adapts a close function into a service with nothing to start.
type CleanupFunc func() error

func (f CleanupFunc) Init(context.Context) error { return nil }

func (f CleanupFunc) Cleanup() error { return f() }
