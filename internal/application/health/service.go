package health

import (
	"context"
	"time"

	corehealth "3tcapital/ms_siigo_gateway/internal/core/health"
)

const checkTimeout = 2 * time.Second

// Metadata contains immutable metadata about the running service.
type Metadata struct {
	Service     string
	Version     string
	Environment string
}

// Service exposes health-check use cases to adapters.
type Service struct {
	meta      Metadata
	startedAt time.Time
	checkers  []corehealth.Checker
}

// NewService creates a health service. Checkers are optional; a failing checker marks
// the service DEGRADED without taking it down, since Siigo calls can still succeed.
func NewService(meta Metadata, checkers ...corehealth.Checker) *Service {
	return &Service{
		meta:      meta,
		startedAt: time.Now().UTC(),
		checkers:  checkers,
	}
}

// Status returns the current availability snapshot.
func (s *Service) Status(ctx context.Context) corehealth.Status {
	uptime := time.Since(s.startedAt)
	status := corehealth.Status{
		Service:     s.meta.Service,
		Version:     s.meta.Version,
		Environment: s.meta.Environment,
		Status:      corehealth.StatusUp,
		StartedAt:   s.startedAt,
		Uptime:      uptime.Round(time.Second).String(),
		UptimeSecs:  int64(uptime.Seconds()),
	}

	for _, checker := range s.checkers {
		dep := corehealth.Dependency{Name: checker.Name(), Status: corehealth.StatusUp}
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		if err := checker.Check(checkCtx); err != nil {
			dep.Status = "DOWN"
			dep.Error = err.Error()
			status.Status = corehealth.StatusDegraded
		}
		cancel()
		status.Dependencies = append(status.Dependencies, dep)
	}

	return status
}

// CheckFunc adapts a ping function to a named Checker.
type CheckFunc struct {
	Label string
	Fn    func(ctx context.Context) error
}

// Name implements Checker.
func (c CheckFunc) Name() string {
	return c.Label
}

// Check implements Checker.
func (c CheckFunc) Check(ctx context.Context) error {
	return c.Fn(ctx)
}
