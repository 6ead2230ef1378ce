package health

import (
	"context"
	"time"
)

// Overall states.
const (
	StatusUp       = "UP"
	StatusDegraded = "DEGRADED"
)

// Checker probes one dependency of the gateway (database, shared cache).
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Dependency is the result of one Checker.
type Dependency struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Status captures the state of the service at a moment in time.
type Status struct {
	Service      string       `json:"service"`
	Version      string       `json:"version"`
	Environment  string       `json:"environment"`
	Status       string       `json:"status"`
	StartedAt    time.Time    `json:"startedAt"`
	Uptime       string       `json:"uptime"`
	UptimeSecs   int64        `json:"uptimeSeconds"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
}
