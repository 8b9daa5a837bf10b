// Package monitor defines the health report of a jsonmeta node.
package monitor

import "context"

// Check probes one dependency of the node. A nil error means healthy.
type Check func(ctx context.Context) error

// NodeHealth is the outcome of running every registered check.
type NodeHealth struct {
	// Healthy is true when every check passed.
	Healthy bool `json:"healthy"`

	// Checks maps each check name to "ok" or its error text.
	Checks map[string]string `json:"checks"`

	// CheckedAt is the Unix timestamp of the run.
	CheckedAt int64 `json:"checkedAt"`
}

// HealthMonitor runs named checks against a node.
type HealthMonitor interface {
	// Register adds or replaces the check called name.
	Register(name string, check Check)

	// CheckHealth runs every check.
	CheckHealth(ctx context.Context) NodeHealth
}
