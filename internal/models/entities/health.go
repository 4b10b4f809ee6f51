package entities

import "time"

// DependencyStatus is one pinged dependency in the health report.
type DependencyStatus struct {
	Status    string `json:"status"`
	Details   string `json:"details,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

type HealthCheckResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
	UpSince      time.Time                   `json:"up_since"`
	Uptime       string                      `json:"uptime"`
}
