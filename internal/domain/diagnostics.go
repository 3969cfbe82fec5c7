package domain

import "time"

// DiagnosticStatus indicates whether a single environment check passed.
type DiagnosticStatus string

const (
	DiagnosticStatusPass DiagnosticStatus = "pass"
	DiagnosticStatusFail DiagnosticStatus = "fail"
)

// Diagnostic item IDs reported by the checker.
const (
	DiagnosticServiceURL    = "service_url"
	DiagnosticServiceHealth = "service_health"
	DiagnosticOutputDir     = "output_dir"
)

// DiagnosticItem is one check result with an optional remediation hint.
type DiagnosticItem struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Status  DiagnosticStatus `json:"status"`
	Message string           `json:"message"`
	Hint    string           `json:"hint,omitempty"`
}

// DiagnosticReport aggregates checks for the settings screen.
type DiagnosticReport struct {
	GeneratedAt time.Time        `json:"generatedAt"`
	HasFailures bool             `json:"hasFailures"`
	Items       []DiagnosticItem `json:"items"`
}
