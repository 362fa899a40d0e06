package domain

import "time"

// MonitoringRun accumulates sweep counters. It is operational telemetry, not
// an authoritative ledger; losing it is safe.
type MonitoringRun struct {
	Processed   int64     `json:"processed"`
	Warnings    int64     `json:"warnings"`
	Breaches    int64     `json:"breaches"`
	Escalations int64     `json:"escalations"`
	Failures    int64     `json:"failures"`
	LastCheck   time.Time `json:"last_check"`
}
