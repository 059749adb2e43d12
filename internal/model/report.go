package model

import "time"

// ReportStatus is the lifecycle of an upstream report request.
type ReportStatus string

const (
	ReportPending   ReportStatus = "PENDING"
	ReportCompleted ReportStatus = "COMPLETED"
	ReportFailed    ReportStatus = "FAILED"
)

// Valid reports whether s is a known status.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportPending, ReportCompleted, ReportFailed:
		return true
	}
	return false
}

// Report is one asynchronous report requested for a profile and date range.
// ExternalReportID is empty until the upstream API accepted the request.
type Report struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	ProfileID        string       `json:"profile_id"`
	ExternalReportID string       `json:"external_report_id,omitempty"`
	ReportKey        string       `json:"report_key"`
	AdProduct        string       `json:"ad_product"`
	Status           ReportStatus `json:"status"`
	StartDate        time.Time    `json:"start_date"`
	EndDate          time.Time    `json:"end_date"`
	Attempts         int          `json:"attempts"`
	LastError        string       `json:"last_error,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}
