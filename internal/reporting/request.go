package reporting

import "time"

// DateLayout is the calendar date format used by the reporting API.
const DateLayout = "2006-01-02"

const (
	TimeUnitDaily  = "DAILY"
	FormatGzipJSON = "GZIP_JSON"
)

// ReportRequest is the body of an async report creation call.
type ReportRequest struct {
	Name          string              `json:"name"`
	StartDate     string              `json:"startDate"`
	EndDate       string              `json:"endDate"`
	Configuration ReportConfiguration `json:"configuration"`
}

type ReportConfiguration struct {
	AdProduct    string   `json:"adProduct"`
	GroupBy      []string `json:"groupBy"`
	Columns      []string `json:"columns"`
	ReportTypeID string   `json:"reportTypeId"`
	TimeUnit     string   `json:"timeUnit"`
	Format       string   `json:"format"`
	Filters      []Filter `json:"filters,omitempty"`
}

// NewRequest builds a daily-granularity request for cfg over [start, end].
func NewRequest(cfg Config, name string, start, end time.Time) ReportRequest {
	return ReportRequest{
		Name:      name,
		StartDate: start.Format(DateLayout),
		EndDate:   end.Format(DateLayout),
		Configuration: ReportConfiguration{
			AdProduct:    cfg.AdProduct,
			GroupBy:      cfg.GroupBy,
			Columns:      cfg.Columns,
			ReportTypeID: cfg.ReportTypeID,
			TimeUnit:     TimeUnitDaily,
			Format:       FormatGzipJSON,
			Filters:      cfg.Filters,
		},
	}
}
