package models

import "time"

// SourceStatus is the load outcome of one input.
type SourceStatus string

const (
	SourceOK          SourceStatus = "ok"
	SourceUnavailable SourceStatus = "unavailable"
)

// SourceOutcome records how one input was loaded.
type SourceOutcome struct {
	Name     string       `json:"name"`
	Location string       `json:"location"`
	Status   SourceStatus `json:"status"`
	Error    string       `json:"error,omitempty"`
	Records  int          `json:"records"`
}

// DashboardStatus summarizes both sources.
type DashboardStatus string

const (
	StatusComplete    DashboardStatus = "complete"
	StatusPartial     DashboardStatus = "partial"
	StatusUnavailable DashboardStatus = "unavailable"
)

// StatusOf derives the overall status from per-source outcomes.
func StatusOf(outcomes ...SourceOutcome) DashboardStatus {
	ok := 0
	for _, o := range outcomes {
		if o.Status == SourceOK {
			ok++
		}
	}
	switch {
	case len(outcomes) > 0 && ok == len(outcomes):
		return StatusComplete
	case ok == 0:
		return StatusUnavailable
	default:
		return StatusPartial
	}
}

// Diagnostics counts input that was tolerated rather than used.
type Diagnostics struct {
	MalformedRows       int `json:"malformed_rows"`
	UnparseableDates    int `json:"unparseable_dates"`
	OutOfRangeYears     int `json:"out_of_range_years"`
	SkippedPlatformRows int `json:"skipped_platform_rows"`
}

// Dashboard is the complete output consumed by the presentation layer.
type Dashboard struct {
	RunID       string                  `json:"run_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	Status      DashboardStatus         `json:"status"`
	Sources     []SourceOutcome         `json:"sources"`
	Cohorts     []CohortYearSeries      `json:"cohorts"`
	Monthly     map[int][]MonthlyBucket `json:"monthly"`
	Summaries   []CohortSummary         `json:"summaries"`
	Activity    ActivitySnapshot        `json:"activity"`
	Diagnostics Diagnostics             `json:"diagnostics"`
}

// Cohort returns the series for year, if present.
func (d *Dashboard) Cohort(year int) (CohortYearSeries, bool) {
	for _, c := range d.Cohorts {
		if c.Year == year {
			return c, true
		}
	}
	return CohortYearSeries{}, false
}

// Summary returns the headline figures for year, if present.
func (d *Dashboard) Summary(year int) (CohortSummary, bool) {
	for _, s := range d.Summaries {
		if s.Year == year {
			return s, true
		}
	}
	return CohortSummary{}, false
}
