package models

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCohortYearSeriesValidate(t *testing.T) {
	tests := []struct {
		name    string
		series  CohortYearSeries
		wantErr bool
	}{
		{
			name: "valid series",
			series: CohortYearSeries{
				Year: 2024,
				Records: []SignupRecord{
					{SignupDate: day("2024-01-26"), FullDate: "2024-01-26", SignupCount: 5, CumulativeCount: 5},
					{SignupDate: day("2024-01-27"), FullDate: "2024-01-27", SignupCount: 3, CumulativeCount: 8},
				},
				Total: 8,
			},
			wantErr: false,
		},
		{
			name:    "empty series",
			series:  CohortYearSeries{Year: 2025},
			wantErr: false,
		},
		{
			name: "cumulative mismatch",
			series: CohortYearSeries{
				Year: 2024,
				Records: []SignupRecord{
					{SignupDate: day("2024-01-26"), SignupCount: 5, CumulativeCount: 5},
					{SignupDate: day("2024-01-27"), SignupCount: 3, CumulativeCount: 7},
				},
				Total: 8,
			},
			wantErr: true,
		},
		{
			name: "descending dates",
			series: CohortYearSeries{
				Year: 2024,
				Records: []SignupRecord{
					{SignupDate: day("2024-02-01"), SignupCount: 1, CumulativeCount: 1},
					{SignupDate: day("2024-01-01"), SignupCount: 1, CumulativeCount: 2},
				},
				Total: 2,
			},
			wantErr: true,
		},
		{
			name: "wrong year",
			series: CohortYearSeries{
				Year: 2025,
				Records: []SignupRecord{
					{SignupDate: day("2024-02-01"), SignupCount: 1, CumulativeCount: 1},
				},
				Total: 1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.series.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("CohortYearSeries.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMonthlyBucketValidate(t *testing.T) {
	tests := []struct {
		name    string
		bucket  MonthlyBucket
		wantErr bool
	}{
		{"january", MonthlyBucket{MonthKey: "2024-01", MonthLabel: "Jan", MonthIndex: 0, TotalSignups: 8}, false},
		{"december", MonthlyBucket{MonthKey: "2024-12", MonthLabel: "Dec", MonthIndex: 11}, false},
		{"index too large", MonthlyBucket{MonthIndex: 12}, true},
		{"negative index", MonthlyBucket{MonthIndex: -1}, true},
		{"negative total", MonthlyBucket{MonthIndex: 3, TotalSignups: -2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bucket.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDashboardSummary(t *testing.T) {
	d := &Dashboard{Summaries: []CohortSummary{{Year: 2024, PeakMonth: "Mar"}}}

	if s, ok := d.Summary(2024); !ok || s.PeakMonth != "Mar" {
		t.Errorf("Expected 2024 summary, got %+v (%v)", s, ok)
	}
	if _, ok := d.Summary(2025); ok {
		t.Errorf("Expected no 2025 summary")
	}
}

func TestActivitySnapshotValidate(t *testing.T) {
	never := PlatformUserRecord{LastAccess: NeverAccessed()}
	active := PlatformUserRecord{LastAccess: AccessedAt(time.Now())}

	tests := []struct {
		name     string
		snapshot ActivitySnapshot
		wantErr  bool
	}{
		{
			name: "valid snapshot",
			snapshot: ActivitySnapshot{
				TotalUsers:    2,
				ActiveUsers:   []PlatformUserRecord{active},
				InactiveUsers: []PlatformUserRecord{never},
				BucketCounts:  map[string]int{BucketLast7Days: 1, BucketNever: 1},
			},
			wantErr: false,
		},
		{
			name:     "empty snapshot",
			snapshot: ActivitySnapshot{BucketCounts: map[string]int{}},
			wantErr:  false,
		},
		{
			name: "bucket sum mismatch",
			snapshot: ActivitySnapshot{
				TotalUsers:    2,
				ActiveUsers:   []PlatformUserRecord{active},
				InactiveUsers: []PlatformUserRecord{never},
				BucketCounts:  map[string]int{BucketLast7Days: 2, BucketNever: 1},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snapshot.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("ActivitySnapshot.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLastAccessJSON(t *testing.T) {
	b, err := NeverAccessed().MarshalJSON()
	if err != nil || string(b) != "null" {
		t.Errorf("Expected null, got %s (%v)", b, err)
	}

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	b, err = AccessedAt(at).MarshalJSON()
	if err != nil || string(b) != `"2025-03-01T12:00:00Z"` {
		t.Errorf("Unexpected encoding %s (%v)", b, err)
	}
}

func TestStatusOf(t *testing.T) {
	ok := SourceOutcome{Status: SourceOK}
	down := SourceOutcome{Status: SourceUnavailable}

	if got := StatusOf(ok, ok); got != StatusComplete {
		t.Errorf("Expected complete, got %s", got)
	}
	if got := StatusOf(ok, down); got != StatusPartial {
		t.Errorf("Expected partial, got %s", got)
	}
	if got := StatusOf(down, down); got != StatusUnavailable {
		t.Errorf("Expected unavailable, got %s", got)
	}
}
