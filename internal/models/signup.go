// Package models defines the core domain entities for the signup-trends pipeline.
// These models represent daily signup records grouped into yearly cohorts, monthly
// rollups, platform users with their resolved last access, and the activity snapshot
// derived from them.
//
// All models are built once per pipeline run and are not mutated afterwards.
// Aggregates carry a Validate method that checks their structural invariants.
package models

import (
	"errors"
	"fmt"
	"time"
)

// SignupRecord is one row of the signup dataset after typing and annotation.
type SignupRecord struct {
	SignupDate      time.Time `json:"signup_date"`
	FullDate        string    `json:"full_date"`    // date string exactly as it appeared in the source
	SignupCount     int       `json:"signups"`      // never negative
	DisplayDate     string    `json:"display_date"` // "M/D"
	MonthLabel      string    `json:"month"`        // "Jan".."Dec"
	CumulativeCount int       `json:"cumulative_signups"`
}

// CohortYearSeries holds one calendar year of signup records in ascending date order.
type CohortYearSeries struct {
	Year    int            `json:"year"`
	Records []SignupRecord `json:"records"`
	Total   int            `json:"total"`
}

// Validate checks ordering and that CumulativeCount is the prefix sum of SignupCount.
func (s *CohortYearSeries) Validate() error {
	running := 0
	for i, r := range s.Records {
		if r.SignupCount < 0 {
			return fmt.Errorf("record %d: signup count must not be negative", i)
		}
		if r.SignupDate.Year() != s.Year {
			return fmt.Errorf("record %d: date %s outside cohort year %d", i, r.FullDate, s.Year)
		}
		if i > 0 && r.SignupDate.Before(s.Records[i-1].SignupDate) {
			return fmt.Errorf("record %d: dates must be ascending", i)
		}
		running += r.SignupCount
		if r.CumulativeCount != running {
			return fmt.Errorf("record %d: cumulative count %d, expected %d", i, r.CumulativeCount, running)
		}
	}
	if s.Total != running {
		return errors.New("total must equal the sum of signup counts")
	}
	return nil
}

// MonthlyBucket is the summed signups for one (year, month).
type MonthlyBucket struct {
	MonthKey     string `json:"month_year"` // "YYYY-MM"
	MonthLabel   string `json:"month"`
	MonthIndex   int    `json:"month_index"` // 0 = January
	TotalSignups int    `json:"signups"`
}

// Validate checks the month index range.
func (b *MonthlyBucket) Validate() error {
	if b.MonthIndex < 0 || b.MonthIndex > 11 {
		return errors.New("month index must be between 0 and 11")
	}
	if b.TotalSignups < 0 {
		return errors.New("total signups must not be negative")
	}
	return nil
}

// CohortSummary holds the headline figures for one cohort year.
// PeakMonth is empty when no month recorded a signup; AverageMonthly is the
// mean over months present in the data, rounded half up, and 0 without months.
type CohortSummary struct {
	Year           int    `json:"year"`
	Total          int    `json:"total"`
	Months         int    `json:"months"`
	PeakMonth      string `json:"peak_month"`
	PeakSignups    int    `json:"peak_signups"`
	AverageMonthly int    `json:"average_monthly_signups"`
}
