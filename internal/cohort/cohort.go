// Package cohort splits daily signup counts into calendar-year cohorts,
// computes running totals within each year and rolls years up by month.
//
// Year membership is decided lexically from the date string's prefix, before
// any date parsing. Records outside the target years are excluded from every
// output and only reported as a count.
package cohort

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rewired-gh/signuptrends/internal/logger"
	"github.com/rewired-gh/signuptrends/internal/models"
	"github.com/rewired-gh/signuptrends/internal/tabular"
)

// Entry is a signup row before cohort assignment.
type Entry struct {
	Date  string
	Count int
	Line  int
}

// Result holds every target year's series plus what was left out.
type Result struct {
	Series      []models.CohortYearSeries
	OutOfRange  int // year prefix not a target year
	Unparseable int // target year, but the date itself could not be parsed
}

// dateLayouts are tried in order when parsing a signup date.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-1-2",
}

// EntriesFromTable reads date and count columns from parsed rows.
// A missing or non-numeric count becomes 0 and negative counts are clamped to 0.
func EntriesFromTable(t *tabular.Table, dateColumn, countColumn string) []Entry {
	entries := make([]Entry, 0, len(t.Rows))
	for _, row := range t.Rows {
		date, _ := row.String(dateColumn)
		count, err := row.Int(countColumn)
		switch {
		case row.IsNull(countColumn):
			logger.Debug("Line %d: missing %s, counting 0", row.Line, countColumn)
		case err != nil:
			logger.Debug("Line %d: treating count as 0: %v", row.Line, err)
			count = 0
		}
		if count < 0 {
			count = 0
		}
		entries = append(entries, Entry{Date: date, Count: count, Line: row.Line})
	}
	return entries
}

// YearOf returns the four-digit year before the first '-' of date.
func YearOf(date string) (int, bool) {
	prefix, _, _ := strings.Cut(strings.TrimSpace(date), "-")
	if len(prefix) != 4 {
		return 0, false
	}
	year, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, false
	}
	return year, true
}

// ParseDate parses an ISO-like signup date.
func ParseDate(date string) (time.Time, error) {
	date = strings.TrimSpace(date)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", date)
}

// BuildSeries assigns entries to the target years, sorts each year by date
// and annotates records with a cumulative count that restarts every year.
// Series are returned in ascending year order; a target year with no
// records yields an empty series.
func BuildSeries(entries []Entry, years []int) Result {
	targets := make(map[int][]models.SignupRecord, len(years))
	for _, y := range years {
		targets[y] = nil
	}

	var res Result
	for _, e := range entries {
		year, ok := YearOf(e.Date)
		if _, target := targets[year]; !ok || !target {
			res.OutOfRange++
			continue
		}
		date, err := ParseDate(e.Date)
		if err != nil {
			logger.Debug("Line %d: dropping signup record: %v", e.Line, err)
			res.Unparseable++
			continue
		}
		targets[year] = append(targets[year], newRecord(date, e))
	}

	ordered := make([]int, 0, len(targets))
	for y := range targets {
		ordered = append(ordered, y)
	}
	sort.Ints(ordered)

	for _, y := range ordered {
		res.Series = append(res.Series, accumulate(y, targets[y]))
	}
	return res
}

func newRecord(date time.Time, e Entry) models.SignupRecord {
	return models.SignupRecord{
		SignupDate:  date,
		FullDate:    strings.TrimSpace(e.Date),
		SignupCount: e.Count,
		DisplayDate: fmt.Sprintf("%d/%d", int(date.Month()), date.Day()),
		MonthLabel:  MonthLabel(date.Month()),
	}
}

func accumulate(year int, records []models.SignupRecord) models.CohortYearSeries {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].SignupDate.Before(records[j].SignupDate)
	})

	running := 0
	for i := range records {
		running += records[i].SignupCount
		records[i].CumulativeCount = running
	}

	if records == nil {
		records = []models.SignupRecord{}
	}
	return models.CohortYearSeries{Year: year, Records: records, Total: running}
}

// MonthLabel returns the three-letter month abbreviation.
func MonthLabel(m time.Month) string {
	return m.String()[:3]
}

// MonthlyBuckets sums a series by "YYYY-MM" and orders the buckets by
// calendar month, independent of the order records appear in.
func MonthlyBuckets(series models.CohortYearSeries) []models.MonthlyBucket {
	byKey := make(map[string]*models.MonthlyBucket)
	for _, r := range series.Records {
		key := r.SignupDate.Format("2006-01")
		b, ok := byKey[key]
		if !ok {
			b = &models.MonthlyBucket{
				MonthKey:   key,
				MonthLabel: MonthLabel(r.SignupDate.Month()),
				MonthIndex: int(r.SignupDate.Month()) - 1,
			}
			byKey[key] = b
		}
		b.TotalSignups += r.SignupCount
	}

	buckets := make([]models.MonthlyBucket, 0, len(byKey))
	for _, b := range byKey {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].MonthIndex != buckets[j].MonthIndex {
			return buckets[i].MonthIndex < buckets[j].MonthIndex
		}
		return buckets[i].MonthKey < buckets[j].MonthKey
	})
	return buckets
}

// MonthlyByYear applies MonthlyBuckets to every series.
func MonthlyByYear(series []models.CohortYearSeries) map[int][]models.MonthlyBucket {
	out := make(map[int][]models.MonthlyBucket, len(series))
	for _, s := range series {
		out[s.Year] = MonthlyBuckets(s)
	}
	return out
}

// Summarize computes the peak month and average monthly signups for a year.
// The earliest month wins a tie for the peak.
func Summarize(series models.CohortYearSeries, buckets []models.MonthlyBucket) models.CohortSummary {
	sum := models.CohortSummary{Year: series.Year, Total: series.Total, Months: len(buckets)}
	if len(buckets) == 0 {
		return sum
	}

	monthly := 0
	for _, b := range buckets {
		monthly += b.TotalSignups
		if b.TotalSignups > sum.PeakSignups {
			sum.PeakMonth = b.MonthLabel
			sum.PeakSignups = b.TotalSignups
		}
	}
	sum.AverageMonthly = int(math.Floor(float64(monthly)/float64(len(buckets)) + 0.5))
	return sum
}

// Summaries applies Summarize to every series using its monthly buckets.
func Summaries(series []models.CohortYearSeries, monthly map[int][]models.MonthlyBucket) []models.CohortSummary {
	out := make([]models.CohortSummary, 0, len(series))
	for _, s := range series {
		out = append(out, Summarize(s, monthly[s.Year]))
	}
	return out
}
