package cohort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/signuptrends/internal/models"
	"github.com/rewired-gh/signuptrends/internal/tabular"
)

func TestBuildSeriesCumulative(t *testing.T) {
	res := BuildSeries([]Entry{
		{Date: "2024-01-26", Count: 5},
		{Date: "2024-01-27", Count: 3},
	}, []int{2024})

	require.Len(t, res.Series, 1)
	s := res.Series[0]
	require.Len(t, s.Records, 2)
	assert.Equal(t, 5, s.Records[0].CumulativeCount)
	assert.Equal(t, 8, s.Records[1].CumulativeCount)
	assert.Equal(t, 8, s.Total)
	assert.Equal(t, "1/26", s.Records[0].DisplayDate)
	assert.Equal(t, "Jan", s.Records[0].MonthLabel)
	assert.Equal(t, "2024-01-26", s.Records[0].FullDate)
	assert.NoError(t, s.Validate())
}

func TestBuildSeriesSortsAndResetsPerYear(t *testing.T) {
	entries := []Entry{
		{Date: "2025-03-02", Count: 7},
		{Date: "2024-12-31", Count: 1},
		{Date: "2025-01-15", Count: 2},
		{Date: "2024-02-10", Count: 4},
		{Date: "2024-02-10", Count: 6},
	}
	res := BuildSeries(entries, []int{2025, 2024})

	require.Len(t, res.Series, 2)
	y2024, y2025 := res.Series[0], res.Series[1]
	assert.Equal(t, 2024, y2024.Year)
	assert.Equal(t, 2025, y2025.Year)

	assert.Equal(t, []string{"2024-02-10", "2024-02-10", "2024-12-31"},
		[]string{y2024.Records[0].FullDate, y2024.Records[1].FullDate, y2024.Records[2].FullDate})
	assert.Equal(t, 11, y2024.Total)
	assert.Equal(t, 11, y2024.Records[2].CumulativeCount)

	assert.Equal(t, "2025-01-15", y2025.Records[0].FullDate)
	assert.Equal(t, 2, y2025.Records[0].CumulativeCount)
	assert.Equal(t, 9, y2025.Total)

	for _, s := range res.Series {
		assert.NoError(t, s.Validate())
	}
}

func TestBuildSeriesExcludesOtherYears(t *testing.T) {
	entries := []Entry{
		{Date: "2023-12-01", Count: 100},
		{Date: "2024-01-01", Count: 1},
		{Date: "2025-01-01", Count: 2},
		{Date: "", Count: 50},
		{Date: "not-a-date", Count: 50},
		{Date: "2024-99-99", Count: 9},
	}
	res := BuildSeries(entries, []int{2024, 2025})

	require.Len(t, res.Series, 2)
	assert.Equal(t, 1, res.Series[0].Total)
	assert.Equal(t, 2, res.Series[1].Total)
	assert.Equal(t, 3, res.OutOfRange)
	assert.Equal(t, 1, res.Unparseable)

	for _, s := range res.Series {
		for _, r := range s.Records {
			assert.NotEqual(t, "2023-12-01", r.FullDate)
		}
	}
}

func TestBuildSeriesEmptyYear(t *testing.T) {
	res := BuildSeries(nil, []int{2024})
	require.Len(t, res.Series, 1)
	assert.NotNil(t, res.Series[0].Records)
	assert.Empty(t, res.Series[0].Records)
	assert.Zero(t, res.Series[0].Total)
}

func TestMonthlyBucketsCalendarOrder(t *testing.T) {
	res := BuildSeries([]Entry{
		{Date: "2024-11-03", Count: 4},
		{Date: "2024-02-14", Count: 1},
		{Date: "2024-11-20", Count: 6},
		{Date: "2024-01-05", Count: 2},
		{Date: "2024-02-01", Count: 3},
	}, []int{2024})

	buckets := MonthlyBuckets(res.Series[0])
	require.Len(t, buckets, 3)

	assert.Equal(t, "Jan", buckets[0].MonthLabel)
	assert.Equal(t, 0, buckets[0].MonthIndex)
	assert.Equal(t, 2, buckets[0].TotalSignups)

	assert.Equal(t, "Feb", buckets[1].MonthLabel)
	assert.Equal(t, "2024-02", buckets[1].MonthKey)
	assert.Equal(t, 4, buckets[1].TotalSignups)

	assert.Equal(t, "Nov", buckets[2].MonthLabel)
	assert.Equal(t, 10, buckets[2].MonthIndex)
	assert.Equal(t, 10, buckets[2].TotalSignups)

	for i := 1; i < len(buckets); i++ {
		assert.Less(t, buckets[i-1].MonthIndex, buckets[i].MonthIndex)
	}
}

func TestSummarize(t *testing.T) {
	res := BuildSeries([]Entry{
		{Date: "2024-11-03", Count: 4},
		{Date: "2024-02-14", Count: 1},
		{Date: "2024-11-20", Count: 6},
		{Date: "2024-01-05", Count: 2},
		{Date: "2024-02-01", Count: 3},
	}, []int{2024})

	sum := Summarize(res.Series[0], MonthlyBuckets(res.Series[0]))
	assert.Equal(t, 2024, sum.Year)
	assert.Equal(t, 16, sum.Total)
	assert.Equal(t, 3, sum.Months)
	assert.Equal(t, "Nov", sum.PeakMonth)
	assert.Equal(t, 10, sum.PeakSignups)
	assert.Equal(t, 5, sum.AverageMonthly) // 16/3
}

func TestSummarizeRoundsHalfUpAndKeepsFirstPeak(t *testing.T) {
	res := BuildSeries([]Entry{
		{Date: "2025-03-01", Count: 2},
		{Date: "2025-01-01", Count: 2},
		{Date: "2025-02-01", Count: 0},
		{Date: "2025-04-01", Count: 0},
	}, []int{2025})

	sum := Summarize(res.Series[0], MonthlyBuckets(res.Series[0]))
	assert.Equal(t, "Jan", sum.PeakMonth)
	assert.Equal(t, 2, sum.PeakSignups)
	assert.Equal(t, 1, sum.AverageMonthly) // 4/4

	res = BuildSeries([]Entry{
		{Date: "2025-01-01", Count: 1},
		{Date: "2025-02-01", Count: 2},
	}, []int{2025})
	assert.Equal(t, 2, Summarize(res.Series[0], MonthlyBuckets(res.Series[0])).AverageMonthly) // 1.5
}

func TestSummarizeEmptyYear(t *testing.T) {
	res := BuildSeries(nil, []int{2025})
	sums := Summaries(res.Series, MonthlyByYear(res.Series))

	require.Len(t, sums, 1)
	assert.Equal(t, models.CohortSummary{Year: 2025}, sums[0])
}

func TestSummarizeAllZeroMonths(t *testing.T) {
	res := BuildSeries([]Entry{{Date: "2025-05-01", Count: 0}}, []int{2025})

	sum := Summarize(res.Series[0], MonthlyBuckets(res.Series[0]))
	assert.Empty(t, sum.PeakMonth)
	assert.Zero(t, sum.PeakSignups)
	assert.Zero(t, sum.AverageMonthly)
	assert.Equal(t, 1, sum.Months)
}

func TestYearOf(t *testing.T) {
	tests := []struct {
		in   string
		year int
		ok   bool
	}{
		{"2024-01-26", 2024, true},
		{" 2025-03-01 10:00:00", 2025, true},
		{"24-01-01", 0, false},
		{"abcd-01-01", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		year, ok := YearOf(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.year, year, tt.in)
	}
}

func TestEntriesFromTable(t *testing.T) {
	table, err := tabular.ParseString("signup_date,signups\n2024-01-26,5\n2024-01-27,\n2024-01-28,lots\n2024-01-29,-4\n", tabular.Options{})
	require.NoError(t, err)

	entries := EntriesFromTable(table, "signup_date", "signups")
	require.Len(t, entries, 4)
	assert.Equal(t, Entry{Date: "2024-01-26", Count: 5, Line: 2}, entries[0])
	assert.Equal(t, 0, entries[1].Count)
	assert.Equal(t, 0, entries[2].Count)
	assert.Equal(t, 0, entries[3].Count)
}
