// Package activity classifies platform users by how recently they last
// accessed the platform and builds a daily series of recent activity.
package activity

import (
	"fmt"
	"time"

	"github.com/rewired-gh/signuptrends/internal/lastaccess"
	"github.com/rewired-gh/signuptrends/internal/models"
)

const day = 24 * time.Hour

// DefaultWindowDays is the length of the daily active series.
const DefaultWindowDays = 30

// threshold is an inclusive upper bound on age for a bucket.
type threshold struct {
	label  string
	maxAge time.Duration
}

// thresholds are checked in ascending order; the first match wins.
var thresholds = []threshold{
	{models.BucketLast7Days, 7 * day},
	{models.BucketLast30Days, 30 * day},
	{models.BucketLast90Days, 90 * day},
	{models.BucketLast180Days, 180 * day},
}

// Options controls classification.
type Options struct {
	// WindowDays is the number of days in the daily series. Zero means 30.
	WindowDays int
	// Location defines calendar-day boundaries. Nil means now's location.
	Location *time.Location
}

// Resolve normalizes raw last-access strings into records.
func Resolve(raw []*string, now time.Time) []models.PlatformUserRecord {
	records := make([]models.PlatformUserRecord, len(raw))
	for i, r := range raw {
		records[i] = models.PlatformUserRecord{
			LastAccessRaw: r,
			LastAccess:    lastaccess.Resolve(r, now),
		}
	}
	return records
}

// BucketFor returns the recency bucket for a last access observed at now.
func BucketFor(la models.LastAccess, now time.Time) string {
	at, ok := la.Instant()
	if !ok {
		return models.BucketNever
	}
	age := now.Sub(at)
	for _, th := range thresholds {
		if age <= th.maxAge {
			return th.label
		}
	}
	return models.BucketOver180Days
}

// Classify resolves raw values and classifies them. See ClassifyRecords.
func Classify(raw []*string, now time.Time, opts Options) models.ActivitySnapshot {
	return ClassifyRecords(Resolve(raw, now), now, opts)
}

// ClassifyRecords splits records into active and inactive users, counts
// each recency bucket and builds the daily active series ending today.
func ClassifyRecords(records []models.PlatformUserRecord, now time.Time, opts Options) models.ActivitySnapshot {
	snap := models.ActivitySnapshot{
		TotalUsers:    len(records),
		ActiveUsers:   []models.PlatformUserRecord{},
		InactiveUsers: []models.PlatformUserRecord{},
		BucketCounts:  make(map[string]int, len(models.RecencyBuckets)),
		ComputedAt:    now,
	}
	for _, label := range models.RecencyBuckets {
		snap.BucketCounts[label] = 0
	}

	for _, r := range records {
		if r.LastAccess.IsNever() {
			snap.InactiveUsers = append(snap.InactiveUsers, r)
		} else {
			snap.ActiveUsers = append(snap.ActiveUsers, r)
		}
		snap.BucketCounts[BucketFor(r.LastAccess, now)]++
	}

	snap.DailyActiveSeries = DailySeries(snap.ActiveUsers, now, opts)
	return snap
}

// DailySeries counts, for each of the last WindowDays calendar days (oldest
// first, today last), the records whose last access falls in [00:00, 24:00)
// of that day.
func DailySeries(records []models.PlatformUserRecord, now time.Time, opts Options) []models.DailyActiveCount {
	n := opts.WindowDays
	if n <= 0 {
		n = DefaultWindowDays
	}
	loc := opts.Location
	if loc == nil {
		loc = now.Location()
	}

	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	series := make([]models.DailyActiveCount, n)
	for i := 0; i < n; i++ {
		start := today.AddDate(0, 0, i-(n-1))
		end := start.AddDate(0, 0, 1)

		count := 0
		for _, r := range records {
			at, ok := r.LastAccess.Instant()
			if ok && !at.Before(start) && at.Before(end) {
				count++
			}
		}

		series[i] = models.DailyActiveCount{
			Date:  start.Format("2006-01-02"),
			Label: fmt.Sprintf("%d/%d", int(start.Month()), start.Day()),
			Count: count,
		}
	}
	return series
}
