package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// LastAccess is a resolved last-access value: either an instant or "never".
// The zero value means never.
type LastAccess struct {
	instant time.Time
	known   bool
}

// AccessedAt returns a LastAccess resolved to t.
func AccessedAt(t time.Time) LastAccess {
	return LastAccess{instant: t, known: true}
}

// NeverAccessed returns the "never" marker.
func NeverAccessed() LastAccess {
	return LastAccess{}
}

// Instant returns the resolved instant and whether one exists.
// Callers must check ok before using the time.
func (l LastAccess) Instant() (time.Time, bool) {
	return l.instant, l.known
}

// IsNever reports whether no access ever occurred.
func (l LastAccess) IsNever() bool {
	return !l.known
}

// MarshalJSON encodes the instant as RFC3339, or null for never.
func (l LastAccess) MarshalJSON() ([]byte, error) {
	if !l.known {
		return []byte("null"), nil
	}
	return json.Marshal(l.instant.Format(time.RFC3339))
}

// UnmarshalJSON accepts null or an RFC3339 string.
func (l *LastAccess) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = NeverAccessed()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("last access: %w", err)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("last access: %w", err)
	}
	*l = AccessedAt(t)
	return nil
}

// PlatformUserRecord is one platform user after last-access normalization.
type PlatformUserRecord struct {
	LastAccessRaw *string    `json:"last_access_raw"`
	LastAccess    LastAccess `json:"last_access"`
}

// Recency bucket labels, in classification order.
const (
	BucketLast7Days   = "Last 7 days"
	BucketLast30Days  = "Last 30 days"
	BucketLast90Days  = "Last 90 days"
	BucketLast180Days = "Last 180 days"
	BucketOver180Days = "Over 180 days"
	BucketNever       = "Never accessed"
)

// RecencyBuckets lists every bucket label in display order.
var RecencyBuckets = []string{
	BucketLast7Days,
	BucketLast30Days,
	BucketLast90Days,
	BucketLast180Days,
	BucketOver180Days,
	BucketNever,
}

// DailyActiveCount is the number of users whose last access fell on Date.
type DailyActiveCount struct {
	Date  string `json:"date"`  // "2006-01-02"
	Label string `json:"label"` // "M/D"
	Count int    `json:"count"`
}

// ActivitySnapshot summarizes platform users by recency.
type ActivitySnapshot struct {
	TotalUsers        int                  `json:"total_users"`
	ActiveUsers       []PlatformUserRecord `json:"active_users"`
	InactiveUsers     []PlatformUserRecord `json:"inactive_users"`
	BucketCounts      map[string]int       `json:"bucket_counts"`
	DailyActiveSeries []DailyActiveCount   `json:"daily_active"`
	ComputedAt        time.Time            `json:"computed_at"`
}

// Validate checks that buckets partition the users exactly once each.
func (s *ActivitySnapshot) Validate() error {
	if len(s.ActiveUsers)+len(s.InactiveUsers) != s.TotalUsers {
		return fmt.Errorf("active (%d) + inactive (%d) must equal total users (%d)",
			len(s.ActiveUsers), len(s.InactiveUsers), s.TotalUsers)
	}
	sum := 0
	for label, n := range s.BucketCounts {
		if n < 0 {
			return fmt.Errorf("bucket %q has negative count", label)
		}
		sum += n
	}
	if sum != s.TotalUsers {
		return fmt.Errorf("bucket counts sum to %d, expected %d", sum, s.TotalUsers)
	}
	if s.BucketCounts[BucketNever] != len(s.InactiveUsers) {
		return errors.New("never bucket must equal the number of inactive users")
	}
	return nil
}
