// Package lastaccess turns free-form "time since last access" strings such as
// "3 days 19 hours", "43 mins 56 secs", "now" or "never" into absolute instants.
//
// The parser is a heuristic, not a grammar: each unit is matched
// independently, missing units count as zero and any other text is ignored.
package lastaccess

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rewired-gh/signuptrends/internal/models"
)

const (
	day = 24 * time.Hour

	// maxElapsed caps absurd counts instead of letting the duration wrap.
	maxElapsed = time.Duration(math.MaxInt64)
)

var (
	yearsPattern   = regexp.MustCompile(`(?i)(\d+)\s*years?`)
	daysPattern    = regexp.MustCompile(`(?i)(\d+)\s*days?`)
	hoursPattern   = regexp.MustCompile(`(?i)(\d+)\s*(?:hours?|hrs?)`)
	minutesPattern = regexp.MustCompile(`(?i)(\d+)\s*mins?`)
	secondsPattern = regexp.MustCompile(`(?i)(\d+)\s*secs?`)
)

// Components are the unit counts extracted from a duration string.
type Components struct {
	HasYears bool
	Years    int
	Days     int
	Hours    int
	Minutes  int
	Seconds  int
}

// Extract pulls each unit count out of text. Absent units are zero.
func Extract(text string) Components {
	years, hasYears := match(yearsPattern, text)
	days, _ := match(daysPattern, text)
	hours, _ := match(hoursPattern, text)
	minutes, _ := match(minutesPattern, text)
	seconds, _ := match(secondsPattern, text)
	return Components{
		HasYears: hasYears,
		Years:    years,
		Days:     days,
		Hours:    hours,
		Minutes:  minutes,
		Seconds:  seconds,
	}
}

// Elapsed converts the components to a duration.
//
// When a year count is present only years and days are used
// (years*365 + days); hours, minutes and seconds are dropped. This is a known
// approximation of the source data's format and is kept as is.
//
// The result saturates at the largest representable duration (about 292
// years).
func (c Components) Elapsed() time.Duration {
	if c.HasYears {
		return add(scale(c.Years, 365*day), scale(c.Days, day))
	}
	return add(
		add(scale(c.Days, day), scale(c.Hours, time.Hour)),
		add(scale(c.Minutes, time.Minute), scale(c.Seconds, time.Second)),
	)
}

func scale(n int, unit time.Duration) time.Duration {
	if n <= 0 {
		return 0
	}
	if int64(n) > int64(maxElapsed/unit) {
		return maxElapsed
	}
	return time.Duration(n) * unit
}

func add(a, b time.Duration) time.Duration {
	if a > maxElapsed-b {
		return maxElapsed
	}
	return a + b
}

// Resolve converts raw into an absolute last access relative to now.
// nil, blank and "never" (any case) resolve to never; "now" resolves to now.
func Resolve(raw *string, now time.Time) models.LastAccess {
	if raw == nil {
		return models.NeverAccessed()
	}
	text := strings.TrimSpace(*raw)
	if text == "" || strings.EqualFold(text, "never") {
		return models.NeverAccessed()
	}
	if strings.EqualFold(text, "now") {
		return models.AccessedAt(now)
	}
	return models.AccessedAt(now.Add(-Extract(text).Elapsed()))
}

func match(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt, true
	}
	if err != nil {
		return 0, false
	}
	return n, true
}
