// Package dashboard runs the full pipeline: load both sources, aggregate
// signup cohorts, classify platform activity and assemble one Dashboard.
//
// The two sources are independent. A failed source is replaced by an empty
// dataset and reported in the outcome list; it never discards what the
// other source produced.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/signuptrends/internal/activity"
	"github.com/rewired-gh/signuptrends/internal/cohort"
	"github.com/rewired-gh/signuptrends/internal/config"
	"github.com/rewired-gh/signuptrends/internal/logger"
	"github.com/rewired-gh/signuptrends/internal/models"
	"github.com/rewired-gh/signuptrends/internal/source"
	"github.com/rewired-gh/signuptrends/internal/tabular"
)

// Source names used in outcomes.
const (
	SourceSignups  = "signups"
	SourcePlatform = "platform"
)

// Settings controls what the pipeline reads and how it aggregates.
type Settings struct {
	SignupsLocation  string
	PlatformLocation string
	DateColumn       string
	CountColumn      string
	TargetYears      []int
	LastAccessField  string
	Activity         activity.Options
}

// Pipeline builds dashboards from its two sources.
type Pipeline struct {
	settings Settings
	signups  *source.Fetcher
	platform *source.Fetcher
}

// New creates a Pipeline with one fetcher per source.
func New(settings Settings, signups, platform *source.Fetcher) *Pipeline {
	return &Pipeline{settings: settings, signups: signups, platform: platform}
}

// NewFromConfig creates a Pipeline from application configuration.
func NewFromConfig(cfg *config.Config) (*Pipeline, error) {
	loc, err := cfg.Activity.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	s := cfg.Sources.Signups
	p := cfg.Sources.Platform
	return New(
		Settings{
			SignupsLocation:  s.Location,
			PlatformLocation: p.Location,
			DateColumn:       cfg.Signups.DateColumn,
			CountColumn:      cfg.Signups.CountColumn,
			TargetYears:      cfg.Signups.TargetYears,
			LastAccessField:  cfg.Activity.LastAccessField,
			Activity: activity.Options{
				WindowDays: cfg.Activity.DailyWindowDays,
				Location:   loc,
			},
		},
		source.NewFetcher(s.Timeout, s.MaxRetries, s.RetryDelayBase),
		source.NewFetcher(p.Timeout, p.MaxRetries, p.RetryDelayBase),
	), nil
}

// Build runs one pipeline pass with now as the reference instant.
func (p *Pipeline) Build(ctx context.Context, now time.Time) *models.Dashboard {
	startTime := time.Now()

	d := &models.Dashboard{
		RunID:       uuid.New().String(),
		GeneratedAt: now,
	}

	signupsOutcome := p.buildCohorts(ctx, d)
	platformOutcome := p.buildActivity(ctx, d, now)

	d.Sources = []models.SourceOutcome{signupsOutcome, platformOutcome}
	d.Status = models.StatusOf(d.Sources...)

	logger.Info("Dashboard %s built in %v (status: %s)", d.RunID, time.Since(startTime), d.Status)
	return d
}

func (p *Pipeline) buildCohorts(ctx context.Context, d *models.Dashboard) models.SourceOutcome {
	outcome := models.SourceOutcome{Name: SourceSignups, Location: p.settings.SignupsLocation, Status: models.SourceOK}

	table, err := source.LoadSignups(ctx, p.signups, p.settings.SignupsLocation)
	if err != nil {
		logger.Warn("Signup data unavailable from %s: %v", p.settings.SignupsLocation, err)
		outcome.Status = models.SourceUnavailable
		outcome.Error = err.Error()
		table = &tabular.Table{}
	}
	outcome.Records = len(table.Rows)
	d.Diagnostics.MalformedRows = table.Malformed

	entries := cohort.EntriesFromTable(table, p.settings.DateColumn, p.settings.CountColumn)
	res := cohort.BuildSeries(entries, p.settings.TargetYears)
	d.Cohorts = res.Series
	d.Monthly = cohort.MonthlyByYear(res.Series)
	d.Summaries = cohort.Summaries(res.Series, d.Monthly)
	d.Diagnostics.OutOfRangeYears = res.OutOfRange
	d.Diagnostics.UnparseableDates = res.Unparseable

	for _, s := range res.Series {
		if err := s.Validate(); err != nil {
			logger.Error("Cohort %d failed validation: %v", s.Year, err)
		}
		for _, b := range d.Monthly[s.Year] {
			if err := b.Validate(); err != nil {
				logger.Error("Monthly bucket %s failed validation: %v", b.MonthKey, err)
			}
		}
		logger.Debug("Cohort %d: %d records, %d signups", s.Year, len(s.Records), s.Total)
	}
	if res.OutOfRange > 0 {
		logger.Info("Excluded %d signup records outside target years %v", res.OutOfRange, p.settings.TargetYears)
	}
	if res.Unparseable > 0 {
		logger.Warn("Dropped %d signup records with unparseable dates", res.Unparseable)
	}

	return outcome
}

func (p *Pipeline) buildActivity(ctx context.Context, d *models.Dashboard, now time.Time) models.SourceOutcome {
	outcome := models.SourceOutcome{Name: SourcePlatform, Location: p.settings.PlatformLocation, Status: models.SourceOK}

	platform, err := source.LoadPlatform(ctx, p.platform, p.settings.PlatformLocation, p.settings.LastAccessField)
	if err != nil {
		logger.Warn("Platform data unavailable from %s: %v", p.settings.PlatformLocation, err)
		outcome.Status = models.SourceUnavailable
		outcome.Error = err.Error()
		platform = &source.Platform{}
	}
	outcome.Records = len(platform.LastAccess)
	d.Diagnostics.SkippedPlatformRows = platform.Skipped

	d.Activity = activity.Classify(platform.LastAccess, now, p.settings.Activity)
	if err := d.Activity.Validate(); err != nil {
		logger.Error("Activity snapshot failed validation: %v", err)
	}
	logger.Debug("Activity: %d users, %d active, %d never accessed",
		d.Activity.TotalUsers, len(d.Activity.ActiveUsers), len(d.Activity.InactiveUsers))

	return outcome
}
