package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/signuptrends/internal/config"
	"github.com/rewired-gh/signuptrends/internal/dashboard"
	"github.com/rewired-gh/signuptrends/internal/models"
	"github.com/rewired-gh/signuptrends/internal/storage"
)

func TestRunWritesDashboard(t *testing.T) {
	dir := t.TempDir()
	signups := filepath.Join(dir, "wp_users.csv")
	require.NoError(t, os.WriteFile(signups, []byte("signup_date,signups\n2024-01-26,5\n2024-01-27,3\n"), 0o644))

	cfg := &config.Config{
		Sources: config.SourcesConfig{
			Signups:  config.SourceConfig{Location: signups, MaxRetries: 1},
			Platform: config.SourceConfig{Location: filepath.Join(dir, "missing.json"), MaxRetries: 1},
		},
		Signups:  config.SignupsConfig{DateColumn: "signup_date", CountColumn: "signups", TargetYears: []int{2024, 2025}},
		Activity: config.ActivityConfig{LastAccessField: "lastaccess", DailyWindowDays: 30, Timezone: "UTC"},
	}
	pipeline, err := dashboard.NewFromConfig(cfg)
	require.NoError(t, err)

	out := filepath.Join(dir, "public", "dashboard.json")
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, run(context.Background(), pipeline, storage.New(out, 0, 0), nil, now))

	doc, err := storage.Load(out)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartial, doc.Dashboard.Status)

	c, ok := doc.Dashboard.Cohort(2024)
	require.True(t, ok)
	assert.Equal(t, 8, c.Total)
}
