package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "equipcost-forecast", cfg.AppName)
	assert.Equal(t, "data/equipcost.db", cfg.DatabaseURL)
	assert.Equal(t, 0.08, cfg.DiscountRate)
	assert.Equal(t, 10, cfg.FiscalYearStartMonth)
	assert.Equal(t, 500.0, cfg.DowntimeHourlyRate)
	assert.Equal(t, 2_000_000.0, cfg.AnnualCapitalBudget)
	assert.False(t, cfg.Debug)
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().DiscountRate, cfg.DiscountRate)
	assert.Equal(t, Default().DatabaseURL, cfg.DatabaseURL)
}

func TestLoadReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equipcost.yaml")
	doc := `
discount_rate: 0.05
downtime_hourly_rate: 350
fleet:
  seed: 7
  facilities: ["FAC-001"]
  classes:
    - name: ct_scanner
      count: 3
      cost_min: 800000
      cost_max: 2000000
      useful_life_months: 120
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.05, cfg.DiscountRate)
	assert.Equal(t, 350.0, cfg.DowntimeHourlyRate)
	// Fields the file omits keep their defaults.
	assert.Equal(t, 10, cfg.FiscalYearStartMonth)
	assert.Equal(t, int64(7), cfg.Fleet.Seed)
	require.Len(t, cfg.Fleet.Classes, 1)
	assert.Equal(t, "ct_scanner", cfg.Fleet.Classes[0].Name)
	assert.Equal(t, 3, cfg.Fleet.Classes[0].Count)
}

func TestEnvOverridesWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equipcost.yaml")
	require.NoError(t, os.WriteFile(path, []byte("discount_rate: 0.05\n"), 0o644))

	t.Setenv("EQUIPCOST_DISCOUNT_RATE", "0.1")
	t.Setenv("DATABASE_URL", "postgres://localhost/equipcost")
	t.Setenv("EQUIPCOST_DEBUG", "1")
	// Unparsable numbers are ignored, not fatal.
	t.Setenv("EQUIPCOST_ANNUAL_CAPITAL_BUDGET", "lots")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.1, cfg.DiscountRate)
	assert.Equal(t, "postgres://localhost/equipcost", cfg.DatabaseURL)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 2_000_000.0, cfg.AnnualCapitalBudget)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equipcost.yaml")
	require.NoError(t, os.WriteFile(path, []byte("discount_rate: [not a number"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
