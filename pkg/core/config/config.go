// Package config loads application settings from config/equipcost.yaml,
// .env files, and EQUIPCOST_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config holds runtime settings plus the synthetic fleet profile used by
// the data generator.
type Config struct {
	AppName              string       `yaml:"app_name"`
	DatabaseURL          string       `yaml:"database_url"`
	RedisURL             string       `yaml:"redis_url"`
	Debug                bool         `yaml:"debug"`
	DiscountRate         float64      `yaml:"discount_rate"`
	FiscalYearStartMonth int          `yaml:"fiscal_year_start_month"`
	DowntimeHourlyRate   float64      `yaml:"downtime_hourly_rate"`
	AnnualCapitalBudget  float64      `yaml:"annual_capital_budget"`
	Fleet                FleetProfile `yaml:"fleet"`
}

// FleetProfile describes the synthetic fleet the generator produces.
type FleetProfile struct {
	Seed        int64          `yaml:"seed"`
	Facilities  []string       `yaml:"facilities"`
	Departments []string       `yaml:"departments"`
	Classes     []ClassProfile `yaml:"classes"`
}

// ClassProfile is one equipment class in the fleet profile.
type ClassProfile struct {
	Name              string   `yaml:"name"`
	Count             int      `yaml:"count"`
	CostMin           float64  `yaml:"cost_min"`
	CostMax           float64  `yaml:"cost_max"`
	UsefulLifeMonths  int      `yaml:"useful_life_months"`
	PMFrequencyMonths int      `yaml:"pm_frequency_months"`
	Manufacturers     []string `yaml:"manufacturers"`
	Models            []string `yaml:"models"`
	RepairCostMin     float64  `yaml:"repair_cost_min"`
	RepairCostMax     float64  `yaml:"repair_cost_max"`
	PMCostMin         float64  `yaml:"pm_cost_min"`
	PMCostMax         float64  `yaml:"pm_cost_max"`
}

// Default returns the built-in settings used when no config file exists.
func Default() Config {
	return Config{
		AppName:              "equipcost-forecast",
		DatabaseURL:          "data/equipcost.db",
		DiscountRate:         0.08,
		FiscalYearStartMonth: 10,
		DowntimeHourlyRate:   500,
		AnnualCapitalBudget:  2_000_000,
	}
}

// Load reads the yaml config at path (missing file is fine), layers .env,
// then applies environment overrides. Env always wins.
func Load(path string) (Config, error) {
	godotenv.Load()

	cfg := Default()
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("EQUIPCOST_DEBUG"); v != "" {
		c.Debug = v == "1" || v == "true"
	}
	if v, ok := envFloat("EQUIPCOST_DISCOUNT_RATE"); ok {
		c.DiscountRate = v
	}
	if v, ok := envInt("EQUIPCOST_FISCAL_YEAR_START_MONTH"); ok {
		c.FiscalYearStartMonth = v
	}
	if v, ok := envFloat("EQUIPCOST_DOWNTIME_HOURLY_RATE"); ok {
		c.DowntimeHourlyRate = v
	}
	if v, ok := envFloat("EQUIPCOST_ANNUAL_CAPITAL_BUDGET"); ok {
		c.AnnualCapitalBudget = v
	}
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
