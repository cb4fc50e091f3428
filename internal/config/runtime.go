package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/awmpietro/scenario-simulator/internal/scenario"
)

type Runtime struct {
	HTTPAddr      string `env:"HTTP_ADDR"               envDefault:":8080"`
	LogLevel      string `env:"SCENARIO_LOG_LEVEL"      envDefault:"info"`
	CacheMaxItems int    `env:"SCENARIO_CACHE_MAX_ITEMS" envDefault:"1024"`
	ObsBuffer     int    `env:"SCENARIO_OBS_BUFFER"     envDefault:"4096"`
	// HistoryDB is the SQLite path for run history. Empty keeps the latest
	// HistoryMaxRecords runs in memory.
	HistoryDB    string `env:"SCENARIO_HISTORY_DB"`
	OTELEndpoint string `env:"SCENARIO_OTEL_ENDPOINT"`

	Workers             int           `env:"SCENARIO_WORKERS"`
	Budget              time.Duration `env:"SCENARIO_BUDGET"                envDefault:"30s"`
	PostureBias         float64       `env:"SCENARIO_POSTURE_BIAS"          envDefault:"0.1"`
	EstimateUncertainty float64       `env:"SCENARIO_ESTIMATE_UNCERTAINTY"  envDefault:"0.2"`
	FailureCostFraction float64       `env:"SCENARIO_FAILURE_COST_FRACTION" envDefault:"0.5"`
	MinSuccessRate      float64       `env:"SCENARIO_MIN_SUCCESS_RATE"      envDefault:"0.7"`
	MinReliableTrials   int           `env:"SCENARIO_MIN_RELIABLE_TRIALS"   envDefault:"30"`
	RiskTolerance       float64       `env:"SCENARIO_RISK_TOLERANCE"        envDefault:"0.5"`
	AutoBudgetPressure  bool          `env:"SCENARIO_AUTO_BUDGET_PRESSURE"`
	// MaxTrials caps trials per posture for transport callers.
	MaxTrials int `env:"SCENARIO_MAX_TRIALS" envDefault:"100000"`
	// HistoryMaxRecords bounds the in-memory history used when HistoryDB is
	// empty.
	HistoryMaxRecords int `env:"SCENARIO_HISTORY_MAX_RECORDS" envDefault:"1000"`
}

// Load reads the runtime configuration from the environment. Counts below
// their floor fall back to the default.
func Load() (Runtime, error) {
	var cfg Runtime
	if err := env.Parse(&cfg); err != nil {
		return Runtime{}, fmt.Errorf("parse env: %w", err)
	}

	def := scenario.DefaultConfig()
	cfg.CacheMaxItems = atLeast(cfg.CacheMaxItems, 1, 1024)
	cfg.ObsBuffer = atLeast(cfg.ObsBuffer, 1, 4096)
	cfg.Workers = atLeast(cfg.Workers, 1, def.Workers)
	cfg.MinReliableTrials = atLeast(cfg.MinReliableTrials, 1, def.MinReliableTrials)
	cfg.MaxTrials = atLeast(cfg.MaxTrials, 1, 100000)
	cfg.HistoryMaxRecords = atLeast(cfg.HistoryMaxRecords, 1, 1000)
	if cfg.RiskTolerance < 0 || cfg.RiskTolerance > 1 {
		return Runtime{}, fmt.Errorf("SCENARIO_RISK_TOLERANCE must be within [0,1], got %v", cfg.RiskTolerance)
	}
	return cfg, nil
}

// SimulationConfig projects the runtime settings onto the engine config.
func (r Runtime) SimulationConfig() scenario.Config {
	return scenario.Config{
		PostureBias:         r.PostureBias,
		EstimateUncertainty: r.EstimateUncertainty,
		FailureCostFraction: r.FailureCostFraction,
		MinSuccessRate:      r.MinSuccessRate,
		MinReliableTrials:   r.MinReliableTrials,
		RiskTolerance:       r.RiskTolerance,
		AutoBudgetPressure:  r.AutoBudgetPressure,
		Workers:             r.Workers,
		Budget:              r.Budget,
	}
}

func atLeast(v, floor, fallback int) int {
	if v < floor {
		return fallback
	}
	return v
}
