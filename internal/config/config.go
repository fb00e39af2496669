package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/joeshaw/envdecode"
	errwrap "github.com/pkg/errors"
	"github.com/subosito/gotenv"
)

// Config holds profiler thresholds and the wiring for optional sinks.
// All values come from the environment; a .env file is loaded when present.
type Config struct {
	SlowQueryMs          int64 `env:"PROFILER_SLOW_QUERY_MS,default=100" validate:"gte=1"`
	N1Threshold          int   `env:"PROFILER_N1_THRESHOLD,default=10" validate:"gte=1"`
	MaxQueriesPerRequest int   `env:"PROFILER_MAX_QUERIES_PER_REQUEST,default=50" validate:"gte=1"`

	// CaptureStack should stay off in production; stack capture on every
	// recorded query is expensive.
	CaptureStack bool `env:"PROFILER_CAPTURE_STACK,default=false"`

	HTTPAddr   string `env:"PROFILER_HTTP_ADDR,default=:8089"`
	SQLitePath string `env:"PROFILER_SQLITE_PATH,default=profiler.db"`
	ArchiveMax int    `env:"PROFILER_ARCHIVE_MAX,default=500" validate:"gte=1"`

	// Optional sinks; unset means disabled.
	ClickHouseAddr     string `env:"PROFILER_CLICKHOUSE_ADDR"`
	ClickHouseDatabase string `env:"PROFILER_CLICKHOUSE_DATABASE,default=default"`
	AMQPUrl            string `env:"PROFILER_AMQP_URL"`
	AMQPQueue          string `env:"PROFILER_AMQP_QUEUE,default=profiler.warnings"`

	StatsIntervalSec int `env:"PROFILER_STATS_INTERVAL_SEC,default=60" validate:"gte=1"`
}

// Load reads .env (if any), decodes the environment and validates thresholds.
func Load() (*Config, error) {
	funcName := "config.Load"

	// Missing .env is fine; real deployments configure via the environment.
	_ = gotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}

	return &cfg, nil
}
