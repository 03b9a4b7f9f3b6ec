package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"papertrader/internal/audit"
	"papertrader/internal/config"
	"papertrader/internal/engine"
	"papertrader/internal/logging"
	"papertrader/internal/store"
)

// Runtime is an engine wired to the sinks enabled in the configuration.
type Runtime struct {
	Engine   *engine.Engine
	Registry *prometheus.Registry
	Journal  *store.JournalWriter
	Audit    *audit.Logger

	closers []func() error
}

// LoggerFromConfig builds the application logger from the [logging] section.
func LoggerFromConfig(cfg *config.Config) zerolog.Logger {
	return logging.NewLoggerWithConfig(logging.LogConfig{
		Level:      cfg.Logging.Level,
		Console:    cfg.Logging.Console,
		File:       cfg.Logging.File,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	})
}

// NewRuntime creates an engine with the journal, audit trail and metrics
// enabled by cfg. Close must be called to flush the sinks.
func NewRuntime(cfg *config.Config, logger zerolog.Logger) (*Runtime, error) {
	rt := &Runtime{}
	var sinks engine.MultiSink

	if cfg.Store.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
		db, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		rt.Journal = store.NewJournalWriter(db, store.WriterConfig{
			BufferSize:   cfg.Store.BufferSize,
			WriteTimeout: 5 * time.Second,
			Logger:       logger,
		})
		sinks = append(sinks, rt.Journal)
		rt.closers = append(rt.closers, func() error {
			rt.Journal.Close()
			return db.Close()
		})
		logger.Debug().Str("path", cfg.Store.Path).Msg("Order journal enabled")
	}

	if cfg.Audit.Enabled {
		auditCfg := audit.DefaultConfig()
		auditCfg.LogDir = cfg.Audit.LogDir
		al, err := audit.NewLogger(auditCfg)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Audit = al
		sinks = append(sinks, al)
		rt.closers = append(rt.closers, func() error {
			if n := al.WriteErrors(); n > 0 {
				logger.Warn().Int("failed_writes", n).Str("dir", cfg.Audit.LogDir).Msg("Audit trail is incomplete")
			}
			return al.Close()
		})
		logger.Debug().Str("dir", cfg.Audit.LogDir).Msg("Audit trail enabled")
	}

	var metrics *engine.Metrics
	if cfg.Metrics.Enabled {
		rt.Registry = prometheus.NewRegistry()
		metrics = engine.NewMetrics(rt.Registry)
	}

	rt.Engine = engine.New(engine.Config{
		FeeRate: cfg.FeeRate(),
		Logger:  logger,
		Sink:    sinks,
		Metrics: metrics,
	})
	return rt, nil
}

// Close flushes and closes the sinks in reverse order of creation.
func (r *Runtime) Close() error {
	var firstErr error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.closers = nil
	return firstErr
}

// MetricValues returns the current value of every counter and gauge, keyed
// by metric name and labels. It returns nil when metrics are disabled.
func (r *Runtime) MetricValues() (map[string]float64, error) {
	if r.Registry == nil {
		return nil, nil
	}
	families, err := r.Registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gathering metrics: %w", err)
	}

	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			key := mf.GetName()
			if len(labels) > 0 {
				key += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				values[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[key] = m.GetGauge().GetValue()
			}
		}
	}
	return values, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
