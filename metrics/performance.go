package metrics

import (
	"time"

	"pvkey-address/network/connection"
	"pvkey-address/types"

	"github.com/rs/zerolog"
)

// LogDerivationSummary writes the run summary at debug level.
func LogDerivationSummary(logger zerolog.Logger, m *types.DerivationMetrics, startTime time.Time) {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()

	totalTime := time.Since(startTime)
	var perSecond float64
	if m.DeriveTime > 0 {
		perSecond = float64(m.Derived+m.Skipped) / m.DeriveTime.Seconds()
	}

	logger.Debug().
		Int("lines", m.LinesRead).
		Int("derived", m.Derived).
		Int("skipped", m.Skipped).
		Int("lookup_failures", m.LookupFailures).
		Dur("read", m.ReadTime).
		Dur("derive", m.DeriveTime).
		Dur("lookup", m.LookupTime).
		Dur("total", totalTime).
		Float64("keys_per_sec", perSecond).
		Msg("Derivation summary")
}

// LogPoolStats writes one debug line per pooled RPC client.
func LogPoolStats(logger zerolog.Logger, stats []connection.ClientStats) {
	for _, s := range stats {
		logger.Debug().
			Str("endpoint", s.Endpoint).
			Bool("healthy", s.Healthy).
			Int64("requests", s.RequestCount).
			Int64("errors", s.ErrorCount).
			Dur("latency", s.Latency).
			AnErr("last_error", s.LastError).
			Msg("RPC client stats")
	}
}
