// Package monitor drives the detect-and-emit cycle on a fixed cadence.
package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vincentbai/visitwatch/internal/dedup"
	"github.com/vincentbai/visitwatch/internal/metrics"
	"github.com/vincentbai/visitwatch/internal/models"
	"github.com/vincentbai/visitwatch/internal/source"
)

// Resolver yields the polling targets for one cycle.
type Resolver interface {
	Resolve() []source.Target
}

// Emitter persists and announces one newly observed visit.
type Emitter interface {
	Emit(rec models.VisitRecord) error
}

type Monitor struct {
	resolver      Resolver
	seen          *dedup.Set
	sink          Emitter
	logger        *zap.Logger
	interval      time.Duration
	sourceTimeout time.Duration
}

func New(resolver Resolver, seen *dedup.Set, sink Emitter, logger *zap.Logger, interval, sourceTimeout time.Duration) *Monitor {
	return &Monitor{
		resolver:      resolver,
		seen:          seen,
		sink:          sink,
		logger:        logger,
		interval:      interval,
		sourceTimeout: sourceTimeout,
	}
}

// Run polls until ctx is cancelled. The first cycle starts immediately.
// Cancellation is observed at the top of each iteration and between
// sources; in-flight reads are additionally bounded by the per-source
// timeout.
func (m *Monitor) Run(ctx context.Context) {
	m.Cycle(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopping", zap.NamedError("cause", ctx.Err()))
			return
		case <-ticker.C:
			m.Cycle(ctx)
		}
	}
}

// Cycle runs one poll iteration. Nothing inside a cycle propagates: a
// failing source contributes no records this round and is resampled on the
// next tick, and a panicking one counts as a zero-record iteration.
func (m *Monitor) Cycle(ctx context.Context) {
	defer metrics.PollCycles.Inc()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("poll cycle panicked", zap.Any("panic", r))
		}
	}()

	var fresh []models.VisitRecord
	for _, target := range m.resolver.Resolve() {
		if ctx.Err() != nil {
			return
		}
		records, err := m.extract(ctx, target)
		if err != nil {
			metrics.SourceErrors.WithLabelValues(target.Name).Inc()
			m.logger.Error("source read failed",
				zap.String("source", target.Name),
				zap.String("path", target.Path),
				zap.Error(err))
			continue
		}
		for _, rec := range records {
			if m.seen.IsNew(rec.URL) {
				fresh = append(fresh, rec)
			}
		}
	}

	for _, rec := range fresh {
		metrics.RecordsEmitted.WithLabelValues(rec.Browser).Inc()
		if err := m.sink.Emit(rec); err != nil {
			// Already announced; lost for persistence only.
			metrics.SinkErrors.Inc()
			m.logger.Error("record log write failed",
				zap.String("url", rec.URL),
				zap.Error(err))
		}
	}
}

func (m *Monitor) extract(ctx context.Context, t source.Target) ([]models.VisitRecord, error) {
	// A hung store read must not stall the rest of the cycle forever.
	ctx, cancel := context.WithTimeout(ctx, m.sourceTimeout)
	defer cancel()
	return t.Adapter.Extract(ctx, t.Path)
}
