package service

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/mathieu-neron/realtube-scoring/internal/metrics"
)

// ChannelRecalculator is the per-channel work of one tick.
type ChannelRecalculator interface {
	ListTracked(ctx context.Context) ([]string, error)
	Recalculate(ctx context.Context, channelID string) (ChannelResult, error)
}

// TickSummary holds the counters logged after every tick.
type TickSummary struct {
	Updated          int
	Failed           int
	NewlyAutoFlagged int
	PreliminarySet   int
	Elapsed          time.Duration
}

// ChannelWorker is a periodic background job that recalculates channel scores
// and sets auto_flag_new when thresholds are met.
type ChannelWorker struct {
	channels ChannelRecalculator
	clock    clockwork.Clock
	interval time.Duration
	logger   zerolog.Logger
}

// NewChannelWorker creates a worker that ticks every interval.
func NewChannelWorker(channels ChannelRecalculator, clock clockwork.Clock, interval time.Duration, logger zerolog.Logger) *ChannelWorker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ChannelWorker{
		channels: channels,
		clock:    clock,
		interval: interval,
		logger:   logger.With().Str("component", "channel_worker").Logger(),
	}
}

// Run runs one tick immediately, then every interval until ctx is cancelled.
// A tick in progress is allowed to finish.
func (w *ChannelWorker) Run(ctx context.Context) error {
	w.logger.Info().Dur("interval", w.interval).Msg("channel worker starting")

	w.Tick(ctx)

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			w.Tick(ctx)
		case <-ctx.Done():
			w.logger.Info().Msg("channel worker stopped")
			return nil
		}
	}
}

// Tick recalculates every tracked channel. A failing channel is logged and
// skipped; its transaction is independent of the others.
func (w *ChannelWorker) Tick(ctx context.Context) TickSummary {
	start := w.clock.Now()
	var sum TickSummary

	defer func() {
		sum.Elapsed = w.clock.Since(start)
		metrics.ChannelTickDuration.Observe(sum.Elapsed.Seconds())
		w.logger.Info().
			Int("channels_updated", sum.Updated).
			Int("channels_failed", sum.Failed).
			Int("auto_flagged", sum.NewlyAutoFlagged).
			Int("preliminary_scores", sum.PreliminarySet).
			Dur("elapsed", sum.Elapsed).
			Msg("tick complete")
	}()

	ids, err := w.channels.ListTracked(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("list tracked channels")
		return sum
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		res, err := w.channels.Recalculate(ctx, id)
		if err != nil {
			sum.Failed++
			metrics.ChannelsUpdated.WithLabelValues("failed").Inc()
			w.logger.Error().Err(err).Str("channel_id", id).Msg("recalculate channel failed")
			continue
		}

		sum.Updated++
		metrics.ChannelsUpdated.WithLabelValues("updated").Inc()
		if res.NewlyAutoFlagged {
			sum.NewlyAutoFlagged++
			metrics.ChannelsAutoFlagged.Inc()
		}
		sum.PreliminarySet += res.PreliminarySet
		metrics.PreliminaryScores.Add(float64(res.PreliminarySet))
	}
	return sum
}
