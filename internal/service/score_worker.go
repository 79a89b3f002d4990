package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/mathieu-neron/realtube-scoring/internal/metrics"
)

// WorkerState is the externally visible state of the ScoreWorker.
type WorkerState int

const (
	StateDisconnected WorkerState = iota
	StateListening
	StateFlushing
)

func (s WorkerState) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateFlushing:
		return "flushing"
	default:
		return "disconnected"
	}
}

// Notifications is a live subscription to the vote_changes feed. Next blocks
// until a payload arrives or the subscription fails.
type Notifications interface {
	Next(ctx context.Context) (string, error)
	Close(ctx context.Context) error
}

// SubscribeFunc opens a fresh subscription. It is called again after every
// transport failure.
type SubscribeFunc func(ctx context.Context) (Notifications, error)

type Recalculator interface {
	Recalculate(ctx context.Context, videoID string) (float64, error)
}

type VideoCacheInvalidator interface {
	InvalidateVideo(ctx context.Context, videoID string)
}

// pendingSet collects the distinct video IDs notified during one window.
type pendingSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newPendingSet() *pendingSet {
	return &pendingSet{ids: make(map[string]struct{})}
}

func (p *pendingSet) Add(videoID string) {
	p.mu.Lock()
	p.ids[videoID] = struct{}{}
	p.mu.Unlock()
}

// Drain swaps the set for an empty one and returns its IDs in sorted order.
func (p *pendingSet) Drain() []string {
	p.mu.Lock()
	batch := p.ids
	p.ids = make(map[string]struct{})
	p.mu.Unlock()

	ids := make([]string, 0, len(batch))
	for id := range batch {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p *pendingSet) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ids)
}

type ScoreWorkerConfig struct {
	BatchWindow      time.Duration
	ReconnectBackoff time.Duration
	// FlushTimeout bounds the final flush on shutdown.
	FlushTimeout time.Duration
}

// ScoreWorker listens for vote_changes notifications and batches score
// recalculations. If 50 votes hit video X in one window, it recalculates once.
type ScoreWorker struct {
	subscribe SubscribeFunc
	scores    Recalculator
	cache     VideoCacheInvalidator
	clock     clockwork.Clock
	cfg       ScoreWorkerConfig
	logger    zerolog.Logger

	pending   *pendingSet
	connected atomic.Bool
	flushing  atomic.Bool
}

func NewScoreWorker(
	subscribe SubscribeFunc,
	scores Recalculator,
	cache VideoCacheInvalidator,
	clock clockwork.Clock,
	cfg ScoreWorkerConfig,
	logger zerolog.Logger,
) *ScoreWorker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = 10 * time.Second
	}
	return &ScoreWorker{
		subscribe: subscribe,
		scores:    scores,
		cache:     cache,
		clock:     clock,
		cfg:       cfg,
		logger:    logger.With().Str("component", "score_worker").Logger(),
		pending:   newPendingSet(),
	}
}

func (w *ScoreWorker) State() WorkerState {
	switch {
	case w.flushing.Load():
		return StateFlushing
	case w.connected.Load():
		return StateListening
	default:
		return StateDisconnected
	}
}

// Run listens and flushes until ctx is cancelled. Transport failures are
// retried after ReconnectBackoff. Pending IDs are flushed once more before
// Run returns.
func (w *ScoreWorker) Run(ctx context.Context) error {
	w.logger.Info().
		Dur("batch_window", w.cfg.BatchWindow).
		Dur("reconnect_backoff", w.cfg.ReconnectBackoff).
		Msg("score worker starting")

	flushDone := make(chan struct{})
	go func() {
		defer close(flushDone)
		w.flushLoop(ctx)
	}()

	for {
		err := w.listen(ctx)
		w.connected.Store(false)
		if ctx.Err() != nil {
			break
		}

		metrics.ScoreWorkerReconnects.Inc()
		w.logger.Warn().Err(err).Dur("backoff", w.cfg.ReconnectBackoff).Msg("subscription lost, reconnecting")

		select {
		case <-w.clock.After(w.cfg.ReconnectBackoff):
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}

	<-flushDone
	w.logger.Info().Msg("score worker stopped")
	return nil
}

// listen holds one subscription until it fails or ctx is cancelled.
func (w *ScoreWorker) listen(ctx context.Context) error {
	sub, err := w.subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := sub.Close(closeCtx); err != nil {
			w.logger.Debug().Err(err).Msg("close subscription")
		}
	}()

	w.connected.Store(true)
	w.logger.Info().Msg("listening on vote_changes")

	for {
		videoID, err := sub.Next(ctx)
		if err != nil {
			return err
		}
		if videoID == "" {
			continue
		}
		w.pending.Add(videoID)
	}
}

// flushLoop drains the pending set every window. Cancellation stops the
// wait; a flush already running completes on a detached context.
func (w *ScoreWorker) flushLoop(ctx context.Context) {
	ticker := w.clock.NewTicker(w.cfg.BatchWindow)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			w.flush(context.WithoutCancel(ctx))
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.FlushTimeout)
			w.flush(finalCtx)
			cancel()
			return
		}
	}
}

// flush recalculates each pending video once. A failed video is logged and
// dropped, not re-queued; its next vote or notification heals it.
func (w *ScoreWorker) flush(ctx context.Context) {
	batch := w.pending.Drain()
	if len(batch) == 0 {
		return
	}

	w.flushing.Store(true)
	defer w.flushing.Store(false)

	start := w.clock.Now()
	recalculated := 0
	for _, videoID := range batch {
		if _, err := w.scores.Recalculate(ctx, videoID); err != nil {
			metrics.ScoreRecalcFailures.WithLabelValues("worker").Inc()
			w.logger.Error().Err(err).Str("video_id", videoID).Msg("recalculate failed")
			continue
		}
		w.cache.InvalidateVideo(ctx, videoID)
		recalculated++
	}
	metrics.ScoreBatchSize.Observe(float64(len(batch)))

	w.logger.Info().
		Int("videos", len(batch)).
		Int("recalculated", recalculated).
		Dur("elapsed", w.clock.Since(start)).
		Msg("batch complete")
}
