package service

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/mathieu-neron/realtube-scoring/internal/apperr"
	"github.com/mathieu-neron/realtube-scoring/internal/model"
	"github.com/mathieu-neron/realtube-scoring/internal/repository"
)

// Channel auto-flag policy.
const (
	// Below this many tracked videos the channel score stays 0.
	minTrackedVideos   = 3
	autoFlagMinScore   = 80.0
	autoFlagMinFlagged = 20
)

// ComputeChannelScore returns (flagged/tracked) × avgFlaggedScore rounded to
// two decimals, or 0 when fewer than 3 videos are tracked.
func ComputeChannelScore(flagged, tracked int, avgFlaggedScore float64) float64 {
	if tracked < minTrackedVideos {
		return 0
	}
	score := float64(flagged) / float64(tracked) * avgFlaggedScore
	return math.Round(score*100) / 100
}

// ShouldAutoFlag applies the auto-flag thresholds. A locked channel is never
// auto-flagged.
func ShouldAutoFlag(score float64, flagged int, locked bool) bool {
	return score >= autoFlagMinScore && flagged >= autoFlagMinFlagged && !locked
}

// ChannelResult is the outcome of one channel recalculation.
type ChannelResult struct {
	ChannelID string
	Score     float64
	Stats     model.ChannelStats
	// AutoFlagged is the new auto_flag_new value; NewlyAutoFlagged is set
	// only when it went from false to true.
	AutoFlagged      bool
	NewlyAutoFlagged bool
	PreliminarySet   int
}

type ChannelService struct {
	pool             *pgxpool.Pool
	repo             *repository.ChannelRepo
	cache            *CacheService
	preliminaryScore float64
	logger           zerolog.Logger
}

func NewChannelService(pool *pgxpool.Pool, repo *repository.ChannelRepo, cache *CacheService, preliminaryScore float64, logger zerolog.Logger) *ChannelService {
	return &ChannelService{
		pool:             pool,
		repo:             repo,
		cache:            cache,
		preliminaryScore: preliminaryScore,
		logger:           logger.With().Str("component", "channel_service").Logger(),
	}
}

// ListTracked returns the channels owning at least one voted video.
func (s *ChannelService) ListTracked(ctx context.Context) ([]string, error) {
	ids, err := s.repo.ListTracked(ctx)
	if err != nil {
		return nil, apperr.Transient("channel.list", err)
	}
	return ids, nil
}

// Recalculate recomputes one channel's score and auto-flag state from its
// videos and, while the channel is auto-flagged, seeds untouched videos with
// the preliminary score. Everything runs in one transaction per channel.
func (s *ChannelService) Recalculate(ctx context.Context, channelID string) (ChannelResult, error) {
	res := ChannelResult{ChannelID: channelID}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		repo := s.repo.WithTx(tx)

		if err := repo.Ensure(ctx, channelID); err != nil {
			return err
		}
		locked, wasAutoFlagged, err := repo.LockForUpdate(ctx, channelID)
		if err != nil {
			return err
		}
		stats, err := repo.Stats(ctx, channelID)
		if err != nil {
			return err
		}
		top, err := repo.TopCategories(ctx, channelID)
		if err != nil {
			return err
		}

		res.Stats = stats
		res.Score = ComputeChannelScore(stats.Flagged, stats.Tracked, stats.AvgFlaggedScore)
		res.AutoFlagged = ShouldAutoFlag(res.Score, stats.Flagged, locked)
		res.NewlyAutoFlagged = res.AutoFlagged && !wasAutoFlagged

		update := repository.ChannelUpdate{
			Score:       res.Score,
			Stats:       stats,
			AutoFlagNew: res.AutoFlagged,
		}
		if len(top) > 0 {
			update.TopCategory = &top[0]
		}
		if err := repo.Update(ctx, channelID, update); err != nil {
			return err
		}

		if res.AutoFlagged {
			n, err := repo.SeedPreliminary(ctx, channelID, s.preliminaryScore)
			if err != nil {
				return err
			}
			res.PreliminarySet = n
		}
		return nil
	})
	if err != nil {
		return ChannelResult{ChannelID: channelID}, apperr.Transient("channel.recalculate", err)
	}

	s.cache.InvalidateChannel(ctx, channelID)
	return res, nil
}

// Lookup returns the channel response for a given channel ID.
// Uses cache-aside: check Redis first, fall back to DB, then populate cache.
func (s *ChannelService) Lookup(ctx context.Context, channelID string) (*model.ChannelResponse, error) {
	if cached, ok := s.cache.GetChannel(ctx, channelID); ok {
		var resp model.ChannelResponse
		if err := json.Unmarshal(cached, &resp); err == nil {
			return &resp, nil
		}
	}

	ch, err := s.repo.FindByChannelID(ctx, channelID)
	if err != nil {
		return nil, apperr.Transient("channel.lookup", err)
	}

	topCats, err := s.repo.TopCategories(ctx, channelID)
	if err != nil {
		return nil, apperr.Transient("channel.lookup", err)
	}
	if topCats == nil {
		topCats = []string{}
	}

	resp := &model.ChannelResponse{
		ChannelID:     ch.ChannelID,
		Score:         ch.Score,
		TotalVideos:   ch.TotalVideos,
		FlaggedVideos: ch.FlaggedVideos,
		TopCategories: topCats,
		Locked:        ch.Locked,
		AutoFlagNew:   ch.AutoFlagNew,
		LastUpdated:   ch.LastUpdated.Format(time.RFC3339),
	}

	s.cache.SetChannel(ctx, channelID, resp)
	return resp, nil
}
