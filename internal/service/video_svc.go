package service

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/mathieu-neron/realtube-scoring/internal/apperr"
	"github.com/mathieu-neron/realtube-scoring/internal/model"
	"github.com/mathieu-neron/realtube-scoring/internal/repository"
)

type VideoService struct {
	pool             *pgxpool.Pool
	videos           *repository.VideoRepo
	channels         *repository.ChannelRepo
	cache            *CacheService
	preliminaryScore float64
	logger           zerolog.Logger
}

func NewVideoService(
	pool *pgxpool.Pool,
	videos *repository.VideoRepo,
	channels *repository.ChannelRepo,
	cache *CacheService,
	preliminaryScore float64,
	logger zerolog.Logger,
) *VideoService {
	return &VideoService{
		pool:             pool,
		videos:           videos,
		channels:         channels,
		cache:            cache,
		preliminaryScore: preliminaryScore,
		logger:           logger.With().Str("component", "video_service").Logger(),
	}
}

// Register records a video and its channel before any vote arrives. If the
// channel is auto-flagged and the video untouched, the video gets the
// preliminary score right away instead of waiting for the next channel tick.
// It reports whether that happened.
func (s *VideoService) Register(ctx context.Context, videoID, channelID string) (bool, error) {
	const op = "video.register"

	if videoID == "" || channelID == "" {
		return false, apperr.Validation(op, "videoId and channelId are required")
	}

	var seeded bool
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.channels.WithTx(tx).Ensure(ctx, channelID); err != nil {
			return err
		}
		videos := s.videos.WithTx(tx)
		if err := videos.Ensure(ctx, videoID, channelID); err != nil {
			return err
		}

		var err error
		seeded, err = videos.SeedPreliminary(ctx, videoID, s.preliminaryScore)
		return err
	})
	if err != nil {
		return false, apperr.Transient(op, err)
	}

	if seeded {
		s.logger.Info().Str("video_id", videoID).Str("channel_id", channelID).Msg("preliminary score applied")
		s.cache.InvalidateVideo(ctx, videoID)
	}
	return seeded, nil
}

// Lookup finds a single visible video by exact ID and builds its API
// response, going through the cache.
func (s *VideoService) Lookup(ctx context.Context, videoID string) (*model.VideoResponse, error) {
	if cached, ok := s.cache.GetVideo(ctx, videoID); ok {
		var resp model.VideoResponse
		if err := json.Unmarshal(cached, &resp); err == nil {
			return &resp, nil
		}
	}

	video, err := s.videos.FindByVideoID(ctx, videoID)
	if err != nil {
		return nil, apperr.Transient("video.lookup", err)
	}

	cats, err := s.videos.GetCategories(ctx, videoID)
	if err != nil {
		return nil, apperr.Transient("video.lookup", err)
	}

	resp := buildVideoResponse(*video, cats)
	s.cache.SetVideo(ctx, videoID, resp)
	return resp, nil
}

// buildVideoResponse lists only categories that currently hold votes.
func buildVideoResponse(v model.Video, cats []model.VideoCategory) *model.VideoResponse {
	categories := make(map[model.Category]*model.CategoryDetail, len(cats))
	for _, c := range cats {
		if c.VoteCount == 0 {
			continue
		}
		categories[c.Category] = &model.CategoryDetail{
			Votes:         c.VoteCount,
			WeightedScore: c.WeightedScore,
		}
	}

	return &model.VideoResponse{
		VideoID:     v.VideoID,
		Score:       v.Score,
		Categories:  categories,
		TotalVotes:  v.TotalVotes,
		Locked:      v.Locked,
		ChannelID:   v.ChannelID,
		LastUpdated: v.LastUpdated,
	}
}
