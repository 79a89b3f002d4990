package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mathieu-neron/realtube-scoring/internal/apperr"
	"github.com/mathieu-neron/realtube-scoring/internal/model"
)

type ChannelRepo struct {
	db DBTX
}

func NewChannelRepo(db DBTX) *ChannelRepo {
	return &ChannelRepo{db: db}
}

func (r *ChannelRepo) WithTx(tx DBTX) *ChannelRepo {
	return &ChannelRepo{db: tx}
}

func (r *ChannelRepo) Ensure(ctx context.Context, channelID string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO channels (channel_id) VALUES ($1)
		ON CONFLICT (channel_id) DO NOTHING`, channelID)
	if err != nil {
		return fmt.Errorf("ensure channel: %w", err)
	}
	return nil
}

// ListTracked returns the channels that own at least one voted video.
func (r *ChannelRepo) ListTracked(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT channel_id
		FROM videos
		WHERE channel_id IS NOT NULL AND total_votes > 0
		ORDER BY channel_id`)
	if err != nil {
		return nil, fmt.Errorf("list tracked channels: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan channel ids: %w", err)
	}
	return ids, nil
}

// Stats aggregates the channel's videos. A video with score exactly 50
// counts as flagged.
func (r *ChannelRepo) Stats(ctx context.Context, channelID string) (model.ChannelStats, error) {
	var s model.ChannelStats
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE score >= $2)                 AS flagged_videos,
			COUNT(*) FILTER (WHERE total_votes > 0)             AS tracked_videos,
			COALESCE(AVG(score) FILTER (WHERE score >= $2), 0)  AS avg_flagged_score
		FROM videos
		WHERE channel_id = $1`, channelID, model.FlaggedThreshold).Scan(&s.Flagged, &s.Tracked, &s.AvgFlaggedScore)
	if err != nil {
		return model.ChannelStats{}, fmt.Errorf("channel stats: %w", err)
	}
	return s, nil
}

// LockForUpdate row-locks the channel for the rest of the transaction and
// returns its manual lock flag and current auto-flag state.
func (r *ChannelRepo) LockForUpdate(ctx context.Context, channelID string) (locked, autoFlagNew bool, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT locked, auto_flag_new FROM channels WHERE channel_id = $1 FOR UPDATE`,
		channelID).Scan(&locked, &autoFlagNew)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, false, apperr.NotFound("channel.lock", err)
	}
	if err != nil {
		return false, false, fmt.Errorf("lock channel: %w", err)
	}
	return locked, autoFlagNew, nil
}

// TopCategories returns the channel's categories ordered by summed weighted
// score, highest first.
func (r *ChannelRepo) TopCategories(ctx context.Context, channelID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT vc.category
		FROM video_categories vc
		JOIN videos v ON v.video_id = vc.video_id
		WHERE v.channel_id = $1 AND vc.vote_count > 0
		GROUP BY vc.category
		ORDER BY SUM(vc.weighted_score) DESC, vc.category`, channelID)
	if err != nil {
		return nil, fmt.Errorf("top categories: %w", err)
	}

	cats, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan top categories: %w", err)
	}
	return cats, nil
}

// ChannelUpdate is the result of one channel recalculation.
type ChannelUpdate struct {
	Score       float64
	Stats       model.ChannelStats
	AutoFlagNew bool
	TopCategory *string
}

func (r *ChannelRepo) Update(ctx context.Context, channelID string, u ChannelUpdate) error {
	_, err := r.db.Exec(ctx, `
		UPDATE channels
		SET score = $2, flagged_videos = $3, total_videos = $4,
		    auto_flag_new = $5, top_category = $6, last_updated = NOW()
		WHERE channel_id = $1`,
		channelID, u.Score, u.Stats.Flagged, u.Stats.Tracked, u.AutoFlagNew, u.TopCategory)
	if err != nil {
		return fmt.Errorf("update channel: %w", err)
	}
	return nil
}

// SeedPreliminary gives every untouched video of the channel (no votes, zero
// score, not locked) the preliminary score and returns how many changed.
func (r *ChannelRepo) SeedPreliminary(ctx context.Context, channelID string, score float64) (int, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE videos
		SET score = $2, last_updated = NOW()
		WHERE channel_id = $1 AND total_votes = 0 AND score = 0 AND NOT locked`,
		channelID, score)
	if err != nil {
		return 0, fmt.Errorf("seed preliminary scores: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// FindByChannelID returns a single channel.
func (r *ChannelRepo) FindByChannelID(ctx context.Context, channelID string) (*model.Channel, error) {
	query := `
		SELECT channel_id, score, total_videos, flagged_videos,
		       top_category, locked, auto_flag_new, last_updated
		FROM channels
		WHERE channel_id = $1`

	var ch model.Channel
	err := r.db.QueryRow(ctx, query, channelID).Scan(
		&ch.ChannelID, &ch.Score, &ch.TotalVideos, &ch.FlaggedVideos,
		&ch.TopCategory, &ch.Locked, &ch.AutoFlagNew, &ch.LastUpdated,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("channel.find", err)
	}
	if err != nil {
		return nil, fmt.Errorf("find channel: %w", err)
	}
	return &ch, nil
}
