package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mathieu-neron/realtube-scoring/internal/apperr"
	"github.com/mathieu-neron/realtube-scoring/internal/model"
)

type VideoRepo struct {
	db DBTX
}

func NewVideoRepo(db DBTX) *VideoRepo {
	return &VideoRepo{db: db}
}

func (r *VideoRepo) WithTx(tx DBTX) *VideoRepo {
	return &VideoRepo{db: tx}
}

// Ensure creates the video if absent. A non-empty channelID is attached only
// when the video has no channel yet.
func (r *VideoRepo) Ensure(ctx context.Context, videoID, channelID string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO videos (video_id, channel_id) VALUES ($1, NULLIF($2, ''))
		ON CONFLICT (video_id) DO UPDATE
		SET channel_id = COALESCE(videos.channel_id, EXCLUDED.channel_id)`,
		videoID, channelID)
	if err != nil {
		return fmt.Errorf("ensure video: %w", err)
	}
	return nil
}

// AddTotalVotes adjusts total_votes by delta, never going below zero, and
// touches last_updated.
func (r *VideoRepo) AddTotalVotes(ctx context.Context, videoID string, delta int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE videos SET total_votes = GREATEST(total_votes + $2, 0), last_updated = NOW()
		WHERE video_id = $1`, videoID, delta)
	if err != nil {
		return fmt.Errorf("update total votes: %w", err)
	}
	return nil
}

func (r *VideoRepo) Touch(ctx context.Context, videoID string) error {
	_, err := r.db.Exec(ctx, `UPDATE videos SET last_updated = NOW() WHERE video_id = $1`, videoID)
	if err != nil {
		return fmt.Errorf("touch video: %w", err)
	}
	return nil
}

// IncrementCategory adds one vote to the category, creating its row.
func (r *VideoRepo) IncrementCategory(ctx context.Context, videoID string, category model.Category) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO video_categories (video_id, category, vote_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (video_id, category) DO UPDATE
		SET vote_count = video_categories.vote_count + 1`,
		videoID, category)
	if err != nil {
		return fmt.Errorf("increment category: %w", err)
	}
	return nil
}

// DecrementCategory removes one vote from the category, flooring at zero.
func (r *VideoRepo) DecrementCategory(ctx context.Context, videoID string, category model.Category) error {
	_, err := r.db.Exec(ctx, `
		UPDATE video_categories SET vote_count = vote_count - 1
		WHERE video_id = $1 AND category = $2 AND vote_count > 0`,
		videoID, category)
	if err != nil {
		return fmt.Errorf("decrement category: %w", err)
	}
	return nil
}

// ApplyScores writes a full recalculation: every category of the video is
// reset, the scored ones are set, then the overall score. Sent as one batch.
func (r *VideoRepo) ApplyScores(ctx context.Context, videoID string, scores map[model.Category]float64, score float64) error {
	batch := &pgx.Batch{}
	batch.Queue(`UPDATE video_categories SET weighted_score = 0 WHERE video_id = $1`, videoID)
	for category, s := range scores {
		batch.Queue(`
			UPDATE video_categories SET weighted_score = $3
			WHERE video_id = $1 AND category = $2`, videoID, category, s)
	}
	batch.Queue(`UPDATE videos SET score = $2, last_updated = NOW() WHERE video_id = $1`, videoID, score)

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("apply scores: %w", err)
	}
	return nil
}

// GetScore returns the persisted score of a video.
func (r *VideoRepo) GetScore(ctx context.Context, videoID string) (float64, error) {
	var score float64
	err := r.db.QueryRow(ctx, `SELECT score FROM videos WHERE video_id = $1`, videoID).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.NotFound("video.score", err)
	}
	if err != nil {
		return 0, fmt.Errorf("get video score: %w", err)
	}
	return score, nil
}

// SeedPreliminary gives an untouched video (no votes, zero score, not
// locked) the preliminary score when its channel is auto-flagged. It reports
// whether the row changed.
func (r *VideoRepo) SeedPreliminary(ctx context.Context, videoID string, score float64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE videos v SET score = $2, last_updated = NOW()
		FROM channels c
		WHERE v.video_id = $1 AND c.channel_id = v.channel_id AND c.auto_flag_new
		  AND v.total_votes = 0 AND v.score = 0 AND NOT v.locked`,
		videoID, score)
	if err != nil {
		return false, fmt.Errorf("seed preliminary score: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FindByVideoID returns a single visible video.
func (r *VideoRepo) FindByVideoID(ctx context.Context, videoID string) (*model.Video, error) {
	query := `
		SELECT video_id, channel_id, score, total_votes, locked, hidden, shadow_hidden,
		       first_reported, last_updated
		FROM videos
		WHERE video_id = $1
		  AND hidden = false AND shadow_hidden = false`

	var v model.Video
	err := r.db.QueryRow(ctx, query, videoID).Scan(
		&v.VideoID, &v.ChannelID, &v.Score, &v.TotalVotes, &v.Locked, &v.Hidden, &v.ShadowHidden,
		&v.FirstReported, &v.LastUpdated,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("video.find", err)
	}
	if err != nil {
		return nil, fmt.Errorf("find video: %w", err)
	}
	return &v, nil
}

// GetCategories returns the per-category aggregates of a video.
func (r *VideoRepo) GetCategories(ctx context.Context, videoID string) ([]model.VideoCategory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT video_id, category, vote_count, weighted_score
		FROM video_categories
		WHERE video_id = $1
		ORDER BY category`, videoID)
	if err != nil {
		return nil, fmt.Errorf("get categories: %w", err)
	}

	cats, err := pgx.CollectRows(rows, pgx.RowToStructByPos[model.VideoCategory])
	if err != nil {
		return nil, fmt.Errorf("scan categories: %w", err)
	}
	return cats, nil
}
