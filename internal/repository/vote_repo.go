package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mathieu-neron/realtube-scoring/internal/model"
)

// Same channel as db.VoteChangesChannel. NOTIFY is issued inside the ledger
// transaction, so listeners only hear about committed mutations.
const voteChangesChannel = "vote_changes"

type VoteRepo struct {
	db DBTX
}

func NewVoteRepo(db DBTX) *VoteRepo {
	return &VoteRepo{db: db}
}

func (r *VoteRepo) WithTx(tx DBTX) *VoteRepo {
	return &VoteRepo{db: tx}
}

// FindCategory returns the category of the user's live vote on a video.
// ok is false when there is none.
func (r *VoteRepo) FindCategory(ctx context.Context, videoID, userID string) (category model.Category, ok bool, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT category FROM votes WHERE video_id = $1 AND user_id = $2 FOR UPDATE`,
		videoID, userID).Scan(&category)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find vote: %w", err)
	}
	return category, true, nil
}

// Upsert inserts the vote, or replaces category, weight and timestamp of the
// user's existing vote on the video.
func (r *VoteRepo) Upsert(ctx context.Context, v model.Vote) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO votes (video_id, user_id, category, trust_weight, ip_hash, user_agent)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
		ON CONFLICT (video_id, user_id) DO UPDATE
		SET category = EXCLUDED.category, trust_weight = EXCLUDED.trust_weight, created_at = NOW()`,
		v.VideoID, v.UserID, v.Category, v.TrustWeight, v.IPHash, v.UserAgent)
	if err != nil {
		return fmt.Errorf("upsert vote: %w", err)
	}
	return nil
}

func (r *VoteRepo) Delete(ctx context.Context, videoID, userID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM votes WHERE video_id = $1 AND user_id = $2`, videoID, userID)
	if err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	return nil
}

// ListWeighted returns every live vote on the video as (category, weight).
func (r *VoteRepo) ListWeighted(ctx context.Context, videoID string) ([]model.WeightedVote, error) {
	rows, err := r.db.Query(ctx, `
		SELECT category, trust_weight FROM votes WHERE video_id = $1`, videoID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}

	votes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.WeightedVote, error) {
		var v model.WeightedVote
		err := row.Scan(&v.Category, &v.TrustWeight)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan votes: %w", err)
	}
	return votes, nil
}

// NotifyChange queues a vote_changes notification for the video.
func (r *VoteRepo) NotifyChange(ctx context.Context, videoID string) error {
	_, err := r.db.Exec(ctx, `SELECT pg_notify($1, $2)`, voteChangesChannel, videoID)
	if err != nil {
		return fmt.Errorf("notify vote change: %w", err)
	}
	return nil
}
