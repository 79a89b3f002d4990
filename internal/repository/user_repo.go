package repository

import (
	"context"
	"fmt"

	"github.com/mathieu-neron/realtube-scoring/internal/model"
)

type UserRepo struct {
	db DBTX
}

func NewUserRepo(db DBTX) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) WithTx(tx DBTX) *UserRepo {
	return &UserRepo{db: tx}
}

// Ensure creates the user with default trust values, or touches last_active
// if it already exists, and returns the current row.
func (r *UserRepo) Ensure(ctx context.Context, userID string) (*model.User, error) {
	query := `
		INSERT INTO users (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET last_active = NOW()
		RETURNING user_id, trust_score, accuracy_rate, total_votes, accurate_votes,
		          first_seen, last_active, is_vip, is_shadowbanned`

	var u model.User
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&u.UserID, &u.TrustScore, &u.AccuracyRate, &u.TotalVotes, &u.AccurateVotes,
		&u.FirstSeen, &u.LastActive, &u.IsVIP, &u.IsShadowbanned,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return &u, nil
}

// SetTrustScore caches the derived trust score on the user row.
func (r *UserRepo) SetTrustScore(ctx context.Context, userID string, trust float64) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET trust_score = $1 WHERE user_id = $2`, trust, userID)
	if err != nil {
		return fmt.Errorf("set trust score: %w", err)
	}
	return nil
}
