package service

import (
	"context"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mathieu-neron/realtube-scoring/internal/apperr"
	"github.com/mathieu-neron/realtube-scoring/internal/metrics"
	"github.com/mathieu-neron/realtube-scoring/internal/model"
	"github.com/mathieu-neron/realtube-scoring/internal/repository"
)

// ScoreService recalculates video and category scores after vote changes.
type ScoreService struct {
	pool   *pgxpool.Pool
	votes  *repository.VoteRepo
	videos *repository.VideoRepo
}

func NewScoreService(pool *pgxpool.Pool, votes *repository.VoteRepo, videos *repository.VideoRepo) *ScoreService {
	return &ScoreService{pool: pool, votes: votes, videos: videos}
}

// Recalculate recomputes every category score and the overall score of a
// video from its live votes, and returns the new score. The algorithm:
//
//	For each category C:
//	  C_score = (sum of trust_weight for votes in C) / (sum of trust_weight for ALL votes) * 100
//	  video.score = max(C_score for all categories)
//
// Reads and writes share one transaction.
func (s *ScoreService) Recalculate(ctx context.Context, videoID string) (float64, error) {
	start := time.Now()
	defer func() {
		metrics.ScoreRecalcDuration.Observe(time.Since(start).Seconds())
	}()

	var score float64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		votes, err := s.votes.WithTx(tx).ListWeighted(ctx, videoID)
		if err != nil {
			return err
		}

		var scores map[model.Category]float64
		scores, score = ComputeScoresFromVotes(votes)
		return s.videos.WithTx(tx).ApplyScores(ctx, videoID, scores, score)
	})
	if err != nil {
		return 0, apperr.Transient("video.recalculate", err)
	}
	return score, nil
}

// ComputeScoresFromVotes is the store-free twin of Recalculate. It returns
// nil scores and 0 when there are no votes or their total weight is zero.
func ComputeScoresFromVotes(votes []model.WeightedVote) (map[model.Category]float64, float64) {
	var totalWeight float64
	sums := make(map[model.Category]float64)
	for _, v := range votes {
		totalWeight += v.TrustWeight
		sums[v.Category] += v.TrustWeight
	}
	if totalWeight <= 0 {
		return nil, 0
	}

	var maxScore float64
	scores := make(map[model.Category]float64, len(sums))
	for category, sum := range sums {
		// Float division can land a hair above 100.
		score := math.Min(sum/totalWeight*100, 100)
		scores[category] = score
		if score > maxScore {
			maxScore = score
		}
	}
	return scores, maxScore
}
