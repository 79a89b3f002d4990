package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/mathieu-neron/realtube-scoring/internal/apperr"
	"github.com/mathieu-neron/realtube-scoring/internal/metrics"
	"github.com/mathieu-neron/realtube-scoring/internal/model"
	"github.com/mathieu-neron/realtube-scoring/internal/repository"
)

// VoteService is the vote ledger: every submit and delete runs in one
// transaction, publishes a vote_changes notification, and is followed by a
// direct recalculation of the video.
type VoteService struct {
	pool     *pgxpool.Pool
	users    *repository.UserRepo
	videos   *repository.VideoRepo
	channels *repository.ChannelRepo
	votes    *repository.VoteRepo
	trust    *TrustService
	scores   *ScoreService
	cache    *CacheService
	logger   zerolog.Logger
}

func NewVoteService(
	pool *pgxpool.Pool,
	users *repository.UserRepo,
	videos *repository.VideoRepo,
	channels *repository.ChannelRepo,
	votes *repository.VoteRepo,
	trust *TrustService,
	scores *ScoreService,
	cache *CacheService,
	logger zerolog.Logger,
) *VoteService {
	return &VoteService{
		pool:     pool,
		users:    users,
		videos:   videos,
		channels: channels,
		votes:    votes,
		trust:    trust,
		scores:   scores,
		cache:    cache,
		logger:   logger.With().Str("component", "vote_ledger").Logger(),
	}
}

// Submit records a vote, replacing the user's previous vote on the video if
// there is one. Voting the same category again only refreshes the weight and
// timestamp.
func (s *VoteService) Submit(ctx context.Context, in model.SubmitVoteInput) (*model.VoteResult, error) {
	const op = "vote.submit"

	if in.VideoID == "" || in.UserID == "" {
		return nil, apperr.Validation(op, "videoId and userId are required")
	}
	if !in.Category.Valid() {
		return nil, apperr.Validation(op, fmt.Sprintf("invalid category: %s", in.Category))
	}

	var weight float64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		users := s.users.WithTx(tx)
		videos := s.videos.WithTx(tx)
		votes := s.votes.WithTx(tx)

		user, err := users.Ensure(ctx, in.UserID)
		if err != nil {
			return err
		}
		trust := s.trust.ComputeTrustScore(user)
		if trust != user.TrustScore {
			if err := users.SetTrustScore(ctx, in.UserID, trust); err != nil {
				return err
			}
		}
		weight = trust * BaseWeight(user.IsVIP, user.IsShadowbanned)

		if in.ChannelID != "" {
			if err := s.channels.WithTx(tx).Ensure(ctx, in.ChannelID); err != nil {
				return err
			}
		}
		if err := videos.Ensure(ctx, in.VideoID, in.ChannelID); err != nil {
			return err
		}

		prior, exists, err := votes.FindCategory(ctx, in.VideoID, in.UserID)
		if err != nil {
			return err
		}

		err = votes.Upsert(ctx, model.Vote{
			VideoID:     in.VideoID,
			UserID:      in.UserID,
			Category:    in.Category,
			TrustWeight: weight,
			IPHash:      in.IPHash,
			UserAgent:   in.UserAgent,
		})
		if err != nil {
			return err
		}

		switch {
		case !exists:
			if err := videos.AddTotalVotes(ctx, in.VideoID, 1); err != nil {
				return err
			}
			if err := videos.IncrementCategory(ctx, in.VideoID, in.Category); err != nil {
				return err
			}
		case prior != in.Category:
			if err := videos.DecrementCategory(ctx, in.VideoID, prior); err != nil {
				return err
			}
			if err := videos.IncrementCategory(ctx, in.VideoID, in.Category); err != nil {
				return err
			}
			if err := videos.Touch(ctx, in.VideoID); err != nil {
				return err
			}
		default:
			if err := videos.Touch(ctx, in.VideoID); err != nil {
				return err
			}
		}

		return votes.NotifyChange(ctx, in.VideoID)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("video_id", in.VideoID).Msg("vote submit rolled back")
		return nil, apperr.Transient(op, err)
	}
	metrics.VotesTotal.WithLabelValues(string(in.Category), "submit").Inc()

	return &model.VoteResult{
		Success:   true,
		NewScore:  s.recalculate(ctx, in.VideoID),
		UserTrust: weight,
	}, nil
}

// Delete removes the user's live vote on the video. It returns a NotFound
// error when there is none.
func (s *VoteService) Delete(ctx context.Context, videoID, userID string) error {
	const op = "vote.delete"

	if videoID == "" || userID == "" {
		return apperr.Validation(op, "videoId and userId are required")
	}

	var category model.Category
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		videos := s.videos.WithTx(tx)
		votes := s.votes.WithTx(tx)

		var exists bool
		var err error
		category, exists, err = votes.FindCategory(ctx, videoID, userID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound(op, nil)
		}

		if err := votes.Delete(ctx, videoID, userID); err != nil {
			return err
		}
		if err := videos.AddTotalVotes(ctx, videoID, -1); err != nil {
			return err
		}
		if err := videos.DecrementCategory(ctx, videoID, category); err != nil {
			return err
		}
		return votes.NotifyChange(ctx, videoID)
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.KindNotFound {
			s.logger.Error().Err(err).Str("video_id", videoID).Msg("vote delete rolled back")
		}
		return apperr.Transient(op, err)
	}
	metrics.VotesTotal.WithLabelValues(string(category), "delete").Inc()

	s.recalculate(ctx, videoID)
	return nil
}

// recalculate runs after a committed mutation. A failure does not fail the
// caller: the vote is committed and the score worker will pick up the
// notification, so the last persisted score is reported instead.
func (s *VoteService) recalculate(ctx context.Context, videoID string) float64 {
	defer s.cache.InvalidateVideo(ctx, videoID)

	score, err := s.scores.Recalculate(ctx, videoID)
	if err == nil {
		return score
	}

	metrics.ScoreRecalcFailures.WithLabelValues("ledger").Inc()
	s.logger.Warn().Err(err).Str("video_id", videoID).Msg("post-commit recalculation failed, deferring to score worker")

	score, err = s.videos.GetScore(ctx, videoID)
	if err != nil {
		s.logger.Warn().Err(err).Str("video_id", videoID).Msg("read persisted score")
		return 0
	}
	return score
}
