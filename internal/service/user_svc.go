package service

import (
	"context"
	"math"

	"github.com/mathieu-neron/realtube-scoring/internal/apperr"
	"github.com/mathieu-neron/realtube-scoring/internal/model"
	"github.com/mathieu-neron/realtube-scoring/internal/repository"
)

type UserService struct {
	repo  *repository.UserRepo
	trust *TrustService
}

func NewUserService(repo *repository.UserRepo, trust *TrustService) *UserService {
	return &UserService{repo: repo, trust: trust}
}

// Lookup returns the user response for a given user ID. Users are created on
// first lookup, like on first vote, so an unknown ID gets the defaults.
func (s *UserService) Lookup(ctx context.Context, userID string) (*model.UserResponse, error) {
	const op = "user.lookup"

	if userID == "" {
		return nil, apperr.Validation(op, "userId is required")
	}

	u, err := s.repo.Ensure(ctx, userID)
	if err != nil {
		return nil, apperr.Transient(op, err)
	}

	return &model.UserResponse{
		UserID:       u.UserID,
		TrustScore:   u.TrustScore,
		TotalVotes:   u.TotalVotes,
		AccuracyRate: u.AccuracyRate,
		AccountAge:   s.accountAgeDays(u),
		IsVIP:        u.IsVIP,
	}, nil
}

func (s *UserService) accountAgeDays(u *model.User) int {
	return int(math.Floor(s.trust.clock.Since(u.FirstSeen).Hours() / 24))
}
