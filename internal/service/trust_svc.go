package service

import (
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mathieu-neron/realtube-scoring/internal/model"
)

const (
	ageWeight      = 0.30
	accuracyWeight = 0.50
	volumeWeight   = 0.20

	// Full age factor after 60 days
	ageDaysMax = 60.0

	// Users with fewer than 10 votes get neutral accuracy
	defaultAccuracy     = 0.5
	minVotesForAccuracy = 10

	// Full volume factor at 100 votes
	volumeVotesMax = 100.0

	BaseWeightRegular      = 1.0
	BaseWeightVIP          = 3.0
	BaseWeightShadowbanned = 0.0
)

// TrustService computes vote weights. It has no I/O; the clock only feeds
// the account-age factor.
type TrustService struct {
	clock clockwork.Clock
}

func NewTrustService(clock clockwork.Clock) *TrustService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TrustService{clock: clock}
}

// ComputeTrustScore combines the three factors:
//
//	trust_score = min(age*0.30 + accuracy*0.50 + volume*0.20, 1)
func (s *TrustService) ComputeTrustScore(user *model.User) float64 {
	ageFactor := s.AgeFactor(user.FirstSeen)
	accuracyFactor := AccuracyFactor(user.AccuracyRate, user.TotalVotes)
	volumeFactor := VolumeFactor(user.TotalVotes)

	score := (ageFactor * ageWeight) + (accuracyFactor * accuracyWeight) + (volumeFactor * volumeWeight)
	return math.Min(score, 1.0)
}

// AgeFactor grows linearly to 1.0 at 60 days. A first_seen in the future
// counts as zero age.
func (s *TrustService) AgeFactor(firstSeen time.Time) float64 {
	days := s.clock.Since(firstSeen).Hours() / 24
	return math.Max(0, math.Min(days/ageDaysMax, 1.0))
}

// AccuracyFactor returns the accuracy rate for users with 10+ votes,
// otherwise the neutral default.
func AccuracyFactor(accuracyRate float64, totalVotes int) float64 {
	if totalVotes < minVotesForAccuracy {
		return defaultAccuracy
	}
	return accuracyRate
}

// VolumeFactor grows linearly to 1.0 at 100 votes.
func VolumeFactor(totalVotes int) float64 {
	return math.Min(float64(totalVotes)/volumeVotesMax, 1.0)
}

// BaseWeight is the role multiplier. Shadowban is checked first, so a
// shadowbanned VIP weighs nothing.
func BaseWeight(isVIP, isShadowbanned bool) float64 {
	if isShadowbanned {
		return BaseWeightShadowbanned
	}
	if isVIP {
		return BaseWeightVIP
	}
	return BaseWeightRegular
}

// EffectiveWeight is the weight snapshotted onto a vote at cast time.
func (s *TrustService) EffectiveWeight(user *model.User) float64 {
	return s.ComputeTrustScore(user) * BaseWeight(user.IsVIP, user.IsShadowbanned)
}
