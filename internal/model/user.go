package model

import "time"

// Defaults applied to a user row created on first interaction.
const (
	DefaultTrustScore   = 0.3
	DefaultAccuracyRate = 0.5
)

// User holds the trust inputs for a voter. UserID is hashed client-side.
type User struct {
	UserID         string    `json:"userId"`
	TrustScore     float64   `json:"trustScore"`
	AccuracyRate   float64   `json:"accuracyRate"`
	TotalVotes     int       `json:"totalVotes"`
	AccurateVotes  int       `json:"-"`
	FirstSeen      time.Time `json:"-"`
	LastActive     time.Time `json:"-"`
	IsVIP          bool      `json:"isVip"`
	IsShadowbanned bool      `json:"-"`
}

// UserResponse is the API response for user info.
type UserResponse struct {
	UserID       string  `json:"userId"`
	TrustScore   float64 `json:"trustScore"`
	TotalVotes   int     `json:"totalVotes"`
	AccuracyRate float64 `json:"accuracyRate"`
	AccountAge   int     `json:"accountAge"`
	IsVIP        bool    `json:"isVip"`
}
