package model

import "time"

// Category is one of the closed set of AI-content labels a vote can carry.
type Category string

const (
	CategoryFullyAI      Category = "fully_ai"
	CategoryAIVoiceover  Category = "ai_voiceover"
	CategoryAIVisuals    Category = "ai_visuals"
	CategoryAIThumbnails Category = "ai_thumbnails"
	CategoryAIAssisted   Category = "ai_assisted"
)

// Categories lists every valid category, in display order.
var Categories = []Category{
	CategoryFullyAI,
	CategoryAIVoiceover,
	CategoryAIVisuals,
	CategoryAIThumbnails,
	CategoryAIAssisted,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Vote is a user's single live vote on a video.
type Vote struct {
	VideoID     string    `json:"videoId"`
	UserID      string    `json:"userId"`
	Category    Category  `json:"category"`
	TrustWeight float64   `json:"trustWeight"`
	CreatedAt   time.Time `json:"createdAt"`
	IPHash      string    `json:"-"`
	UserAgent   string    `json:"-"`
}

// WeightedVote is the projection of a vote the aggregator needs.
type WeightedVote struct {
	Category    Category
	TrustWeight float64
}

// SubmitVoteInput is a validated vote submission. ChannelID is optional and
// attaches the video to its channel when the video has none yet.
type SubmitVoteInput struct {
	VideoID   string
	UserID    string
	Category  Category
	IPHash    string
	UserAgent string
	ChannelID string
}

// VoteRequest is the API request body for submitting a vote.
type VoteRequest struct {
	VideoID   string `json:"videoId"`
	Category  string `json:"category"`
	UserID    string `json:"userId"`
	UserAgent string `json:"userAgent,omitempty"`
	ChannelID string `json:"channelId,omitempty"`
}

// VoteDeleteRequest is the API request body for removing a vote.
type VoteDeleteRequest struct {
	VideoID string `json:"videoId"`
	UserID  string `json:"userId"`
}

// VoteResult is returned after a vote is committed. UserTrust is the
// effective weight snapshotted onto the vote.
type VoteResult struct {
	Success   bool    `json:"success"`
	NewScore  float64 `json:"newScore"`
	UserTrust float64 `json:"userTrust"`
}
