package model

import "time"

// FlaggedThreshold is the inclusive score at which a video counts as flagged.
const FlaggedThreshold = 50.0

// Video is a scored video. Score is derived from its votes.
type Video struct {
	VideoID       string    `json:"videoId"`
	ChannelID     *string   `json:"channelId,omitempty"`
	Score         float64   `json:"score"`
	TotalVotes    int       `json:"totalVotes"`
	Locked        bool      `json:"locked"`
	Hidden        bool      `json:"-"`
	ShadowHidden  bool      `json:"-"`
	FirstReported time.Time `json:"firstReported"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// VideoCategory holds the per-category aggregates of a video.
type VideoCategory struct {
	VideoID       string   `json:"videoId"`
	Category      Category `json:"category"`
	VoteCount     int      `json:"votes"`
	WeightedScore float64  `json:"weightedScore"`
}

// RegisterVideoRequest attaches a video to its channel before any votes.
type RegisterVideoRequest struct {
	VideoID   string `json:"videoId"`
	ChannelID string `json:"channelId"`
}

// VideoResponse is the API response for video lookups.
type VideoResponse struct {
	VideoID     string                       `json:"videoId"`
	Score       float64                      `json:"score"`
	Categories  map[Category]*CategoryDetail `json:"categories"`
	TotalVotes  int                          `json:"totalVotes"`
	Locked      bool                         `json:"locked"`
	ChannelID   *string                      `json:"channelId,omitempty"`
	LastUpdated time.Time                    `json:"lastUpdated"`
}

// CategoryDetail holds the vote count and weighted score for one category.
type CategoryDetail struct {
	Votes         int     `json:"votes"`
	WeightedScore float64 `json:"weightedScore"`
}

// RegisterVideoResponse reports whether registration applied the channel's
// preliminary score.
type RegisterVideoResponse struct {
	VideoID     string `json:"videoId"`
	ChannelID   string `json:"channelId"`
	Preliminary bool   `json:"preliminary"`
}
