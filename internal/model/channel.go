package model

import "time"

// Channel holds the aggregated score of a channel's videos.
type Channel struct {
	ChannelID     string    `json:"channelId"`
	Score         float64   `json:"score"`
	TotalVideos   int       `json:"totalVideos"`
	FlaggedVideos int       `json:"flaggedVideos"`
	TopCategory   *string   `json:"topCategory,omitempty"`
	Locked        bool      `json:"locked"`
	AutoFlagNew   bool      `json:"autoFlagNew"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// ChannelStats are the video aggregates a channel score is computed from.
type ChannelStats struct {
	Flagged         int
	Tracked         int
	AvgFlaggedScore float64
}

// ChannelResponse is the API response for channel lookups.
type ChannelResponse struct {
	ChannelID     string   `json:"channelId"`
	Score         float64  `json:"score"`
	TotalVideos   int      `json:"totalVideos"`
	FlaggedVideos int      `json:"flaggedVideos"`
	TopCategories []string `json:"topCategories"`
	Locked        bool     `json:"locked"`
	AutoFlagNew   bool     `json:"autoFlagNew"`
	LastUpdated   string   `json:"lastUpdated"`
}
