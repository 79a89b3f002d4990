package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathieu-neron/realtube-scoring/internal/apperr"
	"github.com/mathieu-neron/realtube-scoring/internal/model"
)

func TestSubmit_RejectsInvalidInput(t *testing.T) {
	// Validation happens before any store access, so no database is needed.
	svc := &VoteService{}

	tests := []struct {
		name string
		in   model.SubmitVoteInput
	}{
		{"unknown category", model.SubmitVoteInput{VideoID: "v1", UserID: "u1", Category: "deepfake"}},
		{"missing video", model.SubmitVoteInput{UserID: "u1", Category: model.CategoryFullyAI}},
		{"missing user", model.SubmitVoteInput{VideoID: "v1", Category: model.CategoryFullyAI}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Submit(context.Background(), tt.in)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestSubmit_NewVote(t *testing.T) {
	env := setupTestEnv(t)

	res := env.vote(t, "vid1", "user1", model.CategoryFullyAI)

	assert.True(t, res.Success)
	assert.InDelta(t, 100.0, res.NewScore, 1e-9)
	// Brand new user: 0*0.3 + 0.5*0.5 + 0*0.2
	assert.InDelta(t, 0.25, res.UserTrust, 1e-6)

	assert.Equal(t, 1, env.totalVotes(t, "vid1"))
	cats := env.categories(t, "vid1")
	assert.Equal(t, 1, cats[model.CategoryFullyAI].VoteCount)
	assert.InDelta(t, 100.0, cats[model.CategoryFullyAI].WeightedScore, 1e-9)

	var trust float64
	require.NoError(t, env.pool.QueryRow(context.Background(),
		`SELECT trust_score FROM users WHERE user_id = $1`, "user1").Scan(&trust))
	assert.InDelta(t, 0.25, trust, 1e-6)
}

func TestSubmit_SameVoteTwiceIsIdempotent(t *testing.T) {
	env := setupTestEnv(t)

	env.vote(t, "vid1", "user1", model.CategoryFullyAI)
	env.vote(t, "vid1", "user1", model.CategoryFullyAI)

	assert.Equal(t, 1, env.totalVotes(t, "vid1"))
	assert.Equal(t, 1, env.categories(t, "vid1")[model.CategoryFullyAI].VoteCount)

	var n int
	require.NoError(t, env.pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM votes WHERE video_id = $1`, "vid1").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSubmit_Recategorization(t *testing.T) {
	env := setupTestEnv(t)

	env.vote(t, "vid1", "user1", model.CategoryFullyAI)
	res := env.vote(t, "vid1", "user1", model.CategoryAIVoiceover)

	assert.Equal(t, 1, env.totalVotes(t, "vid1"))
	cats := env.categories(t, "vid1")
	assert.Equal(t, 0, cats[model.CategoryFullyAI].VoteCount)
	assert.Zero(t, cats[model.CategoryFullyAI].WeightedScore)
	assert.Equal(t, 1, cats[model.CategoryAIVoiceover].VoteCount)
	assert.InDelta(t, 100.0, cats[model.CategoryAIVoiceover].WeightedScore, 1e-9)
	assert.InDelta(t, 100.0, res.NewScore, 1e-9)
}

func TestSubmit_CountersMatchTotalVotes(t *testing.T) {
	env := setupTestEnv(t)

	env.vote(t, "vid1", "user1", model.CategoryFullyAI)
	env.vote(t, "vid1", "user2", model.CategoryAIVisuals)
	env.vote(t, "vid1", "user3", model.CategoryFullyAI)
	env.vote(t, "vid1", "user2", model.CategoryAIAssisted)
	require.NoError(t, env.ledger.Delete(context.Background(), "vid1", "user3"))

	sum := 0
	for _, c := range env.categories(t, "vid1") {
		sum += c.VoteCount
	}
	assert.Equal(t, env.totalVotes(t, "vid1"), sum)
	assert.Equal(t, 2, sum)
}

func TestSubmit_ShadowbannedVoteCountsButWeighsNothing(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.users.Ensure(ctx, "banned")
	require.NoError(t, err)
	env.exec(t, `UPDATE users SET is_shadowbanned = true, is_vip = true WHERE user_id = $1`, "banned")

	res := env.vote(t, "vid1", "banned", model.CategoryFullyAI)

	assert.True(t, res.Success)
	assert.Zero(t, res.UserTrust)
	assert.Zero(t, res.NewScore)
	assert.Equal(t, 1, env.totalVotes(t, "vid1"))
}

func TestSubmit_VIPWeighsThreeTimes(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.users.Ensure(ctx, "vip")
	require.NoError(t, err)
	env.exec(t, `UPDATE users SET is_vip = true WHERE user_id = $1`, "vip")

	env.vote(t, "vid1", "vip", model.CategoryFullyAI)
	res := env.vote(t, "vid1", "regular", model.CategoryAIVoiceover)

	// Equal trust, 3:1 base weight → fully_ai = 75%
	assert.InDelta(t, 0.25, res.UserTrust, 1e-6)
	assert.InDelta(t, 75.0, res.NewScore, 1e-6)
}

func TestSubmit_AttachesChannel(t *testing.T) {
	env := setupTestEnv(t)

	env.voteInChannel(t, "vid1", "user1", "UCchan", model.CategoryFullyAI)
	// A later vote naming another channel does not move the video.
	env.voteInChannel(t, "vid1", "user2", "UCother", model.CategoryFullyAI)

	v, err := env.videos.FindByVideoID(context.Background(), "vid1")
	require.NoError(t, err)
	require.NotNil(t, v.ChannelID)
	assert.Equal(t, "UCchan", *v.ChannelID)
}

func TestDelete_NotFound(t *testing.T) {
	env := setupTestEnv(t)

	err := env.ledger.Delete(context.Background(), "vid1", "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	env.vote(t, "vid1", "user1", model.CategoryFullyAI)
	err = env.ledger.Delete(context.Background(), "vid1", "user2")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, 1, env.totalVotes(t, "vid1"))
}

func TestDelete_RecomputesFromRemainingVotes(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.vote(t, "vid1", "user1", model.CategoryFullyAI)
	res := env.vote(t, "vid1", "user2", model.CategoryAIVoiceover)
	assert.InDelta(t, 50.0, res.NewScore, 1e-6)

	require.NoError(t, env.ledger.Delete(ctx, "vid1", "user1"))

	assert.Equal(t, 1, env.totalVotes(t, "vid1"))
	assert.InDelta(t, 100.0, env.score(t, "vid1"), 1e-9)
	cats := env.categories(t, "vid1")
	assert.Equal(t, 0, cats[model.CategoryFullyAI].VoteCount)
	assert.Zero(t, cats[model.CategoryFullyAI].WeightedScore)
	assert.InDelta(t, 100.0, cats[model.CategoryAIVoiceover].WeightedScore, 1e-9)

	// Deleting twice is NotFound the second time.
	assert.ErrorIs(t, env.ledger.Delete(ctx, "vid1", "user1"), apperr.ErrNotFound)
}

func TestDelete_LastVoteResetsScore(t *testing.T) {
	env := setupTestEnv(t)

	env.vote(t, "vid1", "user1", model.CategoryAIThumbnails)
	require.NoError(t, env.ledger.Delete(context.Background(), "vid1", "user1"))

	assert.Zero(t, env.totalVotes(t, "vid1"))
	assert.Zero(t, env.score(t, "vid1"))
}

func TestSubmit_InvalidatesVideoCache(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.vote(t, "vid1", "user1", model.CategoryFullyAI)
	_, err := env.videoSvc.Lookup(ctx, "vid1")
	require.NoError(t, err)
	_, cached := env.cache.GetVideo(ctx, "vid1")
	require.True(t, cached)

	env.vote(t, "vid1", "user2", model.CategoryAIVisuals)

	_, cached = env.cache.GetVideo(ctx, "vid1")
	assert.False(t, cached)

	resp, err := env.videoSvc.Lookup(ctx, "vid1")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalVotes)
	assert.InDelta(t, 50.0, resp.Score, 1e-6)
}
