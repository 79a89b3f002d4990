package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathieu-neron/realtube-scoring/internal/apperr"
	"github.com/mathieu-neron/realtube-scoring/internal/model"
	"github.com/mathieu-neron/realtube-scoring/internal/service"
)

const testUserID = "abcdef0123456789"

type fakeLedger struct {
	submitted []model.SubmitVoteInput
	deleted   [][2]string
	err       error
}

func (f *fakeLedger) Submit(_ context.Context, in model.SubmitVoteInput) (*model.VoteResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.submitted = append(f.submitted, in)
	return &model.VoteResult{Success: true, NewScore: 100, UserTrust: 0.25}, nil
}

func (f *fakeLedger) Delete(_ context.Context, videoID, userID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, [2]string{videoID, userID})
	return nil
}

type fakeVideos struct {
	seeded bool
	err    error
}

func (f *fakeVideos) Lookup(_ context.Context, videoID string) (*model.VideoResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.VideoResponse{VideoID: videoID, Score: 42}, nil
}

func (f *fakeVideos) Register(context.Context, string, string) (bool, error) {
	return f.seeded, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeCache struct {
	enabled bool
	err     error
}

func (f fakeCache) Enabled() bool              { return f.enabled }
func (f fakeCache) Ping(context.Context) error { return f.err }

type fakeWorker struct{ state service.WorkerState }

func (f fakeWorker) State() service.WorkerState { return f.state }

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func newVoteApp(ledger VoteLedger) *fiber.App {
	app := fiber.New()
	h := NewVoteHandler(ledger, "salt")
	app.Post("/api/votes", h.Submit)
	app.Delete("/api/votes", h.Delete)
	return app
}

func TestVoteSubmit_Validation(t *testing.T) {
	ledger := &fakeLedger{}
	app := newVoteApp(ledger)

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"malformed json", `{`, "INVALID_BODY"},
		{"missing video", `{"userId":"` + testUserID + `","category":"fully_ai"}`, "INVALID_FIELD"},
		{"video too long", `{"videoId":"aaaaaaaaaaaaaaaaa","userId":"` + testUserID + `","category":"fully_ai"}`, "INVALID_FIELD"},
		{"non hex user", `{"videoId":"vid1","userId":"zzz","category":"fully_ai"}`, "INVALID_FIELD"},
		{"unknown category", `{"videoId":"vid1","userId":"` + testUserID + `","category":"deepfake"}`, "INVALID_CATEGORY"},
		{"bad channel", `{"videoId":"vid1","userId":"` + testUserID + `","category":"fully_ai","channelId":"bad id!"}`, "INVALID_FIELD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, app, http.MethodPost, "/api/votes", tt.body)
			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Equal(t, tt.wantCode, errorCode(body))
		})
	}
	assert.Empty(t, ledger.submitted)
}

func TestVoteSubmit_PassesNormalizedInput(t *testing.T) {
	ledger := &fakeLedger{}
	app := newVoteApp(ledger)

	status, body := doJSON(t, app, http.MethodPost, "/api/votes",
		`{"videoId":" vid1 ","userId":"ABCDEF0123456789","category":"ai_voiceover","channelId":"UC1","userAgent":"ext/1.0"}`)

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 100.0, body["newScore"])

	require.Len(t, ledger.submitted, 1)
	in := ledger.submitted[0]
	assert.Equal(t, "vid1", in.VideoID)
	assert.Equal(t, testUserID, in.UserID)
	assert.Equal(t, model.CategoryAIVoiceover, in.Category)
	assert.Equal(t, "UC1", in.ChannelID)
	assert.Equal(t, "ext/1.0", in.UserAgent)
	assert.Len(t, in.IPHash, 64)
}

func TestVoteDelete(t *testing.T) {
	ledger := &fakeLedger{}
	app := newVoteApp(ledger)

	status, body := doJSON(t, app, http.MethodDelete, "/api/votes", `{"videoId":"vid1","userId":"`+testUserID+`"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, [][2]string{{"vid1", testUserID}}, ledger.deleted)

	ledger.err = apperr.NotFound("vote.delete", nil)
	status, body = doJSON(t, app, http.MethodDelete, "/api/votes", `{"videoId":"vid1","userId":"`+testUserID+`"}`)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestRespondError_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", apperr.NotFound("op", nil), fiber.StatusNotFound, "NOT_FOUND"},
		{"validation", apperr.Validation("op", "bad input"), fiber.StatusBadRequest, "INVALID_FIELD"},
		{"transient", apperr.Transient("op", errors.New("conn reset")), fiber.StatusServiceUnavailable, "UNAVAILABLE"},
		{"internal", errors.New("boom"), fiber.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newVoteApp(&fakeLedger{err: tt.err})
			status, body := doJSON(t, app, http.MethodPost, "/api/votes",
				`{"videoId":"vid1","userId":"`+testUserID+`","category":"fully_ai"}`)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, errorCode(body))
		})
	}
}

func TestRespondError_ValidationMessage(t *testing.T) {
	app := newVoteApp(&fakeLedger{err: apperr.Validation("vote.submit", "category is required")})

	_, body := doJSON(t, app, http.MethodPost, "/api/votes",
		`{"videoId":"vid1","userId":"`+testUserID+`","category":"fully_ai"}`)

	e := body["error"].(map[string]any)
	assert.Equal(t, "category is required", e["message"])
}

func TestVideoHandler(t *testing.T) {
	videos := &fakeVideos{seeded: true}
	h := NewVideoHandler(videos)
	app := fiber.New()
	app.Get("/api/videos", h.GetByVideoID)
	app.Post("/api/videos", h.Register)

	status, body := doJSON(t, app, http.MethodGet, "/api/videos?videoId=vid1", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "vid1", body["videoId"])

	status, body = doJSON(t, app, http.MethodGet, "/api/videos", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "MISSING_PARAM", errorCode(body))

	status, body = doJSON(t, app, http.MethodPost, "/api/videos", `{"videoId":"vid1","channelId":"UC1"}`)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, true, body["preliminary"])
	assert.Equal(t, "UC1", body["channelId"])

	status, body = doJSON(t, app, http.MethodPost, "/api/videos", `{"videoId":"vid1"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_FIELD", errorCode(body))

	videos.err = apperr.NotFound("video.lookup", nil)
	status, _ = doJSON(t, app, http.MethodGet, "/api/videos?videoId=gone", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		cache      CacheChecker
		worker     WorkerStater
		wantStatus int
		wantHealth string
	}{
		{"all up", fakePinger{}, fakeCache{enabled: true}, fakeWorker{service.StateListening}, fiber.StatusOK, "healthy"},
		{"cache disabled", fakePinger{}, fakeCache{}, fakeWorker{service.StateFlushing}, fiber.StatusOK, "healthy"},
		{"cache down", fakePinger{}, fakeCache{enabled: true, err: errors.New("refused")}, fakeWorker{service.StateListening}, fiber.StatusOK, "degraded"},
		{"worker disconnected", fakePinger{}, fakeCache{}, fakeWorker{service.StateDisconnected}, fiber.StatusOK, "degraded"},
		{"database down", fakePinger{err: errors.New("refused")}, fakeCache{}, fakeWorker{service.StateListening}, fiber.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, tt.cache, tt.worker)
			app := fiber.New()
			app.Get("/health/ready", h.Ready)

			status, body := doJSON(t, app, http.MethodGet, "/health/ready", "")
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantHealth, body["status"])
		})
	}
}

func TestHealthReady_ReportsWorkerState(t *testing.T) {
	h := NewHealthHandler(fakePinger{}, fakeCache{}, fakeWorker{service.StateFlushing})
	app := fiber.New()
	app.Get("/health/ready", h.Ready)

	_, body := doJSON(t, app, http.MethodGet, "/health/ready", "")

	checks := body["checks"].(map[string]any)
	worker := checks["score_worker"].(map[string]any)
	assert.Equal(t, "flushing", worker["status"])
}
