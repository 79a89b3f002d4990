package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/realtube-scoring/internal/middleware"
	"github.com/mathieu-neron/realtube-scoring/internal/model"
)

type VideoStore interface {
	Lookup(ctx context.Context, videoID string) (*model.VideoResponse, error)
	Register(ctx context.Context, videoID, channelID string) (bool, error)
}

type VideoHandler struct {
	svc VideoStore
}

func NewVideoHandler(svc VideoStore) *VideoHandler {
	return &VideoHandler{svc: svc}
}

// GetByVideoID handles GET /api/videos?videoId=X
func (h *VideoHandler) GetByVideoID(c fiber.Ctx) error {
	raw := fiber.Query[string](c, "videoId")
	if raw == "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "MISSING_PARAM", "videoId query parameter is required")
	}

	videoID, errMsg := middleware.ValidateVideoID(raw)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	video, err := h.svc.Lookup(c.UserContext(), videoID)
	if err != nil {
		return respondError(c, err, "Video not found", "Failed to lookup video")
	}

	return c.JSON(video)
}

// Register handles POST /api/videos
func (h *VideoHandler) Register(c fiber.Ctx) error {
	var req model.RegisterVideoRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	videoID, errMsg := middleware.ValidateVideoID(req.VideoID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	channelID, errMsg := middleware.ValidateChannelID(req.ChannelID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	preliminary, err := h.svc.Register(c.UserContext(), videoID, channelID)
	if err != nil {
		return respondError(c, err, "Video not found", "Failed to register video")
	}

	return c.Status(fiber.StatusCreated).JSON(model.RegisterVideoResponse{
		VideoID:     videoID,
		ChannelID:   channelID,
		Preliminary: preliminary,
	})
}
