package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/realtube-scoring/internal/middleware"
	"github.com/mathieu-neron/realtube-scoring/internal/model"
)

type ChannelLookup interface {
	Lookup(ctx context.Context, channelID string) (*model.ChannelResponse, error)
}

type ChannelHandler struct {
	svc ChannelLookup
}

func NewChannelHandler(svc ChannelLookup) *ChannelHandler {
	return &ChannelHandler{svc: svc}
}

// GetByChannelID handles GET /api/channels/:channelId
func (h *ChannelHandler) GetByChannelID(c fiber.Ctx) error {
	channelID, errMsg := middleware.ValidateChannelID(c.Params("channelId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	resp, err := h.svc.Lookup(c.UserContext(), channelID)
	if err != nil {
		return respondError(c, err, "Channel not found", "Failed to lookup channel")
	}

	return c.JSON(resp)
}
