package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/realtube-scoring/internal/middleware"
	"github.com/mathieu-neron/realtube-scoring/internal/model"
	"github.com/mathieu-neron/realtube-scoring/pkg/hash"
)

// VoteLedger is the part of service.VoteService the vote routes need.
type VoteLedger interface {
	Submit(ctx context.Context, in model.SubmitVoteInput) (*model.VoteResult, error)
	Delete(ctx context.Context, videoID, userID string) error
}

type VoteHandler struct {
	svc    VoteLedger
	ipSalt string
}

func NewVoteHandler(svc VoteLedger, ipSalt string) *VoteHandler {
	return &VoteHandler{svc: svc, ipSalt: ipSalt}
}

// Submit handles POST /api/votes
func (h *VoteHandler) Submit(c fiber.Ctx) error {
	var req model.VoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	videoID, errMsg := middleware.ValidateVideoID(req.VideoID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	userID, errMsg := middleware.ValidateUserID(req.UserID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	category, errMsg := middleware.ValidateCategory(req.Category)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_CATEGORY", errMsg)
	}

	channelID, errMsg := middleware.ValidateOptionalChannelID(req.ChannelID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	resp, err := h.svc.Submit(c.UserContext(), model.SubmitVoteInput{
		VideoID:   videoID,
		UserID:    userID,
		Category:  category,
		IPHash:    hash.HashIP(c.IP(), h.ipSalt),
		UserAgent: middleware.ValidateUserAgent(req.UserAgent),
		ChannelID: channelID,
	})
	if err != nil {
		return respondError(c, err, "Video not found", "Failed to submit vote")
	}

	return c.JSON(resp)
}

// Delete handles DELETE /api/votes
func (h *VoteHandler) Delete(c fiber.Ctx) error {
	var req model.VoteDeleteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	videoID, errMsg := middleware.ValidateVideoID(req.VideoID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	userID, errMsg := middleware.ValidateUserID(req.UserID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	if err := h.svc.Delete(c.UserContext(), videoID, userID); err != nil {
		return respondError(c, err, "Vote not found", "Failed to delete vote")
	}

	return c.JSON(fiber.Map{"success": true})
}
