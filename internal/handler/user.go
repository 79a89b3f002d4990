package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/realtube-scoring/internal/middleware"
	"github.com/mathieu-neron/realtube-scoring/internal/model"
)

type UserLookup interface {
	Lookup(ctx context.Context, userID string) (*model.UserResponse, error)
}

type UserHandler struct {
	svc UserLookup
}

func NewUserHandler(svc UserLookup) *UserHandler {
	return &UserHandler{svc: svc}
}

// GetByUserID handles GET /api/users/:userId
func (h *UserHandler) GetByUserID(c fiber.Ctx) error {
	userID, errMsg := middleware.ValidateUserID(c.Params("userId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	resp, err := h.svc.Lookup(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err, "User not found", "Failed to lookup user")
	}

	return c.JSON(resp)
}
