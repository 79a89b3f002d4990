package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/realtube-scoring/internal/apperr"
	"github.com/mathieu-neron/realtube-scoring/internal/middleware"
)

// respondError maps a service error onto the API error envelope. Validation
// errors surface their own message; the others use the given fallbacks.
func respondError(c fiber.Ctx, err error, notFoundMsg, failMsg string) error {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", notFoundMsg)
	case apperr.KindValidation:
		msg := failMsg
		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Err != nil {
			msg = ae.Err.Error()
		}
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", msg)
	case apperr.KindTransient:
		return middleware.ErrorResponse(c, fiber.StatusServiceUnavailable, "UNAVAILABLE", failMsg)
	default:
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", failMsg)
	}
}
