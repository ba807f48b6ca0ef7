package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/acca-builder/internal/services"
	"github.com/stitts-dev/acca-builder/internal/ticket"
	"github.com/stitts-dev/acca-builder/pkg/utils"
)

// sendServiceError maps service sentinels onto API error codes.
func sendServiceError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		utils.SendNotFound(c, "Ticket session not found")
	case errors.Is(err, ticket.ErrInvalidIndex):
		utils.SendError(c, http.StatusBadRequest, utils.NewAppError(utils.ErrCodeInvalidIndex, "Leg index out of range", err.Error()))
	case errors.Is(err, services.ErrNoReplacement):
		utils.SendError(c, http.StatusUnprocessableEntity, utils.NewAppError(utils.ErrCodeNoReplacement, "No suitable replacement for this leg"))
	case errors.Is(err, services.ErrInvalidLegCount),
		errors.Is(err, services.ErrEmptyTicket),
		errors.Is(err, services.ErrInvalidStake):
		utils.SendValidationError(c, "Invalid request", err.Error())
	case errors.Is(err, services.ErrCacheUnavailable):
		utils.SendError(c, http.StatusServiceUnavailable, utils.NewAppError(utils.ErrCodeInternal, "Session cache temporarily unavailable"))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		utils.SendError(c, http.StatusServiceUnavailable, utils.NewAppError(utils.ErrCodeInternal, "Request cancelled"))
	default:
		utils.SendInternalError(c, "Internal server error")
	}
}
