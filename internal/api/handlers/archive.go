package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/acca-builder/internal/api/middleware"
	"github.com/stitts-dev/acca-builder/internal/services"
	"github.com/stitts-dev/acca-builder/pkg/config"
	"github.com/stitts-dev/acca-builder/pkg/utils"
)

type ArchiveHandler struct {
	tickets *services.TicketService
	archive *services.ArchiveService
	cfg     *config.Config
}

func NewArchiveHandler(tickets *services.TicketService, archive *services.ArchiveService, cfg *config.Config) *ArchiveHandler {
	return &ArchiveHandler{
		tickets: tickets,
		archive: archive,
		cfg:     cfg,
	}
}

type PlaceTicketRequest struct {
	Stake          int64 `json:"stake"`
	RequireInRange bool  `json:"require_in_range"`
}

type PlaceSingleRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	LegID     string `json:"leg_id" binding:"required"`
	Stake     int64  `json:"stake"`
}

// PlaceTicket archives the session's ticket
func (h *ArchiveHandler) PlaceTicket(c *gin.Context) {
	var req PlaceTicketRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.SendValidationError(c, "Invalid request body", err.Error())
			return
		}
	}
	if req.Stake == 0 {
		req.Stake = h.cfg.Stake
	}

	session, err := h.tickets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendServiceError(c, err)
		return
	}
	if req.RequireInRange && !session.Ticket.InRange {
		utils.SendError(c, http.StatusConflict, utils.NewAppError(utils.ErrCodeOutOfRange, "Ticket odds are outside the target window"))
		return
	}

	entry, err := h.archive.PlaceTicket(c.Request.Context(), middleware.Owner(c), session.Ticket, req.Stake)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	utils.SendCreated(c, entry)
}

// PlaceSingle archives a one-leg bet picked from a session pool
func (h *ArchiveHandler) PlaceSingle(c *gin.Context) {
	var req PlaceSingleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	if req.Stake == 0 {
		req.Stake = h.cfg.Stake
	}

	session, err := h.tickets.Get(c.Request.Context(), req.SessionID)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	leg, ok := session.FindLeg(req.LegID)
	if !ok {
		utils.SendNotFound(c, "Leg not found in session pool")
		return
	}

	entry, err := h.archive.PlaceSingle(c.Request.Context(), middleware.Owner(c), leg, req.Stake)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	utils.SendCreated(c, entry)
}

// ListArchive returns the caller's placed slips, newest first
func (h *ArchiveHandler) ListArchive(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		utils.SendValidationError(c, "Invalid limit", err.Error())
		return
	}

	entries, err := h.archive.List(c.Request.Context(), middleware.Owner(c), limit)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, entries, &utils.Meta{Total: int64(len(entries)), Limit: limit})
}

// ClearArchive deletes the caller's placed slips
func (h *ArchiveHandler) ClearArchive(c *gin.Context) {
	deleted, err := h.archive.Clear(c.Request.Context(), middleware.Owner(c))
	if err != nil {
		sendServiceError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"deleted": deleted})
}
