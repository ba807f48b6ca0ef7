package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/acca-builder/internal/payout"
	"github.com/stitts-dev/acca-builder/internal/services"
	"github.com/stitts-dev/acca-builder/internal/ticket"
	"github.com/stitts-dev/acca-builder/pkg/config"
	"github.com/stitts-dev/acca-builder/pkg/utils"
)

type TicketHandler struct {
	tickets *services.TicketService
	cfg     *config.Config
}

func NewTicketHandler(tickets *services.TicketService, cfg *config.Config) *TicketHandler {
	return &TicketHandler{
		tickets: tickets,
		cfg:     cfg,
	}
}

// TicketResponse is a session as seen by API clients. The pool is not
// exposed except through the singles endpoint.
type TicketResponse struct {
	SessionID string           `json:"session_id"`
	Seed      uint32           `json:"seed"`
	Attempts  int              `json:"attempts"`
	Ticket    ticket.Ticket    `json:"ticket"`
	Short     bool             `json:"short"`
	Specials  int              `json:"specials"`
	Window    ticket.Window    `json:"window"`
	Payout    payout.Breakdown `json:"payout"`
	PoolSize  int              `json:"pool_size"`
	EndsAt    *time.Time       `json:"ends_at,omitempty"`
}

func (h *TicketHandler) response(s *services.Session) TicketResponse {
	var endsAt *time.Time
	if end := h.tickets.EndsAt(s.Ticket); !end.IsZero() {
		endsAt = &end
	}
	return TicketResponse{
		SessionID: s.ID,
		Seed:      s.Seed,
		Attempts:  s.Attempts,
		Ticket:    s.Ticket,
		Short:     s.Ticket.Short(),
		Specials:  s.Ticket.SpecialCount(),
		Window:    h.cfg.Window(),
		Payout:    payout.Compute(s.Ticket.Product, len(s.Ticket.Legs), h.cfg.Stake),
		PoolSize:  len(s.Pool),
		EndsAt:    endsAt,
	}
}

// GenerateTicket builds a new ticket session
func (h *TicketHandler) GenerateTicket(c *gin.Context) {
	var req services.GenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.SendValidationError(c, "Invalid request body", err.Error())
			return
		}
	}
	if req.Legs < 0 {
		utils.SendValidationError(c, "Invalid request", "legs must not be negative")
		return
	}

	session, err := h.tickets.Generate(c.Request.Context(), req)
	if err != nil {
		sendServiceError(c, err)
		return
	}

	utils.SendCreated(c, h.response(session))
}

// GetTicket returns the current state of a session
func (h *TicketHandler) GetTicket(c *gin.Context) {
	session, err := h.tickets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendServiceError(c, err)
		return
	}
	utils.SendSuccess(c, h.response(session))
}

// DiscardTicket drops a session the client no longer needs
func (h *TicketHandler) DiscardTicket(c *gin.Context) {
	id := c.Param("id")
	if err := h.tickets.Discard(c.Request.Context(), id); err != nil {
		sendServiceError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"session_id": id, "discarded": true})
}

// GetPool lists the session's candidate legs, for picking singles
func (h *TicketHandler) GetPool(c *gin.Context) {
	session, err := h.tickets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendServiceError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, session.Pool, &utils.Meta{Total: int64(len(session.Pool))})
}

// RemoveLeg drops one leg from the session ticket
func (h *TicketHandler) RemoveLeg(c *gin.Context) {
	index, ok := legIndex(c)
	if !ok {
		return
	}

	session, err := h.tickets.RemoveLeg(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	utils.SendSuccess(c, h.response(session))
}

// SwapLeg replaces one leg with the closest-odds legal alternative
func (h *TicketHandler) SwapLeg(c *gin.Context) {
	index, ok := legIndex(c)
	if !ok {
		return
	}

	session, err := h.tickets.ChangeLeg(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	utils.SendSuccess(c, h.response(session))
}

func legIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		utils.SendValidationError(c, "Invalid leg index", err.Error())
		return 0, false
	}
	return index, true
}
