package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/acca-builder/internal/pool"
	"github.com/stitts-dev/acca-builder/internal/ticket"
	"github.com/stitts-dev/acca-builder/internal/websocket"
	"github.com/stitts-dev/acca-builder/pkg/config"
	"github.com/stitts-dev/acca-builder/pkg/logger"
)

var (
	ErrNoReplacement   = errors.New("no replacement available")
	ErrInvalidLegCount = errors.New("invalid leg count")
)

// EventPublisher receives ticket and archive events. The websocket hub is the
// production implementation. Archive events carry an owner's history and go
// through PublishToOwner so they never reach other owners.
type EventPublisher interface {
	Publish(eventType, sessionID string, data interface{})
	PublishToOwner(eventType, owner string, data interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, string, interface{})        {}
func (noopPublisher) PublishToOwner(string, string, interface{}) {}

type GenerateRequest struct {
	Legs int     `json:"legs"`
	Seed *uint32 `json:"seed,omitempty"`
}

// TicketService generates tickets against freshly synthesized pools and
// applies leg edits to stored sessions.
type TicketService struct {
	cfg       *config.Config
	store     SessionStore
	generator *pool.Generator
	events    EventPublisher
	logger    *logrus.Logger
	now       func() time.Time
	clicks    atomic.Uint32
}

func NewTicketService(cfg *config.Config, store SessionStore, generator *pool.Generator, events EventPublisher, logger *logrus.Logger) *TicketService {
	if generator == nil {
		generator = pool.NewGenerator(nil)
	}
	if events == nil {
		events = noopPublisher{}
	}
	return &TicketService{
		cfg:       cfg,
		store:     store,
		generator: generator,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

// Generate builds a ticket of req.Legs legs, or a seeded random size in the
// configured range when req.Legs is zero. Each attempt uses a new pool; the
// first in-range ticket that also meets every constraint wins, otherwise the
// last attempt is kept.
func (s *TicketService) Generate(ctx context.Context, req GenerateRequest) (*Session, error) {
	now := s.now()

	var baseSeed uint32
	if req.Seed != nil {
		baseSeed = *req.Seed
	} else {
		baseSeed = uint32(now.UnixMilli()) + s.clicks.Add(1)
	}

	legs := req.Legs
	if legs == 0 {
		r := ticket.NewRand(baseSeed)
		span := s.cfg.LegsMax - s.cfg.LegsMin + 1
		legs = s.cfg.LegsMin + int(math.Floor(r.Float64()*float64(span)))
	}
	if legs < s.cfg.LegsMin || legs > s.cfg.LegsMax {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidLegCount, legs, s.cfg.LegsMin, s.cfg.LegsMax)
	}

	w := s.cfg.Window()
	c := s.cfg.Constraints(legs)

	var (
		chosen   ticket.Ticket
		rows     []ticket.Leg
		poolSeed uint32
		attempts int
	)
	for i := 0; i <= s.cfg.GenerationAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		poolSeed = baseSeed + uint32(i)
		rows = s.generator.Synthesize(poolSeed, s.cfg.PoolHours, now)
		chosen = ticket.Build(rows, legs, w, c)
		if !chosen.InRange {
			chosen = ticket.Refine(rows, chosen, w, c)
		}
		attempts = i + 1

		s.logger.WithFields(logrus.Fields{
			"attempt":   attempts,
			"pool_seed": poolSeed,
			"pool_size": len(rows),
			"product":   chosen.Product,
			"in_range":  chosen.InRange,
		}).Debug("Ticket generation attempt")

		if chosen.InRange && len(ticket.Violations(chosen, c)) == 0 {
			break
		}
	}

	session := &Session{
		ID:        uuid.New().String(),
		Seed:      baseSeed,
		PoolSeed:  poolSeed,
		Attempts:  attempts,
		Ticket:    chosen,
		Pool:      rows,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	log := logger.WithTicketContext(s.logger, session.ID, len(chosen.Legs)).WithFields(logrus.Fields{
		"product":  chosen.Product,
		"attempts": attempts,
	})
	if chosen.InRange {
		log.Info("Ticket generated")
	} else {
		log.Warn("Ticket generated outside target window")
	}

	s.events.Publish(websocket.EventTicketGenerated, session.ID, session.Ticket)
	return session, nil
}

func (s *TicketService) Get(ctx context.Context, sessionID string) (*Session, error) {
	return s.store.Load(ctx, sessionID)
}

// Discard drops a session, e.g. when the client starts a new ticket.
func (s *TicketService) Discard(ctx context.Context, sessionID string) error {
	session, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to discard session: %w", err)
	}

	logger.WithTicketContext(s.logger, sessionID, len(session.Ticket.Legs)).Info("Ticket session discarded")
	return nil
}

// EndsAt is when the last leg of t is expected to finish, using the catalog's
// per-sport event durations. It is zero for an empty ticket.
func (s *TicketService) EndsAt(t ticket.Ticket) time.Time {
	return t.EndsAt(s.generator.Duration)
}

// RemoveLeg drops one leg of the session ticket.
func (s *TicketService) RemoveLeg(ctx context.Context, sessionID string, index int) (*Session, error) {
	session, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	removed := ticket.Leg{}
	if index >= 0 && index < len(session.Ticket.Legs) {
		removed = session.Ticket.Legs[index]
	}

	t, err := ticket.RemoveLeg(session.Ticket, index, s.cfg.Window())
	if err != nil {
		return nil, err
	}
	session.Ticket = t
	session.UpdatedAt = s.now().UTC()

	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	logger.WithTicketContext(s.logger, sessionID, len(t.Legs)).
		WithField("index", index).
		Info("Ticket leg removed")
	s.events.Publish(websocket.EventLegRemoved, sessionID, LegChange{Index: index, From: removed, Ticket: t})
	return session, nil
}

// LegChange is the payload of leg edit events.
type LegChange struct {
	Index  int           `json:"index"`
	From   ticket.Leg    `json:"from"`
	To     *ticket.Leg   `json:"to,omitempty"`
	Ticket ticket.Ticket `json:"ticket"`
}

// ChangeLeg swaps the leg at index for the closest-odds legal alternative.
// When the session pool has none, a few fresh pools are tried and the pool
// that produced the replacement becomes the session pool.
func (s *TicketService) ChangeLeg(ctx context.Context, sessionID string, index int) (*Session, error) {
	session, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(session.Ticket.Legs) {
		return nil, fmt.Errorf("%w: %d (ticket has %d legs)", ticket.ErrInvalidIndex, index, len(session.Ticket.Legs))
	}

	now := s.now()
	c := s.cfg.Constraints(len(session.Ticket.Legs))
	cand, ok := ticket.FindReplacement(session.Pool, session.Ticket, index, c)

	for k := 0; k < s.cfg.ReplacementPoolRetries && !ok; k++ {
		seed := uint32(now.UnixMilli()) ^ session.Seed ^ uint32(index+1) ^ uint32(k)
		rows := s.generator.Synthesize(seed, s.cfg.PoolHours, now)
		if cand, ok = ticket.FindReplacement(rows, session.Ticket, index, c); ok {
			session.Pool = rows
			session.PoolSeed = seed
		}
	}
	if !ok {
		return nil, ErrNoReplacement
	}

	old := session.Ticket.Legs[index]
	t, err := ticket.ReplaceLeg(session.Ticket, index, cand, s.cfg.Window())
	if err != nil {
		return nil, err
	}
	session.Ticket = t
	session.UpdatedAt = now.UTC()

	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	logger.WithTicketContext(s.logger, sessionID, len(t.Legs)).WithFields(logrus.Fields{
		"index":     index,
		"from_odds": old.Odds,
		"to_odds":   cand.Odds,
	}).Info("Ticket leg replaced")
	s.events.Publish(websocket.EventLegReplaced, sessionID, LegChange{Index: index, From: old, To: &cand, Ticket: t})
	return session, nil
}
