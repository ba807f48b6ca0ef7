package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/acca-builder/internal/pool"
	"github.com/stitts-dev/acca-builder/internal/ticket"
	"github.com/stitts-dev/acca-builder/internal/websocket"
	"github.com/stitts-dev/acca-builder/pkg/config"
)

type recordedEvent struct {
	Type      string
	SessionID string
	Owner     string
	Data      interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(eventType, sessionID string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, SessionID: sessionID, Data: data})
}

func (p *recordingPublisher) PublishToOwner(eventType, owner string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, Owner: owner, Data: data})
}

func (p *recordingPublisher) last() recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                    "test",
		TargetLow:              900000,
		TargetHigh:             1100000,
		LegsMin:                7,
		LegsMax:                20,
		CategoryCap:            3,
		MaxSpecials:            3,
		GenerationAttempts:     40,
		ReplacementPoolRetries: 3,
		PoolHours:              24,
		Stake:                  10,
		ArchiveCap:             50,
		SessionTTL:             time.Hour,
	}
}

var fixedNow = time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

func newTestTicketService(cfg *config.Config) (*TicketService, *MemorySessionStore, *recordingPublisher) {
	store := NewMemorySessionStore(time.Hour)
	events := &recordingPublisher{}
	svc := NewTicketService(cfg, store, pool.NewGenerator(nil), events, quietLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc, store, events
}

func seedOf(v uint32) *uint32 { return &v }

func TestGenerateTwelveLegsLandsInWindow(t *testing.T) {
	cfg := testConfig()
	svc, store, events := newTestTicketService(cfg)
	ctx := context.Background()

	session, err := svc.Generate(ctx, GenerateRequest{Legs: 12, Seed: seedOf(12345)})
	require.NoError(t, err)

	tk := session.Ticket
	assert.Len(t, tk.Legs, 12)
	assert.True(t, tk.InRange, "product %.0f outside window", tk.Product)
	assert.Empty(t, ticket.Violations(tk, cfg.Constraints(12)))
	assert.InEpsilon(t, ticket.Product(tk.Legs), tk.Product, 1e-9)
	assert.GreaterOrEqual(t, session.Attempts, 1)
	assert.LessOrEqual(t, session.Attempts, cfg.GenerationAttempts+1)
	assert.Equal(t, uint32(12345)+uint32(session.Attempts-1), session.PoolSeed)

	stored, err := store.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, tk.Legs, stored.Ticket.Legs)
	assert.NotEmpty(t, stored.Pool)

	assert.Equal(t, []string{websocket.EventTicketGenerated}, events.types())
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	svc, _, _ := newTestTicketService(testConfig())
	ctx := context.Background()

	a, err := svc.Generate(ctx, GenerateRequest{Seed: seedOf(777)})
	require.NoError(t, err)
	b, err := svc.Generate(ctx, GenerateRequest{Seed: seedOf(777)})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Ticket, b.Ticket)
	assert.GreaterOrEqual(t, a.Ticket.Requested, 7)
	assert.LessOrEqual(t, a.Ticket.Requested, 20)
}

func TestGenerateRejectsLegCountOutsideRange(t *testing.T) {
	svc, _, _ := newTestTicketService(testConfig())

	_, err := svc.Generate(context.Background(), GenerateRequest{Legs: 3})
	assert.ErrorIs(t, err, ErrInvalidLegCount)

	_, err = svc.Generate(context.Background(), GenerateRequest{Legs: 21})
	assert.ErrorIs(t, err, ErrInvalidLegCount)
}

func TestGenerateStopsOnCancelledContext(t *testing.T) {
	svc, _, _ := newTestTicketService(testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Generate(ctx, GenerateRequest{Legs: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRemoveLegUpdatesSession(t *testing.T) {
	cfg := testConfig()
	svc, store, events := newTestTicketService(cfg)
	ctx := context.Background()

	session, err := svc.Generate(ctx, GenerateRequest{Legs: 10, Seed: seedOf(98765)})
	require.NoError(t, err)
	before := session.Ticket

	updated, err := svc.RemoveLeg(ctx, session.ID, 0)
	require.NoError(t, err)

	assert.Len(t, updated.Ticket.Legs, 9)
	assert.InEpsilon(t, before.Product/before.Legs[0].Odds, updated.Ticket.Product, 1e-9)
	assert.Equal(t, cfg.Window().Contains(updated.Ticket.Product), updated.Ticket.InRange)
	assert.False(t, updated.Ticket.Short())

	stored, err := store.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Ticket.Legs, 9)

	assert.Contains(t, events.types(), websocket.EventLegRemoved)
}

func TestRemoveLegErrors(t *testing.T) {
	svc, store, _ := newTestTicketService(testConfig())
	ctx := context.Background()

	_, err := svc.RemoveLeg(ctx, "missing", 0)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	session, err := svc.Generate(ctx, GenerateRequest{Legs: 8, Seed: seedOf(5)})
	require.NoError(t, err)

	_, err = svc.RemoveLeg(ctx, session.ID, 8)
	assert.ErrorIs(t, err, ticket.ErrInvalidIndex)

	stored, err := store.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Ticket.Legs, 8)
}

func TestChangeLegKeepsConstraints(t *testing.T) {
	cfg := testConfig()
	svc, _, events := newTestTicketService(cfg)
	ctx := context.Background()

	session, err := svc.Generate(ctx, GenerateRequest{Legs: 10, Seed: seedOf(22222)})
	require.NoError(t, err)
	before := session.Ticket

	idx := 0
	for i, l := range before.Legs {
		if !l.IsSpecial() {
			idx = i
			break
		}
	}
	old := before.Legs[idx]

	updated, err := svc.ChangeLeg(ctx, session.ID, idx)
	require.NoError(t, err)

	repl := updated.Ticket.Legs[idx]
	assert.NotEqual(t, old.FixtureKey(), repl.FixtureKey())
	assert.False(t, old.Market == repl.Market && old.Selection == repl.Selection)
	assert.InEpsilon(t, before.Product/old.Odds*repl.Odds, updated.Ticket.Product, 1e-9)
	assert.Empty(t, ticket.Violations(updated.Ticket, cfg.Constraints(10)))

	_, ok := updated.FindLeg(repl.ID)
	assert.True(t, ok, "replacement should come from the session pool")

	assert.Contains(t, events.types(), websocket.EventLegReplaced)
}

func TestChangeLegWithoutCandidates(t *testing.T) {
	cfg := testConfig()
	cfg.ReplacementPoolRetries = 0
	svc, store, _ := newTestTicketService(cfg)
	ctx := context.Background()

	legs := []ticket.Leg{
		{ID: "a", Competition: "EPL", Teams: "A vs B", Market: ticket.MarketMatchResult, Selection: "1", Odds: 2, StartTime: fixedNow},
		{ID: "b", Competition: "NBA", Teams: "C vs D", Market: ticket.MarketPoints, Selection: "OVER", Odds: 1.9, StartTime: fixedNow},
	}
	require.NoError(t, store.Save(ctx, &Session{
		ID:     "s1",
		Ticket: ticket.Ticket{Legs: legs, Product: ticket.Product(legs), Requested: 2},
		Pool:   legs,
	}))

	_, err := svc.ChangeLeg(ctx, "s1", 0)
	assert.ErrorIs(t, err, ErrNoReplacement)

	_, err = svc.ChangeLeg(ctx, "s1", -1)
	assert.ErrorIs(t, err, ticket.ErrInvalidIndex)
}

func TestDiscardDropsSession(t *testing.T) {
	svc, store, _ := newTestTicketService(testConfig())
	ctx := context.Background()

	session, err := svc.Generate(ctx, GenerateRequest{Legs: 8, Seed: seedOf(5)})
	require.NoError(t, err)

	require.NoError(t, svc.Discard(ctx, session.ID))

	_, err = store.Load(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, svc.Discard(ctx, session.ID), ErrSessionNotFound)
}

func TestEndsAtUsesSportDurations(t *testing.T) {
	svc, _, _ := newTestTicketService(testConfig())
	start := fixedNow.Add(time.Hour)

	tk := ticket.Ticket{Legs: []ticket.Leg{
		{ID: "a", Sport: ticket.SportFootball, StartTime: start.Add(time.Hour)},
		{ID: "b", Sport: ticket.SportAmericanFootball, StartTime: start},
		{ID: "c", Sport: ticket.SportTennis, StartTime: start.Add(90 * time.Minute)},
	}}

	// 3.5h for American football beats football's 2h from an hour later
	assert.Equal(t, start.Add(210*time.Minute), svc.EndsAt(tk))
	assert.True(t, svc.EndsAt(ticket.Ticket{}).IsZero())
}
