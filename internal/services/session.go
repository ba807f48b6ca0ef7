package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/stitts-dev/acca-builder/internal/ticket"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrCacheUnavailable = errors.New("session cache unavailable")
)

// Session is one generated ticket together with the pool it was built from.
// Edits are always resolved against Pool.
type Session struct {
	ID        string        `json:"id"`
	Seed      uint32        `json:"seed"`
	PoolSeed  uint32        `json:"pool_seed"`
	Attempts  int           `json:"attempts"`
	Ticket    ticket.Ticket `json:"ticket"`
	Pool      []ticket.Leg  `json:"pool"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// FindLeg looks a pool entry up by ID.
func (s *Session) FindLeg(id string) (ticket.Leg, bool) {
	for _, l := range s.Pool {
		if l.ID == id {
			return l, true
		}
	}
	return ticket.Leg{}, false
}

type SessionStore interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

func SessionCacheKey(id string) string {
	return fmt.Sprintf("acca:session:%s", id)
}

// RedisSessionStore keeps sessions as JSON values with a TTL. Calls go through
// a circuit breaker so a dead Redis fails fast instead of stalling requests.
type RedisSessionStore struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration, threshold int, logger *logrus.Logger) *RedisSessionStore {
	if threshold < 1 {
		threshold = 1
	}
	settings := gobreaker.Settings{
		Name:        "session-cache",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
		IsSuccessful: func(err error) bool {
			// A miss is a healthy answer from Redis
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &RedisSessionStore{
		client:  client,
		ttl:     ttl,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

func (s *RedisSessionStore) Load(ctx context.Context, id string) (*Session, error) {
	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.Get(ctx, SessionCacheKey(id)).Bytes()
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, s.wrap("get", err)
	}

	var session Session
	if err := json.Unmarshal(out.([]byte), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Set(ctx, SessionCacheKey(session.ID), data, s.ttl).Err()
	})
	if err != nil {
		return s.wrap("set", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Del(ctx, SessionCacheKey(id)).Err()
	})
	if err != nil {
		return s.wrap("delete", err)
	}
	return nil
}

// State reports the breaker state, exposed on the health endpoint.
func (s *RedisSessionStore) State() gobreaker.State {
	return s.breaker.State()
}

func (s *RedisSessionStore) wrap(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return fmt.Errorf("failed to %s session: %w", op, err)
}

// MemorySessionStore is the in-process store used when no Redis is
// configured.
type MemorySessionStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[string]memoryEntry
	now      func() time.Time
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:      ttl,
		sessions: make(map[string]memoryEntry),
		now:      time.Now,
	}
}

func (m *MemorySessionStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok || (m.ttl > 0 && m.now().After(entry.expiresAt)) {
		return nil, ErrSessionNotFound
	}
	session := entry.session
	return &session, nil
}

func (m *MemorySessionStore) Save(_ context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[session.ID] = memoryEntry{
		session:   *session,
		expiresAt: m.now().Add(m.ttl),
	}
	m.evictExpired()
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// evictExpired must be called with mu held.
func (m *MemorySessionStore) evictExpired() {
	if m.ttl <= 0 {
		return
	}
	now := m.now()
	for id, entry := range m.sessions {
		if now.After(entry.expiresAt) {
			delete(m.sessions, id)
		}
	}
}
