package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/stitts-dev/acca-builder/internal/models"
	"github.com/stitts-dev/acca-builder/internal/payout"
	"github.com/stitts-dev/acca-builder/internal/ticket"
	"github.com/stitts-dev/acca-builder/internal/websocket"
)

var (
	ErrEmptyTicket  = errors.New("ticket has no legs")
	ErrInvalidStake = errors.New("stake must be positive")
)

// ArchiveService is the history of placed slips, newest first, capped per
// owner.
type ArchiveService struct {
	db     *gorm.DB
	cap    int
	events EventPublisher
	logger *logrus.Logger
}

func NewArchiveService(db *gorm.DB, cap int, events EventPublisher, logger *logrus.Logger) *ArchiveService {
	if events == nil {
		events = noopPublisher{}
	}
	return &ArchiveService{
		db:     db,
		cap:    cap,
		events: events,
		logger: logger,
	}
}

// PlaceTicket archives an accumulator with its payout breakdown.
func (s *ArchiveService) PlaceTicket(ctx context.Context, owner string, t ticket.Ticket, stake int64) (*models.ArchiveEntry, error) {
	if len(t.Legs) == 0 {
		return nil, ErrEmptyTicket
	}
	if stake <= 0 {
		return nil, ErrInvalidStake
	}

	entry, err := models.NewTicketEntry(uuid.New().String(), owner, t, payout.Compute(t.Product, len(t.Legs), stake))
	if err != nil {
		return nil, err
	}
	return s.insert(ctx, entry)
}

// PlaceSingle archives a one-leg bet.
func (s *ArchiveService) PlaceSingle(ctx context.Context, owner string, leg ticket.Leg, stake int64) (*models.ArchiveEntry, error) {
	if stake <= 0 {
		return nil, ErrInvalidStake
	}

	entry, err := models.NewSingleEntry(uuid.New().String(), owner, leg, stake)
	if err != nil {
		return nil, err
	}
	return s.insert(ctx, entry)
}

func (s *ArchiveService) insert(ctx context.Context, entry *models.ArchiveEntry) (*models.ArchiveEntry, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to archive slip: %w", err)
		}
		_, err := s.trim(tx, entry.Owner)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"slip_id": entry.SlipID,
		"kind":    entry.Kind,
		"legs":    entry.LegCount,
		"payout":  entry.Payout,
	}).Info("Slip archived")
	s.events.PublishToOwner(websocket.EventSlipArchived, entry.Owner, entry)
	return entry, nil
}

// trim deletes everything past the newest cap entries of owner.
func (s *ArchiveService) trim(tx *gorm.DB, owner string) (int64, error) {
	if s.cap <= 0 {
		return 0, nil
	}

	var ids []uint
	if err := tx.Model(&models.ArchiveEntry{}).
		Where("owner = ?", owner).
		Order("created_at DESC, id DESC").
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("failed to list archive: %w", err)
	}
	if len(ids) <= s.cap {
		return 0, nil
	}

	res := tx.Where("id IN ?", ids[s.cap:]).Delete(&models.ArchiveEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to trim archive: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// List returns up to limit slips of owner, newest first. A non-positive
// limit means the archive cap.
func (s *ArchiveService) List(ctx context.Context, owner string, limit int) ([]models.ArchiveEntry, error) {
	if limit <= 0 || (s.cap > 0 && limit > s.cap) {
		limit = s.cap
	}

	q := s.db.WithContext(ctx).Where("owner = ?", owner).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var entries []models.ArchiveEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}
	return entries, nil
}

// Clear deletes every slip of owner.
func (s *ArchiveService) Clear(ctx context.Context, owner string) (int64, error) {
	res := s.db.WithContext(ctx).Where("owner = ?", owner).Delete(&models.ArchiveEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear archive: %w", res.Error)
	}
	s.events.PublishToOwner(websocket.EventArchiveCleared, owner, map[string]interface{}{"deleted": res.RowsAffected})
	return res.RowsAffected, nil
}

// Prune enforces the cap for every owner.
func (s *ArchiveService) Prune(ctx context.Context) (int64, error) {
	var owners []string
	if err := s.db.WithContext(ctx).Model(&models.ArchiveEntry{}).Distinct().Pluck("owner", &owners).Error; err != nil {
		return 0, fmt.Errorf("failed to list archive owners: %w", err)
	}

	var total int64
	for _, owner := range owners {
		n, err := s.trim(s.db.WithContext(ctx), owner)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// ArchivePruner runs ArchiveService.Prune on a cron schedule.
type ArchivePruner struct {
	archive   *ArchiveService
	schedule  string
	logger    *logrus.Logger
	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
}

func NewArchivePruner(archive *ArchiveService, schedule string, logger *logrus.Logger) *ArchivePruner {
	return &ArchivePruner{
		archive:  archive,
		schedule: schedule,
		logger:   logger,
		cron:     cron.New(),
	}
}

func (p *ArchivePruner) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning {
		return fmt.Errorf("archive pruner is already running")
	}

	if _, err := p.cron.AddFunc(p.schedule, p.run); err != nil {
		return fmt.Errorf("failed to schedule archive pruner: %w", err)
	}

	p.cron.Start()
	p.isRunning = true

	p.logger.WithField("schedule", p.schedule).Info("Archive pruner started")
	return nil
}

func (p *ArchivePruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isRunning {
		return
	}

	ctx := p.cron.Stop()
	<-ctx.Done()

	p.isRunning = false
	p.logger.Info("Archive pruner stopped")
}

func (p *ArchivePruner) run() {
	deleted, err := p.archive.Prune(context.Background())
	if err != nil {
		p.logger.WithError(err).Error("Archive prune failed")
		return
	}
	if deleted > 0 {
		p.logger.WithField("deleted", deleted).Info("Archive pruned")
	}
}
