package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/stitts-dev/acca-builder/internal/payout"
	"github.com/stitts-dev/acca-builder/internal/ticket"
)

type SlipKind string

const (
	SlipKindTicket SlipKind = "ticket"
	SlipKindSingle SlipKind = "single"
)

// ArchiveEntry is a placed slip. Owner is empty for anonymous callers.
type ArchiveEntry struct {
	ID        uint           `gorm:"primaryKey" json:"-"`
	SlipID    string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"id"`
	Owner     string         `gorm:"index:idx_owner_created;not null;default:''" json:"owner,omitempty"`
	Kind      SlipKind       `gorm:"type:varchar(16);not null" json:"kind"`
	LegCount  int            `gorm:"not null" json:"leg_count"`
	Odds      float64        `gorm:"not null" json:"odds"`
	Stake     int64          `gorm:"not null" json:"stake"`
	Base      int64          `gorm:"not null" json:"base"`
	BonusPct  int            `gorm:"not null;default:0" json:"bonus_pct"`
	Bonus     int64          `gorm:"not null;default:0" json:"bonus"`
	Payout    int64          `gorm:"not null" json:"payout"`
	Items     datatypes.JSON `gorm:"not null" json:"items"`
	CreatedAt time.Time      `gorm:"index:idx_owner_created" json:"created_at"`
}

// TableName specifies the table name for GORM
func (ArchiveEntry) TableName() string {
	return "archive_entries"
}

// NewTicketEntry builds the archive row for a placed accumulator.
func NewTicketEntry(slipID, owner string, t ticket.Ticket, b payout.Breakdown) (*ArchiveEntry, error) {
	items, err := json.Marshal(t.Legs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket legs: %w", err)
	}
	return &ArchiveEntry{
		SlipID:   slipID,
		Owner:    owner,
		Kind:     SlipKindTicket,
		LegCount: len(t.Legs),
		Odds:     t.Product,
		Stake:    b.Stake,
		Base:     b.Base,
		BonusPct: b.Pct,
		Bonus:    b.Bonus,
		Payout:   b.Total,
		Items:    datatypes.JSON(items),
	}, nil
}

// NewSingleEntry builds the archive row for a one-leg bet.
func NewSingleEntry(slipID, owner string, leg ticket.Leg, stake int64) (*ArchiveEntry, error) {
	items, err := json.Marshal([]ticket.Leg{leg})
	if err != nil {
		return nil, fmt.Errorf("failed to encode single: %w", err)
	}
	potential := payout.Single(leg.Odds, stake)
	return &ArchiveEntry{
		SlipID:   slipID,
		Owner:    owner,
		Kind:     SlipKindSingle,
		LegCount: 1,
		Odds:     leg.Odds,
		Stake:    stake,
		Base:     potential,
		Payout:   potential,
		Items:    datatypes.JSON(items),
	}, nil
}

// Legs decodes the stored legs.
func (e *ArchiveEntry) Legs() ([]ticket.Leg, error) {
	var legs []ticket.Leg
	if err := json.Unmarshal(e.Items, &legs); err != nil {
		return nil, fmt.Errorf("failed to decode slip %s: %w", e.SlipID, err)
	}
	return legs, nil
}
