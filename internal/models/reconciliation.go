package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationSummary is the single computed accounting row for a room.
// Always derived from the ledger and adjustment logs, never accumulated
// incrementally. Logically frozen once ApprovedAt is set: later mutation of
// the underlying logs makes the approval stale until a new recompute and a
// new approval land.
type ReconciliationSummary struct {
	RoomID             string          `gorm:"primaryKey;type:varchar(64)" json:"roomId"`
	ClubID             string          `gorm:"type:varchar(64);index" json:"clubId"`
	StartingEntryFees  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"startingEntryFees"`
	StartingExtras     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"startingExtras"`
	StartingTotal      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"startingTotal"`
	AdjustmentsNet     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"adjustmentsNet"`
	FinalTotal         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"finalTotal"`
	ApprovedBy         string          `gorm:"type:varchar(255)" json:"approvedBy,omitempty"`
	ApprovedAt         *time.Time      `json:"approvedAt,omitempty"`
	Notes              string          `gorm:"type:text" json:"notes,omitempty"`
	ArchiveGeneratedAt *time.Time      `json:"archiveGeneratedAt,omitempty"`
	ArchiveSha256      string          `gorm:"type:varchar(64)" json:"archiveSha256,omitempty"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

// IsApproved reports whether an approval has been recorded.
func (s *ReconciliationSummary) IsApproved() bool {
	return s.ApprovedAt != nil
}

// IsCurrentAsOf reports whether the recorded approval still covers the logs,
// given the latest mutation time of either underlying log.
func (s *ReconciliationSummary) IsCurrentAsOf(lastLogUpdate time.Time) bool {
	if s.ApprovedAt == nil {
		return false
	}
	return !lastLogUpdate.After(*s.ApprovedAt)
}

func (ReconciliationSummary) TableName() string {
	return "reconciliation_summaries"
}

// Sync scope families. Setup state is tracked before a room exists on chain,
// room state after; the two namespaces never share records.
const (
	ScopeSetup = "setup"
	ScopeRoom  = "room"
)

// SyncRecord is the server-authoritative reconciliation record exchanged over
// the sync channel, one row per (scope, scopeKey). Persisting it keeps sync
// state across server restarts.
type SyncRecord struct {
	ID         uint       `gorm:"primaryKey" json:"-"`
	Scope      string     `gorm:"type:varchar(10);not null;uniqueIndex:idx_sync_scope_key" json:"scope"`
	ScopeKey   string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_sync_scope_key" json:"scopeKey"`
	ApprovedBy string     `gorm:"type:varchar(255)" json:"approvedBy,omitempty"`
	Notes      string     `gorm:"type:text" json:"notes,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
	// Stamped explicitly by the merge path, not by gorm, so the value
	// broadcast to clients is byte-identical to the value persisted.
	UpdatedAt time.Time `gorm:"autoUpdateTime:false" json:"updatedAt"`
	UpdatedBy string    `gorm:"type:varchar(255)" json:"updatedBy,omitempty"`
}

func (SyncRecord) TableName() string {
	return "reconciliation_sync_records"
}
