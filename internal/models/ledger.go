package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerEntry is one expected or actual payment obligation for a player in a
// room: an entry fee or a single extras purchase. Rows are never deleted;
// status carries the history forward.
type LedgerEntry struct {
	ID                    uint            `gorm:"primaryKey" json:"id"`
	RoomID                string          `gorm:"type:varchar(64);not null;index:idx_ledger_room_player" json:"roomId"`
	ClubID                string          `gorm:"type:varchar(64);index" json:"clubId"`
	PlayerID              string          `gorm:"type:varchar(64);not null;index:idx_ledger_room_player" json:"playerId"`
	PlayerName            string          `gorm:"type:varchar(255)" json:"playerName"`
	LedgerType            string          `gorm:"type:varchar(20);not null;index" json:"ledgerType"`
	ExtraID               string          `gorm:"type:varchar(64);default:''" json:"extraId,omitempty"`
	Amount                decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency              string          `gorm:"type:varchar(10);not null" json:"currency"`
	Status                string          `gorm:"type:varchar(20);not null;default:'expected';index" json:"status"`
	PaymentMethod         string          `gorm:"type:varchar(50)" json:"paymentMethod,omitempty"`
	PaymentSource         string          `gorm:"type:varchar(20)" json:"paymentSource,omitempty"`
	PaymentReference      string          `gorm:"type:varchar(255)" json:"paymentReference,omitempty"`
	ExternalTransactionID string          `gorm:"type:varchar(255)" json:"externalTransactionId,omitempty"`
	ClubPaymentMethodID   string          `gorm:"type:varchar(64)" json:"clubPaymentMethodId,omitempty"`
	IsLate                bool            `gorm:"default:false" json:"isLate"`
	ConfirmedBy           string          `gorm:"type:varchar(64)" json:"confirmedBy,omitempty"`
	ConfirmedByName       string          `gorm:"type:varchar(255)" json:"confirmedByName,omitempty"`
	ConfirmedByRole       string          `gorm:"type:varchar(50)" json:"confirmedByRole,omitempty"`
	AdminNotes            string          `gorm:"type:text" json:"adminNotes,omitempty"`
	ClaimedAt             *time.Time      `json:"claimedAt,omitempty"`
	ConfirmedAt           *time.Time      `json:"confirmedAt,omitempty"`
	ReconciledAt          *time.Time      `json:"reconciledAt,omitempty"`
	CreatedAt             time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt             time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Ledger type constants
const (
	LedgerTypeEntryFee      = "entry_fee"
	LedgerTypeExtraPurchase = "extra_purchase"
)

// Ledger status constants. Forward progression only; refunded and disputed
// are reachable from any non-terminal state.
const (
	LedgerStatusExpected   = "expected"
	LedgerStatusClaimed    = "claimed"
	LedgerStatusConfirmed  = "confirmed"
	LedgerStatusReconciled = "reconciled"
	LedgerStatusRefunded   = "refunded"
	LedgerStatusDisputed   = "disputed"
)

// Payment source constants
const (
	PaymentSourcePlayerSelected = "player_selected"
	PaymentSourcePlayerClaimed  = "player_claimed"
	PaymentSourceAdminAssigned  = "admin_assigned"
	PaymentSourceWebhookAuto    = "webhook_auto"
)

var ledgerStatusRank = map[string]int{
	LedgerStatusExpected:   0,
	LedgerStatusClaimed:    1,
	LedgerStatusConfirmed:  2,
	LedgerStatusReconciled: 3,
}

// IsValidLedgerType reports whether t is a known ledger type.
func IsValidLedgerType(t string) bool {
	return t == LedgerTypeEntryFee || t == LedgerTypeExtraPurchase
}

// IsOutstanding reports whether the entry still counts as unpaid.
func (e *LedgerEntry) IsOutstanding() bool {
	return e.Status == LedgerStatusExpected || e.Status == LedgerStatusClaimed
}

// CountsTowardTotals reports whether the entry contributes to the starting
// totals of a reconciliation summary.
func (e *LedgerEntry) CountsTowardTotals() bool {
	return e.Status == LedgerStatusConfirmed || e.Status == LedgerStatusReconciled
}

// CanTransition reports whether moving from the current status to target is a
// legal lifecycle step. Forward-only on the main chain; refunded/disputed are
// allowed from any non-terminal state and are themselves terminal.
func (e *LedgerEntry) CanTransition(target string) bool {
	if e.Status == LedgerStatusRefunded || e.Status == LedgerStatusDisputed {
		return false
	}
	if target == LedgerStatusRefunded || target == LedgerStatusDisputed {
		return e.Status != LedgerStatusReconciled
	}
	from, okFrom := ledgerStatusRank[e.Status]
	to, okTo := ledgerStatusRank[target]
	if !okFrom || !okTo {
		return false
	}
	return to > from
}

func (e *LedgerEntry) BeforeSave(tx *gorm.DB) error {
	if !IsValidLedgerType(e.LedgerType) {
		return fmt.Errorf("invalid ledger type: %s", e.LedgerType)
	}
	switch e.Status {
	case LedgerStatusExpected, LedgerStatusClaimed, LedgerStatusConfirmed,
		LedgerStatusReconciled, LedgerStatusRefunded, LedgerStatusDisputed:
	default:
		return fmt.Errorf("invalid ledger status: %s", e.Status)
	}
	if e.Amount.IsNegative() {
		return fmt.Errorf("ledger amount must not be negative")
	}
	return nil
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
