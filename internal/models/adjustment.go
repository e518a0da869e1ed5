package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Paulagot/bingo-sub014/pkg/errors"
)

// AdjustmentEntry is one immutable post-event correction. Positive amounts
// increase funds held, negative amounts decrease them. Rows are append-only:
// the gorm hooks below reject every update and delete.
type AdjustmentEntry struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	RoomID         string          `gorm:"type:varchar(64);not null;index" json:"roomId"`
	Timestamp      time.Time       `gorm:"not null;index" json:"timestamp"`
	AdjustmentType string          `gorm:"type:varchar(20);not null" json:"adjustmentType"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency       string          `gorm:"type:varchar(10)" json:"currency"`
	PaymentMethod  string          `gorm:"type:varchar(50)" json:"paymentMethod,omitempty"`
	ReasonCode     string          `gorm:"type:varchar(50)" json:"reasonCode,omitempty"`
	PayerID        string          `gorm:"type:varchar(64)" json:"payerId,omitempty"`
	Note           string          `gorm:"type:text" json:"note,omitempty"`
	CreatedBy      string          `gorm:"type:varchar(64);not null" json:"createdBy"`
	PrizeAwardID   string          `gorm:"type:varchar(64)" json:"prizeAwardId,omitempty"`
	PrizeMetadata  string          `gorm:"type:text" json:"prizeMetadata,omitempty"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"createdAt"`
}

// Adjustment type constants
const (
	AdjustmentTypeReceived      = "received"
	AdjustmentTypeRefund        = "refund"
	AdjustmentTypeFee           = "fee"
	AdjustmentTypeCashOverShort = "cash_over_short"
	AdjustmentTypePrizePayout   = "prize_payout"
)

// IsValidAdjustmentType reports whether t is one of the five known kinds.
func IsValidAdjustmentType(t string) bool {
	switch t {
	case AdjustmentTypeReceived, AdjustmentTypeRefund, AdjustmentTypeFee,
		AdjustmentTypeCashOverShort, AdjustmentTypePrizePayout:
		return true
	}
	return false
}

// Validate checks the type enumeration and the sign convention: received must
// be >= 0, refund and prize_payout must be <= 0. Fee and cash_over_short may
// carry either sign. Sign mismatches are conflicts, never coerced.
func (a *AdjustmentEntry) Validate() error {
	if a.RoomID == "" {
		return errors.New(errors.ErrCodeValidation, "roomId is required")
	}
	if a.CreatedBy == "" {
		return errors.New(errors.ErrCodeValidation, "createdBy is required")
	}
	if !IsValidAdjustmentType(a.AdjustmentType) {
		return errors.New(errors.ErrCodeValidation,
			fmt.Sprintf("unknown adjustment type: %s", a.AdjustmentType))
	}
	switch a.AdjustmentType {
	case AdjustmentTypeReceived:
		if a.Amount.IsNegative() {
			return errors.New(errors.ErrCodeConflict, "received adjustment must not be negative")
		}
	case AdjustmentTypeRefund, AdjustmentTypePrizePayout:
		if a.Amount.IsPositive() {
			return errors.New(errors.ErrCodeConflict,
				fmt.Sprintf("%s adjustment must not be positive", a.AdjustmentType))
		}
	}
	return nil
}

func (a *AdjustmentEntry) BeforeCreate(tx *gorm.DB) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	return a.Validate()
}

// Append-only guards: the adjustment log is a permanent audit trail.
func (a *AdjustmentEntry) BeforeUpdate(tx *gorm.DB) error {
	return errors.New(errors.ErrCodeConflict, "adjustment entries are append-only")
}

func (a *AdjustmentEntry) BeforeDelete(tx *gorm.DB) error {
	return errors.New(errors.ErrCodeConflict, "adjustment entries are append-only")
}

func (AdjustmentEntry) TableName() string {
	return "adjustment_entries"
}
