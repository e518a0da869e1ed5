package repositories

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Paulagot/bingo-sub014/internal/models"
	"github.com/Paulagot/bingo-sub014/pkg/errors"
)

type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// UnpaidPlayer is one row of the unpaid report: a player's outstanding
// obligations for a room, grouped across ledger types.
type UnpaidPlayer struct {
	PlayerID            string          `json:"playerId"`
	PlayerName          string          `json:"playerName"`
	EntryFeeOutstanding decimal.Decimal `json:"entryFeeOutstanding"`
	ExtrasOutstanding   decimal.Decimal `json:"extrasOutstanding"`
	TotalOutstanding    decimal.Decimal `json:"totalOutstanding"`
	LastUpdatedAt       time.Time       `json:"lastUpdatedAt"`
}

// ResolveLatePaymentParams carries the admin confirmation of a player's
// outstanding rows. RoomID, PlayerID and ConfirmedBy are mandatory.
type ResolveLatePaymentParams struct {
	RoomID              string
	PlayerID            string
	ConfirmedBy         string
	ConfirmedByName     string
	ConfirmedByRole     string
	AdminNotes          string
	PaymentMethod       string
	ClubPaymentMethodID string
}

// CreateEntry inserts a new ledger row, typically when a player selects or
// claims a payment obligation.
func (r *LedgerRepository) CreateEntry(entry *models.LedgerEntry) error {
	if entry.RoomID == "" || entry.PlayerID == "" {
		return errors.New(errors.ErrCodeValidation, "roomId and playerId are required")
	}
	if err := r.db.Create(entry).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreFailure, "failed to create ledger entry")
	}
	return nil
}

// ListForRoom returns every ledger row for the room in insertion order.
func (r *LedgerRepository) ListForRoom(roomID string) ([]models.LedgerEntry, error) {
	if roomID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "roomId is required")
	}
	var entries []models.LedgerEntry
	if err := r.db.Where("room_id = ?", roomID).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreFailure, "failed to list ledger entries")
	}
	return entries, nil
}

// ListUnpaid groups all rows in status expected or claimed by player, summing
// per ledger type and overall. A room with no outstanding rows yields an
// empty list, not an error.
func (r *LedgerRepository) ListUnpaid(roomID string) ([]UnpaidPlayer, error) {
	if roomID == "" {
		return nil, errors.New(errors.ErrCodeNotFound, "roomId is required")
	}

	var entries []models.LedgerEntry
	err := r.db.
		Where("room_id = ? AND status IN ?", roomID,
			[]string{models.LedgerStatusExpected, models.LedgerStatusClaimed}).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreFailure, "failed to query unpaid entries")
	}

	byPlayer := make(map[string]*UnpaidPlayer)
	for _, e := range entries {
		p, ok := byPlayer[e.PlayerID]
		if !ok {
			p = &UnpaidPlayer{
				PlayerID:            e.PlayerID,
				PlayerName:          e.PlayerName,
				EntryFeeOutstanding: decimal.Zero,
				ExtrasOutstanding:   decimal.Zero,
				TotalOutstanding:    decimal.Zero,
			}
			byPlayer[e.PlayerID] = p
		}
		switch e.LedgerType {
		case models.LedgerTypeEntryFee:
			p.EntryFeeOutstanding = p.EntryFeeOutstanding.Add(e.Amount)
		case models.LedgerTypeExtraPurchase:
			p.ExtrasOutstanding = p.ExtrasOutstanding.Add(e.Amount)
		}
		p.TotalOutstanding = p.TotalOutstanding.Add(e.Amount)
		if e.UpdatedAt.After(p.LastUpdatedAt) {
			p.LastUpdatedAt = e.UpdatedAt
		}
	}

	players := make([]UnpaidPlayer, 0, len(byPlayer))
	for _, p := range byPlayer {
		players = append(players, *p)
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].PlayerName != players[j].PlayerName {
			return players[i].PlayerName < players[j].PlayerName
		}
		return players[i].PlayerID < players[j].PlayerID
	})
	return players, nil
}

// UpdateStatus moves one ledger row along its lifecycle, rejecting illegal
// transitions. Refunds and disputes go through here explicitly; nothing ever
// reverses a status implicitly.
func (r *LedgerRepository) UpdateStatus(id uint, target string) (*models.LedgerEntry, error) {
	if id == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "ledger entry id is required")
	}

	var entry models.LedgerEntry
	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&entry, id).Error
		if err == gorm.ErrRecordNotFound {
			return errors.New(errors.ErrCodeNotFound, "ledger entry not found")
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeStoreFailure, "failed to lock ledger entry")
		}
		if !entry.CanTransition(target) {
			return errors.New(errors.ErrCodeConflict,
				fmt.Sprintf("illegal status transition %s -> %s", entry.Status, target))
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{"status": target}
		switch target {
		case models.LedgerStatusClaimed:
			updates["claimed_at"] = now
		case models.LedgerStatusConfirmed:
			updates["confirmed_at"] = now
		case models.LedgerStatusReconciled:
			updates["reconciled_at"] = now
		}
		if err := tx.Model(&entry).Updates(updates).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeStoreFailure, "failed to update ledger status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ResolveLatePayment transitions every outstanding row for (room, player) to
// confirmed, marking it late and stamping the confirmer. Re-invoking on an
// already-confirmed player updates zero rows and is not an error. Fully
// transactional: either all matching rows move or none do.
func (r *LedgerRepository) ResolveLatePayment(params ResolveLatePaymentParams) (int64, error) {
	if params.RoomID == "" || params.PlayerID == "" || params.ConfirmedBy == "" {
		return 0, errors.New(errors.ErrCodeValidation,
			"roomId, playerId and confirmedBy are required")
	}

	var updated int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var rows []models.LedgerEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("room_id = ? AND player_id = ? AND status IN ?",
				params.RoomID, params.PlayerID,
				[]string{models.LedgerStatusExpected, models.LedgerStatusClaimed}).
			Find(&rows).Error
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeStoreFailure, "failed to lock outstanding entries")
		}
		if len(rows) == 0 {
			return nil
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{
			"status":            models.LedgerStatusConfirmed,
			"is_late":           true,
			"payment_source":    models.PaymentSourceAdminAssigned,
			"confirmed_by":      params.ConfirmedBy,
			"confirmed_by_name": params.ConfirmedByName,
			"confirmed_by_role": params.ConfirmedByRole,
			"confirmed_at":      now,
		}
		if params.AdminNotes != "" {
			updates["admin_notes"] = params.AdminNotes
		}
		// Payment method fields are only overridden when explicitly supplied.
		if params.PaymentMethod != "" {
			updates["payment_method"] = params.PaymentMethod
		}
		if params.ClubPaymentMethodID != "" {
			updates["club_payment_method_id"] = params.ClubPaymentMethodID
		}

		ids := make([]uint, len(rows))
		for i, row := range rows {
			ids[i] = row.ID
		}
		// Hooks are skipped here: the batch update passes a zero model to
		// Model(), and BeforeSave would validate that empty struct instead
		// of the locked rows. The column values are fixed constants.
		result := tx.Session(&gorm.Session{SkipHooks: true}).
			Model(&models.LedgerEntry{}).Where("id IN ?", ids).Updates(updates)
		if result.Error != nil {
			return errors.Wrap(result.Error, errors.ErrCodeStoreFailure, "failed to confirm entries")
		}
		updated = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}
