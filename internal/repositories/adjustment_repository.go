package repositories

import (
	"gorm.io/gorm"

	"github.com/Paulagot/bingo-sub014/internal/models"
	"github.com/Paulagot/bingo-sub014/pkg/errors"
)

type AdjustmentRepository struct {
	db *gorm.DB
}

func NewAdjustmentRepository(db *gorm.DB) *AdjustmentRepository {
	return &AdjustmentRepository{db: db}
}

// Append validates and inserts one immutable adjustment row, returning its id.
// Validation runs before any store access; a single insert leaves no
// partial-completion window.
func (r *AdjustmentRepository) Append(entry *models.AdjustmentEntry) (uint, error) {
	if err := entry.Validate(); err != nil {
		return 0, err
	}
	if err := r.db.Create(entry).Error; err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeStoreFailure, "failed to append adjustment")
	}
	return entry.ID, nil
}

// ListForRoom returns the full adjustment history for a room, timestamp
// ascending. Audit display and aggregation both read this; nothing ever
// mutates it.
func (r *AdjustmentRepository) ListForRoom(roomID string) ([]models.AdjustmentEntry, error) {
	if roomID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "roomId is required")
	}
	var entries []models.AdjustmentEntry
	err := r.db.Where("room_id = ?", roomID).
		Order("timestamp ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreFailure, "failed to list adjustments")
	}
	return entries, nil
}
