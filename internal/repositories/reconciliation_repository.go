package repositories

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Paulagot/bingo-sub014/internal/models"
	"github.com/Paulagot/bingo-sub014/pkg/errors"
)

type ReconciliationRepository struct {
	db *gorm.DB
}

func NewReconciliationRepository(db *gorm.DB) *ReconciliationRepository {
	return &ReconciliationRepository{db: db}
}

// GetSummary returns the stored summary for a room, or NotFound.
func (r *ReconciliationRepository) GetSummary(roomID string) (*models.ReconciliationSummary, error) {
	if roomID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "roomId is required")
	}
	var summary models.ReconciliationSummary
	err := r.db.First(&summary, "room_id = ?", roomID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.New(errors.ErrCodeNotFound, "no reconciliation summary for room")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreFailure, "failed to load summary")
	}
	return &summary, nil
}

// UpsertSummary writes the recomputed totals for a room, creating the row on
// first recompute. Approval and archive fields are preserved on conflict so a
// recompute never silently clears an existing approval; staleness of that
// approval is judged against the log timestamps instead.
func (r *ReconciliationRepository) UpsertSummary(summary *models.ReconciliationSummary) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "room_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"club_id", "starting_entry_fees", "starting_extras", "starting_total",
			"adjustments_net", "final_total", "updated_at",
		}),
	}).Create(summary).Error
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreFailure, "failed to upsert summary")
	}
	return nil
}

// SetApproval stamps the approver identity and time on an existing summary.
func (r *ReconciliationRepository) SetApproval(roomID, approvedBy, notes string, approvedAt time.Time) error {
	updates := map[string]interface{}{
		"approved_by": approvedBy,
		"approved_at": approvedAt,
	}
	if notes != "" {
		updates["notes"] = notes
	}
	result := r.db.Model(&models.ReconciliationSummary{}).
		Where("room_id = ?", roomID).
		Updates(updates)
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeStoreFailure, "failed to record approval")
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.ErrCodeNotFound, "no reconciliation summary for room")
	}
	return nil
}

// SetArchiveDigest records the tamper-evidence digest on the summary row.
func (r *ReconciliationRepository) SetArchiveDigest(roomID, sha256Hex string, generatedAt time.Time) error {
	result := r.db.Model(&models.ReconciliationSummary{}).
		Where("room_id = ?", roomID).
		Updates(map[string]interface{}{
			"archive_sha256":       sha256Hex,
			"archive_generated_at": generatedAt,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeStoreFailure, "failed to record archive digest")
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.ErrCodeNotFound, "no reconciliation summary for room")
	}
	return nil
}

// LastLogUpdate returns the latest mutation time across both underlying logs
// for a room. Zero time when neither log has rows.
func (r *ReconciliationRepository) LastLogUpdate(roomID string) (time.Time, error) {
	var ledgerMax, adjustmentMax sql.NullTime
	row := r.db.Model(&models.LedgerEntry{}).
		Where("room_id = ?", roomID).
		Select("MAX(updated_at)").Row()
	if err := row.Scan(&ledgerMax); err != nil {
		return time.Time{}, errors.Wrap(err, errors.ErrCodeStoreFailure, "failed to read ledger watermark")
	}
	row = r.db.Model(&models.AdjustmentEntry{}).
		Where("room_id = ?", roomID).
		Select("MAX(created_at)").Row()
	if err := row.Scan(&adjustmentMax); err != nil {
		return time.Time{}, errors.Wrap(err, errors.ErrCodeStoreFailure, "failed to read adjustment watermark")
	}

	var last time.Time
	if ledgerMax.Valid {
		last = ledgerMax.Time
	}
	if adjustmentMax.Valid && adjustmentMax.Time.After(last) {
		last = adjustmentMax.Time
	}
	return last, nil
}

// GetSyncRecord loads the authoritative sync record for a scope key. A key
// nobody has written yet yields a zero-valued record, not an error, so a
// first request always succeeds.
func (r *ReconciliationRepository) GetSyncRecord(scope, scopeKey string) (*models.SyncRecord, error) {
	if scopeKey == "" {
		return nil, errors.New(errors.ErrCodeValidation, "scope key is required")
	}
	var record models.SyncRecord
	err := r.db.First(&record, "scope = ? AND scope_key = ?", scope, scopeKey).Error
	if err == gorm.ErrRecordNotFound {
		return &models.SyncRecord{Scope: scope, ScopeKey: scopeKey}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreFailure, "failed to load sync record")
	}
	return &record, nil
}

// UpsertSyncRecord persists a merged sync record. Last write wins at the
// store layer; callers serialize per-connection ordering above this.
func (r *ReconciliationRepository) UpsertSyncRecord(record *models.SyncRecord) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}, {Name: "scope_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"approved_by", "notes", "approved_at", "updated_at", "updated_by",
		}),
	}).Create(record).Error
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreFailure, "failed to upsert sync record")
	}
	return nil
}
