package repositories

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Paulagot/bingo-sub014/internal/models"
	"github.com/Paulagot/bingo-sub014/pkg/errors"
)

func TestAppendAndListForRoom(t *testing.T) {
	db := openTestDB(t)
	repo := NewAdjustmentRepository(db)

	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	later := &models.AdjustmentEntry{
		RoomID:         "R1",
		Timestamp:      base.Add(time.Hour),
		AdjustmentType: models.AdjustmentTypeReceived,
		Amount:         decimal.RequireFromString("5.00"),
		Currency:       "EUR",
		CreatedBy:      "admin1",
	}
	earlier := &models.AdjustmentEntry{
		RoomID:         "R1",
		Timestamp:      base,
		AdjustmentType: models.AdjustmentTypeCashOverShort,
		Amount:         decimal.RequireFromString("-0.50"),
		Currency:       "EUR",
		ReasonCode:     "cash_short",
		CreatedBy:      "admin1",
	}

	// Inserted newest first; listing must come back timestamp ascending.
	if _, err := repo.Append(later); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := repo.Append(earlier); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := repo.ListForRoom("R1")
	if err != nil {
		t.Fatalf("ListForRoom failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[0].Timestamp.Equal(base) {
		t.Errorf("expected earliest entry first, got timestamp %v", entries[0].Timestamp)
	}
	if entries[0].AdjustmentType != models.AdjustmentTypeCashOverShort {
		t.Errorf("expected cash_over_short first, got %s", entries[0].AdjustmentType)
	}
}

func TestAppend_RejectsSignMismatch(t *testing.T) {
	db := openTestDB(t)
	repo := NewAdjustmentRepository(db)

	_, err := repo.Append(&models.AdjustmentEntry{
		RoomID:         "R1",
		AdjustmentType: models.AdjustmentTypeRefund,
		Amount:         decimal.RequireFromString("5.00"),
		Currency:       "EUR",
		CreatedBy:      "admin1",
	})
	if err == nil {
		t.Fatal("expected error for positive refund")
	}
	if errors.Code(err) != errors.ErrCodeConflict {
		t.Errorf("expected conflict, got %s", errors.Code(err))
	}

	entries, err := repo.ListForRoom("R1")
	if err != nil {
		t.Fatalf("ListForRoom failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected rejected entry to not be persisted, got %d rows", len(entries))
	}
}

func TestAdjustmentRowsAreImmutable(t *testing.T) {
	db := openTestDB(t)
	repo := NewAdjustmentRepository(db)

	entry := &models.AdjustmentEntry{
		RoomID:         "R1",
		AdjustmentType: models.AdjustmentTypeReceived,
		Amount:         decimal.RequireFromString("5.00"),
		Currency:       "EUR",
		Note:           "cash at the door",
		CreatedBy:      "admin1",
	}
	id, err := repo.Append(entry)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	err = db.Model(&models.AdjustmentEntry{ID: id}).Update("note", "edited").Error
	if err == nil {
		t.Fatal("expected update of an adjustment row to be rejected")
	}
	if errors.Code(err) != errors.ErrCodeConflict {
		t.Errorf("expected conflict, got %s", errors.Code(err))
	}

	err = db.Delete(&models.AdjustmentEntry{ID: id}).Error
	if err == nil {
		t.Fatal("expected delete of an adjustment row to be rejected")
	}

	var row models.AdjustmentEntry
	if err := db.First(&row, id).Error; err != nil {
		t.Fatalf("failed to reload entry: %v", err)
	}
	if row.Note != "cash at the door" || !row.Amount.Equal(entry.Amount) {
		t.Error("expected adjustment row to be unchanged after rejected mutations")
	}
}
