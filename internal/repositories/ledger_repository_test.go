package repositories

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Paulagot/bingo-sub014/internal/models"
	"github.com/Paulagot/bingo-sub014/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.LedgerEntry{},
		&models.AdjustmentEntry{},
		&models.ReconciliationSummary{},
		&models.SyncRecord{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func seedLedgerEntry(t *testing.T, db *gorm.DB, entry *models.LedgerEntry) *models.LedgerEntry {
	t.Helper()
	if entry.Currency == "" {
		entry.Currency = "EUR"
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("failed to seed ledger entry: %v", err)
	}
	return entry
}

func TestResolveLatePayment_ConfirmsOutstandingRows(t *testing.T) {
	db := openTestDB(t)
	repo := NewLedgerRepository(db)

	seedLedgerEntry(t, db, &models.LedgerEntry{
		RoomID:     "R1",
		PlayerID:   "P1",
		PlayerName: "Ada",
		LedgerType: models.LedgerTypeEntryFee,
		Amount:     decimal.RequireFromString("10.00"),
		Status:     models.LedgerStatusExpected,
	})

	updated, err := repo.ResolveLatePayment(ResolveLatePaymentParams{
		RoomID:      "R1",
		PlayerID:    "P1",
		ConfirmedBy: "admin1",
	})
	if err != nil {
		t.Fatalf("ResolveLatePayment failed: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 updated row, got %d", updated)
	}

	var row models.LedgerEntry
	if err := db.First(&row, "room_id = ? AND player_id = ?", "R1", "P1").Error; err != nil {
		t.Fatalf("failed to reload entry: %v", err)
	}
	if row.Status != models.LedgerStatusConfirmed {
		t.Errorf("expected status confirmed, got %s", row.Status)
	}
	if !row.IsLate {
		t.Error("expected isLate to be set")
	}
	if row.PaymentSource != models.PaymentSourceAdminAssigned {
		t.Errorf("expected payment source admin_assigned, got %s", row.PaymentSource)
	}
	if row.ConfirmedBy != "admin1" {
		t.Errorf("expected confirmedBy admin1, got %s", row.ConfirmedBy)
	}
	if row.ConfirmedAt == nil {
		t.Error("expected confirmedAt to be stamped")
	}

	players, err := repo.ListUnpaid("R1")
	if err != nil {
		t.Fatalf("ListUnpaid failed: %v", err)
	}
	if len(players) != 0 {
		t.Errorf("expected no unpaid players after resolution, got %d", len(players))
	}
}

func TestResolveLatePayment_Idempotent(t *testing.T) {
	db := openTestDB(t)
	repo := NewLedgerRepository(db)

	seedLedgerEntry(t, db, &models.LedgerEntry{
		RoomID:     "R1",
		PlayerID:   "P1",
		PlayerName: "Ada",
		LedgerType: models.LedgerTypeEntryFee,
		Amount:     decimal.RequireFromString("10.00"),
		Status:     models.LedgerStatusExpected,
	})

	params := ResolveLatePaymentParams{RoomID: "R1", PlayerID: "P1", ConfirmedBy: "admin1"}
	if _, err := repo.ResolveLatePayment(params); err != nil {
		t.Fatalf("first ResolveLatePayment failed: %v", err)
	}

	updated, err := repo.ResolveLatePayment(params)
	if err != nil {
		t.Fatalf("second ResolveLatePayment failed: %v", err)
	}
	if updated != 0 {
		t.Errorf("expected 0 updated rows on repeat call, got %d", updated)
	}

	var row models.LedgerEntry
	if err := db.First(&row, "room_id = ? AND player_id = ?", "R1", "P1").Error; err != nil {
		t.Fatalf("failed to reload entry: %v", err)
	}
	if row.Status != models.LedgerStatusConfirmed {
		t.Errorf("expected status to stay confirmed, got %s", row.Status)
	}
}

func TestResolveLatePayment_RequiredFields(t *testing.T) {
	db := openTestDB(t)
	repo := NewLedgerRepository(db)

	seedLedgerEntry(t, db, &models.LedgerEntry{
		RoomID:     "R1",
		PlayerID:   "P1",
		PlayerName: "Ada",
		LedgerType: models.LedgerTypeEntryFee,
		Amount:     decimal.RequireFromString("10.00"),
		Status:     models.LedgerStatusExpected,
	})

	_, err := repo.ResolveLatePayment(ResolveLatePaymentParams{RoomID: "R1", PlayerID: "P1"})
	if err == nil {
		t.Fatal("expected error for missing confirmedBy")
	}
	if errors.Code(err) != errors.ErrCodeValidation {
		t.Errorf("expected validation error, got %s", errors.Code(err))
	}

	// Rejected before any mutation was attempted.
	var row models.LedgerEntry
	if err := db.First(&row, "room_id = ? AND player_id = ?", "R1", "P1").Error; err != nil {
		t.Fatalf("failed to reload entry: %v", err)
	}
	if row.Status != models.LedgerStatusExpected {
		t.Errorf("expected status to remain expected, got %s", row.Status)
	}
}

func TestResolveLatePayment_PreservesPaymentMethod(t *testing.T) {
	db := openTestDB(t)
	repo := NewLedgerRepository(db)

	seedLedgerEntry(t, db, &models.LedgerEntry{
		RoomID:        "R1",
		PlayerID:      "P1",
		PlayerName:    "Ada",
		LedgerType:    models.LedgerTypeEntryFee,
		Amount:        decimal.RequireFromString("10.00"),
		Status:        models.LedgerStatusExpected,
		PaymentMethod: "card",
	})

	_, err := repo.ResolveLatePayment(ResolveLatePaymentParams{
		RoomID: "R1", PlayerID: "P1", ConfirmedBy: "admin1",
	})
	if err != nil {
		t.Fatalf("ResolveLatePayment failed: %v", err)
	}

	var row models.LedgerEntry
	if err := db.First(&row, "room_id = ? AND player_id = ?", "R1", "P1").Error; err != nil {
		t.Fatalf("failed to reload entry: %v", err)
	}
	if row.PaymentMethod != "card" {
		t.Errorf("expected payment method to be preserved, got %s", row.PaymentMethod)
	}
}

func TestUpdateStatus(t *testing.T) {
	db := openTestDB(t)
	repo := NewLedgerRepository(db)

	entry := seedLedgerEntry(t, db, &models.LedgerEntry{
		RoomID:     "R1",
		PlayerID:   "P1",
		PlayerName: "Ada",
		LedgerType: models.LedgerTypeEntryFee,
		Amount:     decimal.RequireFromString("10.00"),
		Status:     models.LedgerStatusExpected,
	})

	moved, err := repo.UpdateStatus(entry.ID, models.LedgerStatusClaimed)
	if err != nil {
		t.Fatalf("expected -> claimed failed: %v", err)
	}
	var row models.LedgerEntry
	if err := db.First(&row, moved.ID).Error; err != nil {
		t.Fatalf("failed to reload entry: %v", err)
	}
	if row.Status != models.LedgerStatusClaimed {
		t.Errorf("expected status claimed, got %s", row.Status)
	}
	if row.ClaimedAt == nil {
		t.Error("expected claimedAt to be stamped")
	}

	// Backward move is rejected.
	if _, err := repo.UpdateStatus(entry.ID, models.LedgerStatusExpected); err == nil {
		t.Fatal("expected error for backward transition")
	} else if errors.Code(err) != errors.ErrCodeConflict {
		t.Errorf("expected conflict, got %s", errors.Code(err))
	}

	if _, err := repo.UpdateStatus(9999, models.LedgerStatusClaimed); err == nil {
		t.Fatal("expected error for unknown entry")
	} else if errors.Code(err) != errors.ErrCodeNotFound {
		t.Errorf("expected not found, got %s", errors.Code(err))
	}
}
