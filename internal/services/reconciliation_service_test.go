package services

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Paulagot/bingo-sub014/internal/models"
)

func ledgerFixture() []models.LedgerEntry {
	return []models.LedgerEntry{
		{ID: 1, RoomID: "R1", PlayerID: "P1", LedgerType: models.LedgerTypeEntryFee,
			Amount: decimal.RequireFromString("10.00"), Status: models.LedgerStatusConfirmed},
		{ID: 2, RoomID: "R1", PlayerID: "P2", LedgerType: models.LedgerTypeEntryFee,
			Amount: decimal.RequireFromString("10.00"), Status: models.LedgerStatusReconciled},
		{ID: 3, RoomID: "R1", PlayerID: "P1", LedgerType: models.LedgerTypeExtraPurchase,
			Amount: decimal.RequireFromString("2.50"), Status: models.LedgerStatusConfirmed},
		// Outstanding and refunded rows never count toward the starting totals.
		{ID: 4, RoomID: "R1", PlayerID: "P3", LedgerType: models.LedgerTypeEntryFee,
			Amount: decimal.RequireFromString("10.00"), Status: models.LedgerStatusExpected},
		{ID: 5, RoomID: "R1", PlayerID: "P4", LedgerType: models.LedgerTypeExtraPurchase,
			Amount: decimal.RequireFromString("5.00"), Status: models.LedgerStatusRefunded},
	}
}

func adjustmentFixture() []models.AdjustmentEntry {
	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	return []models.AdjustmentEntry{
		{ID: 1, RoomID: "R1", Timestamp: base, AdjustmentType: models.AdjustmentTypeReceived,
			Amount: decimal.RequireFromString("5.00"), CreatedBy: "admin1"},
		{ID: 2, RoomID: "R1", Timestamp: base.Add(time.Minute), AdjustmentType: models.AdjustmentTypeCashOverShort,
			Amount: decimal.RequireFromString("-0.50"), CreatedBy: "admin1"},
		{ID: 3, RoomID: "R1", Timestamp: base.Add(2 * time.Minute), AdjustmentType: models.AdjustmentTypePrizePayout,
			Amount: decimal.RequireFromString("-3.00"), CreatedBy: "admin2"},
	}
}

func TestSumLedgerTotals(t *testing.T) {
	entryFees, extras := SumLedgerTotals(ledgerFixture())

	if want := decimal.RequireFromString("20.00"); !entryFees.Equal(want) {
		t.Errorf("entryFees = %s, want %s", entryFees, want)
	}
	if want := decimal.RequireFromString("2.50"); !extras.Equal(want) {
		t.Errorf("extras = %s, want %s", extras, want)
	}
}

func TestSumLedgerTotals_OrderIndependent(t *testing.T) {
	entries := ledgerFixture()
	wantFees, wantExtras := SumLedgerTotals(entries)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		rng.Shuffle(len(entries), func(a, b int) {
			entries[a], entries[b] = entries[b], entries[a]
		})
		fees, extras := SumLedgerTotals(entries)
		if !fees.Equal(wantFees) || !extras.Equal(wantExtras) {
			t.Fatalf("permutation %d changed totals: %s/%s, want %s/%s",
				i, fees, extras, wantFees, wantExtras)
		}
	}
}

func TestSumAdjustments_OrderIndependent(t *testing.T) {
	entries := adjustmentFixture()
	want := decimal.RequireFromString("1.50")
	if net := SumAdjustments(entries); !net.Equal(want) {
		t.Fatalf("net = %s, want %s", net, want)
	}

	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 20; i++ {
		rng.Shuffle(len(entries), func(a, b int) {
			entries[a], entries[b] = entries[b], entries[a]
		})
		if net := SumAdjustments(entries); !net.Equal(want) {
			t.Fatalf("permutation %d changed net: %s, want %s", i, net, want)
		}
	}
}

// The end-to-end arithmetic of the closing scenario: one confirmed 10.00
// entry fee and a -0.50 cash_over_short must reconcile to 9.50.
func TestFinalTotalScenario(t *testing.T) {
	ledger := []models.LedgerEntry{
		{ID: 1, RoomID: "R1", PlayerID: "P1", LedgerType: models.LedgerTypeEntryFee,
			Amount: decimal.RequireFromString("10.00"), Status: models.LedgerStatusConfirmed},
	}
	adjustments := []models.AdjustmentEntry{
		{ID: 1, RoomID: "R1", AdjustmentType: models.AdjustmentTypeCashOverShort,
			Amount: decimal.RequireFromString("-0.50"), ReasonCode: "cash_short", CreatedBy: "admin1"},
	}

	entryFees, extras := SumLedgerTotals(ledger)
	startingTotal := entryFees.Add(extras)
	finalTotal := startingTotal.Add(SumAdjustments(adjustments))

	if want := decimal.RequireFromString("10.00"); !startingTotal.Equal(want) {
		t.Errorf("startingTotal = %s, want %s", startingTotal, want)
	}
	if want := decimal.RequireFromString("9.50"); !finalTotal.Equal(want) {
		t.Errorf("finalTotal = %s, want %s", finalTotal, want)
	}
}

func TestCanonicalDigest_OrderIndependent(t *testing.T) {
	summary := models.ReconciliationSummary{
		RoomID:            "R1",
		StartingEntryFees: decimal.RequireFromString("20.00"),
		StartingExtras:    decimal.RequireFromString("2.50"),
		StartingTotal:     decimal.RequireFromString("22.50"),
		AdjustmentsNet:    decimal.RequireFromString("1.50"),
		FinalTotal:        decimal.RequireFromString("24.00"),
	}

	ledger := ledgerFixture()
	adjustments := adjustmentFixture()
	want, err := CanonicalDigest(ledger, adjustments, summary)
	if err != nil {
		t.Fatalf("CanonicalDigest() error = %v", err)
	}
	if len(want) != 64 {
		t.Fatalf("digest length = %d, want 64 hex chars", len(want))
	}

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 10; i++ {
		rng.Shuffle(len(ledger), func(a, b int) { ledger[a], ledger[b] = ledger[b], ledger[a] })
		rng.Shuffle(len(adjustments), func(a, b int) { adjustments[a], adjustments[b] = adjustments[b], adjustments[a] })
		got, err := CanonicalDigest(ledger, adjustments, summary)
		if err != nil {
			t.Fatalf("CanonicalDigest() error = %v", err)
		}
		if got != want {
			t.Fatalf("permutation %d changed digest", i)
		}
	}
}

func TestCanonicalDigest_DetectsTampering(t *testing.T) {
	summary := models.ReconciliationSummary{RoomID: "R1"}
	ledger := ledgerFixture()
	adjustments := adjustmentFixture()

	original, err := CanonicalDigest(ledger, adjustments, summary)
	if err != nil {
		t.Fatalf("CanonicalDigest() error = %v", err)
	}

	tampered := make([]models.AdjustmentEntry, len(adjustments))
	copy(tampered, adjustments)
	tampered[1].Amount = decimal.RequireFromString("-0.05")

	changed, err := CanonicalDigest(ledger, tampered, summary)
	if err != nil {
		t.Fatalf("CanonicalDigest() error = %v", err)
	}
	if changed == original {
		t.Error("digest unchanged after amount tampering")
	}
}

func TestCanonicalDigest_IgnoresOwnDigestFields(t *testing.T) {
	ledger := ledgerFixture()
	adjustments := adjustmentFixture()

	plain := models.ReconciliationSummary{RoomID: "R1"}
	before, err := CanonicalDigest(ledger, adjustments, plain)
	if err != nil {
		t.Fatalf("CanonicalDigest() error = %v", err)
	}

	generated := time.Now().UTC()
	stamped := plain
	stamped.ArchiveSha256 = before
	stamped.ArchiveGeneratedAt = &generated

	after, err := CanonicalDigest(ledger, adjustments, stamped)
	if err != nil {
		t.Fatalf("CanonicalDigest() error = %v", err)
	}
	if before != after {
		t.Error("digest must not depend on its own archive fields")
	}
}
