// Package report builds the human-readable reconciliation workbook. The
// archive sha256 on the summary row stays the tamper-evidence mechanism; this
// export is for hosts and auditors who want the numbers in front of them.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Paulagot/bingo-sub014/internal/models"
	"github.com/Paulagot/bingo-sub014/pkg/errors"
)

const (
	sheetSummary     = "Summary"
	sheetLedger      = "Ledger"
	sheetAdjustments = "Adjustments"
)

// BuildWorkbook renders the summary, ledger and adjustment log into one xlsx
// file. The caller owns Close.
func BuildWorkbook(
	summary *models.ReconciliationSummary,
	ledger []models.LedgerEntry,
	adjustments []models.AdjustmentEntry,
) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := writeSummarySheet(f, summary); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeLedgerSheet(f, ledger); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeAdjustmentSheet(f, adjustments); err != nil {
		f.Close()
		return nil, err
	}

	f.DeleteSheet("Sheet1")
	return f, nil
}

func writeSummarySheet(f *excelize.File, summary *models.ReconciliationSummary) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create summary sheet")
	}

	rows := [][]interface{}{
		{"Room", summary.RoomID},
		{"Club", summary.ClubID},
		{"Starting entry fees", summary.StartingEntryFees.StringFixed(2)},
		{"Starting extras", summary.StartingExtras.StringFixed(2)},
		{"Starting total", summary.StartingTotal.StringFixed(2)},
		{"Adjustments net", summary.AdjustmentsNet.StringFixed(2)},
		{"Final total", summary.FinalTotal.StringFixed(2)},
		{"Approved by", summary.ApprovedBy},
		{"Notes", summary.Notes},
		{"Archive sha256", summary.ArchiveSha256},
	}
	if summary.ApprovedAt != nil {
		rows = append(rows, []interface{}{"Approved at", summary.ApprovedAt.UTC().Format("2006-01-02 15:04:05")})
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to write summary row")
		}
	}
	return nil
}

func writeLedgerSheet(f *excelize.File, ledger []models.LedgerEntry) error {
	if _, err := f.NewSheet(sheetLedger); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create ledger sheet")
	}

	header := []interface{}{
		"ID", "Player", "Player name", "Type", "Amount", "Currency",
		"Status", "Payment method", "Source", "Late", "Confirmed by", "Admin notes",
	}
	if err := f.SetSheetRow(sheetLedger, "A1", &header); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to write ledger header")
	}
	for i, e := range ledger {
		row := []interface{}{
			e.ID, e.PlayerID, e.PlayerName, e.LedgerType, e.Amount.StringFixed(2),
			e.Currency, e.Status, e.PaymentMethod, e.PaymentSource, e.IsLate,
			e.ConfirmedBy, e.AdminNotes,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetLedger, cell, &row); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to write ledger row")
		}
	}
	return nil
}

func writeAdjustmentSheet(f *excelize.File, adjustments []models.AdjustmentEntry) error {
	if _, err := f.NewSheet(sheetAdjustments); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create adjustments sheet")
	}

	header := []interface{}{
		"ID", "Timestamp", "Type", "Amount", "Currency", "Payment method",
		"Reason", "Payer", "Note", "Created by",
	}
	if err := f.SetSheetRow(sheetAdjustments, "A1", &header); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to write adjustments header")
	}
	for i, a := range adjustments {
		row := []interface{}{
			a.ID, a.Timestamp.UTC().Format("2006-01-02 15:04:05"), a.AdjustmentType,
			a.Amount.StringFixed(2), a.Currency, a.PaymentMethod, a.ReasonCode,
			a.PayerID, a.Note, a.CreatedBy,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetAdjustments, cell, &row); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to write adjustment row")
		}
	}
	return nil
}
