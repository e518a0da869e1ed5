package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Paulagot/bingo-sub014/internal/models"
	"github.com/Paulagot/bingo-sub014/internal/repositories"
	"github.com/Paulagot/bingo-sub014/pkg/errors"
	"github.com/Paulagot/bingo-sub014/pkg/logger"
)

// ApprovalNotifier receives a fire-and-forget signal after an approval is
// persisted. Delivery failure never affects the approval itself.
type ApprovalNotifier interface {
	NotifyApproved(summary *models.ReconciliationSummary)
}

// ReconciliationService is the aggregator over the ledger and adjustment
// logs. Totals are always recomputed from the two logs; nothing in memory is
// authoritative. Recompute runs synchronously on every mutating path so the
// stored summary is never stale relative to the logs.
type ReconciliationService struct {
	ledger      *repositories.LedgerRepository
	adjustments *repositories.AdjustmentRepository
	summaries   *repositories.ReconciliationRepository
	notifier    ApprovalNotifier
}

func NewReconciliationService(
	ledger *repositories.LedgerRepository,
	adjustments *repositories.AdjustmentRepository,
	summaries *repositories.ReconciliationRepository,
	notifier ApprovalNotifier,
) *ReconciliationService {
	return &ReconciliationService{
		ledger:      ledger,
		adjustments: adjustments,
		summaries:   summaries,
		notifier:    notifier,
	}
}

// ApproveParams carries an approval action. ApprovedBy is mandatory; a
// re-approval of an already-approved summary likewise needs a fresh approver
// identity.
type ApproveParams struct {
	RoomID     string
	ApprovedBy string
	Notes      string
}

// SumLedgerTotals sums confirmed and reconciled entries by ledger type.
// Order-independent: any permutation of entries produces identical totals.
func SumLedgerTotals(entries []models.LedgerEntry) (entryFees, extras decimal.Decimal) {
	entryFees = decimal.Zero
	extras = decimal.Zero
	for i := range entries {
		e := &entries[i]
		if !e.CountsTowardTotals() {
			continue
		}
		switch e.LedgerType {
		case models.LedgerTypeEntryFee:
			entryFees = entryFees.Add(e.Amount)
		case models.LedgerTypeExtraPurchase:
			extras = extras.Add(e.Amount)
		}
	}
	return entryFees, extras
}

// SumAdjustments nets all signed adjustment amounts.
func SumAdjustments(entries []models.AdjustmentEntry) decimal.Decimal {
	net := decimal.Zero
	for i := range entries {
		net = net.Add(entries[i].Amount)
	}
	return net
}

// Recompute derives the summary for a room from the two logs and upserts it.
// Safe to re-run any number of times; identical input yields identical
// output regardless of row insertion order.
func (s *ReconciliationService) Recompute(roomID string) (*models.ReconciliationSummary, error) {
	if roomID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "roomId is required")
	}

	ledgerEntries, err := s.ledger.ListForRoom(roomID)
	if err != nil {
		return nil, err
	}
	adjustmentEntries, err := s.adjustments.ListForRoom(roomID)
	if err != nil {
		return nil, err
	}

	entryFees, extras := SumLedgerTotals(ledgerEntries)
	startingTotal := entryFees.Add(extras)
	adjustmentsNet := SumAdjustments(adjustmentEntries)

	clubID := ""
	if len(ledgerEntries) > 0 {
		clubID = ledgerEntries[0].ClubID
	}

	summary := &models.ReconciliationSummary{
		RoomID:            roomID,
		ClubID:            clubID,
		StartingEntryFees: entryFees,
		StartingExtras:    extras,
		StartingTotal:     startingTotal,
		AdjustmentsNet:    adjustmentsNet,
		FinalTotal:        startingTotal.Add(adjustmentsNet),
	}
	if err := s.summaries.UpsertSummary(summary); err != nil {
		return nil, err
	}
	return s.summaries.GetSummary(roomID)
}

// Summary returns the current summary for a room, recomputing when no row
// exists yet, together with whether a recorded approval still covers the
// latest state of the logs.
func (s *ReconciliationService) Summary(roomID string) (*models.ReconciliationSummary, bool, error) {
	summary, err := s.summaries.GetSummary(roomID)
	if err != nil {
		if errors.Code(err) != errors.ErrCodeNotFound {
			return nil, false, err
		}
		summary, err = s.Recompute(roomID)
		if err != nil {
			return nil, false, err
		}
	}
	lastUpdate, err := s.summaries.LastLogUpdate(roomID)
	if err != nil {
		return nil, false, err
	}
	return summary, summary.IsCurrentAsOf(lastUpdate), nil
}

// Approve recomputes, then stamps the approver on the summary. Approving
// requires at least one prior recompute to have produced a summary row;
// re-approving an approved summary requires a fresh approver identity.
func (s *ReconciliationService) Approve(params ApproveParams) (*models.ReconciliationSummary, error) {
	if params.RoomID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "roomId is required")
	}

	existing, err := s.summaries.GetSummary(params.RoomID)
	if err != nil {
		return nil, err
	}
	if params.ApprovedBy == "" {
		if existing.IsApproved() {
			return nil, errors.New(errors.ErrCodeConflict,
				"re-approval requires a new approver identity")
		}
		return nil, errors.New(errors.ErrCodeValidation, "approvedBy is required")
	}

	// Totals are refreshed in the same action so the approval covers the
	// logs as they stand now.
	if _, err := s.Recompute(params.RoomID); err != nil {
		return nil, err
	}
	if err := s.summaries.SetApproval(params.RoomID, params.ApprovedBy, params.Notes, time.Now().UTC()); err != nil {
		return nil, err
	}

	summary, err := s.summaries.GetSummary(params.RoomID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.NotifyApproved(summary)
	}
	logger.Info("reconciliation approved",
		"roomId", params.RoomID, "approvedBy", params.ApprovedBy,
		"finalTotal", summary.FinalTotal.String())
	return summary, nil
}

// ResolveLatePayment confirms a player's outstanding rows and refreshes the
// summary in the same call.
func (s *ReconciliationService) ResolveLatePayment(params repositories.ResolveLatePaymentParams) (int64, error) {
	updated, err := s.ledger.ResolveLatePayment(params)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		if _, err := s.Recompute(params.RoomID); err != nil {
			return updated, err
		}
	}
	return updated, nil
}

// CreateLedgerEntry records a new payment obligation and refreshes the
// summary. A fresh expected row does not move the totals yet, but the
// summary's watermark keeps approval staleness honest.
func (s *ReconciliationService) CreateLedgerEntry(entry *models.LedgerEntry) error {
	if err := s.ledger.CreateEntry(entry); err != nil {
		return err
	}
	_, err := s.Recompute(entry.RoomID)
	return err
}

// UpdateLedgerStatus moves one ledger row along its lifecycle and refreshes
// the summary; confirmations, refunds and disputes all change what counts
// toward the starting totals.
func (s *ReconciliationService) UpdateLedgerStatus(id uint, target string) (*models.LedgerEntry, error) {
	entry, err := s.ledger.UpdateStatus(id, target)
	if err != nil {
		return nil, err
	}
	if _, err := s.Recompute(entry.RoomID); err != nil {
		return entry, err
	}
	return entry, nil
}

// AppendAdjustment appends one correction and refreshes the summary.
func (s *ReconciliationService) AppendAdjustment(entry *models.AdjustmentEntry) (uint, error) {
	id, err := s.adjustments.Append(entry)
	if err != nil {
		return 0, err
	}
	if _, err := s.Recompute(entry.RoomID); err != nil {
		return id, err
	}
	return id, nil
}

// archiveEnvelope is the canonical byte representation used for tamper
// evidence: both logs plus the summary, in a fixed order, with the digest
// fields themselves zeroed.
type archiveEnvelope struct {
	RoomID      string                       `json:"roomId"`
	Ledger      []models.LedgerEntry         `json:"ledger"`
	Adjustments []models.AdjustmentEntry     `json:"adjustments"`
	Summary     models.ReconciliationSummary `json:"summary"`
}

// CanonicalDigest serializes the full record set into one canonical byte
// representation and returns its hex sha256. Input slice order is irrelevant;
// entries are sorted on stable keys before encoding.
func CanonicalDigest(
	ledger []models.LedgerEntry,
	adjustments []models.AdjustmentEntry,
	summary models.ReconciliationSummary,
) (string, error) {
	sortedLedger := make([]models.LedgerEntry, len(ledger))
	copy(sortedLedger, ledger)
	sort.Slice(sortedLedger, func(i, j int) bool { return sortedLedger[i].ID < sortedLedger[j].ID })

	sortedAdjustments := make([]models.AdjustmentEntry, len(adjustments))
	copy(sortedAdjustments, adjustments)
	sort.Slice(sortedAdjustments, func(i, j int) bool {
		if !sortedAdjustments[i].Timestamp.Equal(sortedAdjustments[j].Timestamp) {
			return sortedAdjustments[i].Timestamp.Before(sortedAdjustments[j].Timestamp)
		}
		return sortedAdjustments[i].ID < sortedAdjustments[j].ID
	})

	summary.ArchiveSha256 = ""
	summary.ArchiveGeneratedAt = nil

	raw, err := json.Marshal(archiveEnvelope{
		RoomID:      summary.RoomID,
		Ledger:      sortedLedger,
		Adjustments: sortedAdjustments,
		Summary:     summary,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternalError, "failed to serialize archive")
	}
	digest := sha256.Sum256(raw)
	return hex.EncodeToString(digest[:]), nil
}

// Archive computes the canonical digest of the room's records and stamps it
// on the summary row. The digest is the tamper evidence; exporting the
// archive content itself is a collaborator concern.
func (s *ReconciliationService) Archive(roomID string) (string, error) {
	if roomID == "" {
		return "", errors.New(errors.ErrCodeValidation, "roomId is required")
	}

	summary, err := s.summaries.GetSummary(roomID)
	if err != nil {
		return "", err
	}
	ledgerEntries, err := s.ledger.ListForRoom(roomID)
	if err != nil {
		return "", err
	}
	adjustmentEntries, err := s.adjustments.ListForRoom(roomID)
	if err != nil {
		return "", err
	}

	digest, err := CanonicalDigest(ledgerEntries, adjustmentEntries, *summary)
	if err != nil {
		return "", err
	}
	if err := s.summaries.SetArchiveDigest(roomID, digest, time.Now().UTC()); err != nil {
		return "", err
	}
	return digest, nil
}
