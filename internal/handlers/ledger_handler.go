package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Paulagot/bingo-sub014/internal/models"
	"github.com/Paulagot/bingo-sub014/internal/repositories"
	"github.com/Paulagot/bingo-sub014/internal/security"
	"github.com/Paulagot/bingo-sub014/internal/services"
	"github.com/Paulagot/bingo-sub014/pkg/errors"
)

// LedgerHandler serves the ledger lifecycle: entry creation, status moves,
// the unpaid report, and the late-payment resolution.
type LedgerHandler struct {
	ledger  *repositories.LedgerRepository
	service *services.ReconciliationService
}

func NewLedgerHandler(ledger *repositories.LedgerRepository, service *services.ReconciliationService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, service: service}
}

// ListUnpaid handles GET /unpaid?roomId=<id>.
func (h *LedgerHandler) ListUnpaid(c *gin.Context) {
	roomID := c.Query("roomId")
	players, err := h.ledger.ListUnpaid(roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "players": players})
}

type createLedgerEntryRequest struct {
	RoomID           string          `json:"roomId"`
	ClubID           string          `json:"clubId"`
	PlayerID         string          `json:"playerId"`
	PlayerName       string          `json:"playerName"`
	LedgerType       string          `json:"ledgerType"`
	ExtraID          string          `json:"extraId"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	PaymentMethod    string          `json:"paymentMethod"`
	PaymentSource    string          `json:"paymentSource"`
	PaymentReference string          `json:"paymentReference"`
}

// CreateEntry handles POST /ledger: a player selecting or claiming a payment
// obligation.
func (h *LedgerHandler) CreateEntry(c *gin.Context) {
	var req createLedgerEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeValidation, "malformed request body"))
		return
	}

	entry := &models.LedgerEntry{
		RoomID:           req.RoomID,
		ClubID:           req.ClubID,
		PlayerID:         req.PlayerID,
		PlayerName:       security.SanitizeText(req.PlayerName),
		LedgerType:       req.LedgerType,
		ExtraID:          req.ExtraID,
		Amount:           req.Amount,
		Currency:         req.Currency,
		Status:           models.LedgerStatusExpected,
		PaymentMethod:    req.PaymentMethod,
		PaymentSource:    req.PaymentSource,
		PaymentReference: req.PaymentReference,
	}
	if err := h.service.CreateLedgerEntry(entry); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": entry.ID})
}

type updateStatusRequest struct {
	ID     uint   `json:"id"`
	Status string `json:"status"`
}

// UpdateStatus handles POST /ledger/status: an explicit lifecycle step,
// including the refund and dispute side branches.
func (h *LedgerHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeValidation, "malformed request body"))
		return
	}

	entry, err := h.service.UpdateLedgerStatus(req.ID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "entry": entry})
}

type markLatePaidRequest struct {
	RoomID              string `json:"roomId"`
	PlayerID            string `json:"playerId"`
	ConfirmedBy         string `json:"confirmedBy"`
	ConfirmedByName     string `json:"confirmedByName"`
	ConfirmedByRole     string `json:"confirmedByRole"`
	AdminNotes          string `json:"adminNotes"`
	PaymentMethod       string `json:"paymentMethod"`
	ClubPaymentMethodID string `json:"clubPaymentMethodId"`
}

// MarkLatePaid handles POST /mark-late-paid. Idempotent: a player with no
// outstanding rows yields updated=0, not an error.
func (h *LedgerHandler) MarkLatePaid(c *gin.Context) {
	var req markLatePaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeValidation, "malformed request body"))
		return
	}

	updated, err := h.service.ResolveLatePayment(repositories.ResolveLatePaymentParams{
		RoomID:              req.RoomID,
		PlayerID:            req.PlayerID,
		ConfirmedBy:         req.ConfirmedBy,
		ConfirmedByName:     security.SanitizeText(req.ConfirmedByName),
		ConfirmedByRole:     req.ConfirmedByRole,
		AdminNotes:          security.SanitizeText(req.AdminNotes),
		PaymentMethod:       req.PaymentMethod,
		ClubPaymentMethodID: req.ClubPaymentMethodID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "updated": updated})
}
