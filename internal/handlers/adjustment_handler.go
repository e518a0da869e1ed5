package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Paulagot/bingo-sub014/internal/models"
	"github.com/Paulagot/bingo-sub014/internal/repositories"
	"github.com/Paulagot/bingo-sub014/internal/security"
	"github.com/Paulagot/bingo-sub014/internal/services"
	"github.com/Paulagot/bingo-sub014/pkg/errors"
)

// AdjustmentHandler exposes the append-only adjustment log for admin tooling.
type AdjustmentHandler struct {
	service     *services.ReconciliationService
	adjustments *repositories.AdjustmentRepository
}

func NewAdjustmentHandler(service *services.ReconciliationService, adjustments *repositories.AdjustmentRepository) *AdjustmentHandler {
	return &AdjustmentHandler{service: service, adjustments: adjustments}
}

type appendAdjustmentRequest struct {
	RoomID         string          `json:"roomId"`
	AdjustmentType string          `json:"adjustmentType"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	PaymentMethod  string          `json:"paymentMethod"`
	ReasonCode     string          `json:"reasonCode"`
	PayerID        string          `json:"payerId"`
	Note           string          `json:"note"`
	CreatedBy      string          `json:"createdBy"`
	PrizeAwardID   string          `json:"prizeAwardId"`
	PrizeMetadata  string          `json:"prizeMetadata"`
}

// Append handles POST /adjustments.
func (h *AdjustmentHandler) Append(c *gin.Context) {
	var req appendAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeValidation, "malformed request body"))
		return
	}

	entry := &models.AdjustmentEntry{
		RoomID:         req.RoomID,
		Timestamp:      time.Now().UTC(),
		AdjustmentType: req.AdjustmentType,
		Amount:         req.Amount,
		Currency:       req.Currency,
		PaymentMethod:  req.PaymentMethod,
		ReasonCode:     req.ReasonCode,
		PayerID:        req.PayerID,
		Note:           security.SanitizeText(req.Note),
		CreatedBy:      req.CreatedBy,
		PrizeAwardID:   req.PrizeAwardID,
		PrizeMetadata:  req.PrizeMetadata,
	}
	id, err := h.service.AppendAdjustment(entry)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": id})
}

// List handles GET /adjustments?roomId=<id>, full history timestamp ascending.
func (h *AdjustmentHandler) List(c *gin.Context) {
	entries, err := h.adjustments.ListForRoom(c.Query("roomId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "adjustments": entries})
}
