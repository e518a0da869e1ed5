package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Paulagot/bingo-sub014/internal/report"
	"github.com/Paulagot/bingo-sub014/internal/repositories"
	"github.com/Paulagot/bingo-sub014/internal/security"
	"github.com/Paulagot/bingo-sub014/internal/services"
	"github.com/Paulagot/bingo-sub014/pkg/errors"
	"github.com/Paulagot/bingo-sub014/pkg/logger"
)

// ReconciliationHandler exposes the aggregator: summary read, recompute,
// approval, archive digest and workbook export.
type ReconciliationHandler struct {
	service     *services.ReconciliationService
	ledger      *repositories.LedgerRepository
	adjustments *repositories.AdjustmentRepository
}

func NewReconciliationHandler(
	service *services.ReconciliationService,
	ledger *repositories.LedgerRepository,
	adjustments *repositories.AdjustmentRepository,
) *ReconciliationHandler {
	return &ReconciliationHandler{service: service, ledger: ledger, adjustments: adjustments}
}

// Get handles GET /reconciliation?roomId=<id>. Recomputes when no summary row
// exists yet, so a read before any write still succeeds.
func (h *ReconciliationHandler) Get(c *gin.Context) {
	summary, current, err := h.service.Summary(c.Query("roomId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "summary": summary, "approvalCurrent": current})
}

// Recompute handles POST /reconciliation/recompute.
func (h *ReconciliationHandler) Recompute(c *gin.Context) {
	var req struct {
		RoomID string `json:"roomId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeValidation, "malformed request body"))
		return
	}
	summary, err := h.service.Recompute(req.RoomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "summary": summary})
}

// Approve handles POST /reconciliation/approve.
func (h *ReconciliationHandler) Approve(c *gin.Context) {
	var req struct {
		RoomID     string `json:"roomId"`
		ApprovedBy string `json:"approvedBy"`
		Notes      string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeValidation, "malformed request body"))
		return
	}
	summary, err := h.service.Approve(services.ApproveParams{
		RoomID:     req.RoomID,
		ApprovedBy: security.SanitizeText(req.ApprovedBy),
		Notes:      security.SanitizeText(req.Notes),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "summary": summary})
}

// Archive handles POST /reconciliation/archive, recording the tamper-evidence
// digest on the summary row.
func (h *ReconciliationHandler) Archive(c *gin.Context) {
	var req struct {
		RoomID string `json:"roomId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeValidation, "malformed request body"))
		return
	}
	digest, err := h.service.Archive(req.RoomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "sha256": digest})
}

// Export handles GET /reconciliation/export?roomId=<id>, streaming an xlsx
// workbook with the ledger, adjustments and summary sheets.
func (h *ReconciliationHandler) Export(c *gin.Context) {
	roomID := c.Query("roomId")
	summary, _, err := h.service.Summary(roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	ledgerEntries, err := h.ledger.ListForRoom(roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	adjustmentEntries, err := h.adjustments.ListForRoom(roomID)
	if err != nil {
		respondError(c, err)
		return
	}

	workbook, err := report.BuildWorkbook(summary, ledgerEntries, adjustmentEntries)
	if err != nil {
		respondError(c, err)
		return
	}
	defer workbook.Close()

	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=reconciliation-%s.xlsx", roomID))
	c.Header("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := workbook.Write(c.Writer); err != nil {
		// Headers are already on the wire; log only.
		logger.Error("failed to stream workbook", "roomId", roomID, "error", err)
	}
}
