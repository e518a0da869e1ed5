package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/Paulagot/bingo-sub014/internal/models"
	"github.com/Paulagot/bingo-sub014/internal/repositories"
	"github.com/Paulagot/bingo-sub014/pkg/errors"
	"github.com/Paulagot/bingo-sub014/pkg/logger"
)

// Handler terminates the sync WebSocket. All mutations are persisted to the
// store before any broadcast goes out: a dropped broadcast loses nothing,
// because a later request returns the already-persisted state.
type Handler struct {
	hub            *Hub
	records        *repositories.ReconciliationRepository
	requestTimeout time.Duration
}

// NewHandler builds the WebSocket endpoint. requestTimeout bounds each
// outbound write, the server half of the sync request timeout.
func NewHandler(hub *Hub, records *repositories.ReconciliationRepository, requestTimeout time.Duration) *Handler {
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}
	return &Handler{hub: hub, records: records, requestTimeout: requestTimeout}
}

// ServeHTTP upgrades to WebSocket and runs the per-connection message loop.
// Messages are dispatched in arrival order, which gives FIFO application per
// connection; cross-connection races resolve last-write-wins at the store.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logger.Warn("sync: websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	session := newSession()
	ctx := r.Context()

	go h.writeLoop(ctx, conn, session)
	defer h.hub.Remove(session)

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				logger.Debug("sync: connection closed", "status", status)
			}
			return
		}

		switch msg.Type {
		case MsgJoinSetup:
			h.handleJoin(session, models.ScopeSetup, msg.Data)
		case MsgJoinRoom:
			h.handleJoin(session, models.ScopeRoom, msg.Data)
		case MsgRequestSetup:
			h.handleRequest(session, models.ScopeSetup, msg.Data)
		case MsgRequestRoom:
			h.handleRequest(session, models.ScopeRoom, msg.Data)
		case MsgUpdateSetup:
			h.handleUpdate(session, models.ScopeSetup, msg.Data)
		case MsgUpdateRoom:
			h.handleUpdate(session, models.ScopeRoom, msg.Data)
		case MsgApproveSetup:
			h.handleApprove(session, models.ScopeSetup, msg.Data)
		case MsgApproveRoom:
			h.handleApprove(session, models.ScopeRoom, msg.Data)
		default:
			h.sendError(session, errors.New(errors.ErrCodeValidation, "unknown message type"))
		}
	}
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, session *Session) {
	for msg := range session.outbound {
		writeCtx, cancel := context.WithTimeout(ctx, h.requestTimeout)
		err := wsjson.Write(writeCtx, conn, msg)
		cancel()
		if err != nil {
			// Transport failure only; the store mutation behind this
			// message is already durable.
			logger.Warn("sync: write failed", "type", msg.Type, "error", err)
			return
		}
	}
}

func (h *Handler) handleJoin(session *Session, scope string, raw json.RawMessage) {
	var data JoinData
	if err := json.Unmarshal(raw, &data); err != nil || data.ScopeKey == "" {
		h.sendError(session, errors.New(errors.ErrCodeValidation, "scopeKey is required"))
		return
	}
	h.hub.Join(scope, data.ScopeKey, session)
}

func (h *Handler) handleRequest(session *Session, scope string, raw json.RawMessage) {
	var data RequestData
	if err := json.Unmarshal(raw, &data); err != nil || data.ScopeKey == "" {
		h.sendError(session, errors.New(errors.ErrCodeValidation, "scopeKey is required"))
		return
	}
	if !session.Joined(scope, data.ScopeKey) {
		h.sendError(session, errors.New(errors.ErrCodeValidation, "scope not joined"))
		return
	}

	record, err := h.records.GetSyncRecord(scope, data.ScopeKey)
	if err != nil {
		h.sendError(session, err)
		return
	}
	session.send(ServerMessage{
		Type: stateType(scope),
		Data: StatePayload{ScopeKey: data.ScopeKey, Record: *record},
	})
}

func (h *Handler) handleUpdate(session *Session, scope string, raw json.RawMessage) {
	var data UpdateData
	if err := json.Unmarshal(raw, &data); err != nil || data.ScopeKey == "" {
		h.sendError(session, errors.New(errors.ErrCodeValidation, "scopeKey is required"))
		return
	}
	if !session.Joined(scope, data.ScopeKey) {
		h.sendError(session, errors.New(errors.ErrCodeValidation, "scope not joined"))
		return
	}
	patch, err := DecodePatch(data.Patch)
	if err != nil {
		h.sendError(session, err)
		return
	}

	record, err := h.records.GetSyncRecord(scope, data.ScopeKey)
	if err != nil {
		h.sendError(session, err)
		return
	}
	merged := ApplyPatch(*record, patch, data.UpdatedBy, time.Now().UTC())
	if err := h.records.UpsertSyncRecord(&merged); err != nil {
		h.sendError(session, err)
		return
	}

	h.hub.Broadcast(scope, data.ScopeKey, ServerMessage{
		Type: updatedType(scope),
		Data: StatePayload{ScopeKey: data.ScopeKey, Record: merged},
	})
}

func (h *Handler) handleApprove(session *Session, scope string, raw json.RawMessage) {
	var data ApproveData
	if err := json.Unmarshal(raw, &data); err != nil || data.ScopeKey == "" {
		h.sendError(session, errors.New(errors.ErrCodeValidation, "scopeKey is required"))
		return
	}
	if data.ApproverName == "" {
		h.sendError(session, errors.New(errors.ErrCodeValidation, "approverName is required"))
		return
	}
	if !session.Joined(scope, data.ScopeKey) {
		h.sendError(session, errors.New(errors.ErrCodeValidation, "scope not joined"))
		return
	}

	record, err := h.records.GetSyncRecord(scope, data.ScopeKey)
	if err != nil {
		h.sendError(session, err)
		return
	}
	merged := ApplyApproval(*record, data.ApproverName, data.UpdatedBy, time.Now().UTC())
	if err := h.records.UpsertSyncRecord(&merged); err != nil {
		h.sendError(session, err)
		return
	}

	h.hub.Broadcast(scope, data.ScopeKey, ServerMessage{
		Type: updatedType(scope),
		Data: StatePayload{ScopeKey: data.ScopeKey, Record: merged},
	})
}

// sendError surfaces only the taxonomy code and message, never internals.
func (h *Handler) sendError(session *Session, err error) {
	msg := "request failed"
	if appErr, ok := err.(*errors.AppError); ok {
		msg = appErr.Message
	}
	session.send(ServerMessage{
		Type: MsgError,
		Data: ErrorData{Code: errors.Code(err), Message: msg},
	})
}
