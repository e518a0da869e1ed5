// Package sync implements the per-event reconciliation sync channel: a
// WebSocket protocol that lets any number of admin clients pull authoritative
// state, apply optimistic edits, and converge on server broadcasts. Two scope
// families exist per event, setup (pre-room) and room (post-room); they are
// structurally identical and never share state.
package sync

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/Paulagot/bingo-sub014/internal/models"
	"github.com/Paulagot/bingo-sub014/pkg/errors"
)

// ========================================
// CLIENT -> SERVER MESSAGES
// ========================================

// ClientMessage is the envelope for all client-to-server messages.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client message types, one set per scope family.
const (
	MsgJoinSetup    = "join_setup"
	MsgJoinRoom     = "join_room"
	MsgRequestSetup = "request_setup_reconciliation"
	MsgRequestRoom  = "request_reconciliation"
	MsgUpdateSetup  = "update_setup_reconciliation"
	MsgUpdateRoom   = "update_reconciliation"
	MsgApproveSetup = "approve_setup_reconciliation"
	MsgApproveRoom  = "approve_reconciliation"
)

// JoinData subscribes the connection to a scope key; no data is exchanged.
type JoinData struct {
	ScopeKey string `json:"scopeKey"`
}

// RequestData asks for the current authoritative record of a scope key.
type RequestData struct {
	ScopeKey string `json:"scopeKey"`
}

// UpdateData carries a client patch for a scope key.
type UpdateData struct {
	ScopeKey  string          `json:"scopeKey"`
	Patch     json.RawMessage `json:"patch"`
	UpdatedBy string          `json:"updatedBy"`
}

// ApproveData stamps an approval on a scope key's record.
type ApproveData struct {
	ScopeKey     string `json:"scopeKey"`
	ApproverName string `json:"approverName"`
	UpdatedBy    string `json:"updatedBy"`
}

// ========================================
// SERVER -> CLIENT MESSAGES
// ========================================

// ServerMessage is the envelope for all server-to-client messages.
type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Server message types. *_state answers a request on one connection;
// *_updated is broadcast to every subscriber of the scope key.
const (
	MsgSetupState   = "setup_reconciliation_state"
	MsgRoomState    = "reconciliation_state"
	MsgSetupUpdated = "setup_reconciliation_updated"
	MsgRoomUpdated  = "reconciliation_updated"
	MsgError        = "error"
)

// StatePayload carries the scope key and the full authoritative record.
type StatePayload struct {
	ScopeKey string            `json:"scopeKey"`
	Record   models.SyncRecord `json:"record"`
}

// ErrorData carries a taxonomy code and a generic message; internal detail
// never rides along.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// stateType returns the *_state message type for a scope family.
func stateType(scope string) string {
	if scope == models.ScopeSetup {
		return MsgSetupState
	}
	return MsgRoomState
}

// updatedType returns the *_updated message type for a scope family.
func updatedType(scope string) string {
	if scope == models.ScopeSetup {
		return MsgSetupUpdated
	}
	return MsgRoomUpdated
}

// ========================================
// PATCH HANDLING
// ========================================

// ReconciliationPatch is the closed set of fields a client update may touch.
// Unknown keys are rejected rather than silently merged.
type ReconciliationPatch struct {
	Notes *string `json:"notes,omitempty"`
}

// DecodePatch parses a raw patch, rejecting unknown fields.
func DecodePatch(raw json.RawMessage) (*ReconciliationPatch, error) {
	if len(raw) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "patch is required")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var patch ReconciliationPatch
	if err := dec.Decode(&patch); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "malformed patch")
	}
	return &patch, nil
}

// ApplyPatch merges a patch into a record, stamping the editor and time.
// Precedence is explicit: patched fields replace, everything else is kept.
func ApplyPatch(record models.SyncRecord, patch *ReconciliationPatch, updatedBy string, now time.Time) models.SyncRecord {
	if patch.Notes != nil {
		record.Notes = *patch.Notes
	}
	record.UpdatedAt = now
	record.UpdatedBy = updatedBy
	return record
}

// ApplyApproval stamps an approval on a record.
func ApplyApproval(record models.SyncRecord, approverName, updatedBy string, now time.Time) models.SyncRecord {
	record.ApprovedBy = approverName
	record.ApprovedAt = &now
	record.UpdatedAt = now
	record.UpdatedBy = updatedBy
	return record
}
