/*
 * Copyright 2025 The Notepair Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package events defines the real-time wire protocol: a tagged envelope with
// one payload struct per event type. Payloads are validated at the transport
// boundary before dispatch; a malformed payload is a protocol error, never a
// crash.
package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/notepair-team/notepair/api/types"
)

// Type is the tag of an event.
type Type string

// Client-originated event types.
const (
	TypeJoinSession      Type = "join_session"
	TypeLeaveSession     Type = "leave_session"
	TypeEditOperation    Type = "edit_operation"
	TypeSyncRequest      Type = "sync_request"
	TypeCursorMove       Type = "cursor_move"
	TypePresenceState    Type = "presence_state"
	TypeCommentAdd       Type = "comment_add"
	TypeCommentUpdate    Type = "comment_update"
	TypeCommentDelete    Type = "comment_delete"
	TypeCommentResolve   Type = "comment_resolve"
	TypeSessionUpdate    Type = "session_update"
	TypePermissionChange Type = "permission_change"
	TypeSnapshotCreate   Type = "snapshot_create"
	TypeSnapshotRestore  Type = "snapshot_restore"
)

// Server-originated event types.
const (
	TypeSyncState         Type = "sync_state"
	TypeCursorUpdate      Type = "cursor_update"
	TypeUserJoined        Type = "user_joined"
	TypeUserLeft          Type = "user_left"
	TypeCommentAdded      Type = "comment_added"
	TypeCommentUpdated    Type = "comment_updated"
	TypeCommentDeleted    Type = "comment_deleted"
	TypeCommentResolved   Type = "comment_resolved"
	TypeSessionUpdated    Type = "session_updated"
	TypePermissionChanged Type = "permission_changed"
	TypeSnapshotCreated   Type = "snapshot_created"
	TypeSnapshotRestored  Type = "snapshot_restored"
	TypeError             Type = "error"
)

// Envelope frames every event on the wire.
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope creates an envelope for the given type and payload.
func NewEnvelope(eventType Type, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{Type: eventType, Payload: raw}, nil
}

// JoinSession asks to join a session by id, or by share token when the
// caller has no membership.
type JoinSession struct {
	SessionID  types.ID `json:"session_id"`
	ShareToken string   `json:"share_token,omitempty"`
}

// LeaveSession asks to leave a session.
type LeaveSession struct {
	SessionID types.ID `json:"session_id"`
}

// EditOperation carries one opaque replica update. Server rebroadcasts carry
// the authoring user and timestamp as well.
type EditOperation struct {
	SessionID types.ID  `json:"session_id"`
	Update    []byte    `json:"update"`
	UserID    types.ID  `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// SyncRequest asks for the data needed to converge from the given state
// vector. An absent state vector requests the full replica state.
type SyncRequest struct {
	SessionID   types.ID `json:"session_id"`
	StateVector []byte   `json:"state_vector,omitempty"`
}

// SyncState answers a join or a sync request.
type SyncState struct {
	SessionID   types.ID               `json:"session_id"`
	Session     *types.Session         `json:"session,omitempty"`
	Role        types.Role             `json:"role,omitempty"`
	Replica     []byte                 `json:"replica,omitempty"`
	Diffs       [][]byte               `json:"diffs,omitempty"`
	StateVector []byte                 `json:"state_vector,omitempty"`
	Presence    []types.PresenceRecord `json:"presence,omitempty"`
}

// CursorMove reports the caller's cursor state.
type CursorMove struct {
	SessionID types.ID     `json:"session_id"`
	Cursor    types.Cursor `json:"cursor"`
}

// CursorUpdate broadcasts a participant's cursor state.
type CursorUpdate struct {
	SessionID types.ID     `json:"session_id"`
	UserID    types.ID     `json:"user_id"`
	Cursor    types.Cursor `json:"cursor"`
}

// PresenceState asks for the current presence snapshot of a session.
type PresenceState struct {
	SessionID types.ID `json:"session_id"`
}

// Participant announces a join or leave of a participant.
type Participant struct {
	SessionID types.ID   `json:"session_id"`
	UserID    types.ID   `json:"user_id"`
	Role      types.Role `json:"role,omitempty"`
}

// CommentAdd creates a comment or a reply to a top-level comment.
type CommentAdd struct {
	SessionID types.ID           `json:"session_id"`
	Content   string             `json:"content"`
	Anchor    *types.AnchorRange `json:"anchor,omitempty"`
	ParentID  types.ID           `json:"parent_id,omitempty"`
}

// CommentUpdate changes the content of a comment.
type CommentUpdate struct {
	SessionID types.ID `json:"session_id"`
	CommentID types.ID `json:"comment_id"`
	Content   string   `json:"content"`
}

// CommentRef identifies a comment for delete and resolve operations.
type CommentRef struct {
	SessionID types.ID `json:"session_id"`
	CommentID types.ID `json:"comment_id"`
}

// CommentEvent broadcasts a comment change.
type CommentEvent struct {
	SessionID types.ID       `json:"session_id"`
	Comment   *types.Comment `json:"comment,omitempty"`
	CommentID types.ID       `json:"comment_id,omitempty"`
	UserID    types.ID       `json:"user_id"`
}

// SessionUpdate changes session metadata. Owner only.
type SessionUpdate struct {
	SessionID types.ID                     `json:"session_id"`
	Updates   types.UpdatableSessionFields `json:"updates"`
}

// SessionUpdated broadcasts changed session metadata.
type SessionUpdated struct {
	Session *types.Session `json:"session"`
	UserID  types.ID       `json:"user_id"`
}

// PermissionChange changes a member's role. Owner only.
type PermissionChange struct {
	SessionID    types.ID   `json:"session_id"`
	TargetUserID types.ID   `json:"target_user_id"`
	NewRole      types.Role `json:"new_role"`
}

// PermissionChanged broadcasts a member role change.
type PermissionChanged struct {
	SessionID    types.ID   `json:"session_id"`
	TargetUserID types.ID   `json:"target_user_id"`
	NewRole      types.Role `json:"new_role"`
	UserID       types.ID   `json:"user_id"`
}

// SnapshotCreate captures the current content under a name.
type SnapshotCreate struct {
	SessionID types.ID `json:"session_id"`
	Name      string   `json:"name"`
}

// SnapshotRestore overwrites the live content with a snapshot. Owner only.
type SnapshotRestore struct {
	SessionID  types.ID `json:"session_id"`
	SnapshotID types.ID `json:"snapshot_id"`
}

// SnapshotEvent broadcasts a snapshot creation or restore.
type SnapshotEvent struct {
	SessionID types.ID        `json:"session_id"`
	Snapshot  *types.Snapshot `json:"snapshot,omitempty"`
	UserID    types.ID        `json:"user_id"`
}

// Error reports a failure to the originating connection only.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Decode decodes the envelope's payload into the struct for its type. It
// rejects unknown event types and payloads with unknown fields.
func Decode(envelope Envelope) (any, error) {
	var payload any
	switch envelope.Type {
	case TypeJoinSession:
		payload = &JoinSession{}
	case TypeLeaveSession:
		payload = &LeaveSession{}
	case TypeEditOperation:
		payload = &EditOperation{}
	case TypeSyncRequest:
		payload = &SyncRequest{}
	case TypeCursorMove:
		payload = &CursorMove{}
	case TypePresenceState:
		payload = &PresenceState{}
	case TypeCommentAdd:
		payload = &CommentAdd{}
	case TypeCommentUpdate:
		payload = &CommentUpdate{}
	case TypeCommentDelete, TypeCommentResolve:
		payload = &CommentRef{}
	case TypeSessionUpdate:
		payload = &SessionUpdate{}
	case TypePermissionChange:
		payload = &PermissionChange{}
	case TypeSnapshotCreate:
		payload = &SnapshotCreate{}
	case TypeSnapshotRestore:
		payload = &SnapshotRestore{}
	default:
		return nil, fmt.Errorf("unknown event type %q", envelope.Type)
	}

	if len(envelope.Payload) == 0 {
		return nil, fmt.Errorf("event %s: empty payload", envelope.Type)
	}

	decoder := json.NewDecoder(bytes.NewReader(envelope.Payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", envelope.Type, err)
	}

	return payload, nil
}
