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

package transport

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/notepair-team/notepair/api/events"
	"github.com/notepair-team/notepair/api/types"
	"github.com/notepair-team/notepair/pkg/errors"
	"github.com/notepair-team/notepair/server/backend/database"
	"github.com/notepair-team/notepair/server/logging"
	"github.com/notepair-team/notepair/server/sessions"
)

// Wire error codes sent to the originating connection.
const (
	codeSessionNotFound  = "SESSION_NOT_FOUND"
	codeAccessDenied     = "ACCESS_DENIED"
	codePermissionDenied = "PERMISSION_DENIED"
	codeEditError        = "EDIT_ERROR"
	codeJoinError        = "JOIN_ERROR"
	codeCommentError     = "COMMENT_ERROR"
	codeNotFound         = "NOT_FOUND"
	codeLockTimeout      = "LOCK_TIMEOUT"
	codeProtocolError    = "PROTOCOL_ERROR"
	codeInternalError    = "INTERNAL_ERROR"
)

// wireCode maps an error to its wire code. Specific errors map first, then
// the error's status class; anything left takes the operation's fallback.
func wireCode(err error, fallback string) string {
	switch {
	case stderrors.Is(err, database.ErrSessionNotFound):
		return codeSessionNotFound
	case stderrors.Is(err, sessions.ErrNoRole):
		return codeAccessDenied
	case stderrors.Is(err, sessions.ErrLockTimeout):
		return codeLockTimeout
	}

	switch errors.StatusOf(err) {
	case errors.ErrCodePermissionDenied:
		return codePermissionDenied
	case errors.ErrCodeNotFound:
		return codeNotFound
	case errors.ErrCodeUnauthenticated:
		return codeAccessDenied
	}

	return fallback
}

// sendError reports a failure to the originating connection only.
func (s *Server) sendError(conn *connection, code string, err error) {
	envelope, marshalErr := events.NewEnvelope(events.TypeError, events.Error{
		Code:    code,
		Message: err.Error(),
	})
	if marshalErr != nil {
		logging.DefaultLogger().Error(marshalErr)
		return
	}

	conn.enqueue(envelope)
}

// reply sends an event to the originating connection only.
func (s *Server) reply(conn *connection, eventType events.Type, payload any) {
	envelope, err := events.NewEnvelope(eventType, payload)
	if err != nil {
		logging.DefaultLogger().Error(err)
		return
	}

	conn.enqueue(envelope)
}

// broadcast publishes an event to the session's subscribers. An empty
// publisher id reaches every subscriber including the origin.
func (s *Server) broadcast(
	ctx context.Context,
	publisher types.ID,
	sessionID types.ID,
	eventType events.Type,
	payload any,
) {
	envelope, err := events.NewEnvelope(eventType, payload)
	if err != nil {
		logging.From(ctx).Error(err)
		return
	}

	s.backend.PubSub.Publish(ctx, publisher, sessionID, envelope)
}

// dispatch validates and routes one inbound envelope.
func (s *Server) dispatch(ctx context.Context, conn *connection, envelope events.Envelope) {
	payload, err := events.Decode(envelope)
	if err != nil {
		s.sendError(conn, codeProtocolError, err)
		return
	}

	s.backend.Metrics.AddEventHandled(string(envelope.Type))

	switch p := payload.(type) {
	case *events.JoinSession:
		s.handleJoinSession(ctx, conn, p)
	case *events.LeaveSession:
		s.leaveSession(ctx, conn, p.SessionID)
	case *events.EditOperation:
		s.handleEditOperation(ctx, conn, p)
	case *events.SyncRequest:
		s.handleSyncRequest(ctx, conn, p)
	case *events.CursorMove:
		s.handleCursorMove(ctx, conn, p)
	case *events.PresenceState:
		s.handlePresenceState(conn, p)
	case *events.CommentAdd:
		s.handleCommentAdd(ctx, conn, p)
	case *events.CommentUpdate:
		s.handleCommentUpdate(ctx, conn, p)
	case *events.CommentRef:
		s.handleCommentRef(ctx, conn, envelope.Type, p)
	case *events.SessionUpdate:
		s.handleSessionUpdate(ctx, conn, p)
	case *events.PermissionChange:
		s.handlePermissionChange(ctx, conn, p)
	case *events.SnapshotCreate:
		s.handleSnapshotCreate(ctx, conn, p)
	case *events.SnapshotRestore:
		s.handleSnapshotRestore(ctx, conn, p)
	}
}

func (s *Server) handleJoinSession(ctx context.Context, conn *connection, p *events.JoinSession) {
	result, err := s.coordinator.Join(ctx, p.SessionID, conn.userID, p.ShareToken)
	if err != nil {
		s.sendError(conn, wireCode(err, codeJoinError), err)
		return
	}
	sessionID := result.Session.ID

	sub := s.backend.PubSub.Subscribe(ctx, conn.userID, sessionID)
	if ok := conn.addSubscription(sessionID, sub); !ok {
		// Already joined over this connection; keep the original
		// subscription and just refresh the state.
		s.backend.PubSub.Unsubscribe(ctx, sessionID, sub)
	} else {
		go conn.forward(sub)
	}

	s.reply(conn, events.TypeSyncState, events.SyncState{
		SessionID:   sessionID,
		Session:     result.Session,
		Role:        result.Role,
		Replica:     result.Replica,
		StateVector: result.Cookie,
		Presence:    result.Presence,
	})

	s.broadcast(ctx, conn.userID, sessionID, events.TypeUserJoined, events.Participant{
		SessionID: sessionID,
		UserID:    conn.userID,
		Role:      result.Role,
	})
}

// leaveSession leaves one session: presence removal, departure broadcast and
// subscription teardown. Used by explicit leaves and by disconnects.
func (s *Server) leaveSession(ctx context.Context, conn *connection, sessionID types.ID) {
	sub, ok := conn.removeSubscription(sessionID)
	if !ok {
		return
	}

	if err := s.coordinator.Leave(ctx, sessionID, conn.userID); err != nil {
		logging.From(ctx).Warnf("CONN: leave %s for %s: %v", sessionID, conn.userID, err)
	}

	s.broadcast(ctx, conn.userID, sessionID, events.TypeUserLeft, events.Participant{
		SessionID: sessionID,
		UserID:    conn.userID,
	})

	s.backend.PubSub.Unsubscribe(ctx, sessionID, sub)
}

func (s *Server) handleEditOperation(ctx context.Context, conn *connection, p *events.EditOperation) {
	if err := s.coordinator.RecordEdit(ctx, p.SessionID, conn.userID, p.Update); err != nil {
		s.backend.Metrics.AddEditRejected()
		s.sendError(conn, wireCode(err, codeEditError), err)
		return
	}
	s.backend.Metrics.AddEditApplied()

	s.broadcast(ctx, conn.userID, p.SessionID, events.TypeEditOperation, events.EditOperation{
		SessionID: p.SessionID,
		Update:    p.Update,
		UserID:    conn.userID,
		Timestamp: time.Now(),
	})
}

func (s *Server) handleSyncRequest(ctx context.Context, conn *connection, p *events.SyncRequest) {
	if _, err := s.coordinator.Resolver().RoleOf(ctx, p.SessionID, conn.userID); err != nil {
		s.sendError(conn, wireCode(err, codeAccessDenied), err)
		return
	}

	diffs, cookie, err := s.backend.Documents.DiffSince(ctx, p.SessionID, p.StateVector)
	if err != nil {
		s.sendError(conn, wireCode(err, codeInternalError), err)
		return
	}

	// A missing or empty state vector means the client has nothing yet
	// and receives the full replica.
	state := events.SyncState{SessionID: p.SessionID, StateVector: cookie}
	if len(p.StateVector) == 0 {
		state.Replica = diffs[0]
	} else {
		state.Diffs = diffs
	}
	s.reply(conn, events.TypeSyncState, state)
}

func (s *Server) handleCursorMove(ctx context.Context, conn *connection, p *events.CursorMove) {
	// Cursor moves from users no longer present are dropped silently.
	if ok := s.backend.Presence.UpdateCursor(p.SessionID, conn.userID, p.Cursor); !ok {
		return
	}

	s.broadcast(ctx, conn.userID, p.SessionID, events.TypeCursorUpdate, events.CursorUpdate{
		SessionID: p.SessionID,
		UserID:    conn.userID,
		Cursor:    p.Cursor,
	})
}

func (s *Server) handlePresenceState(conn *connection, p *events.PresenceState) {
	s.reply(conn, events.TypeSyncState, events.SyncState{
		SessionID: p.SessionID,
		Presence:  s.backend.Presence.Snapshot(p.SessionID),
	})
}

func (s *Server) handleCommentAdd(ctx context.Context, conn *connection, p *events.CommentAdd) {
	comment, err := s.coordinator.AddComment(ctx, p.SessionID, conn.userID, p.Content, p.Anchor, p.ParentID)
	if err != nil {
		s.sendError(conn, wireCode(err, codeCommentError), err)
		return
	}

	s.broadcast(ctx, "", p.SessionID, events.TypeCommentAdded, events.CommentEvent{
		SessionID: p.SessionID,
		Comment:   comment,
		UserID:    conn.userID,
	})
}

func (s *Server) handleCommentUpdate(ctx context.Context, conn *connection, p *events.CommentUpdate) {
	comment, err := s.coordinator.UpdateComment(ctx, p.SessionID, conn.userID, p.CommentID, p.Content)
	if err != nil {
		s.sendError(conn, wireCode(err, codeCommentError), err)
		return
	}

	s.broadcast(ctx, "", p.SessionID, events.TypeCommentUpdated, events.CommentEvent{
		SessionID: p.SessionID,
		Comment:   comment,
		UserID:    conn.userID,
	})
}

func (s *Server) handleCommentRef(ctx context.Context, conn *connection, eventType events.Type, p *events.CommentRef) {
	switch eventType {
	case events.TypeCommentResolve:
		comment, err := s.coordinator.ResolveComment(ctx, p.SessionID, conn.userID, p.CommentID)
		if err != nil {
			s.sendError(conn, wireCode(err, codeCommentError), err)
			return
		}

		s.broadcast(ctx, "", p.SessionID, events.TypeCommentResolved, events.CommentEvent{
			SessionID: p.SessionID,
			Comment:   comment,
			UserID:    conn.userID,
		})
	case events.TypeCommentDelete:
		if err := s.coordinator.DeleteComment(ctx, p.SessionID, conn.userID, p.CommentID); err != nil {
			s.sendError(conn, wireCode(err, codeCommentError), err)
			return
		}

		s.broadcast(ctx, "", p.SessionID, events.TypeCommentDeleted, events.CommentEvent{
			SessionID: p.SessionID,
			CommentID: p.CommentID,
			UserID:    conn.userID,
		})
	}
}

func (s *Server) handleSessionUpdate(ctx context.Context, conn *connection, p *events.SessionUpdate) {
	session, err := s.coordinator.UpdateSession(ctx, p.SessionID, conn.userID, &p.Updates)
	if err != nil {
		s.sendError(conn, wireCode(err, codeInternalError), err)
		return
	}

	// Metadata changes reach every participant including the origin.
	s.broadcast(ctx, "", p.SessionID, events.TypeSessionUpdated, events.SessionUpdated{
		Session: session,
		UserID:  conn.userID,
	})
}

func (s *Server) handlePermissionChange(ctx context.Context, conn *connection, p *events.PermissionChange) {
	member, err := s.coordinator.ChangeRole(ctx, p.SessionID, conn.userID, p.TargetUserID, p.NewRole)
	if err != nil {
		s.sendError(conn, wireCode(err, codeInternalError), err)
		return
	}

	s.broadcast(ctx, "", p.SessionID, events.TypePermissionChanged, events.PermissionChanged{
		SessionID:    p.SessionID,
		TargetUserID: member.UserID,
		NewRole:      member.Role,
		UserID:       conn.userID,
	})
}

func (s *Server) handleSnapshotCreate(ctx context.Context, conn *connection, p *events.SnapshotCreate) {
	snapshot, err := s.coordinator.CreateSnapshot(ctx, p.SessionID, conn.userID, p.Name)
	if err != nil {
		s.sendError(conn, wireCode(err, codeInternalError), err)
		return
	}

	s.broadcast(ctx, "", p.SessionID, events.TypeSnapshotCreated, events.SnapshotEvent{
		SessionID: p.SessionID,
		Snapshot:  snapshot,
		UserID:    conn.userID,
	})
}

func (s *Server) handleSnapshotRestore(ctx context.Context, conn *connection, p *events.SnapshotRestore) {
	update, snapshot, err := s.coordinator.RestoreSnapshot(ctx, p.SessionID, conn.userID, p.SnapshotID)
	if err != nil {
		s.sendError(conn, wireCode(err, codeInternalError), err)
		return
	}
	s.backend.Metrics.AddEditApplied()

	// The restore is one mergeable change; every replica applies it like a
	// regular edit before learning which snapshot it came from.
	s.broadcast(ctx, "", p.SessionID, events.TypeEditOperation, events.EditOperation{
		SessionID: p.SessionID,
		Update:    update,
		UserID:    conn.userID,
		Timestamp: time.Now(),
	})
	s.broadcast(ctx, "", p.SessionID, events.TypeSnapshotRestored, events.SnapshotEvent{
		SessionID: p.SessionID,
		Snapshot:  snapshot,
		UserID:    conn.userID,
	})
}
