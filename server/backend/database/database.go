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

// Package database provides the interface for the durable session metadata
// store: sessions, members, comments, snapshots and edit history. The
// replicated document engine consumes this store but never holds replica
// state in it; replica blobs live in the blob store.
package database

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/notepair-team/notepair/api/types"
	"github.com/notepair-team/notepair/pkg/errors"
)

var (
	// ErrSessionNotFound is returned when the session could not be found.
	ErrSessionNotFound = errors.NotFound("session not found").WithCode("ErrSessionNotFound")

	// ErrMemberNotFound is returned when the membership could not be found.
	ErrMemberNotFound = errors.NotFound("member not found").WithCode("ErrMemberNotFound")

	// ErrCommentNotFound is returned when the comment could not be found.
	ErrCommentNotFound = errors.NotFound("comment not found").WithCode("ErrCommentNotFound")

	// ErrSnapshotNotFound is returned when the snapshot could not be found.
	ErrSnapshotNotFound = errors.NotFound("snapshot not found").WithCode("ErrSnapshotNotFound")

	// ErrInvalidCommentParent is returned when a reply targets a comment that
	// is itself a reply, or a comment of another session.
	ErrInvalidCommentParent = errors.FailedPrecond("comment parent must be a top-level comment").WithCode("ErrInvalidCommentParent")

	// ErrOwnerRoleImmutable is returned when a role change targets the
	// session owner.
	ErrOwnerRoleImmutable = errors.FailedPrecond("owner role cannot be changed").WithCode("ErrOwnerRoleImmutable")
)

// Database is the durable store consumed by the engine.
type Database interface {
	// Close closes the database.
	Close() error

	// CreateSession creates a new session owned by the given user with a
	// fresh share token.
	CreateSession(ctx context.Context, name string, owner types.ID) (*SessionInfo, error)

	// FindSession finds the session by id.
	FindSession(ctx context.Context, id types.ID) (*SessionInfo, error)

	// FindSessionByShareToken finds the session by its share token.
	FindSessionByShareToken(ctx context.Context, token string) (*SessionInfo, error)

	// UpdateSession applies the given fields to the session metadata.
	UpdateSession(ctx context.Context, id types.ID, fields *types.UpdatableSessionFields) (*SessionInfo, error)

	// DeleteSession deletes the session and cascades its members, comments,
	// snapshots and history.
	DeleteSession(ctx context.Context, id types.ID) error

	// FindMember finds the membership of the given user in the session.
	FindMember(ctx context.Context, sessionID types.ID, userID types.ID) (*MemberInfo, error)

	// ListMembers lists the memberships of the session.
	ListMembers(ctx context.Context, sessionID types.ID) ([]*MemberInfo, error)

	// UpsertMember creates or updates the membership of the given user with
	// the given role. The session owner's role cannot be changed.
	UpsertMember(ctx context.Context, sessionID types.ID, userID types.ID, role types.Role) (*MemberInfo, error)

	// RemoveMember removes the membership of the given user.
	RemoveMember(ctx context.Context, sessionID types.ID, userID types.ID) error

	// CreateComment creates a comment, or a reply when parentID is set. A
	// reply's parent must be a top-level comment of the same session.
	CreateComment(
		ctx context.Context,
		sessionID types.ID,
		author types.ID,
		content string,
		anchor *types.AnchorRange,
		parentID types.ID,
	) (*CommentInfo, error)

	// FindComment finds the comment by id within the session.
	FindComment(ctx context.Context, sessionID types.ID, commentID types.ID) (*CommentInfo, error)

	// UpdateComment replaces the content of the comment.
	UpdateComment(ctx context.Context, sessionID types.ID, commentID types.ID, content string) (*CommentInfo, error)

	// ResolveComment marks the comment as resolved.
	ResolveComment(ctx context.Context, sessionID types.ID, commentID types.ID) (*CommentInfo, error)

	// DeleteComment deletes the comment and its replies.
	DeleteComment(ctx context.Context, sessionID types.ID, commentID types.ID) error

	// ListComments lists the comments of the session in creation order.
	ListComments(ctx context.Context, sessionID types.ID) ([]*CommentInfo, error)

	// CreateSnapshot captures the given full content under a name.
	CreateSnapshot(
		ctx context.Context,
		sessionID types.ID,
		name string,
		content string,
		createdBy types.ID,
	) (*SnapshotInfo, error)

	// FindSnapshot finds the snapshot by id within the session.
	FindSnapshot(ctx context.Context, sessionID types.ID, snapshotID types.ID) (*SnapshotInfo, error)

	// ListSnapshots lists the snapshots of the session, newest first.
	ListSnapshots(ctx context.Context, sessionID types.ID) ([]*SnapshotInfo, error)

	// DeleteSnapshot deletes the snapshot.
	DeleteSnapshot(ctx context.Context, sessionID types.ID, snapshotID types.ID) error

	// CreateHistory appends an audit entry for an edit.
	CreateHistory(ctx context.Context, sessionID types.ID, userID types.ID, preview string) (*HistoryInfo, error)

	// ListHistories lists audit entries of the session, newest first,
	// limited to the given count.
	ListHistories(ctx context.Context, sessionID types.ID, limit int) ([]*HistoryInfo, error)
}

// GenerateShareToken generates a new share token.
func GenerateShareToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
