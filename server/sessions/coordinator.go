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

// Package sessions coordinates the lifecycle of collaborative sessions:
// joins and leaves, role-gated operations, comments, snapshots and the
// per-session audit history.
package sessions

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/notepair-team/notepair/api/types"
	"github.com/notepair-team/notepair/pkg/cmap"
	"github.com/notepair-team/notepair/pkg/errors"
	"github.com/notepair-team/notepair/pkg/locker"
	"github.com/notepair-team/notepair/server/backend"
	"github.com/notepair-team/notepair/server/backend/database"
	"github.com/notepair-team/notepair/server/logging"
)

// DefaultHistoryLimit is the default number of audit entries returned per
// listing.
const DefaultHistoryLimit = 50

var (
	// ErrEditNotAllowed is returned when the user's role does not permit
	// editing.
	ErrEditNotAllowed = errors.PermissionDenied("role does not permit editing").WithCode("ErrEditNotAllowed")

	// ErrNotAllowed is returned when the user's role does not permit the
	// requested management operation.
	ErrNotAllowed = errors.PermissionDenied("role does not permit this operation").WithCode("ErrNotAllowed")

	// ErrSessionInactive is returned when a user without the owner role
	// joins an inactive session by id.
	ErrSessionInactive = errors.PermissionDenied("session is inactive").WithCode("ErrSessionInactive")

	// ErrLockTimeout is returned when the restore lock is held by another
	// operation. Callers should retry.
	ErrLockTimeout = errors.Unavailable("operation lock held, retry").WithCode("ErrLockTimeout")
)

type sessionEntry struct {
	participants map[types.ID]struct{}
}

// JoinResult carries everything a joining connection needs to render the
// session.
type JoinResult struct {
	Session  *types.Session
	Role     types.Role
	Replica  []byte
	Cookie   []byte
	Presence []types.PresenceRecord
}

// Coordinator owns the per-session lifecycle and gates every privileged
// operation by freshly resolved roles.
type Coordinator struct {
	backend  *backend.Backend
	resolver *Resolver
	entries  *cmap.Map[types.ID, *sessionEntry]

	restoreTTL   time.Duration
	historyLimit int
}

// NewCoordinator creates a new Coordinator on the given backend.
func NewCoordinator(be *backend.Backend) *Coordinator {
	historyLimit := be.Config.HistoryListLimit
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}

	return &Coordinator{
		backend:      be,
		resolver:     NewResolver(be.DB),
		entries:      cmap.New[types.ID, *sessionEntry](),
		restoreTTL:   be.Config.ParseRestoreLockTTL(),
		historyLimit: historyLimit,
	}
}

// Resolver returns the access control resolver of this coordinator.
func (c *Coordinator) Resolver() *Resolver {
	return c.resolver
}

func lockKey(sessionID types.ID) string {
	return "session/" + sessionID.String()
}

func restoreLockKey(sessionID types.ID) string {
	return "restore/" + sessionID.String()
}

// Join adds the user to the session, resolving it by id or by share token.
// Share-token joiners without membership are recorded as viewers. Joins
// arriving while the session drains wait for the flush to finish.
func (c *Coordinator) Join(
	ctx context.Context,
	sessionID types.ID,
	userID types.ID,
	shareToken string,
) (*JoinResult, error) {
	var info *database.SessionInfo
	var err error

	if shareToken != "" {
		info, err = c.backend.DB.FindSessionByShareToken(ctx, shareToken)
	} else {
		if err = sessionID.Validate(); err != nil {
			return nil, err
		}
		info, err = c.backend.DB.FindSession(ctx, sessionID)
	}
	if err != nil {
		return nil, err
	}
	sessionID = info.ID

	var role types.Role
	if shareToken != "" {
		role, err = c.resolver.RoleOf(ctx, sessionID, userID)
		if stderrors.Is(err, ErrNoRole) {
			// A share-token join grants viewer membership.
			member, upsertErr := c.backend.DB.UpsertMember(ctx, sessionID, userID, types.RoleViewer)
			if upsertErr != nil {
				return nil, upsertErr
			}
			role, err = member.Role, nil
		}
		if err != nil {
			return nil, err
		}
	} else {
		role, err = c.resolver.RoleOf(ctx, sessionID, userID)
		if err != nil {
			return nil, err
		}
		if !info.Active && role != types.RoleOwner {
			return nil, fmt.Errorf("%s: %w", sessionID, ErrSessionInactive)
		}
	}

	// The named lock serializes joins, leaves and drains of one session;
	// a join during a drain blocks here until the flush completes.
	c.backend.Lockers.Lock(lockKey(sessionID))
	defer func() {
		if err := c.backend.Lockers.Unlock(lockKey(sessionID)); err != nil {
			logging.From(ctx).Error(err)
		}
	}()

	entry := c.entries.Upsert(sessionID, func(entry *sessionEntry, exists bool) *sessionEntry {
		if !exists {
			entry = &sessionEntry{participants: make(map[types.ID]struct{})}
		}
		return entry
	})

	if _, err := c.backend.Documents.GetOrLoad(ctx, sessionID); err != nil {
		return nil, err
	}
	entry.participants[userID] = struct{}{}

	c.backend.Presence.Join(sessionID, userID)

	replica, cookie, err := c.backend.Documents.DiffSince(ctx, sessionID, nil)
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Infof("SESN: user %s joined %s as %s", userID, sessionID, role)

	return &JoinResult{
		Session:  info.ToSession(),
		Role:     role,
		Replica:  replica[0],
		Cookie:   cookie,
		Presence: c.backend.Presence.Snapshot(sessionID),
	}, nil
}

// Leave removes the user from the session. The last participant leaving
// drains the session: the replica is flushed and evicted.
func (c *Coordinator) Leave(ctx context.Context, sessionID types.ID, userID types.ID) error {
	c.backend.Lockers.Lock(lockKey(sessionID))
	defer func() {
		if err := c.backend.Lockers.Unlock(lockKey(sessionID)); err != nil {
			logging.From(ctx).Error(err)
		}
	}()

	c.backend.Presence.Leave(sessionID, userID)

	entry, ok := c.entries.Get(sessionID)
	if !ok {
		return nil
	}

	delete(entry.participants, userID)
	if len(entry.participants) > 0 {
		return nil
	}

	// Drain: flush and evict while holding the session lock so that a
	// concurrent join waits instead of racing the eviction.
	if err := c.backend.Documents.Evict(ctx, sessionID); err != nil {
		return err
	}
	c.entries.Remove(sessionID)

	logging.From(ctx).Infof("SESN: session %s drained after %s left", sessionID, userID)
	return nil
}

// Participants returns the users currently joined to the session.
func (c *Coordinator) Participants(sessionID types.ID) []types.ID {
	c.backend.Lockers.Lock(lockKey(sessionID))
	defer func() {
		_ = c.backend.Lockers.Unlock(lockKey(sessionID))
	}()

	entry, ok := c.entries.Get(sessionID)
	if !ok {
		return nil
	}

	ids := make([]types.ID, 0, len(entry.participants))
	for id := range entry.participants {
		ids = append(ids, id)
	}
	return ids
}

// RecordEdit merges the user's update into the session's replica. The role
// is re-resolved on every edit; viewers are rejected before the replica is
// touched. The audit history append is fire-and-forget.
func (c *Coordinator) RecordEdit(
	ctx context.Context,
	sessionID types.ID,
	userID types.ID,
	update []byte,
) error {
	role, err := c.resolver.RoleOf(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	if !role.CanEdit() {
		return fmt.Errorf("%s is %s: %w", userID, role, ErrEditNotAllowed)
	}

	if err := c.backend.Documents.ApplyUpdate(ctx, sessionID, update); err != nil {
		return err
	}

	// An accepted edit is activity.
	c.backend.Presence.Touch(sessionID, userID)

	go c.appendHistory(sessionID, userID)
	return nil
}

// appendHistory records an audit entry with a preview of the content after
// the edit. Failures are logged, never surfaced.
func (c *Coordinator) appendHistory(sessionID types.ID, userID types.ID) {
	ctx := context.Background()

	preview, err := c.backend.Documents.Text(ctx, sessionID)
	if err != nil {
		logging.DefaultLogger().Warnf("HSTRY: read content of %s: %v", sessionID, err)
		return
	}

	if _, err := c.backend.DB.CreateHistory(ctx, sessionID, userID, preview); err != nil {
		logging.DefaultLogger().Warnf("HSTRY: append for %s: %v", sessionID, err)
	}
}

// History lists the most recent audit entries of the session.
func (c *Coordinator) History(
	ctx context.Context,
	sessionID types.ID,
) ([]*types.HistoryEntry, error) {
	infos, err := c.backend.DB.ListHistories(ctx, sessionID, c.historyLimit)
	if err != nil {
		return nil, err
	}

	entries := make([]*types.HistoryEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, info.ToHistoryEntry())
	}
	return entries, nil
}

// UpdateSession applies metadata updates. Owner only. Returns the updated
// session for broadcast.
func (c *Coordinator) UpdateSession(
	ctx context.Context,
	sessionID types.ID,
	userID types.ID,
	fields *types.UpdatableSessionFields,
) (*types.Session, error) {
	role, err := c.resolver.RoleOf(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if !role.CanManage() {
		return nil, fmt.Errorf("%s is %s: %w", userID, role, ErrNotAllowed)
	}

	info, err := c.backend.DB.UpdateSession(ctx, sessionID, fields)
	if err != nil {
		return nil, err
	}

	return info.ToSession(), nil
}

// ChangeRole changes a member's role. Owner only; the owner's own role is
// immutable.
func (c *Coordinator) ChangeRole(
	ctx context.Context,
	sessionID types.ID,
	userID types.ID,
	targetUserID types.ID,
	newRole types.Role,
) (*types.Member, error) {
	if !newRole.IsValid() || newRole == types.RoleOwner {
		return nil, fmt.Errorf("role %q: %w", newRole, errors.InvalidArgument("invalid role").WithCode("ErrInvalidRole"))
	}

	role, err := c.resolver.RoleOf(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if !role.CanManage() {
		return nil, fmt.Errorf("%s is %s: %w", userID, role, ErrNotAllowed)
	}

	member, err := c.backend.DB.UpsertMember(ctx, sessionID, targetUserID, newRole)
	if err != nil {
		return nil, err
	}

	return member.ToMember(), nil
}

// AddComment creates a comment or a reply. Every participant incl. viewers
// may comment.
func (c *Coordinator) AddComment(
	ctx context.Context,
	sessionID types.ID,
	userID types.ID,
	content string,
	anchor *types.AnchorRange,
	parentID types.ID,
) (*types.Comment, error) {
	if _, err := c.resolver.RoleOf(ctx, sessionID, userID); err != nil {
		return nil, err
	}

	info, err := c.backend.DB.CreateComment(ctx, sessionID, userID, content, anchor, parentID)
	if err != nil {
		return nil, err
	}

	return info.ToComment(), nil
}

// UpdateComment replaces a comment's content. Only the author may edit it.
func (c *Coordinator) UpdateComment(
	ctx context.Context,
	sessionID types.ID,
	userID types.ID,
	commentID types.ID,
	content string,
) (*types.Comment, error) {
	info, err := c.backend.DB.FindComment(ctx, sessionID, commentID)
	if err != nil {
		return nil, err
	}
	if info.Author != userID {
		return nil, fmt.Errorf("comment %s: %w", commentID, ErrNotAllowed)
	}

	updated, err := c.backend.DB.UpdateComment(ctx, sessionID, commentID, content)
	if err != nil {
		return nil, err
	}

	return updated.ToComment(), nil
}

// ResolveComment marks a comment as resolved. Editors and above.
func (c *Coordinator) ResolveComment(
	ctx context.Context,
	sessionID types.ID,
	userID types.ID,
	commentID types.ID,
) (*types.Comment, error) {
	role, err := c.resolver.RoleOf(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if !role.CanEdit() {
		return nil, fmt.Errorf("%s is %s: %w", userID, role, ErrNotAllowed)
	}

	info, err := c.backend.DB.ResolveComment(ctx, sessionID, commentID)
	if err != nil {
		return nil, err
	}

	return info.ToComment(), nil
}

// DeleteComment deletes a comment and its replies. The author or the owner.
func (c *Coordinator) DeleteComment(
	ctx context.Context,
	sessionID types.ID,
	userID types.ID,
	commentID types.ID,
) error {
	info, err := c.backend.DB.FindComment(ctx, sessionID, commentID)
	if err != nil {
		return err
	}

	if info.Author != userID {
		role, err := c.resolver.RoleOf(ctx, sessionID, userID)
		if err != nil {
			return err
		}
		if !role.CanManage() {
			return fmt.Errorf("comment %s: %w", commentID, ErrNotAllowed)
		}
	}

	return c.backend.DB.DeleteComment(ctx, sessionID, commentID)
}

// ListComments lists the comments of the session in creation order.
func (c *Coordinator) ListComments(
	ctx context.Context,
	sessionID types.ID,
) ([]*types.Comment, error) {
	infos, err := c.backend.DB.ListComments(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	comments := make([]*types.Comment, 0, len(infos))
	for _, info := range infos {
		comments = append(comments, info.ToComment())
	}
	return comments, nil
}

// CreateSnapshot captures the session's current content under a name.
// Editors and above.
func (c *Coordinator) CreateSnapshot(
	ctx context.Context,
	sessionID types.ID,
	userID types.ID,
	name string,
) (*types.Snapshot, error) {
	role, err := c.resolver.RoleOf(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if !role.CanEdit() {
		return nil, fmt.Errorf("%s is %s: %w", userID, role, ErrNotAllowed)
	}

	content, err := c.backend.Documents.Text(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	info, err := c.backend.DB.CreateSnapshot(ctx, sessionID, name, content, userID)
	if err != nil {
		return nil, err
	}

	return info.ToSnapshot(), nil
}

// RestoreSnapshot overwrites the live content with a snapshot's content as
// one mergeable change. Owner only; guarded by a TTL lease so a stalled
// restore cannot block the session forever. The returned update blob is
// rebroadcast like a regular edit.
func (c *Coordinator) RestoreSnapshot(
	ctx context.Context,
	sessionID types.ID,
	userID types.ID,
	snapshotID types.ID,
) ([]byte, *types.Snapshot, error) {
	role, err := c.resolver.RoleOf(ctx, sessionID, userID)
	if err != nil {
		return nil, nil, err
	}
	if !role.CanManage() {
		return nil, nil, fmt.Errorf("%s is %s: %w", userID, role, ErrNotAllowed)
	}

	lease, err := c.backend.Leases.TryLease(restoreLockKey(sessionID), c.restoreTTL)
	if err != nil {
		if stderrors.Is(err, locker.ErrLeaseHeld) {
			return nil, nil, fmt.Errorf("restore of %s: %w", sessionID, ErrLockTimeout)
		}
		return nil, nil, err
	}
	defer lease.Release()

	info, err := c.backend.DB.FindSnapshot(ctx, sessionID, snapshotID)
	if err != nil {
		return nil, nil, err
	}

	update, err := c.backend.Documents.ReplaceText(
		ctx,
		sessionID,
		info.Content,
		fmt.Sprintf("restore %s", info.Name),
	)
	if err != nil {
		return nil, nil, err
	}

	go c.appendHistory(sessionID, userID)

	logging.From(ctx).Infof("SESN: session %s restored to snapshot %s", sessionID, snapshotID)
	return update, info.ToSnapshot(), nil
}

// ListSnapshots lists the snapshots of the session, newest first.
func (c *Coordinator) ListSnapshots(
	ctx context.Context,
	sessionID types.ID,
) ([]*types.Snapshot, error) {
	infos, err := c.backend.DB.ListSnapshots(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	snapshots := make([]*types.Snapshot, 0, len(infos))
	for _, info := range infos {
		snapshots = append(snapshots, info.ToSnapshot())
	}
	return snapshots, nil
}
