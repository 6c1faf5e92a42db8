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

// Package memory implements the database interface using an in-memory
// database. It backs single-process deployments and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	gotime "time"

	"github.com/hashicorp/go-memdb"

	"github.com/notepair-team/notepair/api/types"
	"github.com/notepair-team/notepair/server/backend/database"
)

// DB is an in-memory database.
type DB struct {
	db *memdb.MemDB
}

// New returns a new in-memory database.
func New() (*DB, error) {
	memDB, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}

	return &DB{db: memDB}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return nil
}

// CreateSession creates a new session owned by the given user.
func (d *DB) CreateSession(_ context.Context, name string, owner types.ID) (*database.SessionInfo, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	token, err := database.GenerateShareToken()
	if err != nil {
		return nil, err
	}

	now := gotime.Now()
	info := &database.SessionInfo{
		ID:         types.NewID(),
		Name:       name,
		Owner:      owner,
		ShareToken: token,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := txn.Insert(tblSessions, info); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	txn.Commit()

	return info.DeepCopy(), nil
}

// FindSession finds the session by id.
func (d *DB) FindSession(_ context.Context, id types.ID) (*database.SessionInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblSessions, "id", id.String())
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", id, database.ErrSessionNotFound)
	}

	return raw.(*database.SessionInfo).DeepCopy(), nil
}

// FindSessionByShareToken finds the session by its share token.
func (d *DB) FindSessionByShareToken(_ context.Context, token string) (*database.SessionInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblSessions, "share_token", token)
	if err != nil {
		return nil, fmt.Errorf("find session by share token: %w", err)
	}
	if raw == nil {
		return nil, database.ErrSessionNotFound
	}

	return raw.(*database.SessionInfo).DeepCopy(), nil
}

// UpdateSession applies the given fields to the session metadata.
func (d *DB) UpdateSession(
	_ context.Context,
	id types.ID,
	fields *types.UpdatableSessionFields,
) (*database.SessionInfo, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblSessions, "id", id.String())
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", id, database.ErrSessionNotFound)
	}

	info := raw.(*database.SessionInfo).DeepCopy()
	if fields.Name != nil {
		info.Name = *fields.Name
	}
	if fields.Active != nil {
		info.Active = *fields.Active
	}
	info.UpdatedAt = gotime.Now()

	if err := txn.Insert(tblSessions, info); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	txn.Commit()

	return info.DeepCopy(), nil
}

// DeleteSession deletes the session and cascades its dependents.
func (d *DB) DeleteSession(_ context.Context, id types.ID) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblSessions, "id", id.String())
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("%s: %w", id, database.ErrSessionNotFound)
	}

	if err := txn.Delete(tblSessions, raw); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	for _, tbl := range []string{tblMembers, tblComments, tblSnapshots, tblHistories} {
		if _, err := txn.DeleteAll(tbl, "session_id", id.String()); err != nil {
			return fmt.Errorf("cascade delete %s: %w", tbl, err)
		}
	}
	txn.Commit()

	return nil
}

// FindMember finds the membership of the given user in the session.
func (d *DB) FindMember(_ context.Context, sessionID types.ID, userID types.ID) (*database.MemberInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblMembers, "session_id_user_id", sessionID.String(), userID.String())
	if err != nil {
		return nil, fmt.Errorf("find member: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s in %s: %w", userID, sessionID, database.ErrMemberNotFound)
	}

	return raw.(*database.MemberInfo).DeepCopy(), nil
}

// ListMembers lists the memberships of the session.
func (d *DB) ListMembers(_ context.Context, sessionID types.ID) ([]*database.MemberInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tblMembers, "session_id", sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	var infos []*database.MemberInfo
	for raw := it.Next(); raw != nil; raw = it.Next() {
		infos = append(infos, raw.(*database.MemberInfo).DeepCopy())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].AddedAt.Before(infos[j].AddedAt)
	})

	return infos, nil
}

// UpsertMember creates or updates the membership of the given user.
func (d *DB) UpsertMember(
	_ context.Context,
	sessionID types.ID,
	userID types.ID,
	role types.Role,
) (*database.MemberInfo, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	rawSession, err := txn.First(tblSessions, "id", sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if rawSession == nil {
		return nil, fmt.Errorf("%s: %w", sessionID, database.ErrSessionNotFound)
	}
	if rawSession.(*database.SessionInfo).Owner == userID && role != types.RoleOwner {
		return nil, database.ErrOwnerRoleImmutable
	}

	raw, err := txn.First(tblMembers, "session_id_user_id", sessionID.String(), userID.String())
	if err != nil {
		return nil, fmt.Errorf("find member: %w", err)
	}

	var info *database.MemberInfo
	if raw == nil {
		info = &database.MemberInfo{
			ID:        types.NewID(),
			SessionID: sessionID,
			UserID:    userID,
			Role:      role,
			AddedAt:   gotime.Now(),
		}
	} else {
		info = raw.(*database.MemberInfo).DeepCopy()
		info.Role = role
	}

	if err := txn.Insert(tblMembers, info); err != nil {
		return nil, fmt.Errorf("upsert member: %w", err)
	}
	txn.Commit()

	return info.DeepCopy(), nil
}

// RemoveMember removes the membership of the given user.
func (d *DB) RemoveMember(_ context.Context, sessionID types.ID, userID types.ID) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblMembers, "session_id_user_id", sessionID.String(), userID.String())
	if err != nil {
		return fmt.Errorf("find member: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("%s in %s: %w", userID, sessionID, database.ErrMemberNotFound)
	}

	if err := txn.Delete(tblMembers, raw); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	txn.Commit()

	return nil
}

// CreateComment creates a comment, or a reply when parentID is set.
func (d *DB) CreateComment(
	_ context.Context,
	sessionID types.ID,
	author types.ID,
	content string,
	anchor *types.AnchorRange,
	parentID types.ID,
) (*database.CommentInfo, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	if parentID != "" {
		raw, err := txn.First(tblComments, "id", parentID.String())
		if err != nil {
			return nil, fmt.Errorf("find parent comment: %w", err)
		}
		if raw == nil {
			return nil, fmt.Errorf("%s: %w", parentID, database.ErrCommentNotFound)
		}
		parent := raw.(*database.CommentInfo)
		if parent.SessionID != sessionID || parent.ParentID != "" {
			return nil, database.ErrInvalidCommentParent
		}
	}

	now := gotime.Now()
	info := &database.CommentInfo{
		ID:        types.NewID(),
		SessionID: sessionID,
		Author:    author,
		Content:   content,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if anchor != nil {
		copied := *anchor
		info.Anchor = &copied
	}

	if err := txn.Insert(tblComments, info); err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	txn.Commit()

	return info.DeepCopy(), nil
}

// FindComment finds the comment by id within the session.
func (d *DB) FindComment(_ context.Context, sessionID types.ID, commentID types.ID) (*database.CommentInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	info, err := findComment(txn, sessionID, commentID)
	if err != nil {
		return nil, err
	}

	return info.DeepCopy(), nil
}

func findComment(txn *memdb.Txn, sessionID types.ID, commentID types.ID) (*database.CommentInfo, error) {
	raw, err := txn.First(tblComments, "id", commentID.String())
	if err != nil {
		return nil, fmt.Errorf("find comment: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", commentID, database.ErrCommentNotFound)
	}

	info := raw.(*database.CommentInfo)
	if info.SessionID != sessionID {
		return nil, fmt.Errorf("%s: %w", commentID, database.ErrCommentNotFound)
	}

	return info, nil
}

// UpdateComment replaces the content of the comment.
func (d *DB) UpdateComment(
	_ context.Context,
	sessionID types.ID,
	commentID types.ID,
	content string,
) (*database.CommentInfo, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	found, err := findComment(txn, sessionID, commentID)
	if err != nil {
		return nil, err
	}

	info := found.DeepCopy()
	info.Content = content
	info.UpdatedAt = gotime.Now()

	if err := txn.Insert(tblComments, info); err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	txn.Commit()

	return info.DeepCopy(), nil
}

// ResolveComment marks the comment as resolved.
func (d *DB) ResolveComment(
	_ context.Context,
	sessionID types.ID,
	commentID types.ID,
) (*database.CommentInfo, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	found, err := findComment(txn, sessionID, commentID)
	if err != nil {
		return nil, err
	}

	info := found.DeepCopy()
	info.Resolved = true
	info.UpdatedAt = gotime.Now()

	if err := txn.Insert(tblComments, info); err != nil {
		return nil, fmt.Errorf("resolve comment: %w", err)
	}
	txn.Commit()

	return info.DeepCopy(), nil
}

// DeleteComment deletes the comment and its replies.
func (d *DB) DeleteComment(_ context.Context, sessionID types.ID, commentID types.ID) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	found, err := findComment(txn, sessionID, commentID)
	if err != nil {
		return err
	}

	it, err := txn.Get(tblComments, "session_id", sessionID.String())
	if err != nil {
		return fmt.Errorf("list comments: %w", err)
	}
	var replies []*database.CommentInfo
	for raw := it.Next(); raw != nil; raw = it.Next() {
		comment := raw.(*database.CommentInfo)
		if comment.ParentID == commentID {
			replies = append(replies, comment)
		}
	}

	if err := txn.Delete(tblComments, found); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	for _, reply := range replies {
		if err := txn.Delete(tblComments, reply); err != nil {
			return fmt.Errorf("delete reply: %w", err)
		}
	}
	txn.Commit()

	return nil
}

// ListComments lists the comments of the session in creation order.
func (d *DB) ListComments(_ context.Context, sessionID types.ID) ([]*database.CommentInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tblComments, "session_id", sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	var infos []*database.CommentInfo
	for raw := it.Next(); raw != nil; raw = it.Next() {
		infos = append(infos, raw.(*database.CommentInfo).DeepCopy())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})

	return infos, nil
}

// CreateSnapshot captures the given full content under a name.
func (d *DB) CreateSnapshot(
	_ context.Context,
	sessionID types.ID,
	name string,
	content string,
	createdBy types.ID,
) (*database.SnapshotInfo, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	info := &database.SnapshotInfo{
		ID:        types.NewID(),
		SessionID: sessionID,
		Name:      name,
		Content:   content,
		CreatedBy: createdBy,
		CreatedAt: gotime.Now(),
	}
	if err := txn.Insert(tblSnapshots, info); err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}
	txn.Commit()

	return info.DeepCopy(), nil
}

// FindSnapshot finds the snapshot by id within the session.
func (d *DB) FindSnapshot(_ context.Context, sessionID types.ID, snapshotID types.ID) (*database.SnapshotInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblSnapshots, "id", snapshotID.String())
	if err != nil {
		return nil, fmt.Errorf("find snapshot: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", snapshotID, database.ErrSnapshotNotFound)
	}

	info := raw.(*database.SnapshotInfo)
	if info.SessionID != sessionID {
		return nil, fmt.Errorf("%s: %w", snapshotID, database.ErrSnapshotNotFound)
	}

	return info.DeepCopy(), nil
}

// ListSnapshots lists the snapshots of the session, newest first.
func (d *DB) ListSnapshots(_ context.Context, sessionID types.ID) ([]*database.SnapshotInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tblSnapshots, "session_id", sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	var infos []*database.SnapshotInfo
	for raw := it.Next(); raw != nil; raw = it.Next() {
		infos = append(infos, raw.(*database.SnapshotInfo).DeepCopy())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})

	return infos, nil
}

// DeleteSnapshot deletes the snapshot.
func (d *DB) DeleteSnapshot(_ context.Context, sessionID types.ID, snapshotID types.ID) error {
	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblSnapshots, "id", snapshotID.String())
	if err != nil {
		return fmt.Errorf("find snapshot: %w", err)
	}
	if raw == nil || raw.(*database.SnapshotInfo).SessionID != sessionID {
		return fmt.Errorf("%s: %w", snapshotID, database.ErrSnapshotNotFound)
	}

	if err := txn.Delete(tblSnapshots, raw); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	txn.Commit()

	return nil
}

// CreateHistory appends an audit entry for an edit.
func (d *DB) CreateHistory(
	_ context.Context,
	sessionID types.ID,
	userID types.ID,
	preview string,
) (*database.HistoryInfo, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	info := &database.HistoryInfo{
		ID:        types.NewID(),
		SessionID: sessionID,
		UserID:    userID,
		Preview:   database.TruncatePreview(preview),
		CreatedAt: gotime.Now(),
	}
	if err := txn.Insert(tblHistories, info); err != nil {
		return nil, fmt.Errorf("insert history: %w", err)
	}
	txn.Commit()

	return info.DeepCopy(), nil
}

// ListHistories lists audit entries of the session, newest first.
func (d *DB) ListHistories(_ context.Context, sessionID types.ID, limit int) ([]*database.HistoryInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tblHistories, "session_id", sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("list histories: %w", err)
	}

	var infos []*database.HistoryInfo
	for raw := it.Next(); raw != nil; raw = it.Next() {
		infos = append(infos, raw.(*database.HistoryInfo).DeepCopy())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	if limit > 0 && len(infos) > limit {
		infos = infos[:limit]
	}

	return infos, nil
}
