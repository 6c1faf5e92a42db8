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

package sessions_test

import (
	"context"
	"testing"
	"time"

	"github.com/automerge/automerge-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notepair-team/notepair/api/types"
	"github.com/notepair-team/notepair/server/backend"
	"github.com/notepair-team/notepair/server/sessions"
)

func newTestBackend(t *testing.T) *backend.Backend {
	be, err := backend.New(&backend.Config{
		FlushDebounce:           "50ms",
		PresenceActivityTimeout: "30s",
		PresenceSweepInterval:   "30s",
		RestoreLockTTL:          "500ms",
	}, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, be.Shutdown())
	})
	return be
}

// editFrom simulates a connected editor: merge the full replica, insert the
// text and return the update blob.
func editFrom(t *testing.T, replica []byte, insert string) []byte {
	doc, err := automerge.Load(replica)
	require.NoError(t, err)

	require.NoError(t, doc.Path("content").Text().Insert(0, insert))
	_, err = doc.Commit("edit", automerge.CommitOptions{})
	require.NoError(t, err)

	return doc.SaveIncremental()
}

func TestJoin(t *testing.T) {
	ctx := context.Background()

	t.Run("owner joins without member row test", func(t *testing.T) {
		be := newTestBackend(t)
		coord := sessions.NewCoordinator(be)

		owner := types.NewID()
		info, err := be.DB.CreateSession(ctx, "doc", owner)
		require.NoError(t, err)

		result, err := coord.Join(ctx, info.ID, owner, "")
		assert.NoError(t, err)
		assert.Equal(t, types.RoleOwner, result.Role)
		assert.NotEmpty(t, result.Replica)
		assert.NotEmpty(t, result.Cookie)
		assert.Len(t, result.Presence, 1)
	})

	t.Run("malformed session id rejected test", func(t *testing.T) {
		be := newTestBackend(t)
		coord := sessions.NewCoordinator(be)

		_, err := coord.Join(ctx, "not-an-id", types.NewID(), "")
		assert.ErrorIs(t, err, types.ErrInvalidID)
	})

	t.Run("unrelated user rejected test", func(t *testing.T) {
		be := newTestBackend(t)
		coord := sessions.NewCoordinator(be)

		info, err := be.DB.CreateSession(ctx, "doc", types.NewID())
		require.NoError(t, err)

		_, err = coord.Join(ctx, info.ID, types.NewID(), "")
		assert.ErrorIs(t, err, sessions.ErrNoRole)
	})

	t.Run("share token grants viewer membership test", func(t *testing.T) {
		be := newTestBackend(t)
		coord := sessions.NewCoordinator(be)

		info, err := be.DB.CreateSession(ctx, "doc", types.NewID())
		require.NoError(t, err)

		guest := types.NewID()
		result, err := coord.Join(ctx, "", guest, info.ShareToken)
		assert.NoError(t, err)
		assert.Equal(t, types.RoleViewer, result.Role)

		member, err := be.DB.FindMember(ctx, info.ID, guest)
		assert.NoError(t, err)
		assert.Equal(t, types.RoleViewer, member.Role)
	})

	t.Run("inactive session test", func(t *testing.T) {
		be := newTestBackend(t)
		coord := sessions.NewCoordinator(be)

		owner := types.NewID()
		info, err := be.DB.CreateSession(ctx, "doc", owner)
		require.NoError(t, err)

		editor := types.NewID()
		_, err = be.DB.UpsertMember(ctx, info.ID, editor, types.RoleEditor)
		require.NoError(t, err)

		active := false
		_, err = be.DB.UpdateSession(ctx, info.ID, &types.UpdatableSessionFields{Active: &active})
		require.NoError(t, err)

		_, err = coord.Join(ctx, info.ID, editor, "")
		assert.ErrorIs(t, err, sessions.ErrSessionInactive)

		// The owner still gets in.
		_, err = coord.Join(ctx, info.ID, owner, "")
		assert.NoError(t, err)
	})
}

func TestRecordEdit(t *testing.T) {
	ctx := context.Background()

	t.Run("viewer edit rejected before replica test", func(t *testing.T) {
		be := newTestBackend(t)
		coord := sessions.NewCoordinator(be)

		info, err := be.DB.CreateSession(ctx, "doc", types.NewID())
		require.NoError(t, err)

		viewer := types.NewID()
		_, err = be.DB.UpsertMember(ctx, info.ID, viewer, types.RoleViewer)
		require.NoError(t, err)

		result, err := coord.Join(ctx, info.ID, viewer, "")
		require.NoError(t, err)

		err = coord.RecordEdit(ctx, info.ID, viewer, editFrom(t, result.Replica, "sneaky"))
		assert.ErrorIs(t, err, sessions.ErrEditNotAllowed)

		content, err := be.Documents.Text(ctx, info.ID)
		assert.NoError(t, err)
		assert.Equal(t, "", content)
	})

	t.Run("editor edit merges and records history test", func(t *testing.T) {
		be := newTestBackend(t)
		coord := sessions.NewCoordinator(be)

		info, err := be.DB.CreateSession(ctx, "doc", types.NewID())
		require.NoError(t, err)

		editor := types.NewID()
		_, err = be.DB.UpsertMember(ctx, info.ID, editor, types.RoleEditor)
		require.NoError(t, err)

		result, err := coord.Join(ctx, info.ID, editor, "")
		require.NoError(t, err)

		assert.NoError(t, coord.RecordEdit(ctx, info.ID, editor, editFrom(t, result.Replica, "hello")))

		content, err := be.Documents.Text(ctx, info.ID)
		assert.NoError(t, err)
		assert.Equal(t, "hello", content)

		// History is appended asynchronously.
		assert.Eventually(t, func() bool {
			entries, err := coord.History(ctx, info.ID)
			return err == nil && len(entries) == 1 && entries[0].Preview == "hello"
		}, time.Second, 10*time.Millisecond)
	})
}

func TestDrain(t *testing.T) {
	ctx := context.Background()

	t.Run("drain and rejoin test", func(t *testing.T) {
		be := newTestBackend(t)
		coord := sessions.NewCoordinator(be)

		owner := types.NewID()
		info, err := be.DB.CreateSession(ctx, "doc", owner)
		require.NoError(t, err)

		result, err := coord.Join(ctx, info.ID, owner, "")
		require.NoError(t, err)
		require.NoError(t, coord.RecordEdit(ctx, info.ID, owner, editFrom(t, result.Replica, "kept")))

		// Last leave drains: flush and evict.
		assert.NoError(t, coord.Leave(ctx, info.ID, owner))
		assert.Empty(t, coord.Participants(info.ID))

		// Rejoin hydrates from the flushed blob.
		rejoined, err := coord.Join(ctx, info.ID, owner, "")
		assert.NoError(t, err)

		doc, err := automerge.Load(rejoined.Replica)
		assert.NoError(t, err)
		content, err := doc.Path("content").Text().Get()
		assert.NoError(t, err)
		assert.Equal(t, "kept", content)
	})
}

func TestSnapshots(t *testing.T) {
	ctx := context.Background()

	t.Run("restore overwrites then builds on test", func(t *testing.T) {
		be := newTestBackend(t)
		coord := sessions.NewCoordinator(be)

		owner := types.NewID()
		info, err := be.DB.CreateSession(ctx, "doc", owner)
		require.NoError(t, err)

		result, err := coord.Join(ctx, info.ID, owner, "")
		require.NoError(t, err)

		require.NoError(t, coord.RecordEdit(ctx, info.ID, owner, editFrom(t, result.Replica, "foo")))
		snapshot, err := coord.CreateSnapshot(ctx, info.ID, owner, "base")
		require.NoError(t, err)
		assert.Equal(t, "foo", snapshot.Content)

		fresh, _, err := be.Documents.DiffSince(ctx, info.ID, nil)
		require.NoError(t, err)
		require.NoError(t, coord.RecordEdit(ctx, info.ID, owner, editFrom(t, fresh[0], "junk")))

		update, restored, err := coord.RestoreSnapshot(ctx, info.ID, owner, snapshot.ID)
		assert.NoError(t, err)
		assert.NotEmpty(t, update)
		assert.Equal(t, snapshot.ID, restored.ID)

		content, err := be.Documents.Text(ctx, info.ID)
		assert.NoError(t, err)
		assert.Equal(t, "foo", content)

		// Editing continues on top of the restored content.
		after, _, err := be.Documents.DiffSince(ctx, info.ID, nil)
		require.NoError(t, err)
		require.NoError(t, coord.RecordEdit(ctx, info.ID, owner, editFrom(t, after[0], "x")))
		content, err = be.Documents.Text(ctx, info.ID)
		assert.NoError(t, err)
		assert.Equal(t, "xfoo", content)
	})

	t.Run("restore requires owner test", func(t *testing.T) {
		be := newTestBackend(t)
		coord := sessions.NewCoordinator(be)

		owner := types.NewID()
		info, err := be.DB.CreateSession(ctx, "doc", owner)
		require.NoError(t, err)

		editor := types.NewID()
		_, err = be.DB.UpsertMember(ctx, info.ID, editor, types.RoleEditor)
		require.NoError(t, err)

		_, err = coord.Join(ctx, info.ID, editor, "")
		require.NoError(t, err)

		snapshot, err := coord.CreateSnapshot(ctx, info.ID, editor, "base")
		require.NoError(t, err)

		_, _, err = coord.RestoreSnapshot(ctx, info.ID, editor, snapshot.ID)
		assert.ErrorIs(t, err, sessions.ErrNotAllowed)
	})

	t.Run("restore lock held test", func(t *testing.T) {
		be := newTestBackend(t)
		coord := sessions.NewCoordinator(be)

		owner := types.NewID()
		info, err := be.DB.CreateSession(ctx, "doc", owner)
		require.NoError(t, err)

		_, err = coord.Join(ctx, info.ID, owner, "")
		require.NoError(t, err)
		snapshot, err := coord.CreateSnapshot(ctx, info.ID, owner, "base")
		require.NoError(t, err)

		lease, err := be.Leases.TryLease("restore/"+info.ID.String(), time.Second)
		require.NoError(t, err)
		defer lease.Release()

		_, _, err = coord.RestoreSnapshot(ctx, info.ID, owner, snapshot.ID)
		assert.ErrorIs(t, err, sessions.ErrLockTimeout)
	})
}

func TestPermissions(t *testing.T) {
	ctx := context.Background()

	t.Run("session update owner only test", func(t *testing.T) {
		be := newTestBackend(t)
		coord := sessions.NewCoordinator(be)

		owner := types.NewID()
		info, err := be.DB.CreateSession(ctx, "before", owner)
		require.NoError(t, err)

		viewer := types.NewID()
		_, err = be.DB.UpsertMember(ctx, info.ID, viewer, types.RoleViewer)
		require.NoError(t, err)

		name := "after"
		_, err = coord.UpdateSession(ctx, info.ID, viewer, &types.UpdatableSessionFields{Name: &name})
		assert.ErrorIs(t, err, sessions.ErrNotAllowed)

		updated, err := coord.UpdateSession(ctx, info.ID, owner, &types.UpdatableSessionFields{Name: &name})
		assert.NoError(t, err)
		assert.Equal(t, "after", updated.Name)
	})

	t.Run("owner role immutable via change role test", func(t *testing.T) {
		be := newTestBackend(t)
		coord := sessions.NewCoordinator(be)

		owner := types.NewID()
		info, err := be.DB.CreateSession(ctx, "doc", owner)
		require.NoError(t, err)

		_, err = coord.ChangeRole(ctx, info.ID, owner, owner, types.RoleViewer)
		assert.Error(t, err)

		target := types.NewID()
		member, err := coord.ChangeRole(ctx, info.ID, owner, target, types.RoleEditor)
		assert.NoError(t, err)
		assert.Equal(t, types.RoleEditor, member.Role)
	})
}

func TestComments(t *testing.T) {
	ctx := context.Background()

	t.Run("comment moderation test", func(t *testing.T) {
		be := newTestBackend(t)
		coord := sessions.NewCoordinator(be)

		owner := types.NewID()
		info, err := be.DB.CreateSession(ctx, "doc", owner)
		require.NoError(t, err)

		viewer := types.NewID()
		_, err = be.DB.UpsertMember(ctx, info.ID, viewer, types.RoleViewer)
		require.NoError(t, err)

		// Viewers may comment.
		comment, err := coord.AddComment(ctx, info.ID, viewer, "a thought", nil, "")
		assert.NoError(t, err)

		// Only the author edits their comment.
		_, err = coord.UpdateComment(ctx, info.ID, owner, comment.ID, "rewritten")
		assert.ErrorIs(t, err, sessions.ErrNotAllowed)
		updated, err := coord.UpdateComment(ctx, info.ID, viewer, comment.ID, "rewritten")
		assert.NoError(t, err)
		assert.Equal(t, "rewritten", updated.Content)

		// Viewers may not resolve.
		_, err = coord.ResolveComment(ctx, info.ID, viewer, comment.ID)
		assert.ErrorIs(t, err, sessions.ErrNotAllowed)
		_, err = coord.ResolveComment(ctx, info.ID, owner, comment.ID)
		assert.NoError(t, err)

		// The owner may delete another author's comment.
		assert.NoError(t, coord.DeleteComment(ctx, info.ID, owner, comment.ID))
	})
}
