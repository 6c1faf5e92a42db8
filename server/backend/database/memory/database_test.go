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

package memory_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notepair-team/notepair/api/types"
	"github.com/notepair-team/notepair/server/backend/database"
	"github.com/notepair-team/notepair/server/backend/database/memory"
)

func TestSessionCRUD(t *testing.T) {
	ctx := context.Background()
	owner := types.NewID()

	t.Run("create and find test", func(t *testing.T) {
		db, err := memory.New()
		assert.NoError(t, err)

		created, err := db.CreateSession(ctx, "design doc", owner)
		assert.NoError(t, err)
		assert.NotEmpty(t, created.ShareToken)
		assert.True(t, created.Active)

		found, err := db.FindSession(ctx, created.ID)
		assert.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, "design doc", found.Name)

		byToken, err := db.FindSessionByShareToken(ctx, created.ShareToken)
		assert.NoError(t, err)
		assert.Equal(t, created.ID, byToken.ID)

		_, err = db.FindSession(ctx, types.NewID())
		assert.ErrorIs(t, err, database.ErrSessionNotFound)
	})

	t.Run("update fields test", func(t *testing.T) {
		db, err := memory.New()
		assert.NoError(t, err)

		created, err := db.CreateSession(ctx, "before", owner)
		assert.NoError(t, err)

		name := "after"
		active := false
		updated, err := db.UpdateSession(ctx, created.ID, &types.UpdatableSessionFields{
			Name:   &name,
			Active: &active,
		})
		assert.NoError(t, err)
		assert.Equal(t, "after", updated.Name)
		assert.False(t, updated.Active)
	})

	t.Run("update rejects invalid fields test", func(t *testing.T) {
		db, err := memory.New()
		assert.NoError(t, err)

		created, err := db.CreateSession(ctx, "before", owner)
		assert.NoError(t, err)

		_, err = db.UpdateSession(ctx, created.ID, &types.UpdatableSessionFields{})
		assert.ErrorIs(t, err, types.ErrEmptySessionFields)

		tooLong := strings.Repeat("n", 201)
		_, err = db.UpdateSession(ctx, created.ID, &types.UpdatableSessionFields{
			Name: &tooLong,
		})
		assert.Error(t, err)

		// The stored metadata is untouched after rejected updates.
		info, err := db.FindSession(ctx, created.ID)
		assert.NoError(t, err)
		assert.Equal(t, "before", info.Name)
	})

	t.Run("delete cascades test", func(t *testing.T) {
		db, err := memory.New()
		assert.NoError(t, err)

		created, err := db.CreateSession(ctx, "doomed", owner)
		assert.NoError(t, err)

		editor := types.NewID()
		_, err = db.UpsertMember(ctx, created.ID, editor, types.RoleEditor)
		assert.NoError(t, err)
		_, err = db.CreateComment(ctx, created.ID, editor, "hello", nil, "")
		assert.NoError(t, err)
		_, err = db.CreateSnapshot(ctx, created.ID, "v1", "content", owner)
		assert.NoError(t, err)
		_, err = db.CreateHistory(ctx, created.ID, editor, "content")
		assert.NoError(t, err)

		assert.NoError(t, db.DeleteSession(ctx, created.ID))

		_, err = db.FindSession(ctx, created.ID)
		assert.ErrorIs(t, err, database.ErrSessionNotFound)
		members, err := db.ListMembers(ctx, created.ID)
		assert.NoError(t, err)
		assert.Empty(t, members)
		comments, err := db.ListComments(ctx, created.ID)
		assert.NoError(t, err)
		assert.Empty(t, comments)
		snapshots, err := db.ListSnapshots(ctx, created.ID)
		assert.NoError(t, err)
		assert.Empty(t, snapshots)
	})
}

func TestMembers(t *testing.T) {
	ctx := context.Background()

	t.Run("upsert unique per user test", func(t *testing.T) {
		db, err := memory.New()
		assert.NoError(t, err)

		owner := types.NewID()
		session, err := db.CreateSession(ctx, "s", owner)
		assert.NoError(t, err)

		user := types.NewID()
		first, err := db.UpsertMember(ctx, session.ID, user, types.RoleViewer)
		assert.NoError(t, err)

		second, err := db.UpsertMember(ctx, session.ID, user, types.RoleEditor)
		assert.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, types.RoleEditor, second.Role)

		members, err := db.ListMembers(ctx, session.ID)
		assert.NoError(t, err)
		assert.Len(t, members, 1)
	})

	t.Run("owner role immutable test", func(t *testing.T) {
		db, err := memory.New()
		assert.NoError(t, err)

		owner := types.NewID()
		session, err := db.CreateSession(ctx, "s", owner)
		assert.NoError(t, err)

		_, err = db.UpsertMember(ctx, session.ID, owner, types.RoleViewer)
		assert.ErrorIs(t, err, database.ErrOwnerRoleImmutable)
	})

	t.Run("remove member test", func(t *testing.T) {
		db, err := memory.New()
		assert.NoError(t, err)

		owner := types.NewID()
		session, err := db.CreateSession(ctx, "s", owner)
		assert.NoError(t, err)

		user := types.NewID()
		_, err = db.UpsertMember(ctx, session.ID, user, types.RoleViewer)
		assert.NoError(t, err)
		assert.NoError(t, db.RemoveMember(ctx, session.ID, user))

		_, err = db.FindMember(ctx, session.ID, user)
		assert.ErrorIs(t, err, database.ErrMemberNotFound)
	})
}

func TestComments(t *testing.T) {
	ctx := context.Background()

	t.Run("one level threads test", func(t *testing.T) {
		db, err := memory.New()
		assert.NoError(t, err)

		owner := types.NewID()
		session, err := db.CreateSession(ctx, "s", owner)
		assert.NoError(t, err)

		top, err := db.CreateComment(ctx, session.ID, owner, "top", nil, "")
		assert.NoError(t, err)

		reply, err := db.CreateComment(ctx, session.ID, owner, "reply", nil, top.ID)
		assert.NoError(t, err)
		assert.Equal(t, top.ID, reply.ParentID)

		// A reply cannot itself be a parent.
		_, err = db.CreateComment(ctx, session.ID, owner, "nested", nil, reply.ID)
		assert.ErrorIs(t, err, database.ErrInvalidCommentParent)
	})

	t.Run("delete removes replies test", func(t *testing.T) {
		db, err := memory.New()
		assert.NoError(t, err)

		owner := types.NewID()
		session, err := db.CreateSession(ctx, "s", owner)
		assert.NoError(t, err)

		top, err := db.CreateComment(ctx, session.ID, owner, "top", nil, "")
		assert.NoError(t, err)
		_, err = db.CreateComment(ctx, session.ID, owner, "reply", nil, top.ID)
		assert.NoError(t, err)

		assert.NoError(t, db.DeleteComment(ctx, session.ID, top.ID))

		comments, err := db.ListComments(ctx, session.ID)
		assert.NoError(t, err)
		assert.Empty(t, comments)
	})

	t.Run("resolve and update test", func(t *testing.T) {
		db, err := memory.New()
		assert.NoError(t, err)

		owner := types.NewID()
		session, err := db.CreateSession(ctx, "s", owner)
		assert.NoError(t, err)

		comment, err := db.CreateComment(ctx, session.ID, owner, "before", &types.AnchorRange{Start: 1, End: 3}, "")
		assert.NoError(t, err)

		updated, err := db.UpdateComment(ctx, session.ID, comment.ID, "after")
		assert.NoError(t, err)
		assert.Equal(t, "after", updated.Content)

		resolved, err := db.ResolveComment(ctx, session.ID, comment.ID)
		assert.NoError(t, err)
		assert.True(t, resolved.Resolved)
	})
}

func TestSnapshotsAndHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("snapshots newest first test", func(t *testing.T) {
		db, err := memory.New()
		assert.NoError(t, err)

		owner := types.NewID()
		session, err := db.CreateSession(ctx, "s", owner)
		assert.NoError(t, err)

		_, err = db.CreateSnapshot(ctx, session.ID, "v1", "one", owner)
		assert.NoError(t, err)
		second, err := db.CreateSnapshot(ctx, session.ID, "v2", "two", owner)
		assert.NoError(t, err)

		snapshots, err := db.ListSnapshots(ctx, session.ID)
		assert.NoError(t, err)
		assert.Len(t, snapshots, 2)
		assert.Equal(t, second.ID, snapshots[0].ID)
	})

	t.Run("history preview truncation test", func(t *testing.T) {
		db, err := memory.New()
		assert.NoError(t, err)

		owner := types.NewID()
		session, err := db.CreateSession(ctx, "s", owner)
		assert.NoError(t, err)

		long := make([]rune, database.HistoryPreviewLength*2)
		for i := range long {
			long[i] = 'x'
		}
		entry, err := db.CreateHistory(ctx, session.ID, owner, string(long))
		assert.NoError(t, err)
		assert.Len(t, []rune(entry.Preview), database.HistoryPreviewLength)

		entries, err := db.ListHistories(ctx, session.ID, 10)
		assert.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}
