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

// Package mongo implements database interfaces using MongoDB.
package mongo

import (
	"context"
	"fmt"
	gotime "time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/notepair-team/notepair/api/types"
	"github.com/notepair-team/notepair/server/backend/database"
	"github.com/notepair-team/notepair/server/logging"
)

// Client is a client that connects to Mongo DB and reads or saves Notepair
// data.
type Client struct {
	config *Config
	client *mongo.Client
}

// Dial creates an instance of Client and dials the given MongoDB.
func Dial(conf *Config) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.ParseConnectionTimeout())
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.ConnectionURI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	ctxPing, cancel := context.WithTimeout(ctx, conf.ParsePingTimeout())
	defer cancel()

	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	if err := ensureIndexes(ctx, client.Database(conf.NotepairDatabase)); err != nil {
		return nil, err
	}

	logging.DefaultLogger().Infof(
		"MongoDB connected, URI: %s, DB: %s",
		conf.ConnectionURI,
		conf.NotepairDatabase,
	)

	return &Client{
		config: conf,
		client: client,
	}, nil
}

// Close all resources of this client.
func (c *Client) Close() error {
	if err := c.client.Disconnect(context.Background()); err != nil {
		return fmt.Errorf("disconnect from mongo: %w", err)
	}

	return nil
}

func (c *Client) collection(name string) *mongo.Collection {
	return c.client.Database(c.config.NotepairDatabase).Collection(name)
}

// CreateSession creates a new session owned by the given user with a fresh
// share token.
func (c *Client) CreateSession(
	ctx context.Context,
	name string,
	owner types.ID,
) (*database.SessionInfo, error) {
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

	if _, err := c.collection(ColSessions).InsertOne(ctx, info); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return info, nil
}

// FindSession finds the session by id.
func (c *Client) FindSession(ctx context.Context, id types.ID) (*database.SessionInfo, error) {
	result := c.collection(ColSessions).FindOne(ctx, bson.M{"_id": id})

	info := &database.SessionInfo{}
	if err := result.Decode(info); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%s: %w", id, database.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("find session: %w", err)
	}

	return info, nil
}

// FindSessionByShareToken finds the session by its share token.
func (c *Client) FindSessionByShareToken(
	ctx context.Context,
	token string,
) (*database.SessionInfo, error) {
	result := c.collection(ColSessions).FindOne(ctx, bson.M{"share_token": token})

	info := &database.SessionInfo{}
	if err := result.Decode(info); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("find session by token: %w", database.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("find session by token: %w", err)
	}

	return info, nil
}

// UpdateSession applies the given fields to the session metadata.
func (c *Client) UpdateSession(
	ctx context.Context,
	id types.ID,
	fields *types.UpdatableSessionFields,
) (*database.SessionInfo, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	updates := bson.M{"updated_at": gotime.Now()}
	if fields.Name != nil {
		updates["name"] = *fields.Name
	}
	if fields.Active != nil {
		updates["active"] = *fields.Active
	}

	result := c.collection(ColSessions).FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	info := &database.SessionInfo{}
	if err := result.Decode(info); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%s: %w", id, database.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("update session: %w", err)
	}

	return info, nil
}

// DeleteSession deletes the session and cascades its members, comments,
// snapshots and history.
func (c *Client) DeleteSession(ctx context.Context, id types.ID) error {
	result, err := c.collection(ColSessions).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", id, database.ErrSessionNotFound)
	}

	for _, col := range []string{ColMembers, ColComments, ColSnapshots, ColHistories} {
		if _, err := c.collection(col).DeleteMany(ctx, bson.M{"session_id": id}); err != nil {
			return fmt.Errorf("delete %s of %s: %w", col, id, err)
		}
	}

	return nil
}

// FindMember finds the membership of the given user in the session.
func (c *Client) FindMember(
	ctx context.Context,
	sessionID types.ID,
	userID types.ID,
) (*database.MemberInfo, error) {
	result := c.collection(ColMembers).FindOne(ctx, bson.M{
		"session_id": sessionID,
		"user_id":    userID,
	})

	info := &database.MemberInfo{}
	if err := result.Decode(info); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%s in %s: %w", userID, sessionID, database.ErrMemberNotFound)
		}
		return nil, fmt.Errorf("find member: %w", err)
	}

	return info, nil
}

// ListMembers lists the memberships of the session.
func (c *Client) ListMembers(
	ctx context.Context,
	sessionID types.ID,
) ([]*database.MemberInfo, error) {
	cursor, err := c.collection(ColMembers).Find(
		ctx,
		bson.M{"session_id": sessionID},
		options.Find().SetSort(bson.D{{Key: "added_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	var infos []*database.MemberInfo
	if err := cursor.All(ctx, &infos); err != nil {
		return nil, fmt.Errorf("decode members: %w", err)
	}

	return infos, nil
}

// UpsertMember creates or updates the membership of the given user with the
// given role. The session owner's role cannot be changed.
func (c *Client) UpsertMember(
	ctx context.Context,
	sessionID types.ID,
	userID types.ID,
	role types.Role,
) (*database.MemberInfo, error) {
	session, err := c.FindSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Owner == userID && role != types.RoleOwner {
		return nil, fmt.Errorf("%s: %w", userID, database.ErrOwnerRoleImmutable)
	}

	result := c.collection(ColMembers).FindOneAndUpdate(
		ctx,
		bson.M{
			"session_id": sessionID,
			"user_id":    userID,
		},
		bson.M{
			"$set": bson.M{"role": role},
			"$setOnInsert": bson.M{
				"_id":      types.NewID(),
				"added_at": gotime.Now(),
			},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)

	info := &database.MemberInfo{}
	if err := result.Decode(info); err != nil {
		return nil, fmt.Errorf("upsert member: %w", err)
	}

	return info, nil
}

// RemoveMember removes the membership of the given user.
func (c *Client) RemoveMember(ctx context.Context, sessionID types.ID, userID types.ID) error {
	result, err := c.collection(ColMembers).DeleteOne(ctx, bson.M{
		"session_id": sessionID,
		"user_id":    userID,
	})
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%s in %s: %w", userID, sessionID, database.ErrMemberNotFound)
	}

	return nil
}

// CreateComment creates a comment, or a reply when parentID is set.
func (c *Client) CreateComment(
	ctx context.Context,
	sessionID types.ID,
	author types.ID,
	content string,
	anchor *types.AnchorRange,
	parentID types.ID,
) (*database.CommentInfo, error) {
	if parentID != "" {
		parent, err := c.FindComment(ctx, sessionID, parentID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", parentID, database.ErrInvalidCommentParent)
		}
		if parent.ParentID != "" {
			return nil, fmt.Errorf("%s is a reply: %w", parentID, database.ErrInvalidCommentParent)
		}
	}

	now := gotime.Now()
	info := &database.CommentInfo{
		ID:        types.NewID(),
		SessionID: sessionID,
		Author:    author,
		Content:   content,
		Anchor:    anchor,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := c.collection(ColComments).InsertOne(ctx, info); err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}

	return info, nil
}

// FindComment finds the comment by id within the session.
func (c *Client) FindComment(
	ctx context.Context,
	sessionID types.ID,
	commentID types.ID,
) (*database.CommentInfo, error) {
	result := c.collection(ColComments).FindOne(ctx, bson.M{
		"_id":        commentID,
		"session_id": sessionID,
	})

	info := &database.CommentInfo{}
	if err := result.Decode(info); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%s: %w", commentID, database.ErrCommentNotFound)
		}
		return nil, fmt.Errorf("find comment: %w", err)
	}

	return info, nil
}

// UpdateComment replaces the content of the comment.
func (c *Client) UpdateComment(
	ctx context.Context,
	sessionID types.ID,
	commentID types.ID,
	content string,
) (*database.CommentInfo, error) {
	return c.findCommentAndUpdate(ctx, sessionID, commentID, bson.M{
		"content":    content,
		"updated_at": gotime.Now(),
	})
}

// ResolveComment marks the comment as resolved.
func (c *Client) ResolveComment(
	ctx context.Context,
	sessionID types.ID,
	commentID types.ID,
) (*database.CommentInfo, error) {
	return c.findCommentAndUpdate(ctx, sessionID, commentID, bson.M{
		"resolved":   true,
		"updated_at": gotime.Now(),
	})
}

func (c *Client) findCommentAndUpdate(
	ctx context.Context,
	sessionID types.ID,
	commentID types.ID,
	updates bson.M,
) (*database.CommentInfo, error) {
	result := c.collection(ColComments).FindOneAndUpdate(
		ctx,
		bson.M{
			"_id":        commentID,
			"session_id": sessionID,
		},
		bson.M{"$set": updates},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	info := &database.CommentInfo{}
	if err := result.Decode(info); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%s: %w", commentID, database.ErrCommentNotFound)
		}
		return nil, fmt.Errorf("update comment: %w", err)
	}

	return info, nil
}

// DeleteComment deletes the comment and its replies.
func (c *Client) DeleteComment(ctx context.Context, sessionID types.ID, commentID types.ID) error {
	result, err := c.collection(ColComments).DeleteOne(ctx, bson.M{
		"_id":        commentID,
		"session_id": sessionID,
	})
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", commentID, database.ErrCommentNotFound)
	}

	if _, err := c.collection(ColComments).DeleteMany(ctx, bson.M{
		"session_id": sessionID,
		"parent_id":  commentID,
	}); err != nil {
		return fmt.Errorf("delete replies of %s: %w", commentID, err)
	}

	return nil
}

// ListComments lists the comments of the session in creation order.
func (c *Client) ListComments(
	ctx context.Context,
	sessionID types.ID,
) ([]*database.CommentInfo, error) {
	cursor, err := c.collection(ColComments).Find(
		ctx,
		bson.M{"session_id": sessionID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	var infos []*database.CommentInfo
	if err := cursor.All(ctx, &infos); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}

	return infos, nil
}

// CreateSnapshot captures the given full content under a name.
func (c *Client) CreateSnapshot(
	ctx context.Context,
	sessionID types.ID,
	name string,
	content string,
	createdBy types.ID,
) (*database.SnapshotInfo, error) {
	info := &database.SnapshotInfo{
		ID:        types.NewID(),
		SessionID: sessionID,
		Name:      name,
		Content:   content,
		CreatedBy: createdBy,
		CreatedAt: gotime.Now(),
	}

	if _, err := c.collection(ColSnapshots).InsertOne(ctx, info); err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	return info, nil
}

// FindSnapshot finds the snapshot by id within the session.
func (c *Client) FindSnapshot(
	ctx context.Context,
	sessionID types.ID,
	snapshotID types.ID,
) (*database.SnapshotInfo, error) {
	result := c.collection(ColSnapshots).FindOne(ctx, bson.M{
		"_id":        snapshotID,
		"session_id": sessionID,
	})

	info := &database.SnapshotInfo{}
	if err := result.Decode(info); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%s: %w", snapshotID, database.ErrSnapshotNotFound)
		}
		return nil, fmt.Errorf("find snapshot: %w", err)
	}

	return info, nil
}

// ListSnapshots lists the snapshots of the session, newest first.
func (c *Client) ListSnapshots(
	ctx context.Context,
	sessionID types.ID,
) ([]*database.SnapshotInfo, error) {
	cursor, err := c.collection(ColSnapshots).Find(
		ctx,
		bson.M{"session_id": sessionID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	var infos []*database.SnapshotInfo
	if err := cursor.All(ctx, &infos); err != nil {
		return nil, fmt.Errorf("decode snapshots: %w", err)
	}

	return infos, nil
}

// DeleteSnapshot deletes the snapshot.
func (c *Client) DeleteSnapshot(ctx context.Context, sessionID types.ID, snapshotID types.ID) error {
	result, err := c.collection(ColSnapshots).DeleteOne(ctx, bson.M{
		"_id":        snapshotID,
		"session_id": sessionID,
	})
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", snapshotID, database.ErrSnapshotNotFound)
	}

	return nil
}

// CreateHistory appends an audit entry for an edit.
func (c *Client) CreateHistory(
	ctx context.Context,
	sessionID types.ID,
	userID types.ID,
	preview string,
) (*database.HistoryInfo, error) {
	info := &database.HistoryInfo{
		ID:        types.NewID(),
		SessionID: sessionID,
		UserID:    userID,
		Preview:   database.TruncatePreview(preview),
		CreatedAt: gotime.Now(),
	}

	if _, err := c.collection(ColHistories).InsertOne(ctx, info); err != nil {
		return nil, fmt.Errorf("insert history: %w", err)
	}

	return info, nil
}

// ListHistories lists audit entries of the session, newest first, limited to
// the given count.
func (c *Client) ListHistories(
	ctx context.Context,
	sessionID types.ID,
	limit int,
) ([]*database.HistoryInfo, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := c.collection(ColHistories).Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list histories: %w", err)
	}

	var infos []*database.HistoryInfo
	if err := cursor.All(ctx, &infos); err != nil {
		return nil, fmt.Errorf("decode histories: %w", err)
	}

	return infos, nil
}
