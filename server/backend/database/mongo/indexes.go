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

package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// ColSessions is the name of the collection for sessions.
	ColSessions = "sessions"
	// ColMembers is the name of the collection for session memberships.
	ColMembers = "members"
	// ColComments is the name of the collection for comments.
	ColComments = "comments"
	// ColSnapshots is the name of the collection for snapshots.
	ColSnapshots = "snapshots"
	// ColHistories is the name of the collection for edit history.
	ColHistories = "histories"
)

type collectionInfo struct {
	name    string
	indexes []mongo.IndexModel
}

var collectionInfos = []collectionInfo{
	{
		name: ColSessions,
		indexes: []mongo.IndexModel{{
			Keys:    bson.D{{Key: "share_token", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
	},
	{
		name: ColMembers,
		indexes: []mongo.IndexModel{{
			Keys: bson.D{
				{Key: "session_id", Value: 1},
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		}, {
			Keys: bson.D{{Key: "session_id", Value: 1}},
		}},
	},
	{
		name: ColComments,
		indexes: []mongo.IndexModel{{
			Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "created_at", Value: 1}},
		}},
	},
	{
		name: ColSnapshots,
		indexes: []mongo.IndexModel{{
			Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "created_at", Value: -1}},
		}},
	},
	{
		name: ColHistories,
		indexes: []mongo.IndexModel{{
			Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "created_at", Value: -1}},
		}},
	},
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, info := range collectionInfos {
		if len(info.indexes) == 0 {
			continue
		}
		if _, err := db.Collection(info.name).Indexes().CreateMany(ctx, info.indexes); err != nil {
			return fmt.Errorf("create indexes for %s: %w", info.name, err)
		}
	}

	return nil
}
