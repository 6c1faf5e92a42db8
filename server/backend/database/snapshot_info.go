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

package database

import (
	"time"

	"github.com/notepair-team/notepair/api/types"
)

// SnapshotInfo is the database representation of a named content snapshot.
type SnapshotInfo struct {
	// ID is the unique ID of the snapshot.
	ID types.ID `bson:"_id"`

	// SessionID is the ID of the captured session.
	SessionID types.ID `bson:"session_id"`

	// Name is the display name of the snapshot.
	Name string `bson:"name"`

	// Content is the full text content at capture time.
	Content string `bson:"content"`

	// CreatedBy is the ID of the user who took the snapshot.
	CreatedBy types.ID `bson:"created_by"`

	// CreatedAt is the capture time.
	CreatedAt time.Time `bson:"created_at"`
}

// DeepCopy returns a deep copy of this SnapshotInfo.
func (i *SnapshotInfo) DeepCopy() *SnapshotInfo {
	if i == nil {
		return nil
	}
	copied := *i
	return &copied
}

// ToSnapshot converts this SnapshotInfo to a Snapshot.
func (i *SnapshotInfo) ToSnapshot() *types.Snapshot {
	return &types.Snapshot{
		ID:        i.ID,
		SessionID: i.SessionID,
		Name:      i.Name,
		Content:   i.Content,
		CreatedBy: i.CreatedBy,
		CreatedAt: i.CreatedAt,
	}
}
