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

// HistoryPreviewLength is the maximum length of the content preview stored
// with an audit entry.
const HistoryPreviewLength = 120

// HistoryInfo is an append-only audit entry recorded for each edit.
type HistoryInfo struct {
	// ID is the unique ID of the entry.
	ID types.ID `bson:"_id"`

	// SessionID is the ID of the edited session.
	SessionID types.ID `bson:"session_id"`

	// UserID is the ID of the editing user.
	UserID types.ID `bson:"user_id"`

	// Preview is the truncated resulting content of the edit.
	Preview string `bson:"preview"`

	// CreatedAt is the time the edit was recorded.
	CreatedAt time.Time `bson:"created_at"`
}

// DeepCopy returns a deep copy of this HistoryInfo.
func (i *HistoryInfo) DeepCopy() *HistoryInfo {
	if i == nil {
		return nil
	}
	copied := *i
	return &copied
}

// ToHistoryEntry converts this HistoryInfo to a HistoryEntry.
func (i *HistoryInfo) ToHistoryEntry() *types.HistoryEntry {
	return &types.HistoryEntry{
		ID:        i.ID,
		SessionID: i.SessionID,
		UserID:    i.UserID,
		Preview:   i.Preview,
		CreatedAt: i.CreatedAt,
	}
}

// TruncatePreview truncates the given content to the stored preview length.
func TruncatePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= HistoryPreviewLength {
		return content
	}
	return string(runes[:HistoryPreviewLength])
}
