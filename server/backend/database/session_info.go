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

// SessionInfo is the database representation of a session.
type SessionInfo struct {
	// ID is the unique ID of the session.
	ID types.ID `bson:"_id"`

	// Name is the display name of the session.
	Name string `bson:"name"`

	// Owner is the ID of the owning user.
	Owner types.ID `bson:"owner"`

	// ShareToken is the public join credential of the session.
	ShareToken string `bson:"share_token"`

	// Active indicates whether the session accepts joins without a share
	// token.
	Active bool `bson:"active"`

	// CreatedAt is the time the session was created.
	CreatedAt time.Time `bson:"created_at"`

	// UpdatedAt is the time the session metadata was last updated.
	UpdatedAt time.Time `bson:"updated_at"`
}

// DeepCopy returns a deep copy of this SessionInfo.
func (i *SessionInfo) DeepCopy() *SessionInfo {
	if i == nil {
		return nil
	}
	copied := *i
	return &copied
}

// ToSession converts this SessionInfo to a Session.
func (i *SessionInfo) ToSession() *types.Session {
	return &types.Session{
		ID:         i.ID,
		Name:       i.Name,
		Owner:      i.Owner,
		ShareToken: i.ShareToken,
		Active:     i.Active,
		CreatedAt:  i.CreatedAt,
		UpdatedAt:  i.UpdatedAt,
	}
}
