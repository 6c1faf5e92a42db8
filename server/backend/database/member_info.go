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

// MemberInfo is the database representation of a membership.
type MemberInfo struct {
	// ID is the unique ID of the membership row.
	ID types.ID `bson:"_id"`

	// SessionID is the ID of the session.
	SessionID types.ID `bson:"session_id"`

	// UserID is the ID of the user.
	UserID types.ID `bson:"user_id"`

	// Role is the role of the user in the session.
	Role types.Role `bson:"role"`

	// AddedAt is the time the membership was created.
	AddedAt time.Time `bson:"added_at"`
}

// DeepCopy returns a deep copy of this MemberInfo.
func (i *MemberInfo) DeepCopy() *MemberInfo {
	if i == nil {
		return nil
	}
	copied := *i
	return &copied
}

// ToMember converts this MemberInfo to a Member.
func (i *MemberInfo) ToMember() *types.Member {
	return &types.Member{
		ID:        i.ID,
		SessionID: i.SessionID,
		UserID:    i.UserID,
		Role:      i.Role,
		AddedAt:   i.AddedAt,
	}
}
