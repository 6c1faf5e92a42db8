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

// CommentInfo is the database representation of a comment.
type CommentInfo struct {
	// ID is the unique ID of the comment.
	ID types.ID `bson:"_id"`

	// SessionID is the ID of the session the comment belongs to.
	SessionID types.ID `bson:"session_id"`

	// Author is the ID of the authoring user.
	Author types.ID `bson:"author"`

	// Content is the text of the comment.
	Content string `bson:"content"`

	// Anchor is the optional document range the comment refers to.
	Anchor *types.AnchorRange `bson:"anchor,omitempty"`

	// ParentID is the top-level comment this comment replies to, if any.
	ParentID types.ID `bson:"parent_id,omitempty"`

	// Resolved indicates whether the comment thread has been resolved.
	Resolved bool `bson:"resolved"`

	// CreatedAt is the time the comment was created.
	CreatedAt time.Time `bson:"created_at"`

	// UpdatedAt is the time the comment was last updated.
	UpdatedAt time.Time `bson:"updated_at"`
}

// DeepCopy returns a deep copy of this CommentInfo.
func (i *CommentInfo) DeepCopy() *CommentInfo {
	if i == nil {
		return nil
	}
	copied := *i
	if i.Anchor != nil {
		anchor := *i.Anchor
		copied.Anchor = &anchor
	}
	return &copied
}

// ToComment converts this CommentInfo to a Comment.
func (i *CommentInfo) ToComment() *types.Comment {
	comment := &types.Comment{
		ID:        i.ID,
		SessionID: i.SessionID,
		Author:    i.Author,
		Content:   i.Content,
		ParentID:  i.ParentID,
		Resolved:  i.Resolved,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
	if i.Anchor != nil {
		anchor := *i.Anchor
		comment.Anchor = &anchor
	}
	return comment
}
