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

package types

import "time"

// AnchorRange is the optional document range a comment is attached to.
type AnchorRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Comment is a comment on a session. Replies form a one-level thread: a
// reply's ParentID always points to a top-level comment, never to another
// reply.
type Comment struct {
	// ID is the unique ID of the comment.
	ID ID `json:"id"`

	// SessionID is the ID of the session the comment belongs to.
	SessionID ID `json:"session_id"`

	// Author is the ID of the authoring user.
	Author ID `json:"author"`

	// Content is the text of the comment.
	Content string `json:"content"`

	// Anchor is the optional range of the document the comment refers to.
	Anchor *AnchorRange `json:"anchor,omitempty"`

	// ParentID is the top-level comment this comment replies to, if any.
	ParentID ID `json:"parent_id,omitempty"`

	// Resolved indicates whether the comment thread has been resolved.
	Resolved bool `json:"resolved"`

	// CreatedAt is the time the comment was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the time the comment was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}
