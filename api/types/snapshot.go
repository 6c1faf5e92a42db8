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

// Snapshot is a named, point-in-time capture of a session's full content.
// It carries no causal metadata; restoring it overwrites the live replica
// rather than merging (a privileged operation, not a commutative one).
type Snapshot struct {
	// ID is the unique ID of the snapshot.
	ID ID `json:"id"`

	// SessionID is the ID of the captured session.
	SessionID ID `json:"session_id"`

	// Name is the display name of the snapshot.
	Name string `json:"name"`

	// Content is the full text content at capture time.
	Content string `json:"content"`

	// CreatedBy is the ID of the user who took the snapshot.
	CreatedBy ID `json:"created_by"`

	// CreatedAt is the capture time.
	CreatedAt time.Time `json:"created_at"`
}
