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

// HistoryEntry is one audit record of a session's edit history.
type HistoryEntry struct {
	// ID is the unique ID of the entry.
	ID ID `json:"id"`

	// SessionID is the ID of the edited session.
	SessionID ID `json:"session_id"`

	// UserID is the ID of the editing user.
	UserID ID `json:"user_id"`

	// Preview is a truncated preview of the content after the edit.
	Preview string `json:"preview"`

	// CreatedAt is the time the edit was recorded.
	CreatedAt time.Time `json:"created_at"`
}
