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

// Cursor is the ephemeral cursor state of a participant.
type Cursor struct {
	// Position is the caret position in the document.
	Position int `json:"position"`

	// SelectionStart and SelectionEnd delimit the selection, if any.
	SelectionStart int `json:"selection_start"`
	SelectionEnd   int `json:"selection_end"`

	// Typing indicates whether the participant is currently typing.
	Typing bool `json:"typing"`

	// Focused indicates whether the participant's editor has focus.
	Focused bool `json:"focused"`
}

// PresenceRecord is the liveness and cursor state of one participant in one
// session. It is never persisted and is recreated on reconnect.
type PresenceRecord struct {
	// UserID is the ID of the participant.
	UserID ID `json:"user_id"`

	// Cursor is the participant's last reported cursor state.
	Cursor Cursor `json:"cursor"`

	// LastSeen is the time of the participant's last activity.
	LastSeen time.Time `json:"last_seen"`

	// Active is computed at snapshot time: whether LastSeen is within the
	// activity timeout.
	Active bool `json:"active"`
}
