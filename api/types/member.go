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

import (
	"time"
)

// Member is a (user, session, role) relationship. It is unique per
// (user, session).
type Member struct {
	// ID is the unique ID of the membership row.
	ID ID `json:"id"`

	// SessionID is the ID of the session.
	SessionID ID `json:"session_id"`

	// UserID is the ID of the user.
	UserID ID `json:"user_id"`

	// Role is the role of the user in the session.
	Role Role `json:"role"`

	// AddedAt is the time the membership was created.
	AddedAt time.Time `json:"added_at"`
}
