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
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrEmptySessionFields is returned when a session update carries no fields.
var ErrEmptySessionFields = errors.New("no updatable fields given")

// Session is a collaborative editing session.
type Session struct {
	// ID is the unique ID of the session.
	ID ID `json:"id"`

	// Name is the display name of the session.
	Name string `json:"name"`

	// Owner is the ID of the owning user.
	Owner ID `json:"owner"`

	// ShareToken is the public join credential of the session. Joining with
	// it grants VIEWER access without explicit membership.
	ShareToken string `json:"share_token"`

	// Active indicates whether the session accepts joins without a share
	// token.
	Active bool `json:"active"`

	// CreatedAt is the time the session was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the time the session metadata was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdatableSessionFields is the set of session metadata fields a
// session_update event may change.
type UpdatableSessionFields struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Active *bool   `json:"active,omitempty"`
}

var fieldValidator = validator.New()

// Validate returns an error if the fields are invalid or empty.
func (f *UpdatableSessionFields) Validate() error {
	if f.Name == nil && f.Active == nil {
		return ErrEmptySessionFields
	}
	return fieldValidator.Struct(f)
}
