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

// Package types provides the types shared between the server packages and
// the wire protocol.
package types

import (
	"errors"
	"fmt"

	"github.com/rs/xid"
)

// ErrInvalidID is returned when the given ID is malformed.
var ErrInvalidID = errors.New("invalid ID")

// ID represents the identity of an entity such as a session, user, member,
// comment or snapshot.
type ID string

// NewID creates a new globally unique ID.
func NewID() ID {
	return ID(xid.New().String())
}

// String returns the string representation of this ID.
func (id ID) String() string {
	return string(id)
}

// Validate returns an error if this ID is malformed.
func (id ID) Validate() error {
	if _, err := xid.FromString(id.String()); err != nil {
		return fmt.Errorf("%s: %w", id, ErrInvalidID)
	}
	return nil
}
