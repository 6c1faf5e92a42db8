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

// Package blob provides the store for serialized replica documents. Each
// session keeps at most one blob, the result of the latest flush, and the
// blob is the source a replica is hydrated from on load.
package blob

import (
	"context"

	"github.com/notepair-team/notepair/api/types"
	"github.com/notepair-team/notepair/pkg/errors"
)

// ErrBlobNotFound is returned when no blob has been stored for the session.
var ErrBlobNotFound = errors.NotFound("blob not found").WithCode("ErrBlobNotFound")

// Store is the persistence layer for replica documents keyed by session id.
type Store interface {
	// Put stores the blob for the session, replacing any previous one.
	Put(ctx context.Context, sessionID types.ID, data []byte) error

	// Get returns the blob stored for the session.
	Get(ctx context.Context, sessionID types.ID) ([]byte, error)

	// Delete removes the blob stored for the session.
	Delete(ctx context.Context, sessionID types.ID) error

	// Close closes the store.
	Close() error
}
