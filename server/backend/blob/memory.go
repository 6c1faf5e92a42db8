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

package blob

import (
	"context"
	"fmt"

	"github.com/notepair-team/notepair/api/types"
	"github.com/notepair-team/notepair/pkg/cmap"
)

// MemoryStore is an in-process Store. It is used when no blob path is
// configured and in tests.
type MemoryStore struct {
	blobs *cmap.Map[types.ID, []byte]
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: cmap.New[types.ID, []byte](),
	}
}

// Put stores the blob for the session, replacing any previous one.
func (s *MemoryStore) Put(_ context.Context, sessionID types.ID, data []byte) error {
	cloned := make([]byte, len(data))
	copy(cloned, data)
	s.blobs.Set(sessionID, cloned)
	return nil
}

// Get returns the blob stored for the session.
func (s *MemoryStore) Get(_ context.Context, sessionID types.ID) ([]byte, error) {
	data, ok := s.blobs.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("get blob %s: %w", sessionID, ErrBlobNotFound)
	}
	cloned := make([]byte, len(data))
	copy(cloned, data)
	return cloned, nil
}

// Delete removes the blob stored for the session.
func (s *MemoryStore) Delete(_ context.Context, sessionID types.ID) error {
	s.blobs.Remove(sessionID)
	return nil
}

// Close closes the store.
func (s *MemoryStore) Close() error {
	return nil
}
