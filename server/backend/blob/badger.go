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
	stderrors "errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/notepair-team/notepair/api/types"
)

// BadgerStore is a Store backed by an embedded Badger database.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens the Badger database at the given path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}

	return &BadgerStore{db: db}, nil
}

// Put stores the blob for the session, replacing any previous one.
func (s *BadgerStore) Put(_ context.Context, sessionID types.ID, data []byte) error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(blobKey(sessionID), data)
	}); err != nil {
		return fmt.Errorf("put blob %s: %w", sessionID, err)
	}
	return nil
}

// Get returns the blob stored for the session.
func (s *BadgerStore) Get(_ context.Context, sessionID types.ID) ([]byte, error) {
	var data []byte
	if err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blobKey(sessionID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	}); err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("get blob %s: %w", sessionID, ErrBlobNotFound)
		}
		return nil, fmt.Errorf("get blob %s: %w", sessionID, err)
	}
	return data, nil
}

// Delete removes the blob stored for the session.
func (s *BadgerStore) Delete(_ context.Context, sessionID types.ID) error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(blobKey(sessionID))
	}); err != nil {
		return fmt.Errorf("delete blob %s: %w", sessionID, err)
	}
	return nil
}

// Close closes the store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func blobKey(sessionID types.ID) []byte {
	return []byte("replica/" + sessionID.String())
}
