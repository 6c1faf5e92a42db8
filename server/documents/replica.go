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

package documents

import (
	"fmt"
	"sync"
	"time"

	"github.com/automerge/automerge-go"

	"github.com/notepair-team/notepair/pkg/errors"
)

// contentKey is the root map key holding the collaborative text.
const contentKey = "content"

// maxSyncMessages bounds the number of sync messages generated per diff
// exchange.
const maxSyncMessages = 100

var (
	// ErrInvalidUpdate is returned when an update blob cannot be merged into
	// the replica.
	ErrInvalidUpdate = errors.InvalidArgument("invalid replica update").WithCode("ErrInvalidUpdate")

	// ErrInvalidStateVector is returned when a client state vector cannot be
	// decoded against the replica.
	ErrInvalidStateVector = errors.InvalidArgument("invalid state vector").WithCode("ErrInvalidStateVector")
)

// Replica is the server-side copy of one session's document. All access goes
// through its mutex; automerge documents are not safe for concurrent use.
type Replica struct {
	mu  sync.Mutex
	doc *automerge.Doc

	dirty      bool
	flushTimer *time.Timer
}

// newReplica creates an empty replica with the content text initialized.
func newReplica() (*Replica, error) {
	doc := automerge.New()
	if err := doc.Path(contentKey).Set(automerge.NewText("")); err != nil {
		return nil, fmt.Errorf("init content: %w", err)
	}
	if _, err := doc.Commit("init", automerge.CommitOptions{AllowEmpty: true}); err != nil {
		return nil, fmt.Errorf("commit init: %w", err)
	}
	return &Replica{doc: doc, dirty: true}, nil
}

// loadReplica hydrates a replica from a serialized document.
func loadReplica(data []byte) (*Replica, error) {
	doc, err := automerge.Load(data)
	if err != nil {
		return nil, fmt.Errorf("load replica: %w", err)
	}
	return &Replica{doc: doc}, nil
}

// applyUpdate merges the given update blob into the replica. Applying the
// same blob twice is a no-op, and blobs merge in any order.
func (r *Replica) applyUpdate(update []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.doc.LoadIncremental(update); err != nil {
		return fmt.Errorf("merge update: %v: %w", err, ErrInvalidUpdate)
	}

	r.dirty = true
	return nil
}

// diffSince computes what a client at the given state vector is missing. An
// empty state vector yields the full serialized document. The returned cookie
// is the client's next state vector.
func (r *Replica) diffSince(stateVector []byte) ([][]byte, []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(stateVector) == 0 {
		full := r.doc.Save()

		// Advance a fresh sync state past everything the full copy
		// already carries, so the cookie does not resend it.
		state := automerge.NewSyncState(r.doc)
		for i := 0; i < maxSyncMessages; i++ {
			if _, valid := state.GenerateMessage(); !valid {
				break
			}
		}
		return [][]byte{full}, state.Save(), nil
	}

	state, err := automerge.LoadSyncState(r.doc, stateVector)
	if err != nil {
		return nil, nil, fmt.Errorf("load state vector: %v: %w", err, ErrInvalidStateVector)
	}

	var diffs [][]byte
	for i := 0; i < maxSyncMessages; i++ {
		msg, valid := state.GenerateMessage()
		if !valid {
			break
		}
		diffs = append(diffs, msg.Bytes())
	}

	return diffs, state.Save(), nil
}

// text returns the current content of the replica.
func (r *Replica) text() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	value, err := r.doc.Path(contentKey).Text().Get()
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	return value, nil
}

// replaceText overwrites the content with the given string as one committed
// change, and returns that change as an update blob peers can merge.
func (r *Replica) replaceText(content string, message string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Reset the incremental cursor so the returned blob carries only the
	// replacement change.
	_ = r.doc.SaveIncremental()

	text := r.doc.Path(contentKey).Text()
	current, err := text.Get()
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	if length := len([]rune(current)); length > 0 {
		if err := text.Delete(0, length); err != nil {
			return nil, fmt.Errorf("clear content: %w", err)
		}
	}
	if content != "" {
		if err := text.Insert(0, content); err != nil {
			return nil, fmt.Errorf("write content: %w", err)
		}
	}

	if _, err := r.doc.Commit(message, automerge.CommitOptions{AllowEmpty: true}); err != nil {
		return nil, fmt.Errorf("commit replace: %w", err)
	}

	update := r.doc.SaveIncremental()
	r.dirty = true
	return update, nil
}

// save serializes the full document and clears the dirty flag. It reports
// nil when the replica has no unflushed changes.
func (r *Replica) save() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.dirty {
		return nil
	}

	data := r.doc.Save()
	r.dirty = false
	return data
}

// markDirty re-marks the replica after a failed flush.
func (r *Replica) markDirty() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dirty = true
}
