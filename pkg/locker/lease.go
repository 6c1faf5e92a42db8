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

package locker

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/xid"
)

// ErrLeaseHeld is returned when a lease for the name is already held and has
// not yet expired.
var ErrLeaseHeld = errors.New("lease already held")

// LeaseLocker provides TTL-bounded mutual exclusion keyed by name. A lease
// expires on its own after the TTL, so a crashed or stalled holder can block
// other callers for at most the TTL.
type LeaseLocker struct {
	mu     sync.Mutex
	leases map[string]*leaseEntry
}

type leaseEntry struct {
	token     string
	expiresAt time.Time
}

// NewLeaseLocker creates a new LeaseLocker.
func NewLeaseLocker() *LeaseLocker {
	return &LeaseLocker{
		leases: make(map[string]*leaseEntry),
	}
}

// Lease is a held lease. Release must be called on every exit path; calling
// it after the lease has expired or been released is a no-op.
type Lease struct {
	locker *LeaseLocker
	name   string
	token  string
	once   sync.Once
}

// TryLease acquires the lease for the given name. It fails with ErrLeaseHeld
// while an unexpired lease for the name is held by someone else.
func (l *LeaseLocker) TryLease(name string, ttl time.Duration) (*Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if entry, ok := l.leases[name]; ok && entry.expiresAt.After(now) {
		return nil, ErrLeaseHeld
	}

	token := xid.New().String()
	l.leases[name] = &leaseEntry{
		token:     token,
		expiresAt: now.Add(ttl),
	}

	return &Lease{
		locker: l,
		name:   name,
		token:  token,
	}, nil
}

// Release releases the lease. A lease that has already expired and been
// re-acquired by another holder is left untouched.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.locker.mu.Lock()
		defer l.locker.mu.Unlock()

		if entry, ok := l.locker.leases[l.name]; ok && entry.token == l.token {
			delete(l.locker.leases, l.name)
		}
	})
}
