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

// Package cmap provides a sharded concurrent map.
package cmap

import (
	"fmt"
	"hash/fnv"
	"sync"
)

const numShards = 16

type shard[K comparable, V any] struct {
	sync.RWMutex
	items map[K]V
}

// Map is a concurrent map sharded by key hash to reduce lock contention.
type Map[K comparable, V any] struct {
	shards [numShards]shard[K, V]
}

// New creates a new Map.
func New[K comparable, V any]() *Map[K, V] {
	m := &Map[K, V]{}
	for i := 0; i < numShards; i++ {
		m.shards[i].items = make(map[K]V)
	}
	return m
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	var idx uint32
	switch k := any(key).(type) {
	case string:
		h := fnv.New32a()
		_, _ = h.Write([]byte(k))
		idx = h.Sum32()
	default:
		h := fnv.New32a()
		_, _ = h.Write([]byte(fmt.Sprintf("%v", key)))
		idx = h.Sum32()
	}
	return &m.shards[idx%numShards]
}

// Set stores the value for the given key.
func (m *Map[K, V]) Set(key K, value V) {
	s := m.shardFor(key)

	s.Lock()
	defer s.Unlock()

	s.items[key] = value
}

// Get returns the value for the given key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.shardFor(key)

	s.RLock()
	defer s.RUnlock()

	value, ok := s.items[key]
	return value, ok
}

// UpsertFunc computes the value to store for a key.
type UpsertFunc[K comparable, V any] func(value V, exists bool) V

// Upsert atomically inserts or updates the value for the given key and
// returns the stored value.
func (m *Map[K, V]) Upsert(key K, fn UpsertFunc[K, V]) V {
	s := m.shardFor(key)

	s.Lock()
	defer s.Unlock()

	value, exists := s.items[key]
	stored := fn(value, exists)
	s.items[key] = stored
	return stored
}

// DeleteFunc decides whether the value for a key should be removed.
type DeleteFunc[K comparable, V any] func(value V, exists bool) bool

// Delete atomically removes the value for the given key if the given
// function returns true. It reports whether a removal happened.
func (m *Map[K, V]) Delete(key K, fn DeleteFunc[K, V]) bool {
	s := m.shardFor(key)

	s.Lock()
	defer s.Unlock()

	value, exists := s.items[key]
	if !fn(value, exists) {
		return false
	}
	if exists {
		delete(s.items, key)
	}
	return exists
}

// Remove removes the value for the given key unconditionally.
func (m *Map[K, V]) Remove(key K) bool {
	return m.Delete(key, func(V, bool) bool { return true })
}

// Has reports whether the map contains the given key.
func (m *Map[K, V]) Has(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	count := 0
	for i := 0; i < numShards; i++ {
		s := &m.shards[i]
		s.RLock()
		count += len(s.items)
		s.RUnlock()
	}
	return count
}

// Keys returns all keys.
func (m *Map[K, V]) Keys() []K {
	var keys []K
	for i := 0; i < numShards; i++ {
		s := &m.shards[i]
		s.RLock()
		for k := range s.items {
			keys = append(keys, k)
		}
		s.RUnlock()
	}
	return keys
}

// Values returns all values.
func (m *Map[K, V]) Values() []V {
	var values []V
	for i := 0; i < numShards; i++ {
		s := &m.shards[i]
		s.RLock()
		for _, v := range s.items {
			values = append(values, v)
		}
		s.RUnlock()
	}
	return values
}
