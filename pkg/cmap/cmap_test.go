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

package cmap_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notepair-team/notepair/pkg/cmap"
)

func TestMap(t *testing.T) {
	t.Run("set get remove test", func(t *testing.T) {
		m := cmap.New[string, int]()
		m.Set("a", 1)

		v, ok := m.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 1, v)

		assert.True(t, m.Remove("a"))
		assert.False(t, m.Has("a"))
		assert.False(t, m.Remove("a"))
	})

	t.Run("upsert test", func(t *testing.T) {
		m := cmap.New[string, int]()
		v := m.Upsert("counter", func(value int, exists bool) int {
			assert.False(t, exists)
			return 1
		})
		assert.Equal(t, 1, v)

		v = m.Upsert("counter", func(value int, exists bool) int {
			assert.True(t, exists)
			return value + 1
		})
		assert.Equal(t, 2, v)
	})

	t.Run("conditional delete test", func(t *testing.T) {
		m := cmap.New[string, int]()
		m.Set("a", 1)

		deleted := m.Delete("a", func(value int, exists bool) bool {
			return value > 1
		})
		assert.False(t, deleted)
		assert.True(t, m.Has("a"))

		deleted = m.Delete("a", func(value int, exists bool) bool {
			return exists
		})
		assert.True(t, deleted)
	})

	t.Run("concurrent access test", func(t *testing.T) {
		m := cmap.New[string, int]()
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				m.Set(fmt.Sprintf("key-%d", i), i)
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 100, m.Len())
		assert.Len(t, m.Keys(), 100)
		assert.Len(t, m.Values(), 100)
	})
}
