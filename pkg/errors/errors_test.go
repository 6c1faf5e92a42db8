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

package errors_test

import (
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notepair-team/notepair/pkg/errors"
)

func TestStatusError(t *testing.T) {
	t.Run("status and code extraction test", func(t *testing.T) {
		err := errors.PermissionDenied("role does not allow edit").WithCode("ErrEditNotAllowed")
		assert.Equal(t, errors.ErrCodePermissionDenied, errors.StatusOf(err))
		assert.Equal(t, "ErrEditNotAllowed", errors.CodeOf(err))
		assert.Equal(t, "role does not allow edit", err.Error())
	})

	t.Run("wrapped error keeps status test", func(t *testing.T) {
		base := errors.NotFound("session not found").WithCode("ErrSessionNotFound")
		wrapped := fmt.Errorf("join: %w", base)

		assert.True(t, errors.IsStatus(wrapped, errors.ErrCodeNotFound))
		assert.Equal(t, "ErrSessionNotFound", errors.CodeOf(wrapped))
	})

	t.Run("plain error has no status test", func(t *testing.T) {
		err := goerrors.New("plain")
		assert.Equal(t, errors.StatusCode(0), errors.StatusOf(err))
		assert.Equal(t, "", errors.CodeOf(err))
	})

	t.Run("client and server classification test", func(t *testing.T) {
		assert.True(t, errors.ErrCodePermissionDenied.IsClientError())
		assert.False(t, errors.ErrCodePermissionDenied.IsServerError())
		assert.True(t, errors.ErrCodeUnavailable.IsServerError())
		assert.False(t, errors.ErrCodeUnavailable.IsClientError())
	})
}
