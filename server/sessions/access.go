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

package sessions

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/notepair-team/notepair/api/types"
	"github.com/notepair-team/notepair/pkg/errors"
	"github.com/notepair-team/notepair/server/backend/database"
)

// ErrNoRole is returned when the user has no role in the session.
var ErrNoRole = errors.PermissionDenied("no role in session").WithCode("ErrNoRole")

// Resolver resolves the role a user holds in a session. Roles are resolved
// per privileged operation and never cached on a connection.
type Resolver struct {
	db database.Database
}

// NewResolver creates a new Resolver.
func NewResolver(db database.Database) *Resolver {
	return &Resolver{db: db}
}

// RoleOf returns the role of the given user in the session. The session
// owner is OWNER regardless of membership rows.
func (r *Resolver) RoleOf(
	ctx context.Context,
	sessionID types.ID,
	userID types.ID,
) (types.Role, error) {
	session, err := r.db.FindSession(ctx, sessionID)
	if err != nil {
		return "", err
	}

	if session.Owner == userID {
		return types.RoleOwner, nil
	}

	member, err := r.db.FindMember(ctx, sessionID, userID)
	if err != nil {
		if stderrors.Is(err, database.ErrMemberNotFound) {
			return "", fmt.Errorf("%s in %s: %w", userID, sessionID, ErrNoRole)
		}
		return "", err
	}

	return member.Role, nil
}
