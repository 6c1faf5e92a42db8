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

package transport

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/notepair-team/notepair/api/types"
	"github.com/notepair-team/notepair/pkg/errors"
)

// ErrUnauthenticated occurs when a connection carries no valid token.
var ErrUnauthenticated = errors.Unauthenticated("invalid connection token").WithCode("ErrUnauthenticated")

// tokenFromRequest extracts the connection token from the Authorization
// header or, for browser websocket clients that cannot set headers, from the
// token query parameter.
func tokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	return r.URL.Query().Get("token")
}

// verifyToken verifies the given HMAC-signed token and returns the user id
// from its subject claim.
func verifyToken(secret string, tokenString string) (types.ID, error) {
	if tokenString == "" {
		return "", ErrUnauthenticated
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", err, ErrUnauthenticated)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("missing subject claim: %w", ErrUnauthenticated)
	}

	return types.ID(subject), nil
}
