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

package types

// Role is the role of a user in a session.
type Role string

const (
	// RoleOwner is the session owner. It is implied by Session.Owner even
	// without an explicit member row.
	RoleOwner Role = "owner"

	// RoleEditor may edit the document.
	RoleEditor Role = "editor"

	// RoleViewer may read the document and its presence, but not edit.
	RoleViewer Role = "viewer"
)

// IsValid reports whether the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	default:
		return false
	}
}

// CanEdit reports whether the role allows editing the document.
func (r Role) CanEdit() bool {
	return r == RoleOwner || r == RoleEditor
}

// CanManage reports whether the role allows managing the session: settings,
// member roles, member removal and snapshot restore.
func (r Role) CanManage() bool {
	return r == RoleOwner
}

// String returns the string representation of this role.
func (r Role) String() string {
	return string(r)
}
