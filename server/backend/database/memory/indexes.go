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

package memory

import "github.com/hashicorp/go-memdb"

var (
	tblSessions  = "sessions"
	tblMembers   = "members"
	tblComments  = "comments"
	tblSnapshots = "snapshots"
	tblHistories = "histories"
)

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tblSessions: {
			Name: tblSessions,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"share_token": {
					Name:    "share_token",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ShareToken"},
				},
			},
		},
		tblMembers: {
			Name: tblMembers,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"session_id": {
					Name:    "session_id",
					Indexer: &memdb.StringFieldIndex{Field: "SessionID"},
				},
				"session_id_user_id": {
					Name:   "session_id_user_id",
					Unique: true,
					Indexer: &memdb.CompoundIndex{
						Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "SessionID"},
							&memdb.StringFieldIndex{Field: "UserID"},
						},
					},
				},
			},
		},
		tblComments: {
			Name: tblComments,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"session_id": {
					Name:    "session_id",
					Indexer: &memdb.StringFieldIndex{Field: "SessionID"},
				},
			},
		},
		tblSnapshots: {
			Name: tblSnapshots,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"session_id": {
					Name:    "session_id",
					Indexer: &memdb.StringFieldIndex{Field: "SessionID"},
				},
			},
		},
		tblHistories: {
			Name: tblHistories,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"session_id": {
					Name:    "session_id",
					Indexer: &memdb.StringFieldIndex{Field: "SessionID"},
				},
			},
		},
	},
}
