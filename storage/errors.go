// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey indicates a duplicate key violation.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrDuplicateContent indicates that a document with the same content
	// hash already exists in the knowledge base. The uniqueness check runs
	// inside the same write transaction as the insert, so two concurrent
	// uploads of identical content cannot both land.
	ErrDuplicateContent = errors.New("duplicate document content")

	// ErrDuplicateName indicates that a knowledge base with the same name
	// already exists for the owner.
	ErrDuplicateName = errors.New("duplicate knowledge base name")

	// ErrDimensionMismatch indicates a vector whose dimension differs from
	// the vectors already stored for the knowledge base.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)
