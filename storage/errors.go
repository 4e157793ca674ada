// Copyright 2026 Calyptra Labs
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

	// ErrStatusConflict indicates a guarded status transition was refused
	// because the current status does not permit it.
	ErrStatusConflict = errors.New("status transition conflict")

	// ErrQueueEmpty indicates no event is ready for delivery.
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrNotClaimed indicates an Ack/Nack for an event that is not
	// currently claimed.
	ErrNotClaimed = errors.New("event not claimed")

	// ErrVectorCountMismatch indicates a vector write whose count does not
	// match the stored chunk set.
	ErrVectorCountMismatch = errors.New("vector count does not match chunk count")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)
