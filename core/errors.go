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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidContentItem indicates a ContentItem failed validation.
	ErrInvalidContentItem = errors.New("invalid content item")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidEvent indicates a PipelineEvent failed validation.
	ErrInvalidEvent = errors.New("invalid pipeline event")

	// ErrEmptySourceRef indicates the SourceRef field is empty.
	ErrEmptySourceRef = errors.New("source reference cannot be empty")

	// ErrEmptyTranscript indicates a transcript is empty where one is required.
	ErrEmptyTranscript = errors.New("transcript cannot be empty")

	// ErrEmptyChunkText indicates a chunk's Text field is empty.
	ErrEmptyChunkText = errors.New("chunk text cannot be empty")

	// ErrInvalidTimeBounds indicates a chunk's end time precedes its start time.
	ErrInvalidTimeBounds = errors.New("end time cannot precede start time")

	// ErrInvalidStatus indicates an undefined Status value.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidStatusTransition indicates a state change the pipeline
	// state machine does not permit.
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrInvalidOwner indicates a missing owner identifier.
	ErrInvalidOwner = errors.New("owner identifier required")
)
