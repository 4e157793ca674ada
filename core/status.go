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

// Status tracks a ContentItem through the processing pipeline.
// Transitions are monotonic and one-directional except on explicit
// reprocessing, which resets a terminal item back to StatusProcessing.
type Status int

const (
	// StatusPending is the initial state of a registered content item.
	StatusPending Status = iota + 1
	// StatusTranscribing means transcript extraction is in progress.
	StatusTranscribing
	// StatusProcessing means the transcript is being chunked.
	StatusProcessing
	// StatusEmbedding means chunk embeddings are being generated.
	StatusEmbedding
	// StatusCompleted is the terminal success state. A completed item
	// always has at least one chunk with a non-nil vector.
	StatusCompleted
	// StatusFailed is the terminal failure state, reachable from any
	// non-terminal state once retries are exhausted.
	StatusFailed
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusTranscribing:
		return "transcribing"
	case StatusProcessing:
		return "processing"
	case StatusEmbedding:
		return "embedding"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the defined pipeline states.
func (s Status) Valid() bool {
	return s >= StatusPending && s <= StatusFailed
}

// Terminal reports whether the status is a terminal state.
// Terminal items only leave their state through explicit reprocessing.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether the state machine permits moving from
// s to next. Self-transitions are allowed so that redelivered pipeline
// events can re-assert the current state as a no-op.
func (s Status) CanTransitionTo(next Status) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	// Any non-terminal state may fail.
	if next == StatusFailed && !s.Terminal() {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusTranscribing
	case StatusTranscribing:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusEmbedding
	case StatusEmbedding:
		return next == StatusCompleted
	case StatusCompleted, StatusFailed:
		// Explicit reprocessing re-runs chunking and embedding without a
		// new transcription, or restarts transcription entirely.
		return next == StatusProcessing || next == StatusTranscribing
	}
	return false
}
