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


package ai

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Provider error taxonomy. Callers decide retry behavior from these
// classes, never from provider-specific error text.
var (
	// ErrRateLimited indicates the provider rejected the request due to
	// rate limiting. Retryable.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrTimeout indicates the request timed out. Retryable.
	ErrTimeout = errors.New("provider request timed out")

	// ErrUnavailable indicates a transient provider failure (5xx).
	// Retryable.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrInvalidInput indicates the request itself is malformed (empty
	// input, oversized text). Permanent, never retried.
	ErrInvalidInput = errors.New("invalid embedding input")
)

// IsRetryable reports whether an error belongs to the transient class of
// the taxonomy: rate limits, timeouts, and 5xx-style unavailability.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// ClassifyProviderError maps a raw client error onto the taxonomy.
// Unrecognized errors pass through unchanged and are treated as permanent.
func ClassifyProviderError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Join(ErrTimeout, err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return errors.Join(ErrRateLimited, err)
	case strings.Contains(msg, "500") || strings.Contains(msg, "502") ||
		strings.Contains(msg, "503") || strings.Contains(msg, "overloaded"):
		return errors.Join(ErrUnavailable, err)
	case strings.Contains(msg, "400") || strings.Contains(msg, "invalid"):
		return errors.Join(ErrInvalidInput, err)
	}
	return err
}
