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


package pipeline

import (
	"context"
	"sync"

	"github.com/calyptra/lectern/core"
	"golang.org/x/time/rate"
)

// ownerLimiters throttles provider calls per owner so one owner's backlog
// cannot starve the rest.
type ownerLimiters struct {
	mu       sync.Mutex
	limiters map[core.ID]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newOwnerLimiters(perSecond float64, burst int) *ownerLimiters {
	return &ownerLimiters{
		limiters: make(map[core.ID]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

func (l *ownerLimiters) limiterFor(owner core.ID) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[owner]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[owner] = limiter
	}
	return limiter
}

// wait blocks until the owner's limiter grants a token or ctx is done.
func (l *ownerLimiters) wait(ctx context.Context, owner core.ID) error {
	return l.limiterFor(owner).Wait(ctx)
}
