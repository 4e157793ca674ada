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
	"sync"

	"github.com/calyptra/lectern/core"
)

// itemLocks serializes pipeline work per content item. Two workers holding
// events for the same item run one at a time; events for different items
// run concurrently.
type itemLocks struct {
	mu    sync.Mutex
	locks map[core.ID]*itemLock
}

type itemLock struct {
	mu   sync.Mutex
	refs int
}

func newItemLocks() *itemLocks {
	return &itemLocks{locks: make(map[core.ID]*itemLock)}
}

// acquire blocks until the item's lock is held and returns the release
// function. Lock entries are reference-counted so the map does not grow
// with every item ever processed.
func (l *itemLocks) acquire(id core.ID) func() {
	l.mu.Lock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &itemLock{}
		l.locks[id] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
