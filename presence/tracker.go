// Package presence keeps the set of online identities.
//
// The backend broadcasts the whole online list on every change, so the set is only
// ever replaced wholesale; there is no incremental add or remove.
package presence

import (
	"sort"
	"sync"
)

type Tracker struct {
	sync.RWMutex
	online  map[string]struct{}
	version uint64

	onChange func(online []string)
}

func NewTracker() *Tracker {
	return &Tracker{online: make(map[string]struct{})}
}

// SetHandler sets the callback invoked after every replace.
func (t *Tracker) SetHandler(fn func(online []string)) {
	t.Lock()
	t.onChange = fn
	t.Unlock()
}

// Replace sets the online set to exactly ids.
func (t *Tracker) Replace(ids []string) {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			next[id] = struct{}{}
		}
	}

	t.Lock()
	t.online = next
	t.version++
	fn := t.onChange
	t.Unlock()

	if fn != nil {
		fn(t.Online())
	}
}

func (t *Tracker) Clear() {
	t.Replace(nil)
}

func (t *Tracker) IsOnline(id string) bool {
	t.RLock()
	_, ok := t.online[id]
	t.RUnlock()
	return ok
}

// Online returns the online identities, sorted.
func (t *Tracker) Online() []string {
	t.RLock()
	out := make([]string, 0, len(t.online))
	for id := range t.online {
		out = append(out, id)
	}
	t.RUnlock()
	sort.Strings(out)
	return out
}

func (t *Tracker) Len() int {
	t.RLock()
	defer t.RUnlock()
	return len(t.online)
}

// Version counts replaces since creation.
func (t *Tracker) Version() uint64 {
	t.RLock()
	defer t.RUnlock()
	return t.version
}
