package chatstore

import (
	"sort"
	"sync"
)

// Op is the kind of mutation reported to observers.
type Op int

const (
	OpAppend  Op = 1
	OpReplace Op = 2
	OpCreate  Op = 3
	OpRemove  Op = 4
	OpClear   Op = 5
)

// Key identifies one timeline. ID is empty for the public timeline, the peer
// identity for private ones and the group id for group ones.
type Key struct {
	Kind Kind
	ID   string
}

var PublicKey = Key{Kind: KindPublic}

func PrivateKey(peer string) Key {
	return Key{Kind: KindPrivate, ID: peer}
}

func GroupKey(id GroupID) Key {
	return Key{Kind: KindGroup, ID: string(id)}
}

func (k Key) String() string {
	if k.ID == "" {
		return k.Kind.String()
	}
	return k.Kind.String() + ":" + k.ID
}

// Change describes one store mutation. Envelope is set for OpAppend only.
type Change struct {
	Op       Op
	Key      Key
	Envelope *Envelope
	Version  uint64
}

// Timeline is an immutable snapshot of one conversation.
type Timeline struct {
	Envelopes []Envelope
	Version   uint64
}

func (t Timeline) Len() int {
	return len(t.Envelopes)
}

type timeline struct {
	envs    []Envelope
	version uint64
}

// snapshot clips capacity so appends never alias a reader's view. Existing
// elements are never written after append.
func (t *timeline) snapshot() Timeline {
	n := len(t.envs)
	return Timeline{Envelopes: t.envs[:n:n], Version: t.version}
}

// Store owns the public, private and group timelines of one session.
type Store struct {
	mu        sync.RWMutex
	timelines map[Key]*timeline

	// last issued and last applied history fetch per key. They survive Remove
	// and Clear so a fetch started earlier can't land later.
	issued  map[Key]uint64
	applied map[Key]uint64

	observerMu sync.RWMutex
	observers  map[int]func(Change)
	nextObs    int
}

func NewStore() *Store {
	return &Store{
		timelines: map[Key]*timeline{PublicKey: {}},
		issued:    make(map[Key]uint64),
		applied:   make(map[Key]uint64),
		observers: make(map[int]func(Change)),
	}
}

// Subscribe registers fn to be called after every mutation, outside of the store
// lock. The returned func removes it.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.observerMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.observerMu.Unlock()

	return func() {
		s.observerMu.Lock()
		delete(s.observers, id)
		s.observerMu.Unlock()
	}
}

func (s *Store) notify(changes ...Change) {
	if len(changes) == 0 {
		return
	}
	s.observerMu.RLock()
	fns := make([]func(Change), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.observerMu.RUnlock()

	for _, c := range changes {
		for _, fn := range fns {
			fn(c)
		}
	}
}

// get returns the timeline for key, creating it when create is set.
// Caller must hold s.mu.
func (s *Store) get(key Key, create bool) (*timeline, bool) {
	t, ok := s.timelines[key]
	if !ok && create {
		t = &timeline{}
		s.timelines[key] = t
	}
	return t, ok
}

// Append adds env to the end of the keyed timeline, creating it if absent.
func (s *Store) Append(key Key, env Envelope) uint64 {
	s.mu.Lock()
	t, existed := s.get(key, true)
	t.envs = append(t.envs, env)
	t.version++
	version := t.version
	s.mu.Unlock()

	var changes []Change
	if !existed {
		changes = append(changes, Change{Op: OpCreate, Key: key})
	}
	changes = append(changes, Change{Op: OpAppend, Key: key, Envelope: &env, Version: version})
	s.notify(changes...)
	return version
}

// Replace swaps the keyed timeline wholesale.
func (s *Store) Replace(key Key, envs []Envelope) uint64 {
	s.mu.Lock()
	t, _ := s.get(key, true)
	version := s.replaceLocked(t, envs)
	s.mu.Unlock()

	s.notify(Change{Op: OpReplace, Key: key, Version: version})
	return version
}

func (s *Store) replaceLocked(t *timeline, envs []Envelope) uint64 {
	cp := make([]Envelope, len(envs))
	copy(cp, envs)
	t.envs = cp
	t.version++
	return t.version
}

// Ensure creates an empty timeline for key if none exists. It reports whether
// one was created.
func (s *Store) Ensure(key Key) bool {
	s.mu.Lock()
	_, existed := s.get(key, true)
	s.mu.Unlock()

	if existed {
		return false
	}
	s.notify(Change{Op: OpCreate, Key: key})
	return true
}

// Remove drops the keyed timeline. The public timeline can't be removed.
func (s *Store) Remove(key Key) bool {
	if key == PublicKey {
		return false
	}
	s.mu.Lock()
	_, ok := s.timelines[key]
	delete(s.timelines, key)
	s.mu.Unlock()

	if ok {
		s.notify(Change{Op: OpRemove, Key: key})
	}
	return ok
}

// Get returns a snapshot of the keyed timeline.
func (s *Store) Get(key Key) (Timeline, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.timelines[key]
	if !ok {
		return Timeline{}, false
	}
	return t.snapshot(), true
}

// Keys returns the ids of all timelines of the given kind, sorted.
func (s *Store) Keys(kind Kind) []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.timelines))
	for k := range s.timelines {
		if k.Kind == kind {
			out = append(out, k.ID)
		}
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Clear empties the store back to a single empty public timeline.
func (s *Store) Clear() {
	s.mu.Lock()
	s.timelines = map[Key]*timeline{PublicKey: {}}
	// fetches in flight are stale now.
	for k, seq := range s.issued {
		s.applied[k] = seq
	}
	s.mu.Unlock()

	s.notify(Change{Op: OpClear})
}

// BeginFetch draws the sequence number for a history request on key. Pass it to
// ApplyFetch when the response arrives.
func (s *Store) BeginFetch(key Key) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.issued[key] + 1
	s.issued[key] = seq
	return seq
}

// ApplyFetch replaces the keyed timeline with a fetched history unless a fetch
// issued later has already been applied. It reports whether envs were applied.
func (s *Store) ApplyFetch(key Key, seq uint64, envs []Envelope) bool {
	s.mu.Lock()
	if seq <= s.applied[key] {
		s.mu.Unlock()
		return false
	}
	s.applied[key] = seq
	t, _ := s.get(key, true)
	version := s.replaceLocked(t, envs)
	s.mu.Unlock()

	s.notify(Change{Op: OpReplace, Key: key, Version: version})
	return true
}

func (s *Store) Public() Timeline {
	t, _ := s.Get(PublicKey)
	return t
}

func (s *Store) Private(peer string) (Timeline, bool) {
	return s.Get(PrivateKey(peer))
}

func (s *Store) Group(id GroupID) (Timeline, bool) {
	return s.Get(GroupKey(id))
}

// Peers returns the identities that have a private timeline.
func (s *Store) Peers() []string {
	return s.Keys(KindPrivate)
}
