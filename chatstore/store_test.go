package chatstore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(sender, text string) Envelope {
	return Envelope{SenderName: sender, Status: StatusMessage, Message: text}
}

func TestAppendKeepsArrivalOrder(t *testing.T) {
	s := NewStore()

	var want []Envelope
	for i := 0; i < 50; i++ {
		e := msg("alice", fmt.Sprintf("m%d", i))
		want = append(want, e)
		s.Append(PublicKey, e)
	}

	got := s.Public()
	assert.Equal(t, want, got.Envelopes)
	assert.EqualValues(t, 50, got.Version)
}

func TestSnapshotIsNotAliased(t *testing.T) {
	s := NewStore()
	s.Append(PublicKey, msg("a", "1"))
	before := s.Public()

	s.Append(PublicKey, msg("a", "2"))
	s.Replace(PublicKey, []Envelope{msg("b", "x")})

	assert.Len(t, before.Envelopes, 1)
	assert.Equal(t, "1", before.Envelopes[0].Message)

	// appending to a snapshot must not leak into the store.
	_ = append(before.Envelopes, msg("c", "leak"))
	assert.Equal(t, []Envelope{msg("b", "x")}, s.Public().Envelopes)
}

func TestReplaceCopiesInput(t *testing.T) {
	s := NewStore()
	in := []Envelope{msg("a", "1"), msg("a", "2")}
	s.Replace(GroupKey("7"), in)
	in[0].Message = "changed"

	tl, ok := s.Group("7")
	require.True(t, ok)
	assert.Equal(t, "1", tl.Envelopes[0].Message)
}

func TestEnsureAndRemove(t *testing.T) {
	s := NewStore()

	assert.True(t, s.Ensure(PrivateKey("bob")))
	assert.False(t, s.Ensure(PrivateKey("bob")))
	assert.Equal(t, []string{"bob"}, s.Peers())

	tl, ok := s.Private("bob")
	require.True(t, ok)
	assert.Equal(t, 0, tl.Len())

	assert.True(t, s.Remove(PrivateKey("bob")))
	assert.False(t, s.Remove(PrivateKey("bob")))
	_, ok = s.Private("bob")
	assert.False(t, ok)

	assert.False(t, s.Remove(PublicKey))
}

func TestObserversSeeMutations(t *testing.T) {
	s := NewStore()

	var got []Change
	cancel := s.Subscribe(func(c Change) { got = append(got, c) })

	s.Append(GroupKey("7"), msg("a", "hi"))
	s.Ensure(PrivateKey("bob"))
	s.Remove(PrivateKey("bob"))
	s.Clear()

	require.Len(t, got, 5)
	assert.Equal(t, OpCreate, got[0].Op)
	assert.Equal(t, OpAppend, got[1].Op)
	assert.Equal(t, GroupKey("7"), got[1].Key)
	assert.Equal(t, "hi", got[1].Envelope.Message)
	assert.EqualValues(t, 1, got[1].Version)
	assert.Equal(t, OpCreate, got[2].Op)
	assert.Equal(t, OpRemove, got[3].Op)
	assert.Equal(t, OpClear, got[4].Op)

	cancel()
	s.Append(PublicKey, msg("a", "unseen"))
	assert.Len(t, got, 5)
}

func TestFetchNewestRequestWins(t *testing.T) {
	s := NewStore()
	key := PrivateKey("bob")

	first := s.BeginFetch(key)
	second := s.BeginFetch(key)

	// second completes first.
	assert.True(t, s.ApplyFetch(key, second, []Envelope{msg("bob", "new")}))
	assert.False(t, s.ApplyFetch(key, first, []Envelope{msg("bob", "old")}))

	tl, ok := s.Private("bob")
	require.True(t, ok)
	assert.Equal(t, []Envelope{msg("bob", "new")}, tl.Envelopes)

	// in order completion applies both.
	third := s.BeginFetch(key)
	assert.True(t, s.ApplyFetch(key, third, nil))
	tl, _ = s.Private("bob")
	assert.Equal(t, 0, tl.Len())
}

func TestClearDiscardsFetchInFlight(t *testing.T) {
	s := NewStore()
	seq := s.BeginFetch(PublicKey)
	s.Append(PublicKey, msg("a", "1"))

	s.Clear()

	assert.False(t, s.ApplyFetch(PublicKey, seq, []Envelope{msg("a", "stale")}))
	assert.Equal(t, 0, s.Public().Len())
	assert.Empty(t, s.Peers())

	next := s.BeginFetch(PublicKey)
	assert.True(t, s.ApplyFetch(PublicKey, next, []Envelope{msg("a", "fresh")}))
}
