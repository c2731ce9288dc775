package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqy/minichat/chatstore"
)

func TestRegistrySubscribeAll(t *testing.T) {
	ft := newFakeTransport()
	r := NewRegistry(ft)

	var got []Destination
	deliver := func(d Destination, body []byte) { got = append(got, d) }
	groups := []chatstore.Group{{ID: "7", Name: "seven"}}

	require.NoError(t, r.SubscribeAll("alice", groups, deliver))
	require.NoError(t, r.SubscribeAll("alice", groups, deliver))

	want := []Destination{PublicDest(), GroupDest("7"), PresenceDest(), PrivateDest("alice")}
	assert.Equal(t, want, r.Subscribed())
	assert.ElementsMatch(t, []string{"/chatroom/public", "/user/alice/private", "/topic/online-users", "/topic/group/7"}, ft.topics())

	require.True(t, ft.push("/topic/group/7", []byte(`{}`)))
	assert.Equal(t, []Destination{GroupDest("7")}, got)
}

func TestRegistrySubscribeGroup(t *testing.T) {
	ft := newFakeTransport()
	r := NewRegistry(ft)

	assert.ErrorIs(t, r.SubscribeGroup("9"), ErrNotConnected)

	require.NoError(t, r.SubscribeAll("alice", nil, func(Destination, []byte) {}))
	require.NoError(t, r.SubscribeGroup("9"))
	require.NoError(t, r.SubscribeGroup("9"))
	assert.True(t, r.Has(GroupDest("9")))
	assert.Len(t, r.Subscribed(), 4)
}

func TestRegistryTransportError(t *testing.T) {
	ft := newFakeTransport()
	ft.subscribeErr = errors.New("broken pipe")
	r := NewRegistry(ft)

	err := r.SubscribeAll("alice", nil, func(Destination, []byte) {})
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "subscribe /chatroom/public", te.Op)
	assert.Empty(t, r.Subscribed())
}

func TestRegistryClear(t *testing.T) {
	ft := newFakeTransport()
	r := NewRegistry(ft)
	require.NoError(t, r.SubscribeAll("alice", nil, func(Destination, []byte) {}))

	r.Clear()
	assert.Empty(t, r.Subscribed())
	assert.False(t, r.Has(PublicDest()))
	assert.ErrorIs(t, r.SubscribeGroup("1"), ErrNotConnected)
}
