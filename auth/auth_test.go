package auth

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticClient(t *testing.T) {
	id, err := StaticClient(" alice ").Identity()
	require.NoError(t, err)
	assert.Equal(t, "alice", id)

	_, err = StaticClient("  ").Identity()
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestFileClient(t *testing.T) {
	c := &FileClient{Path: filepath.Join(t.TempDir(), "login")}

	_, err := c.Identity()
	assert.ErrorIs(t, err, ErrNoIdentity)

	assert.ErrorIs(t, c.Login(""), ErrNoIdentity)
	require.NoError(t, c.Login("bob\n"))
	id, err := c.Identity()
	require.NoError(t, err)
	assert.Equal(t, "bob", id)

	require.NoError(t, c.Logout())
	require.NoError(t, c.Logout())
	_, err = c.Identity()
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestChain(t *testing.T) {
	f := &FileClient{Path: filepath.Join(t.TempDir(), "login")}
	require.NoError(t, f.Login("carol"))

	id, err := Chain{StaticClient(""), f}.Identity()
	require.NoError(t, err)
	assert.Equal(t, "carol", id)

	id, err = Chain{StaticClient("dave"), f}.Identity()
	require.NoError(t, err)
	assert.Equal(t, "dave", id)

	_, err = Chain{StaticClient("")}.Identity()
	assert.ErrorIs(t, err, ErrNoIdentity)
}
