package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplaceIsWholesale(t *testing.T) {
	tr := NewTracker()
	tr.Replace([]string{"a", "b"})
	tr.Replace([]string{"b"})

	assert.Equal(t, []string{"b"}, tr.Online())
	assert.False(t, tr.IsOnline("a"))
	assert.True(t, tr.IsOnline("b"))
	assert.EqualValues(t, 2, tr.Version())
}

func TestReplaceIgnoresEmptyAndDuplicates(t *testing.T) {
	tr := NewTracker()
	tr.Replace([]string{"c", "", "a", "c"})

	assert.Equal(t, []string{"a", "c"}, tr.Online())
	assert.Equal(t, 2, tr.Len())
}

func TestHandler(t *testing.T) {
	tr := NewTracker()

	var got [][]string
	tr.SetHandler(func(online []string) { got = append(got, online) })

	tr.Replace([]string{"x"})
	tr.Clear()

	assert.Equal(t, [][]string{{"x"}, {}}, got)
	assert.Equal(t, 0, tr.Len())
}
