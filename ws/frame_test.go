package ws

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameConnStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var up websocket.Upgrader
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fc := newFrameConn(ws)
		defer fc.Close()

		// one frame split over two messages, then a ping.
		_, _ = fc.Write([]byte("MESSAGE\n\nhel"))
		_, _ = fc.Write([]byte("lo\x00"))
		_ = ws.WriteMessage(websocket.PingMessage, nil)

		buf := make([]byte, 4)
		if _, err := io.ReadFull(fc, buf); err == nil {
			_, _ = fc.Write(buf)
		}
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	fc := newFrameConn(ws)

	var readErr error
	fc.readErr = func(err error) { readErr = err }

	buf := make([]byte, len("MESSAGE\n\nhello\x00"))
	_, err = io.ReadFull(fc, buf)
	require.NoError(t, err)
	assert.Equal(t, "MESSAGE\n\nhello\x00", string(buf))

	n, err := fc.Write([]byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	echo := make([]byte, 4)
	_, err = io.ReadFull(fc, echo)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(echo))

	// server closed.
	_, err = fc.Read(echo)
	assert.Error(t, err)
	assert.Error(t, readErr)

	assert.NoError(t, fc.Close())
	assert.NoError(t, fc.Close())
}
