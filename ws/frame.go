package ws

import (
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 3 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = 20 * time.Second

	// Time allowed to read the next message or pong from the peer.
	pongWait = 25 * time.Second

	// websocket max message size to read. Envelopes carry text and a media
	// token, never the media itself.
	readLimit = 64 << 10
)

// frameConn turns a websocket connection into the byte stream a STOMP client
// reads and writes. Every Write is sent as one text message; reads concatenate
// messages.
type frameConn struct {
	ws *websocket.Conn
	r  io.Reader

	// readErr, if set, is called with the error that ended reading.
	readErr func(error)

	closeOnce sync.Once
	stopPing  chan struct{}
}

func newFrameConn(ws *websocket.Conn) *frameConn {
	c := &frameConn{ws: ws, stopPing: make(chan struct{})}

	ws.SetReadLimit(readLimit)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	return c
}

func (c *frameConn) Read(p []byte) (int, error) {
	for {
		if c.r == nil {
			msgType, r, err := c.ws.NextReader()
			if err != nil {
				if c.readErr != nil {
					c.readErr(err)
				}
				return 0, err
			}
			_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
			if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
				continue
			}
			c.r = r
		}

		n, err := c.r.Read(p)
		if err == io.EOF {
			c.r = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (c *frameConn) Write(p []byte) (int, error) {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close sends a close message and closes the socket. Safe to call more than once.
func (c *frameConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stopPing)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		err = c.ws.Close()
	})
	return err
}

// pingLoop keeps the read deadline of the peer and ours alive. It exits when the
// connection closes or a ping can't be written.
func (c *frameConn) pingLoop() {
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-c.stopPing:
			return
		case <-pingTicker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				glog.Errorf("pingLoop(): error write ping message: %v", err)
				return
			}
		}
	}
}
