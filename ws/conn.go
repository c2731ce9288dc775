// Package ws is the broker transport: STOMP 1.2 over a websocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3"
	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"github.com/mqy/minichat/chatstore"
	"github.com/mqy/minichat/session"
)

const (
	// Time allowed for the DISCONNECT receipt before the connection is dropped.
	disconnectWait = 3 * time.Second

	// STOMP heart beat proposal, both directions.
	heartBeat = pingPeriod

	contentTypeJSON = "application/json"
)

var errNotConnected = errors.New("ws: not connected")

// Options of a Conn.
type Options struct {
	// Login and Passcode go into the CONNECT frame when set.
	Login    string
	Passcode string

	// Header is sent with the websocket handshake.
	Header http.Header

	Dialer *websocket.Dialer
}

// Conn implements session.Transport. Connect may be called again after a
// Disconnect or a connection error.
type Conn struct {
	sync.Mutex

	url  string
	host string
	opts Options

	cur *link
}

var _ session.Transport = (*Conn)(nil)

// link is one live connection.
type link struct {
	sync.Mutex

	fc      *frameConn
	stomp   *stomp.Conn
	onError func(error)
	ready   bool
	closing bool
	failed  sync.Once

	// early is a read error seen before the handshake returned.
	early error
}

// NewConn creates a transport for the broker websocket at rawURL, e.g.
// ws://localhost:8080/ws/websocket.
func NewConn(rawURL string, opts Options) (*Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("ws: parse url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("ws: unsupported scheme %q", u.Scheme)
	}
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
		}
	}
	return &Conn{url: rawURL, host: u.Hostname(), opts: opts}, nil
}

func (c *Conn) String() string {
	return c.url
}

// Connect dials the websocket and completes the STOMP handshake.
func (c *Conn) Connect(ctx context.Context, onError func(error)) error {
	c.Lock()
	stale := c.cur
	c.cur = nil
	c.Unlock()
	if stale != nil {
		stale.close()
	}

	ws, resp, err := c.opts.Dialer.DialContext(ctx, c.url, c.opts.Header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w, status: %s", c.url, err, resp.Status)
		}
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	fc := newFrameConn(ws)
	l := &link{fc: fc, onError: onError}
	fc.readErr = l.fail

	opts := []func(*stomp.Conn) error{
		stomp.ConnOpt.Host(c.host),
		stomp.ConnOpt.HeartBeat(heartBeat, heartBeat),
	}
	if c.opts.Login != "" {
		opts = append(opts, stomp.ConnOpt.Login(c.opts.Login, c.opts.Passcode))
	}

	type result struct {
		conn *stomp.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := stomp.Connect(fc, opts...)
		done <- result{conn, err}
	}()

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		// unblocks the handshake.
		_ = fc.Close()
		<-done
		return ctx.Err()
	}
	if r.err != nil {
		_ = fc.Close()
		return fmt.Errorf("stomp connect %s: %w", c.url, r.err)
	}

	l.Lock()
	l.stomp = r.conn
	l.ready = true
	early := l.early
	l.Unlock()
	go fc.pingLoop()
	if early != nil {
		go l.fail(early)
	}

	c.Lock()
	c.cur = l
	c.Unlock()

	glog.V(5).Infof("ws: connected to %s, stomp version %s", c.url, r.conn.Version())
	return nil
}

func (c *Conn) live() (*link, error) {
	c.Lock()
	defer c.Unlock()
	if c.cur == nil {
		return nil, errNotConnected
	}
	return c.cur, nil
}

// Subscribe starts one receiver goroutine for topic. It exits when the connection
// closes.
func (c *Conn) Subscribe(topic string, handler func(body []byte)) error {
	l, err := c.live()
	if err != nil {
		return err
	}

	sub, err := l.stomp.Subscribe(topic, stomp.AckAuto)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	glog.V(5).Infof("ws: subscribed %s", topic)

	go func() {
		defer glog.V(5).Infof("ws: receiver of %s exited", topic)
		for msg := range sub.C {
			if msg.Err != nil {
				l.fail(fmt.Errorf("receive %s: %w", topic, msg.Err))
				return
			}
			handler(msg.Body)
		}
	}()
	return nil
}

func (c *Conn) Send(destination string, env *chatstore.Envelope) error {
	l, err := c.live()
	if err != nil {
		return err
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	glog.V(5).Infof("ws: send %s: %s", destination, body)

	if err := l.stomp.Send(destination, contentTypeJSON, body); err != nil {
		// the caller may hold the lock onError takes.
		go l.fail(err)
		return fmt.Errorf("send %s: %w", destination, err)
	}
	return nil
}

// Disconnect closes the live connection, if any.
func (c *Conn) Disconnect() error {
	c.Lock()
	l := c.cur
	c.cur = nil
	c.Unlock()

	if l == nil {
		return nil
	}
	return l.close()
}

// fail reports err through onError, once, unless the link is not connected yet
// or is being closed on purpose.
func (l *link) fail(err error) {
	l.Lock()
	if !l.ready {
		if l.early == nil {
			l.early = err
		}
		l.Unlock()
		return
	}
	closing := l.closing
	l.Unlock()
	if closing {
		return
	}
	l.failed.Do(func() {
		glog.Errorf("ws: connection failed: %v", err)
		_ = l.fc.Close()
		if l.onError != nil {
			l.onError(err)
		}
	})
}

func (l *link) close() error {
	l.Lock()
	if l.closing {
		l.Unlock()
		return nil
	}
	l.closing = true
	l.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- l.stomp.Disconnect()
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(disconnectWait):
		glog.Warningf("ws: no DISCONNECT receipt in %s, dropping connection", disconnectWait)
		l.stomp.MustDisconnect()
	}

	if cerr := l.fc.Close(); err == nil {
		err = cerr
	}
	if errors.Is(err, stomp.ErrAlreadyClosed) {
		err = nil
	}
	return err
}
