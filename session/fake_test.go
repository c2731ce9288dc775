package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mqy/minichat/chatstore"
)

type sentFrame struct {
	dest string
	env  chatstore.Envelope
}

// fakeTransport records subscriptions and sends; tests push frames with push.
type fakeTransport struct {
	sync.Mutex

	connectErr   error
	subscribeErr error
	sendErr      error

	// when set, Connect reports on entered and then waits for release, ignoring
	// ctx, like a handshake that completes anyway.
	entered    chan struct{}
	release    chan struct{}
	connectCtx context.Context
	events     []string

	onError     func(error)
	handlers    map[string]func([]byte)
	sent        []sentFrame
	connects    int
	disconnects int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string]func([]byte))}
}

func (f *fakeTransport) Connect(ctx context.Context, onError func(error)) error {
	f.Lock()
	entered, release := f.entered, f.release
	f.connectCtx = ctx
	f.Unlock()
	if release != nil {
		entered <- struct{}{}
		<-release
	}

	f.Lock()
	defer f.Unlock()
	f.connects++
	f.events = append(f.events, "connect")
	if f.connectErr != nil {
		return f.connectErr
	}
	f.onError = onError
	f.handlers = make(map[string]func([]byte))
	return nil
}

func (f *fakeTransport) Subscribe(topic string, handler func(body []byte)) error {
	f.Lock()
	defer f.Unlock()
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.handlers[topic] = handler
	return nil
}

func (f *fakeTransport) Send(destination string, env *chatstore.Envelope) error {
	f.Lock()
	defer f.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentFrame{dest: destination, env: *env})
	return nil
}

func (f *fakeTransport) Disconnect() error {
	f.Lock()
	f.disconnects++
	f.events = append(f.events, "disconnect")
	f.Unlock()
	return nil
}

func (f *fakeTransport) handler(topic string) func([]byte) {
	f.Lock()
	defer f.Unlock()
	return f.handlers[topic]
}

// push delivers body on topic, as the broker would.
func (f *fakeTransport) push(topic string, body []byte) bool {
	h := f.handler(topic)
	if h == nil {
		return false
	}
	h(body)
	return true
}

func (f *fakeTransport) pushJSON(t *testing.T, topic string, v interface{}) bool {
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return f.push(topic, body)
}

func (f *fakeTransport) lastConnectCtx() context.Context {
	f.Lock()
	defer f.Unlock()
	return f.connectCtx
}

func (f *fakeTransport) log() []string {
	f.Lock()
	defer f.Unlock()
	return append([]string(nil), f.events...)
}

func (f *fakeTransport) topics() []string {
	f.Lock()
	defer f.Unlock()
	out := make([]string, 0, len(f.handlers))
	for t := range f.handlers {
		out = append(out, t)
	}
	return out
}

func (f *fakeTransport) frames() []sentFrame {
	f.Lock()
	defer f.Unlock()
	out := make([]sentFrame, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeTransport) fail(err error) {
	f.Lock()
	fn := f.onError
	f.Unlock()
	fn(err)
}
