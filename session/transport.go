package session

import (
	"context"

	"github.com/mqy/minichat/chatstore"
)

// Transport is a duplex message oriented connection to the broker. One Transport
// belongs to one Session.
type Transport interface {
	// Connect blocks until the connection is ready or failed. After a successful
	// connect, onError is called at most once if the connection breaks. Session
	// never runs two Connect calls at once, and closes the connection of an
	// abandoned Connect before the next one.
	Connect(ctx context.Context, onError func(error)) error

	// Subscribe delivers every frame body received on topic to handler, in
	// arrival order.
	Subscribe(topic string, handler func(body []byte)) error

	// Send encodes env and sends it to destination.
	Send(destination string, env *chatstore.Envelope) error

	// Disconnect closes the connection and drops all subscriptions. It is safe to
	// call on a transport that is not connected.
	Disconnect() error
}
