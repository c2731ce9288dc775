package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/golang/glog"

	"github.com/mqy/minichat/chatstore"
)

// Registry tracks the destinations subscribed on the live transport.
type Registry struct {
	sync.RWMutex
	transport  Transport
	subscribed map[Destination]struct{}

	// deliver is bound per connection by SubscribeAll.
	deliver func(Destination, []byte)
}

func NewRegistry(transport Transport) *Registry {
	return &Registry{
		transport:  transport,
		subscribed: make(map[Destination]struct{}),
	}
}

// SubscribeAll subscribes the public room, the private inbox of identity, the
// presence topic and every group. Destinations already subscribed are skipped.
func (r *Registry) SubscribeAll(identity string, groups []chatstore.Group, deliver func(Destination, []byte)) error {
	r.Lock()
	r.deliver = deliver
	r.Unlock()

	dests := []Destination{PublicDest(), PrivateDest(identity), PresenceDest()}
	for _, g := range groups {
		dests = append(dests, GroupDest(g.ID))
	}
	for _, d := range dests {
		if err := r.subscribe(d); err != nil {
			return err
		}
	}
	return nil
}

// SubscribeGroup adds the destination of one group.
func (r *Registry) SubscribeGroup(id chatstore.GroupID) error {
	return r.subscribe(GroupDest(id))
}

func (r *Registry) subscribe(d Destination) error {
	r.Lock()
	defer r.Unlock()

	if r.deliver == nil {
		return fmt.Errorf("subscribe %s: %w", d, ErrNotConnected)
	}
	if _, ok := r.subscribed[d]; ok {
		return nil
	}

	deliver := r.deliver
	if err := r.transport.Subscribe(d.Topic(), func(body []byte) {
		deliver(d, body)
	}); err != nil {
		return &TransportError{Op: "subscribe " + d.Topic(), Err: err}
	}
	r.subscribed[d] = struct{}{}
	glog.V(5).Infof("registry: subscribed %s", d)
	return nil
}

// Clear forgets every registration. No unsubscribe is sent: it is only used when
// the transport itself is torn down.
func (r *Registry) Clear() {
	r.Lock()
	r.subscribed = make(map[Destination]struct{})
	r.deliver = nil
	r.Unlock()
}

func (r *Registry) Has(d Destination) bool {
	r.RLock()
	_, ok := r.subscribed[d]
	r.RUnlock()
	return ok
}

// Subscribed returns the current destinations ordered by topic.
func (r *Registry) Subscribed() []Destination {
	r.RLock()
	out := make([]Destination, 0, len(r.subscribed))
	for d := range r.subscribed {
		out = append(out, d)
	}
	r.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Topic() < out[j].Topic() })
	return out
}
