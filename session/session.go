package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/pborman/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mqy/minichat/chatstore"
	"github.com/mqy/minichat/presence"
	"github.com/mqy/minichat/store"
)

// State of the session connection.
type State int

const (
	StateDisconnected State = 0
	StateConnecting   State = 1
	StateConnected    State = 2
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	}
	return "UNKNOWN"
}

// Session is the chat session of one identity. It owns the transport, the
// subscriptions and the local view of conversations and presence.
//
// Every wake up, inbound frame, connect completion, transport error or user
// operation, is handled under one mutex. The upload of a send and history fetches
// run without it.
type Session struct {
	mu sync.Mutex

	id    string
	self  string
	state State
	gen   uint64

	// connecting is closed when the connect of the last Start is done.
	connecting    chan struct{}
	cancelConnect context.CancelFunc

	transport Transport
	backend   store.IBackend
	registry  *Registry
	router    *Router
	composer  *Composer
	store     *chatstore.Store
	presence  *presence.Tracker

	groups        []chatstore.Group
	selectedPeer  string
	selectedGroup chatstore.GroupID
}

// New creates a disconnected session for identity. An empty identity is accepted
// here; Start rejects it.
func New(identity string, transport Transport, backend store.IBackend) *Session {
	cs := chatstore.NewStore()
	tracker := presence.NewTracker()
	return &Session{
		id:        strings.ReplaceAll(uuid.New(), "-", ""),
		self:      identity,
		transport: transport,
		backend:   backend,
		registry:  NewRegistry(transport),
		router:    NewRouter(identity, cs, tracker),
		composer:  NewComposer(identity, backend),
		store:     cs,
		presence:  tracker,
	}
}

func (s *Session) String() string {
	return fmt.Sprintf("session{%s %s}", s.id, s.self)
}

// Start connects and subscribes. It blocks until the transport is ready or failed.
// A Stop while connecting makes Start return ErrNotConnected. Connects never
// overlap: a Start following such a Stop waits until the earlier connect is
// undone.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("start in state %s: %w", state, ErrInvalidState)
	}
	if s.self == "" {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	s.gen++
	gen := s.gen
	s.state = StateConnecting
	prev := s.connecting
	done := make(chan struct{})
	s.connecting = done
	connectCtx, cancel := context.WithCancel(ctx)
	s.cancelConnect = cancel
	s.mu.Unlock()

	err := s.connect(connectCtx, gen, prev)
	cancel()
	closeAfter(prev, done)
	if err != nil {
		return err
	}

	glog.Infof("%s: connected", s)

	if err := s.RefreshPresence(ctx); err != nil {
		glog.Warningf("%s: refresh presence: %v", s, err)
	}
	return nil
}

// connect runs the transport connect of generation gen once prev, the connect of
// the previous Start, is done.
func (s *Session) connect(ctx context.Context, gen uint64, prev <-chan struct{}) error {
	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
		}
	}

	err := ctx.Err()
	if err == nil {
		glog.Infof("%s: connecting", s)
		err = s.transport.Connect(ctx, func(err error) {
			s.onTransportError(gen, err)
		})
	}

	s.mu.Lock()
	if err != nil {
		stopped := s.gen != gen
		if !stopped {
			s.state = StateDisconnected
		}
		s.mu.Unlock()
		if stopped {
			return fmt.Errorf("start: stopped while connecting: %w", ErrNotConnected)
		}
		glog.Errorf("%s: connect failed: %v", s, err)
		return &TransportError{Op: "connect", Err: err}
	}

	if s.gen != gen || s.state != StateConnecting {
		// stopped while connecting.
		s.mu.Unlock()
		if err := s.transport.Disconnect(); err != nil {
			glog.Warningf("%s: disconnect after cancelled connect: %v", s, err)
		}
		return fmt.Errorf("start: stopped while connecting: %w", ErrNotConnected)
	}

	s.state = StateConnected
	connectedGauge.Inc()

	if err := s.registry.SubscribeAll(s.self, s.groups, func(d Destination, body []byte) {
		s.deliver(gen, d, body)
	}); err != nil {
		s.teardownLocked()
		s.mu.Unlock()
		glog.Errorf("%s: subscribe failed: %v", s, err)
		if derr := s.transport.Disconnect(); derr != nil {
			glog.Warningf("%s: disconnect: %v", s, derr)
		}
		return err
	}

	if err := s.transport.Send(appMessage, s.composer.status(chatstore.StatusJoin)); err != nil {
		glog.Warningf("%s: send JOIN: %v", s, err)
	}
	s.mu.Unlock()
	return nil
}

// closeAfter closes done once prev, if any, is closed.
func closeAfter(prev <-chan struct{}, done chan struct{}) {
	if prev == nil {
		close(done)
		return
	}
	select {
	case <-prev:
		close(done)
	default:
		go func() {
			<-prev
			close(done)
		}()
	}
}

// Stop sends LEAVE when connected, closes the transport and clears the local view.
// It is safe to call in any state.
func (s *Session) Stop() {
	s.mu.Lock()
	active := s.state != StateDisconnected
	if s.state == StateConnecting && s.cancelConnect != nil {
		s.cancelConnect()
	}
	if s.state == StateConnected {
		if err := s.transport.Send(appMessage, s.composer.status(chatstore.StatusLeave)); err != nil {
			glog.Warningf("%s: send LEAVE: %v", s, err)
		}
	}
	s.teardownLocked()
	// frames of this connection are stale from now on.
	s.gen++
	s.store.Clear()
	s.presence.Clear()
	s.selectedPeer = ""
	s.selectedGroup = ""
	s.mu.Unlock()

	// the transport may wait for its receivers, which need s.mu.
	if active {
		if err := s.transport.Disconnect(); err != nil {
			glog.Warningf("%s: disconnect: %v", s, err)
		}
		glog.Infof("%s: stopped", s)
	}
}

// teardownLocked moves to DISCONNECTED and forgets subscriptions. Caller must hold
// s.mu.
func (s *Session) teardownLocked() {
	if s.state == StateConnected {
		connectedGauge.Dec()
	}
	s.state = StateDisconnected
	s.registry.Clear()
}

func (s *Session) onTransportError(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || s.state == StateDisconnected {
		glog.V(5).Infof("%s: ignore transport error of old connection: %v", s, err)
		return
	}
	glog.Errorf("%s: transport error: %v", s, err)
	s.teardownLocked()
}

// deliver hands one inbound frame to the router if it belongs to the live
// connection.
func (s *Session) deliver(gen uint64, d Destination, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnected || s.gen != gen {
		droppedCounter.WithLabelValues(dropStale).Inc()
		glog.V(5).Infof("%s: drop stale frame from %s", s, d)
		return
	}
	glog.V(5).Infof("%s: frame from %s: %s", s, d, truncate(body, 200))
	_ = s.router.Route(d, body)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Connected() bool {
	return s.State() == StateConnected
}

// Identity is fixed for the session lifetime.
func (s *Session) Identity() string {
	return s.self
}

func (s *Session) Store() *chatstore.Store {
	return s.store
}

func (s *Session) Presence() *presence.Tracker {
	return s.presence
}

// Subscribed lists the destinations of the live connection.
func (s *Session) Subscribed() []Destination {
	return s.registry.Subscribed()
}

// OnChange registers fn on the conversation store. fn runs on the goroutine that
// made the change, possibly with the session lock held: it must not call back into
// the session except for Identity, Store and Presence.
func (s *Session) OnChange(fn func(chatstore.Change)) func() {
	return s.store.Subscribe(fn)
}

// Groups returns the cached group list.
func (s *Session) Groups() []chatstore.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chatstore.Group, len(s.groups))
	copy(out, s.groups)
	return out
}

func (s *Session) SelectedPeer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedPeer
}

func (s *Session) SelectedGroup() (chatstore.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedGroup == "" {
		return chatstore.Group{}, false
	}
	return s.groupLocked(s.selectedGroup), true
}

// groupLocked returns the cached group, or one carrying only the id.
func (s *Session) groupLocked(id chatstore.GroupID) chatstore.Group {
	for _, g := range s.groups {
		if g.ID == id {
			return g
		}
	}
	return chatstore.Group{ID: id}
}

// SelectPeer opens the private conversation with peer and loads its history.
func (s *Session) SelectPeer(ctx context.Context, peer string) error {
	if peer == "" {
		return nil
	}
	s.mu.Lock()
	s.selectedPeer = peer
	s.mu.Unlock()

	key := chatstore.PrivateKey(peer)
	s.store.Ensure(key)
	return s.fetch(ctx, key, func(ctx context.Context) ([]chatstore.Envelope, error) {
		return s.backend.PrivateHistory(ctx, s.self, peer)
	})
}

// SelectGroup makes id the group target of SendGroup and loads its history.
func (s *Session) SelectGroup(ctx context.Context, id chatstore.GroupID) error {
	if id == "" {
		return nil
	}
	s.mu.Lock()
	s.selectedGroup = id
	s.mu.Unlock()

	return s.fetch(ctx, chatstore.GroupKey(id), func(ctx context.Context) ([]chatstore.Envelope, error) {
		return s.backend.GroupHistory(ctx, id)
	})
}

func (s *Session) LoadPublicHistory(ctx context.Context) error {
	return s.fetch(ctx, chatstore.PublicKey, s.backend.PublicHistory)
}

// LoadHistory refreshes the groups and the public room concurrently. Call it
// before Start so Start subscribes every group.
func (s *Session) LoadHistory(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.RefreshGroups(ctx)
	})
	g.Go(func() error {
		return s.LoadPublicHistory(ctx)
	})
	return g.Wait()
}

// fetch replaces the keyed timeline with the history got by get, unless a fetch
// started later for the same key has already landed.
func (s *Session) fetch(ctx context.Context, key chatstore.Key,
	get func(ctx context.Context) ([]chatstore.Envelope, error)) error {
	seq := s.store.BeginFetch(key)
	envs, err := get(ctx)
	if err != nil {
		return fmt.Errorf("load %s history: %w", key, err)
	}
	if !s.store.ApplyFetch(key, seq, envs) {
		glog.V(5).Infof("%s: discard stale %s history #%d", s, key, seq)
	}
	return nil
}

// RefreshGroups reloads the group cache. While connected, groups not yet
// subscribed are subscribed; none are unsubscribed.
func (s *Session) RefreshGroups(ctx context.Context) error {
	groups, err := s.backend.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("refresh groups: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = groups
	if s.state != StateConnected {
		return nil
	}
	for _, g := range groups {
		if err := s.registry.SubscribeGroup(g.ID); err != nil {
			return err
		}
	}
	return nil
}

// RefreshPresence replaces the presence set from the online users endpoint.
func (s *Session) RefreshPresence(ctx context.Context) error {
	online, err := s.backend.OnlineUsers(ctx)
	if err != nil {
		return fmt.Errorf("refresh presence: %w", err)
	}
	s.presence.Replace(online)
	return nil
}

func (s *Session) CreateGroup(ctx context.Context, name string) (*chatstore.Group, error) {
	g, err := s.backend.CreateGroup(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create group %q: %w", name, err)
	}
	return g, s.RefreshGroups(ctx)
}

// AddGroupMember adds the account named username to group id. Membership calls
// take the numeric account id, resolved by user search.
func (s *Session) AddGroupMember(ctx context.Context, id chatstore.GroupID, username string) error {
	userID, err := s.resolveUser(ctx, username)
	if err == nil {
		_, err = s.backend.AddUser(ctx, id, userID)
	}
	if err != nil {
		return fmt.Errorf("add %s to group %s: %w", username, id, err)
	}
	return s.RefreshGroups(ctx)
}

func (s *Session) RemoveGroupMember(ctx context.Context, id chatstore.GroupID, username string) error {
	userID, err := s.resolveUser(ctx, username)
	if err == nil {
		_, err = s.backend.RemoveUser(ctx, id, userID)
	}
	if err != nil {
		return fmt.Errorf("remove %s from group %s: %w", username, id, err)
	}
	return s.RefreshGroups(ctx)
}

func (s *Session) resolveUser(ctx context.Context, username string) (string, error) {
	u, err := s.backend.SearchUser(ctx, username)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(u.ID, 10), nil
}

// DeleteGroup deletes the group and drops its timeline. The selection is cleared
// if it was the deleted group.
func (s *Session) DeleteGroup(ctx context.Context, id chatstore.GroupID) error {
	if err := s.backend.DeleteGroup(ctx, id); err != nil {
		return fmt.Errorf("delete group %s: %w", id, err)
	}

	s.mu.Lock()
	if s.selectedGroup == id {
		s.selectedGroup = ""
	}
	s.mu.Unlock()
	s.store.Remove(chatstore.GroupKey(id))

	return s.RefreshGroups(ctx)
}

func (s *Session) SetText(text string) {
	s.composer.SetText(text)
}

func (s *Session) StageMedia(f *store.MediaFile) {
	s.composer.StageMedia(f)
}

func (s *Session) ClearStagedMedia() {
	s.composer.ClearStagedMedia()
}

func (s *Session) Staged() Input {
	return s.composer.Staged()
}

// SetInputResetHandler sets the callback run after a send cleared the input.
func (s *Session) SetInputResetHandler(fn func()) {
	s.composer.SetResetHandler(fn)
}

// SendPublic sends the staged input to the public room.
func (s *Session) SendPublic(ctx context.Context) error {
	return s.send(ctx, target{kind: chatstore.KindPublic})
}

// SendPrivate sends the staged input to peer. The message is appended to the
// local timeline of peer since the backend only delivers it to the receiver,
// unless peer is self.
func (s *Session) SendPrivate(ctx context.Context, peer string) error {
	if peer == "" {
		return nil
	}
	return s.send(ctx, target{kind: chatstore.KindPrivate, peer: peer})
}

// SendGroup sends the staged input to the selected group; a no-op when none is
// selected.
func (s *Session) SendGroup(ctx context.Context) error {
	s.mu.Lock()
	if s.selectedGroup == "" {
		s.mu.Unlock()
		return nil
	}
	g := s.groupLocked(s.selectedGroup)
	s.mu.Unlock()

	return s.send(ctx, target{kind: chatstore.KindGroup, group: g})
}

func (s *Session) send(ctx context.Context, t target) error {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	gen := s.gen
	s.mu.Unlock()

	env, err := s.composer.compose(ctx, t, func(dest string, env *chatstore.Envelope) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.state != StateConnected || s.gen != gen {
			droppedCounter.WithLabelValues(dropStale).Inc()
			glog.Warningf("%s: drop %s message, connection changed during upload", s, t)
			return fmt.Errorf("send %s: %w", t, ErrNotConnected)
		}
		if err := s.transport.Send(dest, env); err != nil {
			return &TransportError{Op: "send " + dest, Err: err}
		}
		// the backend delivers messages to self on the private topic.
		if t.kind == chatstore.KindPrivate && t.peer != s.self {
			local := *env
			local.Timestamp = chatstore.Timestamp(chatstore.FormatMillis(time.Now().UnixMilli()))
			s.store.Append(chatstore.PrivateKey(t.peer), local)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if env != nil {
		glog.V(5).Infof("%s: sent %s message", s, t)
	}
	return nil
}
