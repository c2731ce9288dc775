package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/mqy/minichat/chatstore"
	"github.com/mqy/minichat/presence"
)

// Router applies inbound frames to the conversation store or the presence
// tracker. It never reorders or deduplicates: one frame, at most one mutation.
type Router struct {
	self     string
	store    *chatstore.Store
	presence *presence.Tracker
}

func NewRouter(self string, store *chatstore.Store, tracker *presence.Tracker) *Router {
	return &Router{
		self:     self,
		store:    store,
		presence: tracker,
	}
}

// Route applies body received on dest. A returned error means the frame was
// dropped; no state was changed.
func (r *Router) Route(dest Destination, body []byte) error {
	var err error
	switch dest.Kind {
	case DestPresence:
		err = r.routePresence(body)
	case DestPublic:
		err = r.routePublic(body)
	case DestPrivate:
		err = r.routePrivate(body)
	case DestGroup:
		err = r.routeGroup(dest, body)
	default:
		err = fmt.Errorf("%w: unknown destination %d", ErrMalformedMessage, dest.Kind)
	}

	if err != nil {
		if errors.Is(err, ErrUnknownStatus) {
			droppedCounter.WithLabelValues(dropUnknownStatus).Inc()
		} else {
			droppedCounter.WithLabelValues(dropMalformed).Inc()
		}
		glog.Warningf("router: drop frame from %s: %v, body: %s", dest, err, truncate(body, 200))
		return err
	}

	routedCounter.WithLabelValues(dest.Kind.String()).Inc()
	return nil
}

func (r *Router) routePresence(body []byte) error {
	var online []string
	if err := json.Unmarshal(body, &online); err != nil {
		return fmt.Errorf("%w: online users: %v", ErrMalformedMessage, err)
	}
	r.presence.Replace(online)
	glog.V(5).Infof("router: %d users online", len(online))
	return nil
}

func (r *Router) routePublic(body []byte) error {
	env, err := decodeEnvelope(body)
	if err != nil {
		return err
	}

	switch env.Status {
	case chatstore.StatusMessage:
		r.store.Append(chatstore.PublicKey, *env)
	case chatstore.StatusJoin:
		if env.SenderName != "" && env.SenderName != r.self {
			if r.store.Ensure(chatstore.PrivateKey(env.SenderName)) {
				glog.V(5).Infof("router: %s joined", env.SenderName)
			}
		}
	case chatstore.StatusLeave:
		if env.SenderName != "" && env.SenderName != r.self {
			if r.store.Remove(chatstore.PrivateKey(env.SenderName)) {
				glog.V(5).Infof("router: %s left", env.SenderName)
			}
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStatus, env.Status)
	}
	return nil
}

func (r *Router) routePrivate(body []byte) error {
	env, err := decodeEnvelope(body)
	if err != nil {
		return err
	}
	if env.SenderName == "" {
		return fmt.Errorf("%w: private message without sender", ErrMalformedMessage)
	}
	r.store.Append(chatstore.PrivateKey(env.SenderName), *env)
	return nil
}

func (r *Router) routeGroup(dest Destination, body []byte) error {
	env, err := decodeEnvelope(body)
	if err != nil {
		return err
	}
	if env.GroupID == "" {
		return fmt.Errorf("%w: group message without groupId on %s", ErrMalformedMessage, dest)
	}
	if env.GroupID != dest.Group {
		glog.Warningf("router: message for group %s arrived on %s", env.GroupID, dest)
	}
	r.store.Append(chatstore.GroupKey(env.GroupID), *env)
	return nil
}

func decodeEnvelope(body []byte) (*chatstore.Envelope, error) {
	var env chatstore.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return &env, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + " ..."
	}
	return string(b)
}
