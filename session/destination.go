package session

import (
	"github.com/mqy/minichat/chatstore"
)

// DestKind is the closed set of inbound channels. The router switches on it, never
// on topic strings.
type DestKind int

const (
	DestPublic   DestKind = 1
	DestPrivate  DestKind = 2
	DestPresence DestKind = 3
	DestGroup    DestKind = 4
)

func (k DestKind) String() string {
	switch k {
	case DestPublic:
		return "public"
	case DestPrivate:
		return "private"
	case DestPresence:
		return "presence"
	case DestGroup:
		return "group"
	}
	return "unknown"
}

// Broker topics and application destinations.
const (
	publicTopic   = "/chatroom/public"
	presenceTopic = "/topic/online-users"

	appMessage        = "/app/message"
	appPrivateMessage = "/app/private-message"
	appGroupMessage   = "/app/group-message"
)

// Destination is a subscribable channel. Identity is set for DestPrivate and
// Group for DestGroup.
type Destination struct {
	Kind     DestKind
	Identity string
	Group    chatstore.GroupID
}

func PublicDest() Destination {
	return Destination{Kind: DestPublic}
}

func PrivateDest(identity string) Destination {
	return Destination{Kind: DestPrivate, Identity: identity}
}

func PresenceDest() Destination {
	return Destination{Kind: DestPresence}
}

func GroupDest(id chatstore.GroupID) Destination {
	return Destination{Kind: DestGroup, Group: id}
}

// Topic is the broker destination to subscribe to.
func (d Destination) Topic() string {
	switch d.Kind {
	case DestPublic:
		return publicTopic
	case DestPrivate:
		return "/user/" + d.Identity + "/private"
	case DestPresence:
		return presenceTopic
	case DestGroup:
		return "/topic/group/" + d.Group.String()
	}
	return ""
}

func (d Destination) String() string {
	return d.Topic()
}
