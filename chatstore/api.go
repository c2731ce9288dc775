package chatstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
)

// Kind is the conversation kind of a timeline.
type Kind int

const (
	KindPublic  Kind = 1 // the shared chat room
	KindPrivate Kind = 2 // one-on-one, keyed by peer identity
	KindGroup   Kind = 3 // keyed by group id
)

func (k Kind) String() string {
	switch k {
	case KindPublic:
		return "public"
	case KindPrivate:
		return "private"
	case KindGroup:
		return "group"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Status of an envelope.
type Status string

const (
	StatusJoin    Status = "JOIN"
	StatusLeave   Status = "LEAVE"
	StatusMessage Status = "MESSAGE"
)

// GroupID is the backend owned group identifier. The backend uses numeric ids, but
// they are treated as opaque here.
type GroupID string

func (id GroupID) String() string {
	return string(id)
}

// MarshalJSON emits numeric ids as JSON numbers, the backend expects Long.
func (id GroupID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte(`null`), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *GroupID) UnmarshalJSON(data []byte) error {
	s, err := numberOrString(data)
	if err != nil {
		return fmt.Errorf("group id: %w", err)
	}
	*id = GroupID(s)
	return nil
}

// Timestamp is the envelope time as a string. Backend history uses epoch
// milliseconds for chat messages and ISO local date-times for group messages;
// numbers are normalized to RFC 3339 in UTC, date-time arrays to ISO local
// date-times. Any other value decodes as empty: the timestamp is only displayed
// and never rejects an envelope.
type Timestamp string

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*t = ""
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			glog.V(5).Infof("chatstore: ignore timestamp %s: %v", data, err)
			return nil
		}
		*t = Timestamp(s)
	case '[':
		var parts []int
		if err := json.Unmarshal(data, &parts); err != nil || len(parts) < 3 {
			glog.V(5).Infof("chatstore: ignore timestamp %s", data)
			return nil
		}
		*t = Timestamp(formatLocalDateTime(parts))
	default:
		if ms, err := strconv.ParseInt(string(data), 10, 64); err == nil {
			*t = Timestamp(FormatMillis(ms))
		} else if f, err := strconv.ParseFloat(string(data), 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			*t = Timestamp(FormatMillis(int64(f)))
		} else {
			glog.V(5).Infof("chatstore: ignore timestamp %s", data)
		}
	}
	return nil
}

// formatLocalDateTime formats [year, month, day, hour, minute, second, nano] as
// an ISO local date-time. Missing trailing fields are zero.
func formatLocalDateTime(parts []int) string {
	var f [7]int
	copy(f[:], parts)
	s := fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d", f[0], f[1], f[2], f[3], f[4], f[5])
	if f[6] > 0 {
		s += strings.TrimRight(fmt.Sprintf(".%09d", f[6]), "0")
	}
	return s
}

// FormatMillis formats epoch milliseconds as RFC 3339 with millisecond precision.
func FormatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// Envelope is the unit exchanged with the backend, in both directions.
type Envelope struct {
	SenderName   string    `json:"senderName"`
	Status       Status    `json:"status,omitempty"`
	Message      string    `json:"message,omitempty"`
	Media        string    `json:"media,omitempty"`
	MediaType    string    `json:"mediaType,omitempty"`
	Timestamp    Timestamp `json:"timestamp,omitempty"`
	ReceiverName string    `json:"receiverName,omitempty"`
	GroupID      GroupID   `json:"groupId,omitempty"`
	GroupName    string    `json:"groupName,omitempty"`
}

// Kind classifies the envelope by its addressing fields.
func (e *Envelope) Kind() Kind {
	if e.ReceiverName != "" {
		return KindPrivate
	} else if e.GroupID != "" {
		return KindGroup
	}
	return KindPublic
}

// HasContent reports whether a MESSAGE envelope carries text or media.
func (e *Envelope) HasContent() bool {
	return strings.TrimSpace(e.Message) != "" || e.Media != ""
}

// Group is a cached copy of backend group state. Members are usernames.
type Group struct {
	ID      GroupID  `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members,omitempty"`
}

// UnmarshalJSON accepts members as usernames or as backend user objects.
func (g *Group) UnmarshalJSON(data []byte) error {
	type plain Group
	var v struct {
		plain
		Members []memberName `json:"members"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*g = Group(v.plain)
	g.Members = nil
	for _, m := range v.Members {
		g.Members = append(g.Members, string(m))
	}
	return nil
}

type memberName string

func (m *memberName) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var u struct {
			Username string `json:"username"`
		}
		if err := json.Unmarshal(data, &u); err != nil {
			return fmt.Errorf("member: %w", err)
		}
		*m = memberName(u.Username)
		return nil
	}
	s, err := numberOrString(data)
	if err != nil {
		return fmt.Errorf("member: %w", err)
	}
	*m = memberName(s)
	return nil
}

func numberOrString(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
