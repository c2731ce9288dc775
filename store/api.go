//go:generate mockgen -destination=mock/mock_backend.go -package=mock github.com/mqy/minichat/store IBackend

package store

import (
	"context"
	"io"

	"github.com/mqy/minichat/chatstore"
)

// IHistoryStore fetches conversation history. Results are ordered oldest first.
type IHistoryStore interface {
	// PublicHistory gets the public room history.
	PublicHistory(ctx context.Context) ([]chatstore.Envelope, error)

	// PrivateHistory gets the messages exchanged between a and b, both directions.
	PrivateHistory(ctx context.Context, a, b string) ([]chatstore.Envelope, error)

	// GroupHistory gets the messages of one group.
	GroupHistory(ctx context.Context, id chatstore.GroupID) ([]chatstore.Envelope, error)
}

// IUploader stores a media file and returns the opaque token to reference it from
// an envelope. An empty token means the upload failed.
type IUploader interface {
	Upload(ctx context.Context, f *MediaFile) (string, error)
}

// IGroupStore manages groups. Every mutation returns the backend's view of the
// group, callers refresh their cache from ListGroups anyway.
type IGroupStore interface {
	ListGroups(ctx context.Context) ([]chatstore.Group, error)
	CreateGroup(ctx context.Context, name string) (*chatstore.Group, error)
	AddUser(ctx context.Context, id chatstore.GroupID, userID string) (*chatstore.Group, error)
	RemoveUser(ctx context.Context, id chatstore.GroupID, userID string) (*chatstore.Group, error)
	DeleteGroup(ctx context.Context, id chatstore.GroupID) error
}

// User is a backend account. Group membership calls take its numeric ID.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// IUserStore resolves usernames.
type IUserStore interface {
	// SearchUser returns ErrUserNotFound when no account has username.
	SearchUser(ctx context.Context, username string) (*User, error)
}

// IMediaStore retrieves uploaded media by the token carried in envelopes.
type IMediaStore interface {
	MediaURL(token string) string

	// FetchMedia copies the media content to w and returns its content type.
	FetchMedia(ctx context.Context, token string, w io.Writer) (string, error)
}

// IPresenceStore gets the current online list.
type IPresenceStore interface {
	OnlineUsers(ctx context.Context) ([]string, error)
}

// IBackend is everything a session needs from the backend besides the transport.
type IBackend interface {
	IHistoryStore
	IUploader
	IGroupStore
	IUserStore
	IMediaStore
	IPresenceStore
}
