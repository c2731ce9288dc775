package store

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqy/minichat/chatstore"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/", nil)
	require.NoError(t, err)
	return c
}

func TestNewClientValidatesURL(t *testing.T) {
	_, err := NewClient("ftp://x", nil)
	assert.Error(t, err)
	_, err = NewClient("://", nil)
	assert.Error(t, err)
}

func TestPrivateHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/users/messages/history/alice/bob smith", r.URL.Path)
		_, _ = io.WriteString(w, `[
			{"senderName":"alice","receiverName":"bob smith","message":"1","status":"MESSAGE","timestamp":1},
			{"senderName":"bob smith","receiverName":"alice","message":"2","status":"MESSAGE","timestamp":2}
		]`)
	})

	out, err := c.PrivateHistory(context.Background(), "alice", "bob smith")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "1", out[0].Message)
	assert.Equal(t, "bob smith", out[1].SenderName)
}

func TestPublicAndGroupHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/users/messages/public":
			_, _ = io.WriteString(w, `[{"senderName":"a","status":"MESSAGE","message":"p"}]`)
		case "/api/groups/7/messages":
			_, _ = io.WriteString(w, `[{"senderName":"a","message":"g","groupId":7,"groupName":"seven"}]`)
		default:
			http.NotFound(w, r)
		}
	})

	pub, err := c.PublicHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []chatstore.Envelope{{SenderName: "a", Status: chatstore.StatusMessage, Message: "p"}}, pub)

	grp, err := c.GroupHistory(context.Background(), "7")
	require.NoError(t, err)
	require.Len(t, grp, 1)
	assert.Equal(t, chatstore.GroupID("7"), grp[0].GroupID)

	_, err = c.GroupHistory(context.Background(), "8")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestGroupsAPI(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.RequestURI())
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/groups":
			_, _ = io.WriteString(w, `[{"id":1,"name":"one","members":[{"id":42,"username":"bob"}]},{"id":2,"name":"two"}]`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/groups":
			_, _ = io.WriteString(w, `{"id":3,"name":"`+r.URL.Query().Get("name")+`"}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/groups/3":
			w.WriteHeader(http.StatusOK)
		default:
			_, _ = io.WriteString(w, `{"id":3,"name":"three"}`)
		}
	})
	ctx := context.Background()

	groups, err := c.ListGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []chatstore.Group{{ID: "1", Name: "one", Members: []string{"bob"}}, {ID: "2", Name: "two"}}, groups)

	g, err := c.CreateGroup(ctx, "three")
	require.NoError(t, err)
	assert.Equal(t, &chatstore.Group{ID: "3", Name: "three"}, g)

	_, err = c.AddUser(ctx, "3", "42")
	require.NoError(t, err)
	_, err = c.RemoveUser(ctx, "3", "42")
	require.NoError(t, err)
	require.NoError(t, c.DeleteGroup(ctx, "3"))

	assert.Equal(t, []string{
		"GET /api/groups",
		"POST /api/groups?name=three",
		"POST /api/groups/3/addUser/42",
		"DELETE /api/groups/3/removeUser/42",
		"DELETE /api/groups/3",
	}, calls)
}

func TestOnlineUsers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/online-users", r.URL.Path)
		_, _ = io.WriteString(w, `["b","a"]`)
	})

	out, err := c.OnlineUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, out)
}

func TestUpload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/upload", r.URL.Path)
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "pic.png", hdr.Filename)
		assert.Equal(t, "PNGDATA", string(data))
		_, _ = io.WriteString(w, "uuid_pic.png\n")
	})

	mf := NewMediaFile("pic.png", "image/png", 7, func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("PNGDATA")), nil
	})
	token, err := c.Upload(context.Background(), mf)
	require.NoError(t, err)
	assert.Equal(t, "uuid_pic.png", token)
}

func TestUploadError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Failed to upload file: disk full", http.StatusInternalServerError)
	})

	mf := NewMediaFile("a.txt", "text/plain", 1, func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("a")), nil
	})
	token, err := c.Upload(context.Background(), mf)
	assert.Empty(t, token)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Contains(t, se.Body, "disk full")
}

func TestSearchUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/search", r.URL.Path)
		switch r.URL.Query().Get("username") {
		case "bob smith":
			_, _ = io.WriteString(w, `{"id":42,"username":"bob smith","name":"Bob","email":"bob@x","password":"-"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	u, err := c.SearchUser(ctx, "bob smith")
	require.NoError(t, err)
	assert.Equal(t, &User{ID: 42, Username: "bob smith", Name: "Bob", Email: "bob@x"}, u)

	_, err = c.SearchUser(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestFetchMedia(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users/files/uuid_a b.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = io.WriteString(w, "PNGDATA")
	})
	ctx := context.Background()

	assert.True(t, strings.HasSuffix(c.MediaURL("uuid_a b.png"), "/api/users/files/uuid_a%20b.png"))

	var buf strings.Builder
	contentType, err := c.FetchMedia(ctx, "uuid_a b.png", &buf)
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, "PNGDATA", buf.String())

	_, err = c.FetchMedia(ctx, "missing", &buf)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}
