package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/mqy/minichat/chatstore"
)

const (
	publicHistoryPath  = "/api/users/messages/public"
	privateHistoryPath = "/api/users/messages/history/%s/%s"
	groupHistoryPath   = "/api/groups/%s/messages"
	uploadPath         = "/api/users/upload"
	filePath           = "/api/users/files/%s"
	searchUserPath     = "/api/users/search"
	onlineUsersPath    = "/api/users/online-users"
	groupsPath         = "/api/groups"
	groupPath          = "/api/groups/%s"
	addUserPath        = "/api/groups/%s/addUser/%s"
	removeUserPath     = "/api/groups/%s/removeUser/%s"

	defaultTimeout = 10 * time.Second

	// error bodies are logged, but only this much.
	maxErrorBody = 512
)

// ErrUserNotFound is returned by SearchUser for an unknown username.
var ErrUserNotFound = errors.New("user not found")

// StatusError is returned for non 2xx responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client talks to the chat backend REST API. It implements IBackend.
type Client struct {
	base *url.URL
	hc   *http.Client
}

var _ IBackend = (*Client)(nil)

// NewClient creates a client for the backend at baseURL, e.g. http://localhost:8080.
// A nil httpClient uses one with a default timeout.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url `%s`: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url `%s`: scheme must be http or https", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{base: u, hc: httpClient}, nil
}

func (c *Client) PublicHistory(ctx context.Context) ([]chatstore.Envelope, error) {
	var out []chatstore.Envelope
	if err := c.getJSON(ctx, publicHistoryPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PrivateHistory(ctx context.Context, a, b string) ([]chatstore.Envelope, error) {
	var out []chatstore.Envelope
	p := fmt.Sprintf(privateHistoryPath, url.PathEscape(a), url.PathEscape(b))
	if err := c.getJSON(ctx, p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GroupHistory(ctx context.Context, id chatstore.GroupID) ([]chatstore.Envelope, error) {
	var out []chatstore.Envelope
	p := fmt.Sprintf(groupHistoryPath, url.PathEscape(id.String()))
	if err := c.getJSON(ctx, p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) OnlineUsers(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.getJSON(ctx, onlineUsersPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListGroups(ctx context.Context) ([]chatstore.Group, error) {
	var out []chatstore.Group
	if err := c.getJSON(ctx, groupsPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateGroup(ctx context.Context, name string) (*chatstore.Group, error) {
	var out chatstore.Group
	q := url.Values{"name": {name}}
	if err := c.do(ctx, http.MethodPost, groupsPath, q, nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddUser(ctx context.Context, id chatstore.GroupID, userID string) (*chatstore.Group, error) {
	var out chatstore.Group
	p := fmt.Sprintf(addUserPath, url.PathEscape(id.String()), url.PathEscape(userID))
	if err := c.do(ctx, http.MethodPost, p, nil, nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemoveUser(ctx context.Context, id chatstore.GroupID, userID string) (*chatstore.Group, error) {
	var out chatstore.Group
	p := fmt.Sprintf(removeUserPath, url.PathEscape(id.String()), url.PathEscape(userID))
	if err := c.do(ctx, http.MethodDelete, p, nil, nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteGroup(ctx context.Context, id chatstore.GroupID) error {
	p := fmt.Sprintf(groupPath, url.PathEscape(id.String()))
	return c.do(ctx, http.MethodDelete, p, nil, nil, "", nil)
}

// Upload posts the file as multipart field `file`. The response body is the
// stored file name, used as the media token.
func (c *Client) Upload(ctx context.Context, f *MediaFile) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", f.Name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, rc); err != nil {
		return "", fmt.Errorf("read %s: %w", f.Name, err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	var token string
	if err := c.do(ctx, http.MethodPost, uploadPath, nil, &buf, mw.FormDataContentType(), &token); err != nil {
		return "", err
	}
	glog.V(5).Infof("store: uploaded %s as %q", f, token)
	return token, nil
}

func (c *Client) SearchUser(ctx context.Context, username string) (*User, error) {
	var out *User
	q := url.Values{"username": {username}}
	err := c.do(ctx, http.MethodGet, searchUserPath, q, nil, "", &out)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return nil, fmt.Errorf("%q: %w", username, ErrUserNotFound)
	} else if err != nil {
		return nil, err
	}
	if out == nil || out.Username == "" {
		return nil, fmt.Errorf("%q: %w", username, ErrUserNotFound)
	}
	return out, nil
}

// MediaURL is where the media of token can be downloaded.
func (c *Client) MediaURL(token string) string {
	return c.base.String() + fmt.Sprintf(filePath, url.PathEscape(token))
}

func (c *Client) FetchMedia(ctx context.Context, token string, w io.Writer) (string, error) {
	sink := &mediaSink{w: w}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf(filePath, url.PathEscape(token)), nil, nil, "", sink); err != nil {
		return "", err
	}
	return sink.contentType, nil
}

// mediaSink takes a raw response body.
type mediaSink struct {
	w           io.Writer
	contentType string
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, nil, "", out)
}

// do sends one request. out may be nil to discard the body, a *string to take the
// body as text, a *mediaSink to copy it, or anything else to decode JSON into.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader,
	contentType string, out interface{}) error {

	// path segments are already escaped.
	u, err := url.Parse(c.base.String() + path)
	if err != nil {
		return err
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	switch out.(type) {
	case nil, *string, *mediaSink:
	default:
		req.Header.Set("Accept", "application/json")
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	glog.V(5).Infof("store: %s %s -> %d, took %s", method, path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	switch v := out.(type) {
	case nil:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case *mediaSink:
		v.contentType = resp.Header.Get("Content-Type")
		if _, err := io.Copy(v.w, resp.Body); err != nil {
			return fmt.Errorf("%s %s: read body: %w", method, path, err)
		}
		return nil
	case *string:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%s %s: read body: %w", method, path, err)
		}
		*v = strings.TrimSpace(string(data))
		return nil
	default:
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return fmt.Errorf("%s %s: decode: %w", method, path, err)
		}
		return nil
	}
}
