package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/golang/glog"

	"github.com/mqy/minichat/chatstore"
	"github.com/mqy/minichat/store"
)

// target is where a composed message goes.
type target struct {
	kind  chatstore.Kind
	peer  string
	group chatstore.Group
}

func (t target) destination() string {
	switch t.kind {
	case chatstore.KindPrivate:
		return appPrivateMessage
	case chatstore.KindGroup:
		return appGroupMessage
	}
	return appMessage
}

func (t target) String() string {
	switch t.kind {
	case chatstore.KindPrivate:
		return "private:" + t.peer
	case chatstore.KindGroup:
		return "group:" + t.group.ID.String()
	}
	return "public"
}

// Input is the staged state of the message input.
type Input struct {
	Text  string
	Media *store.MediaFile
}

// Composer holds the staged input and builds outbound envelopes. Only one send
// may be in flight at a time.
type Composer struct {
	sync.Mutex
	self     string
	uploader store.IUploader

	text    string
	media   *store.MediaFile
	sending bool

	onReset func()
}

func NewComposer(self string, uploader store.IUploader) *Composer {
	return &Composer{self: self, uploader: uploader}
}

func (c *Composer) SetText(text string) {
	c.Lock()
	c.text = text
	c.Unlock()
}

func (c *Composer) StageMedia(f *store.MediaFile) {
	c.Lock()
	c.media = f
	c.Unlock()
}

func (c *Composer) ClearStagedMedia() {
	c.Lock()
	c.media = nil
	c.Unlock()
}

func (c *Composer) Staged() Input {
	c.Lock()
	defer c.Unlock()
	return Input{Text: c.text, Media: c.media}
}

// SetResetHandler sets the callback run after a successful send cleared the
// input, e.g. to reset a file picker.
func (c *Composer) SetResetHandler(fn func()) {
	c.Lock()
	c.onReset = fn
	c.Unlock()
}

// compose runs the upload then dispatch phases. It returns the dispatched
// envelope, or nil when there was nothing to send.
func (c *Composer) compose(ctx context.Context, t target, dispatch func(dest string, env *chatstore.Envelope) error) (*chatstore.Envelope, error) {
	c.Lock()
	if c.sending {
		c.Unlock()
		return nil, ErrSendInProgress
	}
	text, media := c.text, c.media
	if media == nil && strings.TrimSpace(text) == "" {
		c.Unlock()
		return nil, nil
	}
	c.sending = true
	c.Unlock()

	defer func() {
		c.Lock()
		c.sending = false
		c.Unlock()
	}()

	env := &chatstore.Envelope{
		SenderName: c.self,
		Status:     chatstore.StatusMessage,
		Message:    text,
	}

	if media != nil {
		token, err := c.uploader.Upload(ctx, media)
		if err != nil || token == "" {
			uploadCounter.WithLabelValues("failed").Inc()
			glog.Errorf("composer: upload %s for %s failed: %v", media, t, err)
			if err == nil {
				err = fmt.Errorf("empty media token")
			}
			return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
		uploadCounter.WithLabelValues("ok").Inc()
		env.Media = token
		env.MediaType = media.ContentType
	}

	switch t.kind {
	case chatstore.KindPrivate:
		env.ReceiverName = t.peer
	case chatstore.KindGroup:
		env.GroupID = t.group.ID
		env.GroupName = t.group.Name
	}

	if !env.HasContent() {
		return nil, nil
	}

	if err := dispatch(t.destination(), env); err != nil {
		return nil, err
	}
	sentCounter.WithLabelValues(t.kind.String()).Inc()

	c.reset(text, media)
	return env, nil
}

// reset clears the input after a send. It is shared by every send kind. Input
// staged while the send was in flight is kept.
func (c *Composer) reset(sentText string, sentMedia *store.MediaFile) {
	c.Lock()
	if c.text == sentText {
		c.text = ""
	}
	if c.media == sentMedia {
		c.media = nil
	}
	fn := c.onReset
	c.Unlock()

	if fn != nil {
		fn()
	}
}

// status builds a JOIN or LEAVE envelope.
func (c *Composer) status(s chatstore.Status) *chatstore.Envelope {
	return &chatstore.Envelope{SenderName: c.self, Status: s}
}
