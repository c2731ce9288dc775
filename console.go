package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/golang/glog"

	"github.com/mqy/minichat/chatstore"
	"github.com/mqy/minichat/session"
	"github.com/mqy/minichat/store"
)

const consoleHelp = `commands:
  <text>                  send to the public room
  /pm <peer> <text>       send a private message
  /peer <peer>            open the conversation with peer
  /group <id>             select a group and show its history
  /g <text>               send to the selected group
  /file <path>            attach a file to the next message
  /unfile                 drop the attached file
  /save <media> <path>    download a received file
  /history                reload the public room
  /groups                 list groups
  /mkgroup <name>         create a group
  /adduser <id> <username>  add user to group
  /rmuser <id> <username>   remove user from group
  /rmgroup <id>           delete a group
  /online                 list online users
  /quit                   leave`

// console drives a session from line input. It is the only UI of the client.
type console struct {
	sync.Mutex
	sess  *session.Session
	media store.IMediaStore
	in    io.Reader
	out   io.Writer
}

func newConsole(sess *session.Session, media store.IMediaStore, in io.Reader, out io.Writer) *console {
	return &console{sess: sess, media: media, in: in, out: out}
}

func (c *console) printf(format string, args ...interface{}) {
	c.Lock()
	fmt.Fprintf(c.out, format+"\n", args...)
	c.Unlock()
}

// run reads commands until /quit or end of input.
func (c *console) run(ctx context.Context) {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return
		}
		if err := c.exec(ctx, line); err != nil {
			c.printf("error: %v", err)
		}
	}
	if err := scanner.Err(); err != nil {
		glog.Errorf("console: read input: %v", err)
	}
}

func (c *console) exec(ctx context.Context, line string) error {
	if !strings.HasPrefix(line, "/") {
		c.sess.SetText(line)
		return c.sess.SendPublic(ctx)
	}

	cmd, rest := splitWord(line)
	switch cmd {
	case "/help":
		c.printf("%s", consoleHelp)
	case "/pm":
		peer, text := splitWord(rest)
		if peer == "" {
			return fmt.Errorf("usage: /pm <peer> <text>")
		}
		c.sess.SetText(text)
		return c.sess.SendPrivate(ctx, peer)
	case "/peer":
		if rest == "" {
			return fmt.Errorf("usage: /peer <peer>")
		}
		if err := c.sess.SelectPeer(ctx, rest); err != nil {
			return err
		}
		tl, _ := c.sess.Store().Private(rest)
		c.printTimeline(chatstore.PrivateKey(rest), tl)
	case "/group":
		if rest == "" {
			return fmt.Errorf("usage: /group <id>")
		}
		id := chatstore.GroupID(rest)
		if err := c.sess.SelectGroup(ctx, id); err != nil {
			return err
		}
		tl, _ := c.sess.Store().Group(id)
		c.printTimeline(chatstore.GroupKey(id), tl)
	case "/g":
		if _, ok := c.sess.SelectedGroup(); !ok {
			return fmt.Errorf("no group selected, use /group <id>")
		}
		c.sess.SetText(rest)
		return c.sess.SendGroup(ctx)
	case "/file":
		f, err := store.OpenMediaFile(rest)
		if err != nil {
			return err
		}
		c.sess.StageMedia(f)
		c.printf("attached %s", f)
	case "/unfile":
		c.sess.ClearStagedMedia()
	case "/save":
		token, path := splitWord(rest)
		if token == "" || path == "" {
			return fmt.Errorf("usage: /save <media> <path>")
		}
		return c.save(ctx, token, path)
	case "/history":
		if err := c.sess.LoadPublicHistory(ctx); err != nil {
			return err
		}
		c.printTimeline(chatstore.PublicKey, c.sess.Store().Public())
	case "/groups":
		if err := c.sess.RefreshGroups(ctx); err != nil {
			return err
		}
		for _, g := range c.sess.Groups() {
			c.printf("%s\t%s\t%s", g.ID, g.Name, strings.Join(g.Members, ","))
		}
	case "/mkgroup":
		if rest == "" {
			return fmt.Errorf("usage: /mkgroup <name>")
		}
		g, err := c.sess.CreateGroup(ctx, rest)
		if err != nil {
			return err
		}
		if g != nil {
			c.printf("created group %s %s", g.ID, g.Name)
		}
	case "/adduser", "/rmuser":
		id, user := splitWord(rest)
		if id == "" || user == "" {
			return fmt.Errorf("usage: %s <id> <username>", cmd)
		}
		if cmd == "/adduser" {
			return c.sess.AddGroupMember(ctx, chatstore.GroupID(id), user)
		}
		return c.sess.RemoveGroupMember(ctx, chatstore.GroupID(id), user)
	case "/rmgroup":
		if rest == "" {
			return fmt.Errorf("usage: /rmgroup <id>")
		}
		return c.sess.DeleteGroup(ctx, chatstore.GroupID(rest))
	case "/online":
		if err := c.sess.RefreshPresence(ctx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown command %s, /help for commands", cmd)
	}
	return nil
}

// onChange prints appended envelopes. It runs under the session lock and must not
// call back into the session.
func (c *console) onChange(ch chatstore.Change) {
	switch ch.Op {
	case chatstore.OpAppend:
		c.printf("%s", c.format(ch.Key, ch.Envelope))
	case chatstore.OpCreate:
		if ch.Key.Kind == chatstore.KindPrivate {
			c.printf("* new conversation with %s", ch.Key.ID)
		}
	case chatstore.OpRemove:
		if ch.Key.Kind == chatstore.KindPrivate {
			c.printf("* conversation with %s closed", ch.Key.ID)
		}
	}
}

func (c *console) onPresence(online []string) {
	c.printf("* online: %s", strings.Join(online, ", "))
}

func (c *console) onInputReset() {
	glog.V(5).Infof("console: input cleared")
}

func (c *console) printTimeline(key chatstore.Key, tl chatstore.Timeline) {
	c.printf("--- %s, %d messages", key, tl.Len())
	for i := range tl.Envelopes {
		c.printf("%s", c.format(key, &tl.Envelopes[i]))
	}
}

func (c *console) save(ctx context.Context, token, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	contentType, err := c.media.FetchMedia(ctx, token, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("save %s: %w", token, err)
	}
	c.printf("saved %s (%s) to %s", token, contentType, path)
	return nil
}

func (c *console) format(key chatstore.Key, env *chatstore.Envelope) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", key)
	if env.Timestamp != "" {
		fmt.Fprintf(&b, " %s", env.Timestamp)
	}
	fmt.Fprintf(&b, " %s:", env.SenderName)
	if env.Message != "" {
		fmt.Fprintf(&b, " %s", env.Message)
	}
	if env.Media != "" {
		fmt.Fprintf(&b, " <%s %s %s>", env.MediaType, env.Media, c.media.MediaURL(env.Media))
	}
	return b.String()
}

func splitWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}
