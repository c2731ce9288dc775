package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoIdentity means nobody is logged in.
var ErrNoIdentity = errors.New("auth: no identity")

type Client interface {
	// Identity returns the login name of the current user.
	Identity() (string, error)
}

// StaticClient is a fixed login name, e.g. from a flag.
type StaticClient string

func (c StaticClient) Identity() (string, error) {
	id := strings.TrimSpace(string(c))
	if id == "" {
		return "", ErrNoIdentity
	}
	return id, nil
}

// FileClient keeps the login name in a file, so a later run reuses it.
type FileClient struct {
	Path string
}

func (c *FileClient) Identity() (string, error) {
	content, err := os.ReadFile(c.Path)
	if os.IsNotExist(err) {
		return "", ErrNoIdentity
	} else if err != nil {
		return "", fmt.Errorf("auth: read %s: %v", c.Path, err)
	}
	return StaticClient(content).Identity()
}

// Login saves id as the current login name.
func (c *FileClient) Login(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNoIdentity
	}
	if err := os.WriteFile(c.Path, []byte(id), 0600); err != nil {
		return fmt.Errorf("auth: write %s: %v", c.Path, err)
	}
	return nil
}

// Logout forgets the saved login name.
func (c *FileClient) Logout() error {
	if err := os.Remove(c.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("auth: remove %s: %v", c.Path, err)
	}
	return nil
}

// Chain returns the identity of the first client that has one.
type Chain []Client

func (c Chain) Identity() (string, error) {
	for _, client := range c {
		id, err := client.Identity()
		if err == nil {
			return id, nil
		} else if !errors.Is(err, ErrNoIdentity) {
			return "", err
		}
	}
	return "", ErrNoIdentity
}
