// Package config is the thin typed view over the backend's own
// configuration file: the peer's long-term identifier and, optionally, the
// URN of the identity the peer has chosen as its default "self".
package config

import (
	"github.com/pkg/errors"

	"github.com/rad-link/corestore/internal/gitstore"
	"github.com/rad-link/corestore/internal/identity"
)

const (
	keyPeerID     = "radicle.peer.id"
	keyDefaultSelf = "radicle.user.self.urn"
)

// AlreadyInitialized is returned by Init when radicle.peer.id is already set.
type AlreadyInitialized struct {
	Path string
}

func (e *AlreadyInitialized) Error() string {
	return "config at " + e.Path + " is already initialized"
}

// NotInitialized is returned by PeerId when radicle.peer.id is missing. A
// malformed value is reported as a wrapped parse error instead.
type NotInitialized struct {
	Path string
}

func (e *NotInitialized) Error() string {
	return "config at " + e.Path + " has no peer id set"
}

type Config struct {
	cfg *gitstore.Config
}

func New(repo *gitstore.Repo) *Config {
	return &Config{cfg: repo.Config().Local()}
}

// PeerId reads the peer identifier stored under radicle.peer.id.
func (c *Config) PeerId() (identity.PeerId, error) {
	v, ok, err := c.cfg.Get(keyPeerID)
	if err != nil {
		return identity.PeerId{}, errors.Wrap(err, "failed to read peer id from config")
	}
	if !ok {
		return identity.PeerId{}, &NotInitialized{}
	}

	p, err := identity.ParsePeerId(v)
	if err != nil {
		return identity.PeerId{}, errors.Wrap(err, "config contains a malformed peer id")
	}

	return p, nil
}

// Init writes the peer id derived from signer. It refuses to overwrite an
// already-initialized config.
func (c *Config) Init(signer identity.SecretKey, user *identity.URN) error {
	if _, err := c.PeerId(); err == nil {
		return &AlreadyInitialized{}
	} else if _, ok := err.(*NotInitialized); !ok {
		return err
	}

	if err := c.cfg.Set(keyPeerID, signer.PeerId().String()); err != nil {
		return errors.Wrap(err, "failed to write peer id to config")
	}

	if user != nil {
		if err := c.setUserRaw(*user); err != nil {
			return err
		}
	}

	return nil
}

// User reads the default "self" identity reference, if any has been set.
func (c *Config) User() (*identity.URN, error) {
	v, ok, err := c.cfg.Get(keyDefaultSelf)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read default self from config")
	}
	if !ok {
		return nil, nil
	}

	u, err := identity.ParseURN(v)
	if err != nil {
		return nil, errors.Wrap(err, "config contains a malformed default self urn")
	}

	return &u, nil
}

// UserValidator is satisfied by Storage; it lets Config reject an invalid
// default self without importing the storage package (which imports Config).
type UserValidator interface {
	HasURN(u identity.URN) (bool, error)
}

// SetUser replaces (or, if u is nil, clears) the default self identity.
// guard_user_valid: a non-nil value is rejected unless it resolves locally.
func (c *Config) SetUser(u *identity.URN, v UserValidator) error {
	if u == nil {
		return c.clearUser()
	}

	ok, err := v.HasURN(*u)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Errorf("refusing to set default self to unknown urn %s", u.String())
	}

	return c.setUserRaw(*u)
}

func (c *Config) setUserRaw(u identity.URN) error {
	return errors.Wrap(c.cfg.Set(keyDefaultSelf, u.String()), "failed to write default self to config")
}

func (c *Config) clearUser() error {
	return errors.Wrap(c.cfg.Unset(keyDefaultSelf), "failed to clear default self in config")
}
