package storage

import (
	"os"
	"os/exec"

	"github.com/pkg/errors"

	"github.com/rad-link/corestore/internal/config"
	"github.com/rad-link/corestore/internal/gitstore"
	"github.com/rad-link/corestore/internal/identity"
)

// SignedStorage is a handle with a local signing key: the only shape that
// can perform mutations.
type SignedStorage struct {
	core
	signer identity.SecretKey
}

// Init creates a brand-new bare object store at path, writes the peer id
// derived from signer into its config, and returns a signing handle. It
// refuses to reinitialize an already-initialized store.
func Init(path string, signer identity.SecretKey) (*SignedStorage, error) {
	repo, err := gitstore.Init(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize object store")
	}

	cfg := config.New(repo)
	if err := cfg.Init(signer, nil); err != nil {
		return nil, errors.Wrap(err, "failed to initialize object store config")
	}

	return &SignedStorage{core: core{repo: repo, peerId: signer.PeerId(), cfg: cfg}, signer: signer}, nil
}

// OpenOrInit opens path, upgrading to signer; if no store exists there yet,
// it initializes one instead. Any other open failure propagates.
func OpenOrInit(path string, signer identity.SecretKey) (*SignedStorage, error) {
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		return Init(path, signer)
	}

	s, err := Open(path)
	if err != nil {
		if isNotInitialized(err) {
			return Init(path, signer)
		}
		return nil, err
	}
	return s.WithSigner(signer)
}

// isNotInitialized reports whether err means "there is nothing to open yet"
// rather than a real backend failure: either the config component found a
// bare repo with no peer id written, or the git backend itself rejected the
// path as not a (bare) repository. The latter shows up as *gitstore.NotAGitRepo
// when git's own stderr says so, or as a bare *exec.ExitError (exit 128) from
// IsBareRepository's probe when the path doesn't exist at all.
func isNotInitialized(err error) bool {
	cause := errors.Cause(err)

	if _, ok := cause.(*config.NotInitialized); ok {
		return true
	}
	if _, ok := cause.(*gitstore.NotAGitRepo); ok {
		return true
	}
	if exitErr, ok := cause.(*exec.ExitError); ok {
		return exitErr.ExitCode() == 128
	}
	return false
}

// Downcast produces a no-signer view sharing the same backend handle.
func (s *SignedStorage) Downcast() *Storage {
	return &Storage{core: s.core}
}

// Reopen produces an independent owning handle against the same on-disk
// state.
func (s *SignedStorage) Reopen() (*SignedStorage, error) {
	return OpenOrInit(s.repo.Path(), s.signer)
}

func (s *SignedStorage) Signer() identity.SecretKey { return s.signer }
