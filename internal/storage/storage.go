// Package storage is the central component of the core: it owns the
// backend handle and the local peer's signing key (when present) and
// exposes the identity, tracking, reference-snapshot and repo-lifecycle
// operations described in §4.3-§4.7.
//
// The two shapes the reference implementation calls Storage<NoSigner> and
// Storage<WithSigner> are modeled as two distinct Go types, Storage and
// SignedStorage, sharing a common read-only core. Mutating operations are
// only reachable on SignedStorage.
package storage

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/rad-link/corestore/internal/config"
	"github.com/rad-link/corestore/internal/gitstore"
	"github.com/rad-link/corestore/internal/identity"
	"github.com/rad-link/corestore/internal/refname"
	"github.com/rad-link/corestore/internal/snapshot"
)

type core struct {
	repo   *gitstore.Repo
	peerId identity.PeerId
	cfg    *config.Config
}

// Storage is a handle with no signing capability: read-only.
type Storage struct {
	core
}

// Open opens an existing bare object store at path with no signer. Fails
// with NotInitialized (wrapped) if path has never been init'd.
func Open(path string) (*Storage, error) {
	repo, err := gitstore.NewRepo(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open object store")
	}

	cfg := config.New(repo)
	peerId, err := cfg.PeerId()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open object store")
	}

	return &Storage{core{repo: repo, peerId: peerId, cfg: cfg}}, nil
}

func (c *core) PeerId() identity.PeerId { return c.peerId }

// Repo exposes the underlying backend handle, for fetch.Constructor
// implementations that need to bind a Fetcher to this store.
func (c *core) Repo() *gitstore.Repo { return c.repo }

// WithSigner upgrades a no-signer handle to a signing one, enforcing
// invariant 1: the signer's derived peer id must match the configured one.
func (s *Storage) WithSigner(signer identity.SecretKey) (*SignedStorage, error) {
	if !signer.PeerId().Equal(s.peerId) {
		return nil, &SignerKeyMismatch{Configured: s.peerId, Signer: signer.PeerId()}
	}
	return &SignedStorage{core: s.core, signer: signer}, nil
}

// HasURN reports whether u's rad/id reference exists locally.
func (c *core) HasURN(u identity.URN) (bool, error) {
	return c.repo.HasReference(refname.RadId(u.Id))
}

// HasRef reports whether a fully-qualified reference exists.
func (c *core) HasRef(ref string) (bool, error) {
	return c.repo.HasReference(ref)
}

// HasCommit reports whether some reference in u's namespace points at oid
// or a descendant of it.
func (c *core) HasCommit(u identity.URN, oid string) (bool, error) {
	entries, err := c.repo.ForEachRef(refname.NamespaceOf(u.Id) + "/**")
	if err != nil {
		return false, err
	}

	for _, e := range entries {
		if e.Hash == oid {
			return true, nil
		}
		ok, err := c.repo.IsAncestor(oid, e.Hash)
		if err != nil {
			continue
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}

func (c *core) readBlobAtRef(ref, file string) ([]byte, error) {
	exists, err := c.repo.HasReference(ref)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &NoSuchUrn{}
	}
	return c.repo.CatFileBlob(ref, file)
}

func (c *core) metadataBytes(u identity.URN) ([]byte, error) {
	return c.readBlobAtRef(refname.RadId(u.Id), "id")
}

func (c *core) metadataOfBytes(u identity.URN, peer identity.PeerId) ([]byte, error) {
	return c.readBlobAtRef(refname.RemoteRadId(u.Id, peer), "id")
}

// Metadata reads the 'id' blob at the tip of rad/id and decodes it as
// Entity[T].
func Metadata[T any](c ReadCapability, u identity.URN) (*identity.Entity[T], error) {
	data, err := c.metadataBytes(u)
	if err != nil {
		return nil, err
	}
	return identity.DecodeCanonical[T](data)
}

// MetadataOf is Metadata scoped to a remote peer's view.
func MetadataOf[T any](c ReadCapability, u identity.URN, peer identity.PeerId) (*identity.Entity[T], error) {
	data, err := c.metadataOfBytes(u, peer)
	if err != nil {
		return nil, err
	}
	return identity.DecodeCanonical[T](data)
}

// SomeMetadata decodes without static type knowledge: the payload is left
// as raw JSON for the caller to dispatch on.
func SomeMetadata(c ReadCapability, u identity.URN) (*identity.Entity[json.RawMessage], error) {
	return Metadata[json.RawMessage](c, u)
}

func SomeMetadataOf(c ReadCapability, u identity.URN, peer identity.PeerId) (*identity.Entity[json.RawMessage], error) {
	return MetadataOf[json.RawMessage](c, u, peer)
}

// MetadataResult is one element yielded by AllMetadata: per-item failures
// do not stop iteration (§7's propagation policy for streaming iterators).
type MetadataResult struct {
	Urn    identity.URN
	Entity *identity.Entity[json.RawMessage]
	Err    error
}

// AllMetadata globs refs/namespaces/*/refs/rad/id and decodes each.
func AllMetadata(c ReadCapability) ([]MetadataResult, error) {
	entries, err := c.forEachRef("refs/namespaces/*/refs/rad/id")
	if err != nil {
		return nil, err
	}

	results := make([]MetadataResult, 0, len(entries))
	for _, e := range entries {
		id, ok := parseNamespaceId(e.Name)
		if !ok {
			continue
		}
		u := identity.URN{Id: id}
		ent, err := Metadata[json.RawMessage](c, u)
		results = append(results, MetadataResult{Urn: u, Entity: ent, Err: err})
	}

	return results, nil
}

func parseNamespaceId(ref string) (identity.Hash, bool) {
	const prefix = "refs/namespaces/"
	if !strings.HasPrefix(ref, prefix) {
		return identity.Hash{}, false
	}
	rest := ref[len(prefix):]
	i := strings.Index(rest, "/")
	if i < 0 {
		return identity.Hash{}, false
	}
	h, err := identity.ParseHash(rest[:i])
	if err != nil {
		return identity.Hash{}, false
	}
	return h, true
}

func (c *core) forEachRef(patterns ...string) ([]gitstore.RefEntry, error) {
	return c.repo.ForEachRef(patterns...)
}

// DefaultRadSelf reads the URN from Config and fetches its metadata.
func DefaultRadSelf(c *core) (*identity.Entity[json.RawMessage], error) {
	u, err := c.cfg.User()
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.New("no default self identity configured")
	}
	return SomeMetadata(c, *u)
}

// GetRadSelf reads the rad/self symbolic reference's target.
func (c *core) GetRadSelf(u identity.URN) (string, error) {
	return c.repo.SymbolicRefTarget(refname.RadSelf(u.Id))
}

func (c *core) GetRadSelfOf(u identity.URN, peer identity.PeerId) (string, error) {
	return c.repo.SymbolicRefTarget(refname.RemoteRadSelf(u.Id, peer))
}

// Certifiers is the union of URNs found under rad/ids/* (local) and
// remotes/**/rad/ids/* (every tracked peer's view).
func (c *core) Certifiers(u identity.URN) ([]identity.URN, error) {
	entries, err := c.repo.ForEachRef(refname.RadIdsGlobAll(u.Id)...)
	if err != nil {
		return nil, err
	}
	return certifierURNsFromRefs(entries), nil
}

// CertifiersOf is limited to a single remote peer's rad/ids/*.
func (c *core) CertifiersOf(u identity.URN, peer identity.PeerId) ([]identity.URN, error) {
	entries, err := c.repo.ForEachRef(refname.RemoteRadIdsGlob(u.Id, peer))
	if err != nil {
		return nil, err
	}
	return certifierURNsFromRefs(entries), nil
}

func certifierURNsFromRefs(entries []gitstore.RefEntry) []identity.URN {
	seen := map[identity.Hash]bool{}
	var out []identity.URN
	for _, e := range entries {
		i := strings.LastIndex(e.Name, "/rad/ids/")
		if i < 0 {
			continue
		}
		h, err := identity.ParseHash(e.Name[i+len("/rad/ids/"):])
		if err != nil {
			continue
		}
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, identity.URN{Id: h})
	}
	return out
}

// ReadCapability is the shared read-only capability promoted by both
// Storage and SignedStorage.
type ReadCapability interface {
	PeerId() identity.PeerId
	HasURN(identity.URN) (bool, error)
	HasRef(string) (bool, error)
	HasCommit(identity.URN, string) (bool, error)
	GetRadSelf(identity.URN) (string, error)
	GetRadSelfOf(identity.URN, identity.PeerId) (string, error)
	Certifiers(identity.URN) ([]identity.URN, error)
	CertifiersOf(identity.URN, identity.PeerId) ([]identity.URN, error)
	Tracked(identity.URN) (*TrackedIter, error)
	RadRefs(identity.URN) (snapshot.Refs, error)
	RadRefsOf(identity.URN, identity.PeerId) (snapshot.Signed, error)

	metadataBytes(identity.URN) ([]byte, error)
	metadataOfBytes(identity.URN, identity.PeerId) ([]byte, error)
	forEachRef(...string) ([]gitstore.RefEntry, error)
}

var _ ReadCapability = (*Storage)(nil)
var _ ReadCapability = (*SignedStorage)(nil)
