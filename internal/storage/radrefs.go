package storage

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/rad-link/corestore/internal/identity"
	"github.com/rad-link/corestore/internal/refname"
	"github.com/rad-link/corestore/internal/snapshot"
)

// RadRefs computes a fresh Refs snapshot: local branch tips plus the
// truncated transitive view folded in from each first-degree tracked peer.
func (c *core) RadRefs(u identity.URN) (snapshot.Refs, error) {
	heads, err := c.localHeads(u)
	if err != nil {
		return snapshot.Refs{}, err
	}

	remotes := snapshot.Remotes{}

	it, err := c.Tracked(u)
	if err != nil {
		return snapshot.Refs{}, err
	}

	for {
		peer, ok := it.Next()
		if !ok {
			break
		}

		signed, err := c.RadRefsOf(u, peer)
		if err != nil {
			// a peer with no rad/refs yet (or an invalid one) simply
			// contributes no transitive view; this is not fatal.
			remotes[peer.String()] = map[string][]string{}
			continue
		}

		remotes[peer.String()] = snapshot.Cutoff(signed.Refs.Remotes)
	}

	return snapshot.Refs{Heads: heads, Remotes: remotes}, nil
}

func (c *core) localHeads(u identity.URN) (map[string]string, error) {
	entries, err := c.repo.ForEachRef(refname.HeadsGlob(u.Id))
	if err != nil {
		return nil, err
	}

	heads := make(map[string]string, len(entries))
	prefix := refname.HeadsGlob(u.Id)
	prefix = prefix[:len(prefix)-1] // drop trailing '*'
	for _, e := range entries {
		name := strings.TrimPrefix(e.Name, prefix)
		heads[name] = e.Hash
	}

	return heads, nil
}

// RadRefsOf fetches and verifies a remote's signed snapshot at
// remotes/<peer>/rad/refs. Verification against peer is mandatory.
func (c *core) RadRefsOf(u identity.URN, peer identity.PeerId) (snapshot.Signed, error) {
	ref := refname.RemoteRadRefs(u.Id, peer)
	exists, err := c.repo.HasReference(ref)
	if err != nil {
		return snapshot.Signed{}, err
	}
	if !exists {
		return snapshot.Signed{}, &NoSuchUrn{Urn: u}
	}

	data, err := c.repo.CatFileBlob(ref, "refs")
	if err != nil {
		return snapshot.Signed{}, errors.Wrap(err, "failed to read remote rad/refs blob")
	}

	return snapshot.Decode(data, peer)
}
