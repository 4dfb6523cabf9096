package storage

import (
	"github.com/rad-link/corestore/internal/identity"
	"github.com/rad-link/corestore/internal/refname"
)

// TrackedIter is a single-pass, non-restartable iterator over the
// first-degree peers tracked for one URN (Design Notes: the backend's glob
// iteration is stateful and must not be exposed as restartable).
type TrackedIter struct {
	peers []identity.PeerId
	pos   int
}

func (it *TrackedIter) Next() (identity.PeerId, bool) {
	if it.pos >= len(it.peers) {
		return identity.PeerId{}, false
	}
	p := it.peers[it.pos]
	it.pos++
	return p, true
}

// All drains the iterator into a slice; convenience for callers that don't
// need the one-at-a-time form.
func (it *TrackedIter) All() []identity.PeerId {
	var out []identity.PeerId
	for {
		p, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, p)
	}
}

// Tracked lists the configured remotes, filters to those belonging to u's
// namespace, and parses the tracked peer out of each. Unparseable entries
// are silently skipped.
func (c *core) Tracked(u identity.URN) (*TrackedIter, error) {
	names, err := c.repo.ListRemotes()
	if err != nil {
		return nil, err
	}

	var peers []identity.PeerId
	for _, name := range names {
		id, peer, ok := refname.ParseTrackingRemoteName(name)
		if !ok || !id.Equal(u.Id) {
			continue
		}
		peers = append(peers, peer)
	}

	return &TrackedIter{peers: peers}, nil
}
