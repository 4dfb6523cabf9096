// Package fetch declares the Fetcher capability the storage core consumes
// but does not implement: the wire protocol, transport and negotiation
// logic live in a network layer outside this module's scope (§1, §4.8).
package fetch

import (
	"github.com/rad-link/corestore/internal/identity"
	"github.com/rad-link/corestore/internal/snapshot"
)

// GetRefs looks up a peer's signed Refs snapshot during negotiation.
type GetRefs func(identity.PeerId) (snapshot.Refs, error)

// GetCertifiers looks up a peer's certifier set during negotiation.
type GetCertifiers func(identity.PeerId) ([]identity.URN, error)

// Fetcher negotiates which references to pull from one remote peer. A
// concrete implementation is constructed bound to a backend and a remote
// URL; the core only ever holds it behind this interface.
type Fetcher interface {
	Url() identity.URL

	// Prefetch pulls only the remote's identity references
	// (rad/id and immediately-linked refs) into remotes/<peer>/....
	Prefetch() error

	// Fetch negotiates and transfers the remaining references the
	// transitive tracking graph calls for, given the caller's view of
	// each relevant peer's signed Refs and certifiers.
	Fetch(transitivePeers []identity.PeerId, getRefs GetRefs, getCertifiers GetCertifiers) error
}

// Constructor binds a remote peer's URL to a backend and returns a Fetcher
// for it. The core is handed a Constructor rather than constructing
// Fetchers itself, since the backend binding is a network-layer concern.
type Constructor func(url identity.URL) (Fetcher, error)
