// Package refname builds the fully-qualified reference names the storage
// core reads and writes, per the grammar in §4.1:
//
//	refs/namespaces/<id>/refs/rad/id
//	refs/namespaces/<id>/refs/rad/self
//	refs/namespaces/<id>/refs/rad/refs
//	refs/namespaces/<id>/refs/rad/ids/<certifier-id>
//	refs/namespaces/<id>/refs/heads/<branch>
//	refs/namespaces/<id>/refs/remotes/<peer>/...
package refname

import (
	"strings"

	"github.com/rad-link/corestore/internal/identity"
)

func namespace(id identity.Hash) string {
	return "refs/namespaces/" + id.Multibase() + "/refs"
}

// RadId is the canonical reference pointing at an identity document's commit.
func RadId(id identity.Hash) string { return namespace(id) + "/rad/id" }

// RadSelf identifies which user identity the local peer is, within a project.
func RadSelf(id identity.Hash) string { return namespace(id) + "/rad/self" }

// RadRefs is the signed snapshot commit.
func RadRefs(id identity.Hash) string { return namespace(id) + "/rad/refs" }

// RadIds is a symbolic reference to a certifier's rad/id.
func RadIds(id identity.Hash, certifier identity.Hash) string {
	return namespace(id) + "/rad/ids/" + certifier.Multibase()
}

// RadIdsGlob matches every certifier symlink under id's own namespace.
func RadIdsGlob(id identity.Hash) string { return namespace(id) + "/rad/ids/*" }

// RadIdsGlobAll matches every certifier symlink, local and remote, used by
// Storage.certifiers to compute the union.
func RadIdsGlobAll(id identity.Hash) []string {
	return []string{RadIdsGlob(id), namespace(id) + "/remotes/**/rad/ids/*"}
}

// Head is a local branch tip.
func Head(id identity.Hash, branch string) string {
	return namespace(id) + "/heads/" + branch
}

// HeadsGlob matches every local branch under id.
func HeadsGlob(id identity.Hash) string { return namespace(id) + "/heads/*" }

func remote(id identity.Hash, peer identity.PeerId) string {
	return namespace(id) + "/remotes/" + peer.String()
}

// RemotesGlob matches every tracked peer's namespace under id.
func RemotesGlob(id identity.Hash) string { return namespace(id) + "/remotes/*" }

func RemoteRadId(id identity.Hash, peer identity.PeerId) string   { return remote(id, peer) + "/rad/id" }
func RemoteRadSelf(id identity.Hash, peer identity.PeerId) string { return remote(id, peer) + "/rad/self" }
func RemoteRadRefs(id identity.Hash, peer identity.PeerId) string { return remote(id, peer) + "/rad/refs" }

func RemoteRadIds(id identity.Hash, peer identity.PeerId, certifier identity.Hash) string {
	return remote(id, peer) + "/rad/ids/" + certifier.Multibase()
}

func RemoteRadIdsGlob(id identity.Hash, peer identity.PeerId) string {
	return remote(id, peer) + "/rad/ids/*"
}

func RemoteHead(id identity.Hash, peer identity.PeerId, branch string) string {
	return remote(id, peer) + "/heads/" + branch
}

func RemoteHeadsGlob(id identity.Hash, peer identity.PeerId) string {
	return remote(id, peer) + "/heads/*"
}

// ForURN resolves a URN's effective path (defaulting to refs/rad/id) to the
// fully-qualified reference inside that identity's namespace.
func ForURN(u identity.URN) string {
	path := strings.TrimPrefix(string(u.EffectivePath()), "refs/")
	return namespace(u.Id) + "/" + path
}

// NamespaceOf is the bare refs/namespaces/<id>/refs prefix every reference
// belonging to id must live under (invariant 2).
func NamespaceOf(id identity.Hash) string { return namespace(id) }

// TrackingRemoteName is the git remote name under which a first-degree
// peer's view is configured: "<urn-id>/<peer>".
func TrackingRemoteName(id identity.Hash, peer identity.PeerId) string {
	return id.Multibase() + "/" + peer.String()
}

// ParseTrackingRemoteName splits a configured remote name back into the
// owning identity's hash and the tracked peer, skipping anything that does
// not parse (used by Storage.tracked to filter the full remote list).
func ParseTrackingRemoteName(name string) (id identity.Hash, peer identity.PeerId, ok bool) {
	i := strings.Index(name, "/")
	if i < 0 {
		return identity.Hash{}, identity.PeerId{}, false
	}

	var err error
	if id, err = identity.ParseHash(name[:i]); err != nil {
		return identity.Hash{}, identity.PeerId{}, false
	}
	if peer, err = identity.ParsePeerId(name[i+1:]); err != nil {
		return identity.Hash{}, identity.PeerId{}, false
	}

	return id, peer, true
}
