package storage

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/rad-link/corestore/internal/fetch"
	"github.com/rad-link/corestore/internal/identity"
	"github.com/rad-link/corestore/internal/refname"
	"github.com/rad-link/corestore/internal/snapshot"
)

// CloneRepo clones an identity from a remote peer, per §4.5. f must already
// be bound to url (fetch.Constructor's job, owned by the caller).
func (s *SignedStorage) CloneRepo(url identity.URL, f fetch.Fetcher) (identity.URN, error) {
	urn := url.Urn

	if ok, err := s.HasURN(urn); err != nil {
		return identity.URN{}, err
	} else if ok {
		return identity.URN{}, &AlreadyExists{Urn: urn}
	}

	if err := f.Prefetch(); err != nil {
		return identity.URN{}, errors.Wrap(err, "prefetch failed")
	}

	meta, err := SomeMetadataOf(s, urn, url.Authority)
	if err != nil {
		s.deleteRepo(urn)
		return identity.URN{}, err
	}

	if len(meta.Signatures) == 0 {
		s.deleteRepo(urn)
		return identity.URN{}, &UnsignedMetadata{Urn: urn}
	}
	if !meta.RootHash.Equal(urn.Id) {
		s.deleteRepo(urn)
		return identity.URN{}, &RootHashMismatch{Expected: urn.Id, Actual: meta.RootHash}
	}

	remoteRadId, err := s.repo.ResolveRef(refname.RemoteRadId(urn.Id, url.Authority))
	if err != nil {
		s.deleteRepo(urn)
		return identity.URN{}, errors.Wrap(err, "failed to resolve remote rad/id")
	}

	if err := s.repo.UpdateRef(refname.RadId(urn.Id), remoteRadId, "", false); err != nil {
		s.deleteRepo(urn)
		return identity.URN{}, err
	}

	if err := s.trackSignersOf(urn, meta.Signatures); err != nil {
		s.deleteRepo(urn)
		return identity.URN{}, err
	}

	if err := s.UpdateRefs(urn); err != nil {
		s.deleteRepo(urn)
		return identity.URN{}, err
	}

	if err := s.fetchInternal(url, f); err != nil {
		s.deleteRepo(urn)
		return identity.URN{}, err
	}

	return urn, nil
}

// FetchRepo fetches an existing local identity from a remote peer.
func (s *SignedStorage) FetchRepo(url identity.URL, f fetch.Fetcher) error {
	return s.fetchInternal(url, f)
}

func (s *SignedStorage) fetchInternal(url identity.URL, f fetch.Fetcher) error {
	urn := url.Urn

	refs, err := s.RadRefs(urn)
	if err != nil {
		return err
	}

	transitive := transitivePeerSet(refs.Remotes)

	if err := f.Fetch(transitive, s.wrapGetRefs(urn), s.wrapGetCertifiers(urn)); err != nil {
		return errors.Wrap(err, "fetch failed")
	}

	entries, err := s.repo.ForEachRef(refname.RemoteRadIdsGlob(urn.Id, url.Authority))
	if err != nil {
		return err
	}
	for _, e := range entries {
		i := strings.LastIndex(e.Name, "/rad/ids/")
		if i < 0 {
			continue
		}
		certifier, err := identity.ParseHash(e.Name[i+len("/rad/ids/"):])
		if err != nil {
			continue
		}
		_ = s.repo.SymbolicRef(refname.RadIds(urn.Id, certifier), refname.RadId(certifier), false)
	}

	return s.UpdateRefs(urn)
}

func (s *SignedStorage) wrapGetRefs(urn identity.URN) fetch.GetRefs {
	return func(p identity.PeerId) (snapshot.Refs, error) {
		signed, err := s.RadRefsOf(urn, p)
		if err != nil {
			return snapshot.Refs{}, err
		}
		return signed.Refs, nil
	}
}

func (s *SignedStorage) wrapGetCertifiers(urn identity.URN) fetch.GetCertifiers {
	return func(p identity.PeerId) ([]identity.URN, error) {
		return s.CertifiersOf(urn, p)
	}
}

func transitivePeerSet(remotes snapshot.Remotes) []identity.PeerId {
	var out []identity.PeerId
	for _, str := range remotes.SortedPeers() {
		if p, err := identity.ParsePeerId(str); err == nil {
			out = append(out, p)
		}
	}
	return out
}
