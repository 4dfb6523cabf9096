package storage

import (
	"github.com/pkg/errors"

	"github.com/rad-link/corestore/internal/gitstore"
	"github.com/rad-link/corestore/internal/identity"
	"github.com/rad-link/corestore/internal/refname"
	"github.com/rad-link/corestore/internal/unwinder"
)

// CreateRepo creates a brand-new identity locally, per §4.5. Any failure
// after the rad/id commit lands triggers delete_repo before the error is
// returned to the caller.
func CreateRepo[T any](s *SignedStorage, e *identity.Entity[T]) (identity.URN, error) {
	urn := e.Urn()

	if len(e.Signatures) == 0 {
		return identity.URN{}, &UnsignedMetadata{Urn: urn}
	}

	selfSig, ok := e.HasSignatureBy(s.peerId)
	if !ok {
		return identity.URN{}, &NotSignedBySelf{Urn: urn}
	}

	radSelfTarget := refname.RadId(urn.Id)
	if !selfSig.By.OwnedKey {
		radSelfTarget = refname.RadId(selfSig.By.User.Id)
	}

	if radSelfTarget != refname.RadId(urn.Id) {
		ok, err := s.repo.HasReference(radSelfTarget)
		if err != nil {
			return identity.URN{}, err
		}
		if !ok {
			return identity.URN{}, &NoSelf{Reference: radSelfTarget}
		}
	}

	for _, c := range e.Certifiers {
		ok, err := s.HasURN(c)
		if err != nil {
			return identity.URN{}, err
		}
		if !ok {
			return identity.URN{}, &MissingCertifier{Certifier: c, Urn: urn}
		}
	}

	err := unwinder.Run(func(u *unwinder.U) {
		canonical, err := identity.EncodeCanonical(e)
		u.Check(err)

		blobHash, err := s.repo.HashObject(canonical, "blob")
		u.Check(err)

		treeHash, err := s.repo.MkTree([]gitstore.TreeEntry{
			{Mode: "100644", Type: "blob", Hash: blobHash, Name: "id"},
		})
		u.Check(err)

		commitHash, err := s.repo.CommitTree(treeHash, nil, "Initialised with identity "+urn.Id.String())
		u.Check(err)

		u.Check(s.repo.UpdateRef(refname.RadId(urn.Id), commitHash, "", false))
		u.Check(s.repo.SymbolicRef(refname.RadSelf(urn.Id), radSelfTarget, false))

		for _, c := range e.Certifiers {
			u.Check(s.repo.SymbolicRef(refname.RadIds(urn.Id, c.Id), refname.RadId(c.Id), false))
		}

		u.Check(s.trackSignersOf(urn, e.Signatures))
		u.Check(s.UpdateRefs(urn))
	})

	if err != nil {
		s.deleteRepo(urn)
		return identity.URN{}, err
	}

	return urn, nil
}

// deleteRepo purges every reference under urn's namespace. It is the
// best-effort cleanup path for create_repo/clone_repo and is deliberately
// not exported: the core exposes no public "delete an identity" operation.
func (s *SignedStorage) deleteRepo(urn identity.URN) {
	entries, err := s.repo.ForEachRef(refname.NamespaceOf(urn.Id) + "/**")
	if err != nil {
		return
	}
	for _, e := range entries {
		_ = s.repo.DeleteRef(e.Name)
	}
}

// TrackSigners implements §4.6: for each signature on the entity from a
// peer other than ourselves, track the signer (and, if the signature is a
// user's, track the user too). An already-existing remote is success.
func TrackSigners[T any](s *SignedStorage, e *identity.Entity[T]) error {
	return s.trackSignersOf(e.Urn(), e.Signatures)
}

func (s *SignedStorage) trackSignersOf(urn identity.URN, sigs map[string]identity.EntitySignature) error {
	for _, sig := range sigs {
		if sig.Peer.Equal(s.peerId) {
			continue
		}
		if err := s.Track(urn, sig.Peer); err != nil {
			return err
		}
		if !sig.By.OwnedKey {
			if err := s.Track(sig.By.User, sig.Peer); err != nil {
				return err
			}
		}
	}
	return nil
}

// Track adds peer to the first-degree tracking set for urn by creating a
// named remote. Already-existing remotes succeed idempotently.
func (s *SignedStorage) Track(urn identity.URN, peer identity.PeerId) error {
	if peer.Equal(s.peerId) {
		return &SelfReferential{Peer: peer}
	}

	name := refname.TrackingRemoteName(urn.Id, peer)
	ok, err := s.hasRemote(name)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	url := identity.URL{Urn: urn, Authority: peer}
	return s.repo.AddRemote(name, url.String(),
		"+"+refname.NamespaceOf(urn.Id)+"/*:"+refname.NamespaceOf(urn.Id)+"/remotes/"+peer.String()+"/*")
}

func (s *SignedStorage) hasRemote(name string) (bool, error) {
	names, err := s.repo.ListRemotes()
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// Untrack deletes the named remote and the remote-tracking branches it
// matches. The reference implementation deletes everything matched by the
// fetchspec verbatim; we reproduce that (open question, not re-scoped).
func (s *SignedStorage) Untrack(urn identity.URN, peer identity.PeerId) error {
	name := refname.TrackingRemoteName(urn.Id, peer)

	entries, err := s.repo.ForEachRef(refname.NamespaceOf(urn.Id) + "/remotes/" + peer.String() + "/**")
	if err != nil {
		return err
	}
	for _, e := range entries {
		_ = s.repo.DeleteRef(e.Name)
	}

	return s.repo.RemoveRemote(name)
}

// SetDefaultRadSelf requires user.Urn() to exist locally and delegates to
// Config.
func (s *SignedStorage) SetDefaultRadSelf(urn identity.URN) error {
	return s.cfg.SetUser(&urn, s)
}

// RadSelfSpec selects what set_rad_self should point rad/self at.
type RadSelfSpec struct {
	Clear   bool
	Default bool
	Urn     *identity.URN
}

// SetRadSelf always uses forced symbolic reference replacement: last write
// wins.
func (s *SignedStorage) SetRadSelf(urn identity.URN, spec RadSelfSpec) error {
	ref := refname.RadSelf(urn.Id)

	switch {
	case spec.Clear:
		return s.repo.DeleteRef(ref)
	case spec.Default:
		def, err := s.cfg.User()
		if err != nil {
			return err
		}
		if def == nil {
			return errors.New("no default self identity configured")
		}
		return s.repo.SymbolicRef(ref, refname.RadId(def.Id), true)
	case spec.Urn != nil:
		if _, err := SomeMetadata(s, *spec.Urn); err != nil {
			if _, ok := errors.Cause(err).(*NoSuchUrn); ok {
				return &NoSuchUrn{Urn: *spec.Urn}
			}
			return errors.Wrapf(err, "rejecting %s as rad/self: not a valid identity", spec.Urn)
		}
		return s.repo.SymbolicRef(ref, refname.RadId(spec.Urn.Id), true)
	default:
		return errors.New("set_rad_self: exactly one of clear/default/urn must be set")
	}
}
