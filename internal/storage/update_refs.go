package storage

import (
	"github.com/pkg/errors"

	"github.com/rad-link/corestore/internal/gitstore"
	"github.com/rad-link/corestore/internal/identity"
	"github.com/rad-link/corestore/internal/refname"
	"github.com/rad-link/corestore/internal/snapshot"
)

// UpdateRefs recomputes the Refs snapshot for urn, signs it, and commits it
// onto rad/refs. It is a no-op (invariant 6) when the new tree would be
// identical to the parent commit's tree.
func (s *SignedStorage) UpdateRefs(urn identity.URN) error {
	refs, err := s.RadRefs(urn)
	if err != nil {
		return err
	}

	blob, err := snapshot.Sign(refs, s.signer)
	if err != nil {
		return err
	}

	blobHash, err := s.repo.HashObject(blob, "blob")
	if err != nil {
		return err
	}

	treeHash, err := s.repo.MkTree([]gitstore.TreeEntry{
		{Mode: "100644", Type: "blob", Hash: blobHash, Name: "refs"},
	})
	if err != nil {
		return err
	}

	ref := refname.RadRefs(urn.Id)
	parent, err := s.repo.ResolveRef(ref)
	hasParent := err == nil

	if hasParent {
		parentTree, err := s.repo.TreeID(parent)
		if err != nil {
			return err
		}
		if parentTree == treeHash {
			return nil
		}
	}

	var parents []string
	if hasParent {
		parents = []string{parent}
	}

	commitHash, err := s.repo.CommitTree(treeHash, parents, "")
	if err != nil {
		return errors.Wrap(err, "failed to commit rad/refs snapshot")
	}

	return s.repo.UpdateRef(ref, commitHash, parent, true)
}
