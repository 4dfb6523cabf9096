package storage

import (
	"fmt"

	"github.com/rad-link/corestore/internal/identity"
)

type AlreadyExists struct{ Urn identity.URN }

func (e *AlreadyExists) Error() string { return fmt.Sprintf("identity %s already exists locally", e.Urn) }

type NoSuchUrn struct{ Urn identity.URN }

func (e *NoSuchUrn) Error() string { return fmt.Sprintf("no local identity for %s", e.Urn) }

type RootHashMismatch struct {
	Expected identity.Hash
	Actual   identity.Hash
}

func (e *RootHashMismatch) Error() string {
	return fmt.Sprintf("root hash mismatch: expected %s, got %s", e.Expected, e.Actual)
}

type UnsignedMetadata struct{ Urn identity.URN }

func (e *UnsignedMetadata) Error() string {
	return fmt.Sprintf("entity %s has no signatures", e.Urn)
}

type NotSignedBySelf struct{ Urn identity.URN }

func (e *NotSignedBySelf) Error() string {
	return fmt.Sprintf("entity %s is not signed by the local peer", e.Urn)
}

type SignerKeyMismatch struct {
	Configured identity.PeerId
	Signer     identity.PeerId
}

func (e *SignerKeyMismatch) Error() string {
	return fmt.Sprintf(
		"signer's peer id %s does not match the configured peer id %s",
		e.Signer, e.Configured,
	)
}

type SelfReferential struct{ Peer identity.PeerId }

func (e *SelfReferential) Error() string {
	return fmt.Sprintf("refusing to track self (%s)", e.Peer)
}

type NoSelf struct{ Reference string }

func (e *NoSelf) Error() string {
	return fmt.Sprintf("rad/self target %s does not resolve locally", e.Reference)
}

type MissingCertifier struct {
	Certifier identity.URN
	Urn       identity.URN
}

func (e *MissingCertifier) Error() string {
	return fmt.Sprintf("certifier %s of %s is not present locally", e.Certifier, e.Urn)
}
