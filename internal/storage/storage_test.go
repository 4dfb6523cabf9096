package storage_test

import (
	"encoding/json"
	"testing"

	r "github.com/stretchr/testify/require"

	"github.com/rad-link/corestore/internal/identity"
	"github.com/rad-link/corestore/internal/storage"
	"github.com/rad-link/corestore/internal/testutils"
)

func newSignedHandle(f *testutils.Fixture, name string) (*storage.SignedStorage, identity.SecretKey) {
	signer, err := identity.GenerateSecretKey()
	f.NoError(err)

	h, err := storage.Init(f.Temp+"/"+name, signer)
	f.NoError(err)

	return h, signer
}

func selfSignedEntity(f *testutils.Fixture, signer identity.SecretKey, payload string) *identity.Entity[json.RawMessage] {
	e, err := identity.NewEntity[json.RawMessage](json.RawMessage(payload), nil)
	f.NoError(err)
	f.NoError(identity.SignSelf(e, signer))
	return e
}

func TestCreateRepoThenMetadataRoundTrips(t *testing.T) {
	f := testutils.NewFixture(t)
	defer f.Close()

	h, signer := newSignedHandle(f, "a.git")
	e := selfSignedEntity(f, signer, `{"name":"acme"}`)

	urn, err := storage.CreateRepo(h, e)
	f.NoError(err)
	f.True(urn.Id.Equal(e.RootHash))

	ok, err := h.HasURN(urn)
	f.NoError(err)
	f.True(ok)

	got, err := storage.Metadata[json.RawMessage](h, urn)
	f.NoError(err)
	f.True(got.RootHash.Equal(urn.Id))
	f.Equal(`{"name":"acme"}`, string(got.Payload))
}

func TestCreateRepoRejectsUnsignedEntity(t *testing.T) {
	f := testutils.NewFixture(t)
	defer f.Close()

	h, _ := newSignedHandle(f, "a.git")
	e, err := identity.NewEntity[json.RawMessage](json.RawMessage(`{}`), nil)
	f.NoError(err)

	_, err = storage.CreateRepo(h, e)
	f.Error(err)
	_, ok := err.(*storage.UnsignedMetadata)
	f.True(ok)
}

func TestCreateRepoRejectsEntityNotSignedBySelf(t *testing.T) {
	f := testutils.NewFixture(t)
	defer f.Close()

	h, _ := newSignedHandle(f, "a.git")
	other, err := identity.GenerateSecretKey()
	f.NoError(err)
	e := selfSignedEntity(f, other, `{"name":"bob"}`)

	_, err = storage.CreateRepo(h, e)
	f.Error(err)
	_, ok := err.(*storage.NotSignedBySelf)
	f.True(ok)
}

func TestCreateRepoCleansUpOnMissingCertifier(t *testing.T) {
	f := testutils.NewFixture(t)
	defer f.Close()

	h, signer := newSignedHandle(f, "a.git")
	ghost := identity.URN{Id: identity.HashOf([]byte("ghost"))}

	e, err := identity.NewEntity[json.RawMessage](json.RawMessage(`{}`), []identity.URN{ghost})
	f.NoError(err)
	f.NoError(identity.SignSelf(e, signer))

	_, err = storage.CreateRepo(h, e)
	f.Error(err)
	_, ok := err.(*storage.MissingCertifier)
	f.True(ok)

	ok2, err := h.HasURN(e.Urn())
	f.NoError(err)
	f.False(ok2, "a failed create_repo must leave no trace")
}

func TestUpdateRefsIsNoOpWhenUnchanged(t *testing.T) {
	f := testutils.NewFixture(t)
	defer f.Close()

	h, signer := newSignedHandle(f, "a.git")
	e := selfSignedEntity(f, signer, `{"name":"acme"}`)
	urn, err := storage.CreateRepo(h, e)
	f.NoError(err)

	radRefs := "refs/namespaces/" + urn.Id.Multibase() + "/refs/rad/refs"
	before, err := h.HasRef(radRefs)
	f.NoError(err)
	f.True(before)

	tip, err := h.Repo().ResolveRef(radRefs)
	f.NoError(err)

	f.NoError(h.UpdateRefs(urn))
	f.NoError(h.UpdateRefs(urn))

	after, err := h.Repo().ResolveRef(radRefs)
	f.NoError(err)
	f.Equal(tip, after)
}

func TestTrackAndUntrack(t *testing.T) {
	f := testutils.NewFixture(t)
	defer f.Close()

	h, signer := newSignedHandle(f, "a.git")
	e := selfSignedEntity(f, signer, `{"name":"acme"}`)
	urn, err := storage.CreateRepo(h, e)
	f.NoError(err)

	peer, err := identity.GenerateSecretKey()
	f.NoError(err)

	f.NoError(h.Track(urn, peer.PeerId()))
	f.NoError(h.Track(urn, peer.PeerId())) // idempotent

	tracked, err := h.Tracked(urn)
	f.NoError(err)
	all := tracked.All()
	f.Len(all, 1)
	f.True(all[0].Equal(peer.PeerId()))

	f.NoError(h.Untrack(urn, peer.PeerId()))
	tracked, err = h.Tracked(urn)
	f.NoError(err)
	f.Empty(tracked.All())
}

func TestTrackRejectsSelf(t *testing.T) {
	f := testutils.NewFixture(t)
	defer f.Close()

	h, signer := newSignedHandle(f, "a.git")
	e := selfSignedEntity(f, signer, `{}`)
	urn, err := storage.CreateRepo(h, e)
	f.NoError(err)

	err = h.Track(urn, signer.PeerId())
	f.Error(err)
	_, ok := err.(*storage.SelfReferential)
	f.True(ok)
}

func TestSetRadSelfClearAndUrn(t *testing.T) {
	f := testutils.NewFixture(t)
	defer f.Close()

	h, signer := newSignedHandle(f, "a.git")
	project := selfSignedEntity(f, signer, `{"kind":"project"}`)
	projectUrn, err := storage.CreateRepo(h, project)
	f.NoError(err)

	user := selfSignedEntity(f, signer, `{"kind":"user"}`)
	userUrn, err := storage.CreateRepo(h, user)
	f.NoError(err)

	f.NoError(h.SetRadSelf(projectUrn, storage.RadSelfSpec{Urn: &userUrn}))
	target, err := h.GetRadSelf(projectUrn)
	f.NoError(err)
	f.Contains(target, userUrn.Id.Multibase())

	f.NoError(h.SetRadSelf(projectUrn, storage.RadSelfSpec{Clear: true}))
	_, err = h.GetRadSelf(projectUrn)
	f.Error(err)
}

func TestSetRadSelfRejectsUnknownUrn(t *testing.T) {
	f := testutils.NewFixture(t)
	defer f.Close()

	h, signer := newSignedHandle(f, "a.git")
	project := selfSignedEntity(f, signer, `{}`)
	projectUrn, err := storage.CreateRepo(h, project)
	f.NoError(err)

	ghost := identity.URN{Id: identity.HashOf([]byte("ghost"))}
	err = h.SetRadSelf(projectUrn, storage.RadSelfSpec{Urn: &ghost})
	f.Error(err)
	_, ok := err.(*storage.NoSuchUrn)
	f.True(ok)
}

func TestWithSignerRejectsMismatchedKey(t *testing.T) {
	f := testutils.NewFixture(t)
	defer f.Close()

	h, _ := newSignedHandle(f, "a.git")
	ro := h.Downcast()

	other, err := identity.GenerateSecretKey()
	f.NoError(err)

	_, err = ro.WithSigner(other)
	f.Error(err)
	_, ok := err.(*storage.SignerKeyMismatch)
	f.True(ok)
}

func TestOpenOrInitInitializesOnFirstUse(t *testing.T) {
	f := testutils.NewFixture(t)
	defer f.Close()

	signer, err := identity.GenerateSecretKey()
	f.NoError(err)

	path := f.Temp + "/fresh.git"
	h, err := storage.OpenOrInit(path, signer)
	f.NoError(err)
	f.True(h.PeerId().Equal(signer.PeerId()))

	h2, err := storage.OpenOrInit(path, signer)
	f.NoError(err)
	f.True(h2.PeerId().Equal(signer.PeerId()))
}
