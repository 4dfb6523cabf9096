package fetch_test

import (
	"encoding/json"
	"testing"

	r "github.com/stretchr/testify/require"

	"github.com/rad-link/corestore/internal/fetch"
	"github.com/rad-link/corestore/internal/identity"
	"github.com/rad-link/corestore/internal/storage"
	"github.com/rad-link/corestore/internal/testutils"
)

func TestLocalFetcherPrefetchPullsIdentityRefs(t *testing.T) {
	f := testutils.NewFixture(t)
	defer f.Close()

	aSigner, err := identity.GenerateSecretKey()
	f.NoError(err)
	a, err := storage.Init(f.Temp+"/a.git", aSigner)
	f.NoError(err)

	e, err := identity.NewEntity[json.RawMessage](json.RawMessage(`{"name":"acme"}`), nil)
	f.NoError(err)
	f.NoError(identity.SignSelf(e, aSigner))
	urn, err := storage.CreateRepo(a, e)
	f.NoError(err)

	bSigner, err := identity.GenerateSecretKey()
	f.NoError(err)
	b, err := storage.Init(f.Temp+"/b.git", bSigner)
	f.NoError(err)

	url := identity.URL{Urn: urn, Authority: aSigner.PeerId()}
	lf, err := fetch.NewLocalFetcher(b.Repo(), url, a.Repo().Path())
	f.NoError(err)

	f.NoError(lf.Prefetch())

	ns := "refs/namespaces/" + urn.Id.Multibase() + "/refs/remotes/" + aSigner.PeerId().String()
	ok, err := b.Repo().HasReference(ns + "/rad/id")
	f.NoError(err)
	f.True(ok)
}

func TestLocalFetcherUrlReturnsBoundUrl(t *testing.T) {
	f := testutils.NewFixture(t)
	defer f.Close()

	signer, err := identity.GenerateSecretKey()
	f.NoError(err)
	b, err := storage.Init(f.Temp+"/b.git", signer)
	f.NoError(err)

	url := identity.URL{Urn: identity.URN{Id: identity.HashOf([]byte("x"))}, Authority: signer.PeerId()}
	lf, err := fetch.NewLocalFetcher(b.Repo(), url, f.Temp+"/a.git")
	f.NoError(err)
	f.Equal(url.String(), lf.Url().String())
}
