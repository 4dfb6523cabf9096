package storage_test

import (
	"encoding/json"
	"fmt"
	"testing"

	r "github.com/stretchr/testify/require"

	"github.com/rad-link/corestore/internal/fetch"
	"github.com/rad-link/corestore/internal/identity"
	"github.com/rad-link/corestore/internal/storage"
	"github.com/rad-link/corestore/internal/testutils"
)

// TestSaturationCloneManyIdentities creates N identities signed by peer A,
// clones each into store B, and checks B ends up with exactly N decodable,
// non-duplicated entries under all_metadata.
func TestSaturationCloneManyIdentities(t *testing.T) {
	f := testutils.NewFixture(t)
	defer f.Close()

	const n = 12

	aSigner, err := identity.GenerateSecretKey()
	f.NoError(err)
	a, err := storage.Init(f.Temp+"/a.git", aSigner)
	f.NoError(err)

	bSigner, err := identity.GenerateSecretKey()
	f.NoError(err)
	b, err := storage.Init(f.Temp+"/b.git", bSigner)
	f.NoError(err)

	urns := make([]identity.URN, 0, n)
	for i := 0; i < n; i++ {
		payload := json.RawMessage(fmt.Sprintf(`{"name":"project-%d"}`, i))
		e, err := identity.NewEntity[json.RawMessage](payload, nil)
		f.NoError(err)
		f.NoError(identity.SignSelf(e, aSigner))

		urn, err := storage.CreateRepo(a, e)
		f.NoError(err)
		urns = append(urns, urn)
	}

	for _, urn := range urns {
		url := identity.URL{Urn: urn, Authority: aSigner.PeerId()}
		lf, err := fetch.NewLocalFetcher(b.Repo(), url, a.Repo().Path())
		f.NoError(err)

		_, err = b.CloneRepo(url, lf)
		f.NoError(err)
	}

	results, err := storage.AllMetadata(b)
	f.NoError(err)
	f.Len(results, n)

	seen := map[identity.Hash]bool{}
	for _, res := range results {
		f.NoError(res.Err)
		f.NotNil(res.Entity)
		f.False(seen[res.Urn.Id], "duplicate urn in all_metadata: %s", res.Urn)
		seen[res.Urn.Id] = true
	}
}
