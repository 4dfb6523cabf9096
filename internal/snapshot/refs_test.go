package snapshot_test

import (
	"strings"
	"testing"

	r "github.com/stretchr/testify/require"

	"github.com/rad-link/corestore/internal/identity"
	"github.com/rad-link/corestore/internal/snapshot"
)

func TestSignedRefsRoundTrip(t *testing.T) {
	f := r.New(t)

	signer, err := identity.GenerateSecretKey()
	f.NoError(err)

	refs := snapshot.Refs{
		Heads: map[string]string{"main": "deadbeef"},
		Remotes: snapshot.Remotes{
			"alice": {"bob": []string{"carol", "dave"}},
		},
	}

	blob, err := snapshot.Sign(refs, signer)
	f.NoError(err)

	signed, err := snapshot.Decode(blob, signer.PeerId())
	f.NoError(err)
	f.Equal(refs.Heads, signed.Refs.Heads)
	f.Equal(refs.Remotes, signed.Refs.Remotes)
	f.True(signed.Signer.Equal(signer.PeerId()))
}

func TestDecodeRejectsWrongSigner(t *testing.T) {
	f := r.New(t)

	signer, err := identity.GenerateSecretKey()
	f.NoError(err)
	other, err := identity.GenerateSecretKey()
	f.NoError(err)

	blob, err := snapshot.Sign(snapshot.Refs{}, signer)
	f.NoError(err)

	_, err = snapshot.Decode(blob, other.PeerId())
	f.Error(err)
}

func TestDecodeRejectsTamperedPayload(t *testing.T) {
	f := r.New(t)

	signer, err := identity.GenerateSecretKey()
	f.NoError(err)

	blob, err := snapshot.Sign(snapshot.Refs{Heads: map[string]string{"main": "abc"}}, signer)
	f.NoError(err)

	tampered := []byte(strings.Replace(string(blob), `"abc"`, `"xyz"`, 1))

	_, err = snapshot.Decode(tampered, signer.PeerId())
	f.Error(err)
}

func TestEncodeCanonicalIsDeterministic(t *testing.T) {
	f := r.New(t)

	refs := snapshot.Refs{
		Heads:   map[string]string{"main": "deadbeef", "dev": "cafef00d"},
		Remotes: snapshot.Remotes{"alice": {"bob": []string{"carol"}}},
	}

	a, err := snapshot.EncodeCanonical(refs)
	f.NoError(err)
	b, err := snapshot.EncodeCanonical(refs)
	f.NoError(err)
	f.Equal(a, b)
}

func TestCutoffFlattensThirdDegree(t *testing.T) {
	f := r.New(t)

	peerRemotes := snapshot.Remotes{
		"bob": {"carol": nil, "dave": nil},
	}

	out := snapshot.Cutoff(peerRemotes)
	f.ElementsMatch([]string{"carol", "dave"}, out["bob"])
}

func TestRemotesSortedPeers(t *testing.T) {
	f := r.New(t)

	rem := snapshot.Remotes{"zeta": {}, "alpha": {}, "mike": {}}
	f.Equal([]string{"alpha", "mike", "zeta"}, rem.SortedPeers())
}
