package identity_test

import (
	"testing"

	r "github.com/stretchr/testify/require"

	"github.com/rad-link/corestore/internal/identity"
)

func TestPeerIdRoundTrip(t *testing.T) {
	f := r.New(t)

	signer, err := identity.GenerateSecretKey()
	f.NoError(err)

	peer := signer.PeerId()
	parsed, err := identity.ParsePeerId(peer.String())
	f.NoError(err)
	f.True(peer.Equal(parsed))
}

func TestParsePeerIdRejectsWrongLength(t *testing.T) {
	f := r.New(t)

	_, err := identity.ParsePeerId("dGVzdA")
	f.Error(err)
}

func TestSignAndVerify(t *testing.T) {
	f := r.New(t)

	signer, err := identity.GenerateSecretKey()
	f.NoError(err)

	data := []byte("hello there")
	sig := signer.Sign(data)
	f.True(identity.Verify(signer.PeerId(), data, sig))
	f.False(identity.Verify(signer.PeerId(), []byte("tampered"), sig))

	again, err := identity.SignatureFromBase64(sig.Base64())
	f.NoError(err)
	f.True(identity.Verify(signer.PeerId(), data, again))
}

func TestHashRoundTrip(t *testing.T) {
	f := r.New(t)

	h := identity.HashOf([]byte("some canonical bytes"))
	parsed, err := identity.ParseHash(h.String())
	f.NoError(err)
	f.True(h.Equal(parsed))
}

func TestParseHashRejectsMissingPrefix(t *testing.T) {
	f := r.New(t)

	_, err := identity.ParseHash("not-multibase")
	f.Error(err)
}

func TestURNRoundTrip(t *testing.T) {
	f := r.New(t)

	h := identity.HashOf([]byte("payload"))
	u := identity.URN{Id: h}
	f.Equal("rad:git:"+h.Multibase(), u.String())

	parsed, err := identity.ParseURN(u.String())
	f.NoError(err)
	f.True(h.Equal(parsed.Id))
	f.Equal(identity.RefPath(""), parsed.Path)
	f.Equal(identity.DefaultRefPath, parsed.EffectivePath())
}

func TestURNRoundTripWithPath(t *testing.T) {
	f := r.New(t)

	h := identity.HashOf([]byte("payload"))
	u := identity.URN{Id: h, Path: "refs/heads/main"}

	parsed, err := identity.ParseURN(u.String())
	f.NoError(err)
	f.Equal(u.Path, parsed.Path)
}

func TestURLRoundTrip(t *testing.T) {
	f := r.New(t)

	signer, err := identity.GenerateSecretKey()
	f.NoError(err)

	h := identity.HashOf([]byte("payload"))
	url := identity.URL{Urn: identity.URN{Id: h}, Authority: signer.PeerId()}

	parsed, err := identity.ParseURL(url.String())
	f.NoError(err)
	f.True(parsed.Authority.Equal(signer.PeerId()))
	f.True(parsed.Urn.Id.Equal(h))
}
