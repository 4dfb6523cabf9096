package identity_test

import (
	"encoding/json"
	"testing"

	r "github.com/stretchr/testify/require"

	"github.com/rad-link/corestore/internal/identity"
)

func TestNewEntitySignSelfAndVerify(t *testing.T) {
	f := r.New(t)

	signer, err := identity.GenerateSecretKey()
	f.NoError(err)

	payload := json.RawMessage(`{"name":"alice"}`)
	e, err := identity.NewEntity[json.RawMessage](payload, nil)
	f.NoError(err)
	f.NoError(identity.SignSelf(e, signer))

	sig, ok := e.HasSignatureBy(signer.PeerId())
	f.True(ok)
	f.True(sig.By.OwnedKey)
	f.True(sig.Peer.Equal(signer.PeerId()))
}

func TestEntityCanonicalRoundTrip(t *testing.T) {
	f := r.New(t)

	signer, err := identity.GenerateSecretKey()
	f.NoError(err)

	payload := json.RawMessage(`{"name":"alice"}`)
	e, err := identity.NewEntity[json.RawMessage](payload, nil)
	f.NoError(err)
	f.NoError(identity.SignSelf(e, signer))

	encoded, err := identity.EncodeCanonical(e)
	f.NoError(err)

	decoded, err := identity.DecodeCanonical[json.RawMessage](encoded)
	f.NoError(err)
	f.True(decoded.RootHash.Equal(e.RootHash))
	f.Equal(string(e.Payload), string(decoded.Payload))
	f.Len(decoded.Signatures, 1)

	reencoded, err := identity.EncodeCanonical(decoded)
	f.NoError(err)
	f.Equal(encoded, reencoded)
}

func TestEncodeCanonicalHasNoTrailingNewline(t *testing.T) {
	f := r.New(t)

	e, err := identity.NewEntity[json.RawMessage](json.RawMessage(`{}`), nil)
	f.NoError(err)

	encoded, err := identity.EncodeCanonical(e)
	f.NoError(err)
	f.NotEqual(byte('\n'), encoded[len(encoded)-1])
}

func TestNewEntityRootHashStableUnderCertifierOrdering(t *testing.T) {
	f := r.New(t)

	a := identity.URN{Id: identity.HashOf([]byte("a"))}
	b := identity.URN{Id: identity.HashOf([]byte("b"))}

	payload := json.RawMessage(`{"x":1}`)
	e1, err := identity.NewEntity[json.RawMessage](payload, []identity.URN{a, b})
	f.NoError(err)
	e2, err := identity.NewEntity[json.RawMessage](payload, []identity.URN{b, a})
	f.NoError(err)

	f.True(e1.RootHash.Equal(e2.RootHash))
}
