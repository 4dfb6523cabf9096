// Package snapshot implements signed reference-state snapshots: the
// canonical-JSON 'refs' blob persisted at the tip of rad/refs, and the
// three-level transitive tracking graph it carries.
package snapshot

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"

	"github.com/rad-link/corestore/internal/identity"
)

// MaxTrackingDepth is the cutoff on Refs.Remotes: self -> first-degree ->
// second-degree -> third-degree, cut off at the third level (invariant 7).
const MaxTrackingDepth = 3

// Remotes is the transitive tracking graph, shaped exactly as it is
// persisted: first-degree peer -> second-degree peer -> third-degree peers,
// with the third level left as a flat leaf list (we never expand past it).
type Remotes map[string]map[string][]string

// Refs is the signed snapshot of one identity's local reference state.
type Refs struct {
	Heads   map[string]string // branch name -> commit oid, hex
	Remotes Remotes
}

type wireRefs struct {
	Heads   map[string]string `json:"heads"`
	Remotes Remotes           `json:"remotes"`
}

type wireSigEnvelope struct {
	Key string `json:"key"`
	Sig string `json:"sig"`
}

type wireSigned struct {
	Refs      wireRefs        `json:"refs"`
	Signature wireSigEnvelope `json:"signature"`
}

// Signed pairs a Refs value with the detached signature over its canonical
// encoding.
type Signed struct {
	Refs      Refs
	Signature identity.Signature
	Signer    identity.PeerId
}

// EncodeCanonical renders just the {heads, remotes} portion deterministically,
// the payload that gets signed.
func EncodeCanonical(r Refs) ([]byte, error) {
	heads := r.Heads
	if heads == nil {
		heads = map[string]string{}
	}
	remotes := r.Remotes
	if remotes == nil {
		remotes = Remotes{}
	}

	w := wireRefs{Heads: heads, Remotes: remotes}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&w); err != nil {
		return nil, errors.Wrap(err, "failed to encode refs as canonical json")
	}

	out := buf.Bytes()
	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	return out, nil
}

// Sign produces the full signed-refs blob content persisted as the file
// 'refs' in the rad/refs commit tree.
func Sign(r Refs, signer identity.SecretKey) ([]byte, error) {
	payload, err := EncodeCanonical(r)
	if err != nil {
		return nil, err
	}

	sig := signer.Sign(payload)

	w := wireSigned{
		Refs: wireRefs{Heads: r.Heads, Remotes: r.Remotes},
		Signature: wireSigEnvelope{
			Key: signer.PeerId().String(),
			Sig: sig.Base64(),
		},
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&w); err != nil {
		return nil, errors.Wrap(err, "failed to encode signed refs")
	}

	out := buf.Bytes()
	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	return out, nil
}

// Decode parses a signed-refs blob and verifies the detached signature
// against expectedSigner. Verification is mandatory per §4.4's rad_refs_of.
func Decode(data []byte, expectedSigner identity.PeerId) (Signed, error) {
	var w wireSigned
	if err := json.Unmarshal(data, &w); err != nil {
		return Signed{}, errors.Wrap(err, "failed to decode signed refs")
	}

	signer, err := identity.ParsePeerId(w.Signature.Key)
	if err != nil {
		return Signed{}, errors.Wrap(err, "signed refs has malformed signer key")
	}
	if !signer.Equal(expectedSigner) {
		return Signed{}, errors.Errorf(
			"signed refs key %#v does not match expected signer %#v",
			signer.String(), expectedSigner.String(),
		)
	}

	sig, err := identity.SignatureFromBase64(w.Signature.Sig)
	if err != nil {
		return Signed{}, err
	}

	r := Refs{Heads: w.Refs.Heads, Remotes: w.Refs.Remotes}
	payload, err := EncodeCanonical(r)
	if err != nil {
		return Signed{}, err
	}

	if !identity.Verify(expectedSigner, payload, sig) {
		return Signed{}, errors.New("signed refs signature verification failed")
	}

	return Signed{Refs: r, Signature: sig, Signer: signer}, nil
}

// Cutoff folds a first-degree peer's own Remotes graph (which is our view
// two levels deeper) down into the flat third-degree leaf list our own
// snapshot is allowed to carry, per invariant 7.
func Cutoff(peerRemotes Remotes) map[string][]string {
	out := make(map[string][]string, len(peerRemotes))
	for secondDegree, thirdDegree := range peerRemotes {
		leaves := make([]string, 0, len(thirdDegree))
		for k := range thirdDegree {
			leaves = append(leaves, k)
		}
		sort.Strings(leaves)
		out[secondDegree] = leaves
	}
	return out
}

// SortedPeers returns the top-level keys of rem in sorted order, useful for
// deterministic iteration in tests.
func (r Remotes) SortedPeers() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
