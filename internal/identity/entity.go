package identity

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
)

// Stage tags whether an Entity's signatures and certifier chain have been
// checked against the rest of the store. The core only ever constructs and
// consumes Draft entities; stronger verification is a collaborator's job
// (see §7's FIXME on verification depth).
type Stage int

const (
	Draft Stage = iota
	Verified
)

// SignedBy records who produced a signature: either the key's own owner, or
// a user identity vouching through one of their keys.
type SignedBy struct {
	OwnedKey bool
	User     URN
}

type EntitySignature struct {
	By   SignedBy
	Sig  Signature
	Peer PeerId
}

// Entity is the signed identity document the core persists as the 'id'
// blob at the tip of rad/id. T is the caller's payload type (project, user).
type Entity[T any] struct {
	RootHash   Hash
	Payload    T
	Signatures map[string]EntitySignature // keyed by PeerId.String()
	Certifiers []URN
	Stage      Stage
}

func (e *Entity[T]) Urn() URN {
	return URN{Id: e.RootHash}
}

func (e *Entity[T]) HasSignatureBy(p PeerId) (EntitySignature, bool) {
	sig, ok := e.Signatures[p.String()]
	return sig, ok
}

// rootEntity is the reduced form root_hash is computed over: payload and
// certifiers only. Signatures cannot be part of the hashed form since they
// are produced afterwards, over a document that already carries root_hash.
type rootEntity[T any] struct {
	Certifiers []string `json:"certifiers"`
	Payload    T        `json:"payload"`
}

// NewEntity builds a fresh Draft entity with no signatures, computing
// root_hash from the canonical form of payload and certifiers.
func NewEntity[T any](payload T, certifiers []URN) (*Entity[T], error) {
	certs := make([]string, len(certifiers))
	for i, c := range certifiers {
		certs[i] = c.String()
	}
	sort.Strings(certs)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&rootEntity[T]{Certifiers: certs, Payload: payload}); err != nil {
		return nil, errors.Wrap(err, "failed to encode entity root form")
	}

	return &Entity[T]{
		RootHash:   HashOf(buf.Bytes()),
		Payload:    payload,
		Signatures: make(map[string]EntitySignature),
		Certifiers: certifiers,
		Stage:      Draft,
	}, nil
}

// SignSelf adds a self-signature (owned_key=true) by signer over the
// entity's current canonical form.
func SignSelf[T any](e *Entity[T], signer SecretKey) error {
	canonical, err := EncodeCanonical(e)
	if err != nil {
		return err
	}
	e.Signatures[signer.PeerId().String()] = EntitySignature{
		By:   SignedBy{OwnedKey: true},
		Sig:  signer.Sign(canonical),
		Peer: signer.PeerId(),
	}
	return nil
}

// wireEntity is the canonical-JSON shape persisted to disk. Field order is
// fixed and alphabetical so two encodings of an equal Entity are byte-equal.
type wireEntity[T any] struct {
	Certifiers []string                 `json:"certifiers"`
	Payload    T                        `json:"payload"`
	RootHash   string                   `json:"root_hash"`
	Signatures map[string]wireSignature `json:"signatures"`
}

type wireSignature struct {
	By struct {
		OwnedKey bool   `json:"owned_key,omitempty"`
		User     string `json:"user,omitempty"`
	} `json:"by"`
	Sig string `json:"sig"`
}

// EncodeCanonical renders the entity as canonical JSON: deterministic key
// order (Go's encoding/json already sorts map keys) and no insignificant
// whitespace. Signatures are not covered by this encoding's own hash; the
// root_hash field pins what was signed.
func EncodeCanonical[T any](e *Entity[T]) ([]byte, error) {
	w := wireEntity[T]{
		RootHash:   e.RootHash.Multibase(),
		Payload:    e.Payload,
		Signatures: make(map[string]wireSignature, len(e.Signatures)),
	}

	for k, sig := range e.Signatures {
		ws := wireSignature{Sig: sig.Sig.Base64()}
		if sig.By.OwnedKey {
			ws.By.OwnedKey = true
		} else {
			ws.By.User = sig.By.User.String()
		}
		w.Signatures[k] = ws
	}

	certs := make([]string, len(e.Certifiers))
	for i, c := range e.Certifiers {
		certs[i] = c.String()
	}
	sort.Strings(certs)
	w.Certifiers = certs

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&w); err != nil {
		return nil, errors.Wrap(err, "failed to encode entity as canonical json")
	}

	out := buf.Bytes()
	// json.Encoder always appends a trailing newline; canonical form has none.
	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	return out, nil
}

// DecodeCanonical parses the bytes produced by EncodeCanonical back into an
// Entity. The Stage is always Draft: decoding alone never verifies anything.
func DecodeCanonical[T any](data []byte) (*Entity[T], error) {
	var w wireEntity[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(err, "failed to decode entity")
	}

	root, err := ParseHash(w.RootHash)
	if err != nil {
		return nil, errors.Wrap(err, "entity has malformed root_hash")
	}

	e := &Entity[T]{
		RootHash:   root,
		Payload:    w.Payload,
		Signatures: make(map[string]EntitySignature, len(w.Signatures)),
		Stage:      Draft,
	}

	for k, ws := range w.Signatures {
		peer, err := ParsePeerId(k)
		if err != nil {
			return nil, errors.Wrapf(err, "entity has malformed signature key %#v", k)
		}
		sig, err := SignatureFromBase64(ws.Sig)
		if err != nil {
			return nil, err
		}

		by := SignedBy{OwnedKey: ws.By.OwnedKey}
		if !ws.By.OwnedKey {
			by.User, err = ParseURN(ws.By.User)
			if err != nil {
				return nil, errors.Wrapf(err, "entity signature %#v has malformed signer urn", k)
			}
		}

		e.Signatures[k] = EntitySignature{By: by, Sig: sig, Peer: peer}
	}

	for _, c := range w.Certifiers {
		urn, err := ParseURN(c)
		if err != nil {
			return nil, errors.Wrapf(err, "entity has malformed certifier %#v", c)
		}
		e.Certifiers = append(e.Certifiers, urn)
	}

	return e, nil
}
