// Package identity implements the cryptographic identity model: peer
// identifiers, signing keys, content-addressed identity roots, and the
// URN/URL addressing scheme built on top of them.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base32"
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

const HashSize = 32

// PeerId is the stable public identifier of a peer: an ed25519 public key.
type PeerId struct {
	key ed25519.PublicKey
}

func (p PeerId) Bytes() []byte { return []byte(p.key) }

func (p PeerId) String() string {
	return base64.RawURLEncoding.EncodeToString(p.key)
}

func (p PeerId) Equal(o PeerId) bool {
	return string(p.key) == string(o.key)
}

// ParsePeerId decodes the base64url textual form produced by String().
func ParsePeerId(s string) (p PeerId, err error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return PeerId{}, errors.Wrapf(err, "malformed peer id %#v", s)
	}
	if len(b) != ed25519.PublicKeySize {
		return PeerId{}, errors.Errorf("peer id %#v has wrong length %d", s, len(b))
	}
	return PeerId{key: ed25519.PublicKey(b)}, nil
}

func PeerIdFromPublicKey(pub ed25519.PublicKey) PeerId {
	return PeerId{key: pub}
}

// SecretKey is local signing material. It is never persisted by this
// package; the caller supplies it at open time and owns its lifetime.
type SecretKey struct {
	priv ed25519.PrivateKey
}

func GenerateSecretKey() (SecretKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return SecretKey{}, errors.Wrap(err, "failed to generate signing key")
	}
	return SecretKey{priv: priv}, nil
}

func SecretKeyFromSeed(seed []byte) SecretKey {
	return SecretKey{priv: ed25519.NewKeyFromSeed(seed)}
}

func (s SecretKey) PeerId() PeerId {
	pub := s.priv.Public().(ed25519.PublicKey)
	return PeerIdFromPublicKey(pub)
}

func (s SecretKey) Sign(data []byte) Signature {
	return Signature{bytes: ed25519.Sign(s.priv, data)}
}

// Signature is a detached ed25519 signature over a canonical-JSON payload.
type Signature struct {
	bytes []byte
}

func (s Signature) Bytes() []byte { return s.bytes }

func (s Signature) Base64() string { return base64.StdEncoding.EncodeToString(s.bytes) }

func SignatureFromBase64(s string) (Signature, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Signature{}, errors.Wrapf(err, "malformed signature %#v", s)
	}
	return Signature{bytes: b}, nil
}

func Verify(key PeerId, data []byte, sig Signature) bool {
	return ed25519.Verify(key.key, data, sig.bytes)
}

// Hash is a content-addressed identity root, computed from the canonical
// form of an identity document.
type Hash [HashSize]byte

func HashOf(canonical []byte) Hash {
	return Hash(blake2b.Sum256(canonical))
}

func (h Hash) Bytes() []byte { return h[:] }

func (h Hash) Equal(o Hash) bool { return h == o }

// Multibase encodes the hash with a leading 'b' tag, following the
// base32-lower multibase convention used by the reference implementation.
func (h Hash) Multibase() string {
	return "b" + strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(h[:]))
}

func (h Hash) String() string { return h.Multibase() }

func ParseHash(s string) (h Hash, err error) {
	if len(s) == 0 || s[0] != 'b' {
		return Hash{}, errors.Errorf("malformed multibase hash %#v: missing 'b' prefix", s)
	}
	b, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(s[1:]))
	if err != nil {
		return Hash{}, errors.Wrapf(err, "malformed multibase hash %#v", s)
	}
	if len(b) != HashSize {
		return Hash{}, errors.Errorf("hash %#v has wrong length %d", s, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// RefPath is a reference path relative to an identity's namespace, e.g.
// "refs/rad/id" or "refs/heads/main". An empty RefPath means the default,
// "refs/rad/id".
type RefPath string

const DefaultRefPath RefPath = "refs/rad/id"

func (p RefPath) orDefault() RefPath {
	if p == "" {
		return DefaultRefPath
	}
	return p
}

// URN is the logical identity address: a content hash plus a path within
// that identity's namespace.
type URN struct {
	Id   Hash
	Path RefPath
}

func (u URN) EffectivePath() RefPath { return u.Path.orDefault() }

// String renders the textual form rad:git:<multibase(hash)>[/path].
func (u URN) String() string {
	s := "rad:git:" + u.Id.Multibase()
	if u.Path != "" {
		s += "/" + strings.TrimPrefix(string(u.Path), "refs/")
	}
	return s
}

func ParseURN(s string) (u URN, err error) {
	const prefix = "rad:git:"
	if !strings.HasPrefix(s, prefix) {
		return URN{}, errors.Errorf("malformed urn %#v: missing %#v prefix", s, prefix)
	}
	rest := s[len(prefix):]

	var hashPart, pathPart string
	if i := strings.Index(rest, "/"); i >= 0 {
		hashPart, pathPart = rest[:i], rest[i+1:]
	} else {
		hashPart = rest
	}

	id, err := ParseHash(hashPart)
	if err != nil {
		return URN{}, errors.Wrapf(err, "malformed urn %#v", s)
	}

	var path RefPath
	if pathPart != "" {
		path = RefPath("refs/" + pathPart)
	}

	return URN{Id: id, Path: path}, nil
}

// URL is a URN plus the peer identifier authoritative for this view.
type URL struct {
	Urn       URN
	Authority PeerId
}

func (u URL) String() string {
	s := "rad+git://" + u.Authority.String() + "@" + u.Urn.Id.Multibase()
	if u.Urn.Path != "" {
		s += "/" + strings.TrimPrefix(string(u.Urn.Path), "refs/")
	}
	return s
}

func ParseURL(s string) (u URL, err error) {
	const prefix = "rad+git://"
	if !strings.HasPrefix(s, prefix) {
		return URL{}, errors.Errorf("malformed url %#v: missing %#v prefix", s, prefix)
	}
	rest := s[len(prefix):]

	at := strings.Index(rest, "@")
	if at < 0 {
		return URL{}, errors.Errorf("malformed url %#v: missing authority separator", s)
	}

	peer, err := ParsePeerId(rest[:at])
	if err != nil {
		return URL{}, errors.Wrapf(err, "malformed url %#v", s)
	}

	urn, err := ParseURN("rad:git:" + rest[at+1:])
	if err != nil {
		return URL{}, errors.Wrapf(err, "malformed url %#v", s)
	}

	return URL{Urn: urn, Authority: peer}, nil
}
