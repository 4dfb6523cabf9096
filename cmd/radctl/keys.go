package main

import (
	"encoding/hex"
	"io/ioutil"
	"strings"

	"github.com/pkg/errors"

	"github.com/rad-link/corestore/internal/identity"
)

// loadSigner reads a hex-encoded ed25519 seed from path and derives a
// SecretKey from it. There is no key-generation ceremony here: operators
// supply a seed the same way the object store's tests do.
func loadSigner(path string) (identity.SecretKey, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return identity.SecretKey{}, errors.Wrapf(err, "failed to read signing key at %#v", path)
	}

	seed, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return identity.SecretKey{}, errors.Wrapf(err, "signing key at %#v is not valid hex", path)
	}

	return identity.SecretKeyFromSeed(seed), nil
}
