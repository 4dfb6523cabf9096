// Package pool implements the bounded Storage Pool described in §4.9: a
// fixed set of Storage handles guarded by a single-flight initialization
// lock, leased out to callers and returned to the pool when the caller
// calls Release on the lease.
package pool

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/rad-link/corestore/internal/affinity"
	"github.com/rad-link/corestore/internal/fetch"
	"github.com/rad-link/corestore/internal/identity"
	"github.com/rad-link/corestore/internal/poolconfig"
	"github.com/rad-link/corestore/internal/storage"
)

// Config parameterizes the pool: the filesystem paths backing each slot,
// the local signer, the set of fetcher constructors the pool's handles are
// allowed to use, and the single shared initLock every slot's first-time
// construction serializes on.
type Config struct {
	Paths     []string
	Signer    identity.SecretKey
	Fetchers  map[string]fetch.Constructor
	initLock  sync.Mutex
	affinity  affinity.Hasher
	slots     []*slot
	slotsOnce sync.Once
}

type slot struct {
	mu      sync.Mutex
	path    string
	storage *storage.SignedStorage
}

// NewConfig builds a pool Config from tunables loaded via poolconfig,
// expanding it to pc.Size slots: slot 0 at pc.GitDir itself, slot i at
// pc.GitDir with a "-<i>" suffix.
func NewConfig(pc poolconfig.PoolConfig, signer identity.SecretKey) *Config {
	paths := make([]string, pc.Size)
	for i := range paths {
		paths[i] = slotPath(pc.GitDir, i)
	}

	c := &Config{Paths: paths, Signer: signer}

	if pc.AffinityPartitionCount > 0 {
		h, err := affinity.New(affinity.Config{
			PartitionCount:    pc.AffinityPartitionCount,
			ReplicationFactor: 20,
			Load:              1.25,
			Slots:             pc.Size,
		})
		if err == nil {
			c.affinity = h
		}
	}

	return c
}

func slotPath(root string, i int) string {
	if i == 0 {
		return root
	}
	return root + "-" + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

func (c *Config) init() {
	c.slotsOnce.Do(func() {
		c.slots = make([]*slot, len(c.Paths))
		for i, p := range c.Paths {
			c.slots[i] = &slot{path: p}
		}
	})
}

// create is the pool's Manager.create hook: it acquires initLock for the
// full duration of first-time construction so concurrent openers cannot
// race on init.
func (c *Config) create(s *slot) error {
	c.initLock.Lock()
	defer c.initLock.Unlock()

	if s.storage != nil {
		return nil
	}

	h, err := storage.OpenOrInit(s.path, c.Signer)
	if err != nil {
		return errors.Wrapf(err, "failed to initialize pool slot at %#v", s.path)
	}
	s.storage = h
	return nil
}

// recycle is the pool's Manager.recycle hook: handles are cheap and
// stateless beyond their open file descriptors, so there is nothing to
// validate before returning a slot to the pool.
func (c *Config) recycle(*slot) error { return nil }

// Pooled is the capability the pool exposes to callers: get a leased
// handle, held until the caller calls Release on it.
type Pooled interface {
	Get(urn identity.URN) (*PooledRef, error)
}

// Pool is a bounded set of Storage handles.
type Pool struct {
	cfg *Config
}

func New(cfg *Config) *Pool {
	cfg.init()
	return &Pool{cfg: cfg}
}

var _ Pooled = (*Pool)(nil)

// Get returns a leased handle. Handle affinity: urn's string form is hashed
// onto a preferred slot so repeated operations against the same identity
// tend to land on the same pooled handle. Without an affinity ring every
// urn maps onto the first slot.
func (p *Pool) Get(urn identity.URN) (*PooledRef, error) {
	i := 0
	if p.cfg.affinity != nil {
		i = p.cfg.affinity.Locate(urn.String()) % len(p.cfg.slots)
	}

	s := p.cfg.slots[i]
	s.mu.Lock()

	if err := p.cfg.create(s); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	return &PooledRef{slot: s, SignedStorage: s.storage}, nil
}

// PooledRef wraps a leased Storage handle. It implements transparent
// pass-through (read and write access) to the underlying Storage via
// embedding, and releases the slot when Release is called.
type PooledRef struct {
	slot *slot
	*storage.SignedStorage
}

func (r *PooledRef) Release() {
	r.slot.mu.Unlock()
}
