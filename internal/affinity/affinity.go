// Package affinity picks a preferred slot in the storage pool for a given
// URN so that repeated operations against the same identity tend to land on
// the same pooled handle instead of round-robining across all of them.
package affinity

import (
	"fmt"

	"github.com/imdario/mergo"
	"github.com/pkg/errors"

	log "github.com/sirupsen/logrus"

	con "github.com/buraksezer/consistent"
	"github.com/cespare/xxhash"
)

type (
	// Config describes the shape of the consistent hash ring laid across
	// the pool's slots.
	Config struct {
		PartitionCount    int
		ReplicationFactor int
		Load              float64
		Slots             int
	}

	Ring struct {
		ring *con.Consistent
		size int
	}

	// Hasher maps a URN onto the index of its preferred pool slot.
	Hasher interface {
		Locate(urn string) int
	}

	xxh struct{}

	slot int
)

func (s slot) String() string { return fmt.Sprintf("slot-%d", int(s)) }

func (h xxh) Sum64(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Merge the values from o onto the receiver for fields left at their zero
// value.
func (c *Config) Merge(o Config) {
	if err := mergo.Merge(c, o); err != nil {
		log.Fatalf("failed to merge %#v and %#v, error: %#v", c, o, err)
	}
}

func New(c Config) (h Hasher, err error) {
	if c.Slots <= 0 {
		return nil, errors.New("pool has no slots to distribute handles across")
	}

	if c.PartitionCount < c.Slots {
		return nil, errors.Errorf(
			"PartitionCount < num pool slots (%d < %d)",
			c.PartitionCount,
			c.Slots,
		)
	}

	cfg := con.Config{
		Hasher:            xxh{},
		PartitionCount:    c.PartitionCount,
		ReplicationFactor: c.ReplicationFactor,
		Load:              c.Load,
	}

	log.WithFields(log.Fields{
		"PartitionCount":    c.PartitionCount,
		"ReplicationFactor": c.ReplicationFactor,
		"Load":              c.Load,
		"Slots":             c.Slots,
	}).Debug("pool affinity config")

	members := make([]con.Member, c.Slots)
	for i := 0; i < c.Slots; i++ {
		members[i] = slot(i)
	}

	return &Ring{ring: con.New(members, cfg), size: c.Slots}, nil
}

// Locate returns the preferred slot index for urn. A Ring that was not built
// by New (size 0) returns slot 0 for every urn.
func (r *Ring) Locate(urn string) int {
	if r.size == 0 {
		return 0
	}
	m := r.ring.LocateKey([]byte(urn))
	s, ok := m.(slot)
	if !ok {
		return 0
	}
	return int(s)
}
