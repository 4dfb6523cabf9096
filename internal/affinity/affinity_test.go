package affinity_test

import (
	"testing"

	r "github.com/stretchr/testify/require"

	"github.com/rad-link/corestore/internal/affinity"
)

func TestNewRejectsNoSlots(t *testing.T) {
	f := r.New(t)

	_, err := affinity.New(affinity.Config{PartitionCount: 100, Slots: 0})
	f.Error(err)
}

func TestNewRejectsTooFewPartitions(t *testing.T) {
	f := r.New(t)

	_, err := affinity.New(affinity.Config{PartitionCount: 2, Slots: 4})
	f.Error(err)
}

func TestLocateIsDeterministic(t *testing.T) {
	f := r.New(t)

	h, err := affinity.New(affinity.Config{
		PartitionCount:    271,
		ReplicationFactor: 20,
		Load:              1.25,
		Slots:             4,
	})
	f.NoError(err)

	urn := "rad:git:bsomehash"
	first := h.Locate(urn)
	for i := 0; i < 10; i++ {
		f.Equal(first, h.Locate(urn))
	}
	f.GreaterOrEqual(first, 0)
	f.Less(first, 4)
}

func TestLocateDistributesAcrossSlots(t *testing.T) {
	f := r.New(t)

	h, err := affinity.New(affinity.Config{
		PartitionCount:    271,
		ReplicationFactor: 20,
		Load:              1.25,
		Slots:             4,
	})
	f.NoError(err)

	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		urn := "rad:git:b" + string(rune('a'+i%26)) + string(rune('A'+i/26))
		seen[h.Locate(urn)] = true
	}
	f.Greater(len(seen), 1, "expected more than one slot to be used across many urns")
}
