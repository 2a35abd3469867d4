// Package forkid computes and compares the rolling CRC-32 fork identifier
// exchanged during the peer handshake, the same snapshot-chain scheme the
// wire protocol uses to let two nodes agree on which fork rules they run
// without exchanging their full fork schedules.
package forkid

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/ethforge/txpool-core/common"
)

// ID is the wire-encoded `[crc32_snapshot, next_fork_block]` pair.
type ID struct {
	Hash [4]byte
	Next uint64
}

// entry is one snapshot in the local fork chain: hash is active from the
// previous fork block (or genesis) up to, but not including, next, the
// block number of the following fork (0 for the last entry).
type entry struct {
	hash [4]byte
	next uint64
}

// Chain is the ordered sequence of fork snapshots derived from a genesis
// hash and an ascending list of activation block numbers.
type Chain struct {
	genesis common.Hash
	forks   []uint64
	entries []entry
}

// NewChain builds the snapshot chain: the running CRC-32 is seeded with the
// genesis hash, then advanced by the big-endian 8-byte encoding of each
// fork block in turn, producing one entry per fork plus the genesis entry.
func NewChain(genesis common.Hash, forks []uint64) *Chain {
	c := &Chain{genesis: genesis, forks: append([]uint64(nil), forks...)}

	hasher := crc32.NewIEEE()
	hasher.Write(genesis.Bytes())
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], hasher.Sum32())

	entries := make([]entry, 0, len(forks)+1)
	for _, fork := range c.forks {
		entries = append(entries, entry{hash: sum, next: fork})

		var blockBytes [8]byte
		binary.BigEndian.PutUint64(blockBytes[:], fork)
		hasher.Write(blockBytes[:])
		binary.BigEndian.PutUint32(sum[:], hasher.Sum32())
	}
	entries = append(entries, entry{hash: sum, next: 0})
	c.entries = entries
	return c
}

// snapshotAt returns the index of the entry active at block height h: the
// last entry whose activation block is <= h.
func (c *Chain) snapshotAt(h uint64) int {
	idx := 0
	for i, fork := range c.forks {
		if h < fork {
			break
		}
		idx = i + 1
	}
	return idx
}

// IDAt returns the ForkId a node at local head h would advertise.
func (c *Chain) IDAt(h uint64) ID {
	e := c.entries[c.snapshotAt(h)]
	return ID{Hash: e.hash, Next: e.next}
}

// indexOfHash returns the entry index matching hash, or -1.
func (c *Chain) indexOfHash(hash [4]byte) int {
	for i, e := range c.entries {
		if e.hash == hash {
			return i
		}
	}
	return -1
}

// Compatible implements the four-case peer-compatibility predicate: exact
// match at the local head, a past snapshot whose advertised next fork
// agrees with ours, a future snapshot (we're the one behind), or otherwise
// incompatible.
func (c *Chain) Compatible(remote ID, localHead uint64) bool {
	localIdx := c.snapshotAt(localHead)
	if c.entries[localIdx].hash == remote.Hash {
		return true
	}

	remoteIdx := c.indexOfHash(remote.Hash)
	if remoteIdx < 0 {
		return false
	}
	if remoteIdx < localIdx {
		return c.entries[remoteIdx].next == remote.Next
	}
	// remoteIdx > localIdx: remote is running a snapshot from our future
	// fork schedule, i.e. we are the one syncing.
	return true
}
