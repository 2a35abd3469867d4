package forkid_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethforge/txpool-core/common"
	"github.com/ethforge/txpool-core/forkid"
)

func TestCompatibilityMatrix(t *testing.T) {
	genesis := common.HexToHash("0xdeadbeef00000000000000000000000000000000000000000000000000ff")
	chain := forkid.NewChain(genesis, []uint64{100, 200})

	s0 := chain.IDAt(0)
	s1 := chain.IDAt(150)
	s2 := chain.IDAt(250)
	require.NotEqual(t, s0.Hash, s1.Hash)
	require.NotEqual(t, s1.Hash, s2.Hash)

	// case 1: remote snapshot matches local snapshot active at head.
	require.True(t, chain.Compatible(s1, 150))

	// case 2: remote is on a past snapshot, syncing towards our next fork.
	require.True(t, chain.Compatible(s1, 250))

	// case 3: remote is ahead, running a snapshot from our future.
	require.True(t, chain.Compatible(s2, 50))

	// case 4: unrecognized hash.
	require.False(t, chain.Compatible(forkid.ID{Hash: [4]byte{0xde, 0xad, 0xbe, 0xef}}, 50))
}
