// Package length holds the fixed byte-lengths of the Ethereum primitives used
// throughout the codec, crypto and pool packages.
package length

const (
	// Addr is the length of an Ethereum address in bytes.
	Addr = 20
	// Hash is the length of a Keccak-256 hash in bytes.
	Hash = 32
	// BlockNum is the length of a big-endian encoded block number used by the
	// fork-identifier CRC chain.
	BlockNum = 8
)
