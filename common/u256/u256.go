// Package u256 holds shared uint256 constants used by the RLP and
// transaction-signing code so hot paths don't re-allocate them.
package u256

import "github.com/holiman/uint256"

var (
	N0  = uint256.NewInt(0)
	N1  = uint256.NewInt(1)
	N27 = uint256.NewInt(27)
	N28 = uint256.NewInt(28)
	N35 = uint256.NewInt(35)
)
