package types

import "github.com/ethforge/txpool-core/common"

// AccessTuple is one (address, storage keys) entry of an EIP-2930 access
// list.
type AccessTuple struct {
	Address     common.Address `json:"address"`
	StorageKeys []common.Hash  `json:"storageKeys"`
}

// AccessList is an ordered EIP-2930 access list.
type AccessList []AccessTuple

// StorageKeys returns the total number of storage keys across all tuples.
func (al AccessList) StorageKeys() int {
	sum := 0
	for _, tuple := range al {
		sum += len(tuple.StorageKeys)
	}
	return sum
}

// HasAddress reports whether addr appears in the access list.
func (al AccessList) HasAddress(addr common.Address) bool {
	for _, tuple := range al {
		if tuple.Address == addr {
			return true
		}
	}
	return false
}

// Copy returns a deep copy of the access list.
func (al AccessList) Copy() AccessList {
	if al == nil {
		return nil
	}
	cpy := make(AccessList, len(al))
	for i, tuple := range al {
		cpy[i].Address = tuple.Address
		cpy[i].StorageKeys = make([]common.Hash, len(tuple.StorageKeys))
		copy(cpy[i].StorageKeys, tuple.StorageKeys)
	}
	return cpy
}
