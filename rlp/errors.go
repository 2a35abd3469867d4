package rlp

import "errors"

// ErrParse is the sentinel wrapped by every decode error produced by this
// package, so callers can test with errors.Is(err, rlp.ErrParse) regardless
// of which field failed.
var ErrParse = errors.New("malformed RLP")
