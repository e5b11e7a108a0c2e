package rtxfallback

import "errors"

// ErrInvalidArgument covers a null destination address, a destination or
// scratch range smaller than the prebuild requirement, an unknown
// acceleration-structure type, or an unsupported copy mode.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrInternal is the error kind for arithmetic overflow in a size
// computation. Every size formula is computed in uint64 from a uint32
// element count, which cannot overflow, so no function in this package
// currently returns it.
var ErrInternal = errors.New("internal error")
