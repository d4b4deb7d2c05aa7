package trace

import "sync/atomic"

var globalSeq atomic.Uint64

// NextSeq returns a monotonically increasing sequence number.
func NextSeq() uint64 {
	return globalSeq.Add(1)
}
