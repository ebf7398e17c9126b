package pool

import "sync"

// ReadChunkSize is the scratch buffer size used by control channel readers.
const ReadChunkSize = 4096

var (
	defaultOnce sync.Once
	defaultPool *BytePool
)

// DefaultPool returns a process-wide BytePool of ReadChunkSize buffers so all
// channels reuse the same scratch space instead of fragmenting allocations.
func DefaultPool() *BytePool {
	defaultOnce.Do(func() {
		defaultPool = NewBytePool(ReadChunkSize)
	})
	return defaultPool
}
