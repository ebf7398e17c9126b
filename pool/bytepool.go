// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

// BytePool hands out byte slices of at least a minimum size.
// Slices larger than maxRetain are not returned to the pool so a single
// huge payload does not pin memory for the lifetime of the process.
type BytePool struct {
	size      int
	maxRetain int
	pool      *SyncPool[*[]byte]
}

// NewBytePool creates a pool of size-byte buffers.
func NewBytePool(size int) *BytePool {
	return &BytePool{
		size:      size,
		maxRetain: size * 64,
		pool: NewSyncPool(func() *[]byte {
			b := make([]byte, size)
			return &b
		}),
	}
}

// Size is the default buffer length.
func (b *BytePool) Size() int {
	return b.size
}

// GetBuffer returns a buffer of the default size.
func (b *BytePool) GetBuffer() []byte {
	return b.Get(b.size)
}

// Get returns a buffer of length n, reusing pooled storage when it is large enough.
func (b *BytePool) Get(n int) []byte {
	bp := b.pool.Get()
	if cap(*bp) < n {
		b.pool.Put(bp)
		return make([]byte, n)
	}
	return (*bp)[:n]
}

// PutBuffer returns a buffer to the pool.
func (b *BytePool) PutBuffer(buf []byte) {
	if cap(buf) < b.size || cap(buf) > b.maxRetain {
		// fallback: GC handles memory
		return
	}
	buf = buf[:cap(buf)]
	b.pool.Put(&buf)
}
