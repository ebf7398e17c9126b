package pool_test

import (
	"testing"

	"github.com/momentics/hioload-liveplot/pool"
	"github.com/stretchr/testify/assert"
)

func TestBytePoolReuse(t *testing.T) {
	bp := pool.NewBytePool(128)
	b1 := bp.GetBuffer()
	assert.Len(t, b1, 128)
	bp.PutBuffer(b1)

	b2 := bp.Get(64)
	assert.Len(t, b2, 64)
	assert.GreaterOrEqual(t, cap(b2), 64)
}

func TestBytePoolGrowsOnDemand(t *testing.T) {
	bp := pool.NewBytePool(16)
	b := bp.Get(4096)
	assert.Len(t, b, 4096)
	// Oversized buffers are dropped, not retained.
	bp.PutBuffer(b)
	assert.Len(t, bp.GetBuffer(), 16)
}

func TestDefaultPoolIsShared(t *testing.T) {
	assert.Same(t, pool.DefaultPool(), pool.DefaultPool())
	assert.Equal(t, pool.ReadChunkSize, pool.DefaultPool().Size())
}
