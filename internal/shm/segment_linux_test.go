//go:build linux

package shm_test

import (
	"os"
	"testing"
	"time"

	"github.com/momentics/hioload-liveplot/api"
	"github.com/momentics/hioload-liveplot/internal/shm"
	"github.com/momentics/hioload-liveplot/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func create(t *testing.T, capacity int) *shm.Segment {
	t.Helper()
	seg, err := shm.Create(protocol.NewKey(), capacity)
	require.NoError(t, err)
	t.Cleanup(func() { seg.Detach() })
	return seg
}

func TestCreateAttachShareBytes(t *testing.T) {
	owner := create(t, 1024)
	peer, err := shm.Attach(owner.Key())
	require.NoError(t, err)
	defer peer.Detach()
	assert.Equal(t, 1024, peer.Capacity())

	require.NoError(t, owner.Lock())
	require.NoError(t, owner.Write([]byte("hello")))
	require.NoError(t, owner.Unlock())

	require.NoError(t, peer.Lock())
	got, err := peer.Read(5)
	require.NoError(t, err)
	require.NoError(t, peer.Unlock())
	assert.Equal(t, []byte("hello"), got)
}

func TestLockExcludesPeer(t *testing.T) {
	owner := create(t, 64)
	peer, err := shm.Attach(owner.Key())
	require.NoError(t, err)
	defer peer.Detach()

	require.NoError(t, owner.Lock())
	acquired := make(chan error, 1)
	go func() { acquired <- peer.Lock() }()

	select {
	case <-acquired:
		t.Fatal("peer took a held lock")
	case <-time.After(50 * time.Millisecond):
	}
	require.NoError(t, owner.Unlock())
	select {
	case err := <-acquired:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("peer never got the lock")
	}
	require.NoError(t, peer.Unlock())
}

func TestAccessRequiresLock(t *testing.T) {
	seg := create(t, 64)
	assert.ErrorIs(t, seg.Write([]byte{1}), api.ErrSegmentNotLocked)
	_, err := seg.Read(1)
	assert.ErrorIs(t, err, api.ErrSegmentNotLocked)
	assert.ErrorIs(t, seg.Unlock(), api.ErrSegmentNotLocked)
}

func TestOversizedWriteLeavesContents(t *testing.T) {
	seg := create(t, 1024)
	require.NoError(t, seg.Lock())
	defer seg.Unlock()
	require.NoError(t, seg.Write([]byte{7, 7, 7, 7}))

	err := seg.Write(make([]byte, 2048))
	var tooLarge *api.PayloadTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, 2048, tooLarge.Len)
	assert.Equal(t, 1024, tooLarge.Capacity)
	assert.ErrorIs(t, seg.Fits(1025), api.ErrPayloadTooLarge)
	assert.NoError(t, seg.Fits(1024))

	got, err := seg.Read(4)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 7, 7, 7}, got)
}

func TestShorterWriteKeepsTrailingBytes(t *testing.T) {
	seg := create(t, 64)
	require.NoError(t, seg.Lock())
	defer seg.Unlock()

	require.NoError(t, seg.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8}))
	require.NoError(t, seg.Write([]byte{9, 9}))
	buf := make([]byte, 8)
	require.NoError(t, seg.ReadInto(buf))
	assert.Equal(t, []byte{9, 9, 3, 4, 5, 6, 7, 8}, buf)
}

func TestDetach(t *testing.T) {
	seg, err := shm.Create(protocol.NewKey(), 64)
	require.NoError(t, err)
	_, err = os.Stat(shm.Path(seg.Key()))
	require.NoError(t, err)

	require.NoError(t, seg.Detach())
	require.NoError(t, seg.Detach())
	assert.ErrorIs(t, seg.Lock(), api.ErrSegmentDetached)
	_, err = os.Stat(shm.Path(seg.Key()))
	assert.True(t, os.IsNotExist(err))
}

func TestUnlinkKeepsMappingsShared(t *testing.T) {
	seg := create(t, 64)
	peer, err := shm.Attach(seg.Key())
	require.NoError(t, err)
	defer peer.Detach()

	require.NoError(t, peer.Unlink(), "only the creator removes the name")
	_, err = os.Stat(shm.Path(seg.Key()))
	require.NoError(t, err)

	require.NoError(t, seg.Unlink())
	require.NoError(t, seg.Unlink())
	_, err = os.Stat(shm.Path(seg.Key()))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, seg.Lock())
	require.NoError(t, seg.Write([]byte{7, 7}))
	require.NoError(t, seg.Unlock())
	require.NoError(t, peer.Lock())
	got, err := peer.Read(2)
	require.NoError(t, err)
	require.NoError(t, peer.Unlock())
	assert.Equal(t, []byte{7, 7}, got)

	require.NoError(t, seg.Detach())
}

func TestCreateAndAttachFailures(t *testing.T) {
	seg := create(t, 64)

	_, err := shm.Create(seg.Key(), 64)
	assert.ErrorIs(t, err, api.ErrSegmentCreateFailed)

	_, err = shm.Create(protocol.NewKey(), 0)
	assert.ErrorIs(t, err, api.ErrSegmentCreateFailed)

	_, err = shm.Attach(protocol.NewKey())
	assert.ErrorIs(t, err, api.ErrSegmentNotFound)
}
