package transport_test

import (
	"net"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/hioload-liveplot/api"
	"github.com/momentics/hioload-liveplot/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipe(t *testing.T) (*transport.Channel, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	ch := transport.Wrap(a, nil)
	t.Cleanup(func() {
		ch.Close()
		b.Close()
	})
	return ch, b
}

func TestReadExactAcrossChunks(t *testing.T) {
	ch, peer := pipe(t)
	go func() {
		peer.Write([]byte("hel"))
		peer.Write([]byte("lo wor"))
		peer.Write([]byte("ld"))
	}()
	got, err := ch.ReadExact(5, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	got, err = ch.ReadExact(6, time.Second)
	require.NoError(t, err)
	assert.Equal(t, " world", string(got))
}

func TestReadExactTimeoutKeepsBytes(t *testing.T) {
	ch, peer := pipe(t)
	_, err := peer.Write([]byte("abc"))
	require.NoError(t, err)

	_, err = ch.ReadExact(5, 20*time.Millisecond)
	assert.ErrorIs(t, err, api.ErrReadTimeout)

	_, err = peer.Write([]byte("de"))
	require.NoError(t, err)
	got, err := ch.ReadExact(5, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "abcde", string(got))
}

func TestReadExactAfterPeerCloseDrainsBufferedBytes(t *testing.T) {
	ch, peer := pipe(t)
	_, err := peer.Write([]byte("ok"))
	require.NoError(t, err)
	require.NoError(t, peer.Close())
	<-ch.Done()

	got, err := ch.ReadExact(2, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(got))

	_, err = ch.ReadExact(1, time.Second)
	assert.ErrorIs(t, err, api.ErrTransportClosed)
}

func TestOnDisconnectFiresOnce(t *testing.T) {
	ch, peer := pipe(t)
	var calls atomic.Int32
	ch.OnDisconnect(func() { calls.Add(1) })

	require.NoError(t, peer.Close())
	select {
	case <-ch.Done():
	case <-time.After(time.Second):
		t.Fatal("disconnect not observed")
	}
	assert.Equal(t, int32(1), calls.Load())

	// Level-triggered: late subscribers are told immediately.
	var late atomic.Int32
	ch.OnDisconnect(func() { late.Add(1) })
	assert.Equal(t, int32(1), late.Load())

	err := ch.Write([]byte("x"))
	assert.ErrorIs(t, err, api.ErrTransportClosed)
}

func TestLocalCloseDoesNotNotify(t *testing.T) {
	ch, _ := pipe(t)
	var calls atomic.Int32
	ch.OnDisconnect(func() { calls.Add(1) })

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())
	<-ch.Done()
	assert.Zero(t, calls.Load())
	assert.ErrorIs(t, ch.Write([]byte("x")), api.ErrTransportClosed)
}

func TestDialUnreachable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nobody")
	_, err := transport.Dial(path, 50*time.Millisecond, nil)
	assert.ErrorIs(t, err, api.ErrEndpointUnreachable)
}

func TestListenDialRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lp.sock")
	ln, err := transport.Listen(path)
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan *transport.Channel, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- transport.Wrap(conn, nil)
	}()

	client, err := transport.Dial(path, time.Second, nil)
	require.NoError(t, err)
	defer client.Close()

	server := <-accepted
	defer server.Close()

	require.NoError(t, client.Write([]byte("ping")))
	got, err := server.ReadExact(4, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(got))

	_, err = transport.Listen(path)
	assert.ErrorIs(t, err, api.ErrAlreadyExists)
}

func TestEndpointPath(t *testing.T) {
	assert.Equal(t, "/run/x.sock", transport.EndpointPath("/run/x.sock"))
	assert.Equal(t, "LivePlot", filepath.Base(transport.EndpointPath("LivePlot")))
}
