// Package server is a reference consumer for the liveplot transport.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// It does no rendering. A Listener owns the named endpoint and accepts
// producers; each Conn completes the handshake by reading the segment key,
// attaching the segment and sending the first ack. Conn.Next then yields one
// decoded Frame per header, releasing the segment with an ack after every
// payload. Registry keeps the resulting per-target state and is what tests
// and the dump tool inspect.
package server
