// Package pool
// Author: momentics <momentics@gmail.com>
//
// Reusable byte buffers for the control channel reader and for copying
// payloads out of the shared memory segment on the consumer side.
// See bytepool.go and objpool.go for implementation details.
package pool
