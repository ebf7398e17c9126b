// Package client is the producer side of the liveplot transport.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Session owns one control channel and one shared memory segment. Dial
// connects to the consumer's named endpoint, creates a segment under a fresh
// key and sends that key as the first bytes on the channel.
//
// Every payload-bearing command waits for the consumer's ack before taking the
// segment lock, writing the header and copying the payload, so the single
// buffer has one logical owner at any time. Synchronous kinds are followed by
// a barrier command; a send returns only once the consumer has released the
// buffer holding the real payload.
//
// Once the consumer goes away the session turns Disconnected, logs a single
// warning, and every later send is a silent no-op. IsConnected reports this.
package client
