// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Control channel between producer and consumer: an ordered, reliable,
// connection-oriented byte stream over a named local (unix domain) endpoint.
// It carries the handshake key, fixed-width command headers and ack tokens.
// A background reader drains the socket so a peer close is observed even
// while the owner is not reading, and is reported through OnDisconnect.

package transport
