// File: protocol/handshake.go
// Package protocol
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Handshake and acknowledgement wire format. The producer's first bytes on the
// control channel are the segment key as raw text with no prefix or terminator;
// keys have a fixed length so the consumer knows how much to read. The consumer
// answers every released buffer with a short ack token.

package protocol

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-liveplot/api"
	"github.com/segmentio/ksuid"
)

// KeyLen is the length of a segment key: the base62 text form of a KSUID.
const KeyLen = 27

// AckSize is the length of an ack token.
const AckSize = 2

// AckToken is what the consumer sends when the segment is free again.
// Its content carries no meaning beyond being present.
var AckToken = []byte("ok")

// NewKey returns a fresh, unique segment key of KeyLen bytes.
func NewKey() string {
	return ksuid.New().String()
}

// ValidKey reports whether key has the shape produced by NewKey.
func ValidKey(key string) bool {
	if len(key) != KeyLen {
		return false
	}
	for i := 0; i < len(key); i++ {
		if !isBase62(key[i]) {
			return false
		}
	}
	_, err := ksuid.Parse(key)
	return err == nil
}

func isBase62(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z'
}

// WriteKey sends the segment key as the opening bytes of a session.
func WriteKey(ch api.ControlChannel, key string) error {
	if !ValidKey(key) {
		return fmt.Errorf("%w: segment key %q", api.ErrInvalidArgument, key)
	}
	return ch.Write([]byte(key))
}

// ReadKey reads the opening segment key on the consumer side.
func ReadKey(ch api.ControlChannel, timeout time.Duration) (string, error) {
	b, err := ch.ReadExact(KeyLen, timeout)
	if err != nil {
		return "", fmt.Errorf("read segment key: %w", err)
	}
	key := string(b)
	if !ValidKey(key) {
		return "", fmt.Errorf("%w: segment key %q", api.ErrInvalidArgument, key)
	}
	return key, nil
}

// WriteAck signals that the segment may be overwritten.
func WriteAck(ch api.ControlChannel) error {
	return ch.Write(AckToken)
}

// ReadAck waits for the next ack token. A non-positive timeout waits indefinitely.
func ReadAck(ch api.ControlChannel, timeout time.Duration) error {
	_, err := ch.ReadExact(AckSize, timeout)
	return err
}

// ReadHeader reads and decodes the next fixed-width header.
func ReadHeader(ch api.ControlChannel, timeout time.Duration) (Header, error) {
	block, err := ch.ReadExact(FrameWidth, timeout)
	if err != nil {
		return Header{}, err
	}
	return DecodeHeader(block)
}
