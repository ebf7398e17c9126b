// Package fake
// Author: momentics <momentics@gmail.com>
//
// In-memory implementations of api.ControlChannel and api.Segment for tests.
// Both record what happened to them, optionally into a shared Trace so the
// relative order of channel and segment operations can be asserted.
package fake
