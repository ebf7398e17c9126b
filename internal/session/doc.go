// Package session
// Author: momentics <momentics@gmail.com>
//
// Sharded registry of live sessions keyed by segment key. Both the producer
// facade and the reference consumer use it to find, enumerate and close
// every session they own.
package session
