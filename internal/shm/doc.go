// Package shm
// Author: momentics <momentics@gmail.com>
//
// Fixed-capacity shared memory segment used as the bulk data channel between
// a producer and the visualization process on the same host.
//
// A segment is a file under /dev/shm (or the temp dir when /dev/shm is absent)
// mapped MAP_SHARED by both peers. Capacity is fixed at creation. An exclusive
// advisory lock on the file serializes every read and write; Write and Read
// refuse to run without it. The producer creates and finally unlinks the file,
// the consumer only attaches.
package shm
