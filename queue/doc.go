// Package queue implements the cross-thread transport primitives of the
// molniya runtime: a single-producer/single-consumer ring buffer, a
// growable chain of ring segments, a spin-then-sleep backoff strategy,
// and a multi-producer pollable queue with an attached wait handle.
//
// These types carry events between scheduler threads and deliberately
// know nothing about actors.
package queue
