// Package stream runs the bidirectional streaming session protocol: one
// start control message, then audio frames in and partial_text events out,
// with a reply cycle (final_text, audio frames, done) fired every time the
// fragment accumulator reaches its threshold. Each connection is driven by
// exactly one goroutine; stage failures degrade to in-band error events
// instead of closing the connection.
package stream
