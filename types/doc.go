// Package types contains shared primitives used across the voiceflow
// service: the error taxonomy and role/language constants.
//
// The error model distinguishes four propagation classes (see the handler
// and orchestrator packages for policy): validation errors are rejected at
// the request boundary, decode and backend failures on the streaming path
// degrade the current chunk or cycle, and protocol violations are reported
// in-band without a state change.
package types
