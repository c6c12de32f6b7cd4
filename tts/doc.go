// Package tts is the text-to-speech stage. It normalizes the requested
// language and delegates to a pluggable synthesis backend, either as one
// complete buffer or as a finite chunk stream.
package tts
