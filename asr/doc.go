// Package asr is the speech-to-text stage. It resolves the utterance
// language, delegates recognition to a pluggable backend, and reports
// per-call latency. Complete transcription is atomic; streaming chunks are
// transcribed one frame at a time.
package asr
