package asr

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/BaSui01/voiceflow/lang"
)

// StubBackend is the built-in deterministic backend used when no external
// transcription model is configured. The produced text encodes the resolved
// language and a fingerprint of the audio head, so downstream stages and
// tests can assert on it.
type StubBackend struct{}

// NewStubBackend returns the deterministic transcription backend.
func NewStubBackend() *StubBackend {
	return &StubBackend{}
}

// Transcribe derives a synthetic transcript from the buffer contents.
func (b *StubBackend) Transcribe(_ context.Context, audio []byte, language lang.Tag) (string, error) {
	head := audio
	if len(head) > 8 {
		head = head[:8]
	}
	return fmt.Sprintf("transcript-%s-%s", language, hex.EncodeToString(head)), nil
}

// Name reports the backend identifier used in health output.
func (b *StubBackend) Name() string {
	return "stub"
}
