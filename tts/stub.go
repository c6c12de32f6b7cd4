package tts

import (
	"context"
	"fmt"

	"github.com/BaSui01/voiceflow/lang"
)

const (
	// minAudioBytes is the silence floor so even one-character text yields
	// an audible-length buffer.
	minAudioBytes = 1600
	// bytesPerChar scales the silence buffer with the text length.
	bytesPerChar = 20
	// charsPerChunk sets how much text one streamed chunk covers.
	charsPerChunk = 32
)

// StubBackend is the built-in synthesis backend used when no external
// voice model is configured. Complete synthesis yields a silence buffer
// proportional to the text; streaming yields labelled placeholder chunks.
type StubBackend struct{}

// NewStubBackend returns the silence-generating backend.
func NewStubBackend() *StubBackend {
	return &StubBackend{}
}

// Synthesize renders text-proportional silence.
func (b *StubBackend) Synthesize(_ context.Context, text string, _ lang.Tag, _ string) ([]byte, error) {
	size := len(text) * bytesPerChar
	if size < minAudioBytes {
		size = minAudioBytes
	}
	return make([]byte, size), nil
}

// SynthesizeStream renders ceil(len(text)/charsPerChunk) chunks, at least
// one, each labelled with the language, voice, and chunk index.
func (b *StubBackend) SynthesizeStream(_ context.Context, text string, language lang.Tag, voice string) (ChunkStream, error) {
	count := (len(text) + charsPerChunk - 1) / charsPerChunk
	if count < 1 {
		count = 1
	}
	return &stubChunkStream{language: language, voice: voice, count: count}, nil
}

// Name reports the backend identifier used in health output.
func (b *StubBackend) Name() string {
	return "stub"
}

type stubChunkStream struct {
	language lang.Tag
	voice    string
	count    int
	next     int
}

func (s *stubChunkStream) Next() ([]byte, bool) {
	if s.next >= s.count {
		return nil, false
	}
	chunk := []byte(fmt.Sprintf("%s-%s-%d", s.language, s.voice, s.next))
	s.next++
	return chunk, true
}
