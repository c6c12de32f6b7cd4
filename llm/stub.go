package llm

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/BaSui01/voiceflow/lang"
)

// fillers are the per-language acknowledgement sentences the stub prepends
// to every echo reply.
var fillers = map[lang.Tag]string{
	lang.De: "Ich habe dich verstanden und antworte auf Deutsch.",
	lang.En: "I understood you and will reply in English.",
	lang.Es: "Te entendí y responderé en español.",
	lang.Pt: "Entendi você e vou responder em português.",
}

// modelTags name the pretend model that produced a stub reply.
var modelTags = []string{"mistral", "llama", "qwen", "phi"}

// echoLimit caps how much of the user text is echoed back.
const echoLimit = 160

// StubBackend is the built-in reply backend used when no external model is
// configured. It acknowledges in the target language and echoes the user
// text, tagged with a pretend model name.
type StubBackend struct{}

// NewStubBackend returns the deterministic-enough echo backend.
func NewStubBackend() *StubBackend {
	return &StubBackend{}
}

// Generate renders the canned acknowledgement plus a bounded echo.
func (b *StubBackend) Generate(_ context.Context, text string, language lang.Tag, memoryPrefix string) (string, error) {
	filler, ok := fillers[language]
	if !ok {
		filler = fillers[lang.En]
	}
	echo := text
	if runes := []rune(echo); len(runes) > echoLimit {
		echo = string(runes[:echoLimit])
	}
	tag := modelTags[rand.IntN(len(modelTags))]
	return fmt.Sprintf("%s%s Echo: %s [%s]", memoryPrefix, filler, echo, tag), nil
}

// Name reports the backend identifier used in health output.
func (b *StubBackend) Name() string {
	return "stub"
}
