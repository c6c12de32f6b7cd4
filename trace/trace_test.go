package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		assert.Len(t, id, 16)
		assert.False(t, seen[id], "trace ids must not repeat")
		seen[id] = true
		for _, r := range id {
			assert.Contains(t, "0123456789abcdef", string(r))
		}
	}
}

func TestEnsure(t *testing.T) {
	assert.Equal(t, "caller-supplied", Ensure("caller-supplied"))
	assert.Len(t, Ensure(""), 16)
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, FromContext(ctx))

	ctx = WithID(ctx, "abcd1234abcd1234")
	assert.Equal(t, "abcd1234abcd1234", FromContext(ctx))
}
