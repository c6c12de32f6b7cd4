package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		sample string
		want   Tag
	}{
		{"german diacritics dominate", "äöü ßß größe", De},
		{"spanish diacritics dominate", "ñá é í ó ú ñ ¿qué?", Es},
		{"plain english prose", "this is a perfectly ordinary sentence", En},
		{"empty sample", "", En},
		{"binary noise", "\x00\x01\x02\x7f\xff", En},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect([]byte(tt.sample)))
		})
	}
}

func TestDetect_AllZeroDefaultsToEnglish(t *testing.T) {
	assert.Equal(t, En, Detect([]byte("0123456789 !?")))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		hint string
		want Tag
	}{
		{"en", En},
		{"de", De},
		{"es", Es},
		{"pt", Pt},
		{"en-US", En},
		{"EN-GB", En},
		{"de-AT", De},
		{"es_MX", Es},
		{"pt-BR", Pt},
		{"auto", En},
		{"", En},
		{"fr", En},
		{"zh-CN", En},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.hint), "hint %q", tt.hint)
	}
}

func TestMajorityVote(t *testing.T) {
	assert.Equal(t, En, MajorityVote(nil))
	assert.Equal(t, En, MajorityVote([]string{}))
	assert.Equal(t, En, MajorityVote([]string{"", ""}))
	assert.Equal(t, De, MajorityVote([]string{"de", "de", "en"}))
	assert.Equal(t, Pt, MajorityVote([]string{"pt-BR", "pt", "es"}))
	// Ties break by first-encountered order.
	assert.Equal(t, Es, MajorityVote([]string{"es", "de", "de", "es"}))
}

func TestNormalize_IdempotentProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		hint := rapid.String().Draw(t, "hint")
		once := Normalize(hint)
		assert.Equal(t, once, Normalize(string(once)))
		assert.True(t, IsSupported(string(once)))
	})
}

func TestDetect_TotalProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sample := rapid.SliceOf(rapid.Byte()).Draw(t, "sample")
		assert.True(t, IsSupported(string(Detect(sample))))
	})
}

func TestMajorityVote_AlwaysSupportedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tags := rapid.SliceOf(rapid.String()).Draw(t, "tags")
		assert.True(t, IsSupported(string(MajorityVote(tags))))
	})
}
