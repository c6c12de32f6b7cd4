package lang

import (
	"regexp"
	"strings"
)

// Tag is a normalized language tag. The pipeline operates on a closed set of
// supported tags; every resolver function is total and always returns one of
// them.
type Tag string

const (
	De Tag = "de"
	En Tag = "en"
	Es Tag = "es"
	Pt Tag = "pt"

	// Auto is the wire-level sentinel asking the pipeline to detect the
	// language itself. It is never returned by the resolver.
	Auto = "auto"
)

// Supported returns the candidate set in scoring order.
func Supported() []Tag {
	return []Tag{De, En, Es, Pt}
}

// IsSupported reports whether s is one of the supported tags.
func IsSupported(s string) bool {
	switch Tag(s) {
	case De, En, Es, Pt:
		return true
	}
	return false
}

var (
	deDiacritics = regexp.MustCompile(`[äöüß]`)
	esDiacritics = regexp.MustCompile(`[áéíóúñ]`)
	ptDiacritics = regexp.MustCompile(`[ãõáéíóúç]`)
)

// Detect scores the supported candidates against a decoded byte sample using
// diacritic frequency and common short-word frequency, and returns the
// highest-scoring tag. An all-zero score or a tie between leaders defaults
// to En. Deterministic and safe for concurrent use.
//
// This is a heuristic stand-in for a real language-ID model; the contract
// (total, deterministic, always a supported tag) holds for any backend.
func Detect(sample []byte) Tag {
	letters := strings.ToLower(strings.ToValidUTF8(string(sample), ""))

	scores := map[Tag]int{
		De: len(deDiacritics.FindAllString(letters, -1)) + strings.Count(letters, "der"),
		Es: len(esDiacritics.FindAllString(letters, -1)) + strings.Count(letters, "que"),
		Pt: len(ptDiacritics.FindAllString(letters, -1)) + strings.Count(letters, " que"),
		En: countASCIILetters(letters),
	}

	best, max, tied := En, 0, false
	for _, tag := range Supported() {
		switch {
		case scores[tag] > max:
			best, max, tied = tag, scores[tag], false
		case scores[tag] == max && max > 0 && tag != best:
			tied = true
		}
	}
	if max == 0 || tied {
		return En
	}
	return best
}

// Normalize maps an arbitrary language hint onto a supported tag. Supported
// tags pass through unchanged; otherwise the hint is case-folded and matched
// by prefix. Unmatched hints, including "auto", resolve to En.
// Normalize is idempotent.
func Normalize(hint string) Tag {
	if IsSupported(hint) {
		return Tag(hint)
	}
	lower := strings.ToLower(hint)
	switch {
	case strings.HasPrefix(lower, "en"):
		return En
	case strings.HasPrefix(lower, "de"):
		return De
	case strings.HasPrefix(lower, "es"):
		return Es
	case strings.HasPrefix(lower, "pt"):
		return Pt
	}
	return En
}

// MajorityVote normalizes each non-empty input tag and returns the mode.
// Empty input yields En. Ties break by first-encountered order, so the
// count is stable.
func MajorityVote(tags []string) Tag {
	counts := make(map[Tag]int)
	var order []Tag
	for _, raw := range tags {
		if raw == "" {
			continue
		}
		tag := Normalize(raw)
		if _, seen := counts[tag]; !seen {
			order = append(order, tag)
		}
		counts[tag]++
	}
	if len(order) == 0 {
		return En
	}
	best := order[0]
	for _, tag := range order[1:] {
		if counts[tag] > counts[best] {
			best = tag
		}
	}
	return best
}

func countASCIILetters(s string) int {
	n := 0
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			n++
		}
	}
	return n
}
