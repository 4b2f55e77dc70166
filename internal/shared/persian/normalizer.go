// Package persian canonicalizes Persian/Arabic text for dictionary matching
// and converts Jalali calendar dates.
package persian

import (
	"regexp"
	"strings"
)

// Normalizer canonicalizes raw text into the form stored alongside messages
// and dictionary words. Matching compares normalized tokens by exact
// equality, so every implementation must be deterministic: the same input
// yields the same output across calls and across process restarts.
type Normalizer interface {
	// Normalize returns the canonical form of text and true, or "" and
	// false when the input reduces to nothing. It never fails: internal
	// problems degrade to the trimmed input rather than an error, so a
	// single bad message can not abort an ingestion batch.
	Normalize(text string) (string, bool)

	// Tokenize splits text into normalized matchable tokens.
	Tokenize(text string) []string
}

// arabicToPersian maps Arabic-script variants to their Persian equivalents.
var arabicToPersian = strings.NewReplacer(
	"ك", "ک",
	"ي", "ی",
	"ى", "ی",
	"ؤ", "و",
	"إ", "ا",
	"أ", "ا",
	"ٱ", "ا",
	"ة", "ه",
)

var (
	diacriticsRe = regexp.MustCompile("[ً-ٟ]")
	whitespaceRe = regexp.MustCompile(`\s+`)
	urlRe        = regexp.MustCompile(`http\S+|www\.\S+`)
	mentionRe    = regexp.MustCompile(`@[\p{L}\p{N}_]+`)
	hashtagRe    = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)
	bangRunRe    = regexp.MustCompile(`!{2,}`)
	questRunRe   = regexp.MustCompile(`\?{2,}`)
	dotRunRe     = regexp.MustCompile(`\.{2,}`)

	emailRe = regexp.MustCompile(`\S+@\S+`)
	phoneRe = regexp.MustCompile(`\+?\d{10,}`)
)

// FallbackNormalizer is the deterministic, dependency-free normalization
// pipeline. A richer language-specific backend may be swapped in behind the
// Normalizer interface, but this one is always available and its output is
// what cached normalized text is built from.
type FallbackNormalizer struct {
	stopwords map[string]struct{}
}

// NewNormalizer returns the fallback normalizer with the standard stopword
// set. Pass removeStopwords=false to keep stopwords (used by tooling that
// wants canonicalization without token dropping).
func NewNormalizer(removeStopwords bool) *FallbackNormalizer {
	n := &FallbackNormalizer{}
	if removeStopwords {
		n.stopwords = stopwords
	}
	return n
}

// Normalize applies, in order: Arabic→Persian character mapping, diacritic
// stripping, ZWNJ→space, whitespace collapsing, URL and @-mention removal,
// hashtag un-hashing, punctuation-run collapsing, stopword removal and a
// final trim. An empty result is reported as absent rather than "".
func (n *FallbackNormalizer) Normalize(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	t := arabicToPersian.Replace(text)
	t = diacriticsRe.ReplaceAllString(t, "")
	t = strings.ReplaceAll(t, "‌", " ")
	t = whitespaceRe.ReplaceAllString(t, " ")
	t = urlRe.ReplaceAllString(t, "")
	t = mentionRe.ReplaceAllString(t, "")
	t = hashtagRe.ReplaceAllString(t, "$1")
	t = bangRunRe.ReplaceAllString(t, "!")
	t = questRunRe.ReplaceAllString(t, "?")
	t = dotRunRe.ReplaceAllString(t, "…")

	if n.stopwords != nil {
		fields := strings.Fields(t)
		kept := fields[:0]
		for _, f := range fields {
			if _, stop := n.stopwords[f]; !stop {
				kept = append(kept, f)
			}
		}
		t = strings.Join(kept, " ")
	}

	t = strings.TrimSpace(t)
	if t == "" {
		return "", false
	}
	return t, true
}

// Tokenize normalizes text and splits it on whitespace.
func (n *FallbackNormalizer) Tokenize(text string) []string {
	normalized, ok := n.Normalize(text)
	if !ok {
		return nil
	}
	return strings.Fields(normalized)
}

// Clean strips URLs, e-mail addresses, mentions, hashtag markers, long
// digit runs and extra whitespace without normalizing characters. Used for
// display surfaces (feeds), not for matching.
func Clean(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	t := urlRe.ReplaceAllString(text, "")
	t = emailRe.ReplaceAllString(t, "")
	t = mentionRe.ReplaceAllString(t, "")
	t = hashtagRe.ReplaceAllString(t, "$1")
	t = phoneRe.ReplaceAllString(t, "")
	t = whitespaceRe.ReplaceAllString(t, " ")
	t = strings.TrimSpace(t)
	if t == "" {
		return "", false
	}
	return t, true
}
