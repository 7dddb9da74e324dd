// Package normalize provides deterministic text folding shared by every
// signal in the classification pipeline: the taxonomy store's inverted
// index and heuristic search, autocomplete, and BM25 tokenization all
// normalize through this package so that a query and the documents it is
// matched against agree on what "the same text" means.
//
// Two variants are exposed, and they are not interchangeable:
//
//   - Normalize is the extended normalizer used by taxonomy search,
//     autocomplete, and the fuzzy/vector boosts. It folds accents, strips
//     anything outside a small Latin alphabet, and naively singularizes.
//   - Tokenize (legacy normalization + word-run extraction) is used by the
//     BM25 index and the classifier's vectorizer, which want raw \w+
//     tokens rather than an ASCII-folded string.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	// allowedRunes matches the character set the extended normalizer keeps:
	// digits, lowercase ASCII letters, space, and the Latin-1 vowels/ñ this
	// vocabulary's source languages (Spanish, English) actually use.
	allowedRunes = map[rune]bool{}

	whitespaceRun = regexp.MustCompile(`\s+`)
	wordRun       = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

func init() {
	for r := '0'; r <= '9'; r++ {
		allowedRunes[r] = true
	}
	for r := 'a'; r <= 'z'; r++ {
		allowedRunes[r] = true
	}
	allowedRunes[' '] = true
	for _, r := range "áéíóúüñ" {
		allowedRunes[r] = true
	}
}

// Options controls which stages of the extended normalizer run.
type Options struct {
	// Accents, when true, folds the output to ASCII by stripping combining
	// marks after NFKD decomposition. Defaults to true via DefaultOptions.
	Accents bool
	// Singular, when true, drops a trailing "s" from any whitespace token
	// longer than 4 characters. A naive English/Spanish plural fold, not a
	// real morphological analyzer.
	Singular bool
}

// DefaultOptions returns the normalizer's default behavior: both accent
// folding and naive singularization enabled.
func DefaultOptions() Options {
	return Options{Accents: true, Singular: true}
}

// Normalize folds s through the extended pipeline used by taxonomy search,
// autocomplete, and the fuzzy/vector boosts:
//
//  1. Unicode NFKC normalization.
//  2. Lowercase.
//  3. Every rune outside [0-9a-z + the configured Latin vowels/ñ] becomes a
//     single space.
//  4. Whitespace collapse and trim.
//  5. If Accents: NFKD decomposition, combining marks dropped (output is
//     then ASCII-safe).
//  6. If Singular: each token longer than 4 runes ending in "s" loses the
//     trailing "s".
//
// Normalize is idempotent: Normalize(Normalize(s, o), o) == Normalize(s, o).
func Normalize(s string, opts Options) string {
	folded := norm.NFKC.String(s)
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if allowedRunes[r] {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	out := collapseWhitespace(b.String())

	if opts.Accents {
		out = stripAccents(out)
	}
	if opts.Singular {
		out = singularize(out)
	}
	return out
}

// Default normalizes s with DefaultOptions(). This is the form used
// throughout the taxonomy store and fusion pipeline; call Normalize
// directly only when a caller needs to opt out of accent folding or
// singularization.
func Default(s string) string {
	return Normalize(s, DefaultOptions())
}

// stripAccents decomposes s (NFKD) and drops combining marks, leaving an
// ASCII-safe string when the input was already within the allowed Latin
// character set.
func stripAccents(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// singularize drops a trailing "s" from whitespace tokens longer than 4
// characters. Intentionally naive: no exception list, no irregular forms.
func singularize(s string) string {
	if s == "" {
		return s
	}
	tokens := strings.Split(s, " ")
	for i, tok := range tokens {
		if utf8.RuneCountInString(tok) > 4 && strings.HasSuffix(tok, "s") {
			tokens[i] = tok[:len(tok)-1]
		}
	}
	return strings.Join(tokens, " ")
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// Legacy normalizes text for BM25 tokenization: NFKC + lowercase +
// whitespace collapse, with no accent stripping and no singularization.
// Do not conflate this with Normalize/Default — BM25 documents and queries
// must agree with each other, not with the taxonomy search normalizer.
func Legacy(s string) string {
	folded := norm.NFKC.String(s)
	folded = strings.ToLower(folded)
	return collapseWhitespace(folded)
}

// Tokenize normalizes s with Legacy and splits it into maximal runs of
// Unicode letters/digits/underscore, matching the \w+ extraction the BM25
// index builds its documents from.
func Tokenize(s string) []string {
	return wordRun.FindAllString(Legacy(s), -1)
}
