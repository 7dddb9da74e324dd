// Package taxonomy owns the in-memory concept graph: the multilingual
// SKOS-like Concept type, the per-language inverted index built over every
// text field, precomputed label embeddings, heuristic ranked search, and
// prefix autocomplete backed by an LRU cache.
//
// Everything here is read-mostly after Load: the concept map, inverted
// index, embedding matrices, and autocomplete lists are built once and
// never mutated in place. The only structure that mutates during reads is
// the autocomplete LRU cache, which has its own lock.
package taxonomy

// Concept is immutable once returned from Store.Load. A multilingual field
// present in the source carries a key for each language the store
// recognized at load time, a language missing from a per-language object
// copying another language's value. A field absent from the source (or
// given as an empty object) has no keys at all, so a lookup on it returns
// the zero value.
type Concept struct {
	ID       string
	URI      string
	InScheme []string

	PrefLabel   map[string]string
	AltLabel    map[string][]string
	HiddenLabel map[string][]string

	// Definition, ScopeNote, and Note use *string so an absent value (empty
	// string in the source JSON) is distinguishable from "not asked for
	// this language" — both collapse to nil here.
	Definition map[string]*string
	ScopeNote  map[string]*string
	Note       map[string]*string

	Example map[string][]string
	Path    map[string][]string

	Broader    []string
	Narrower   []string
	ExactMatch []string
	CloseMatch []string
	Related    []string
}

// Label returns the concept's preferred label in lang, falling back to the
// first present language when lang is absent. Used anywhere a concept must
// be rendered (search results, classify predictions, concept detail) and
// the requested language might be missing for a particular field.
func (c *Concept) Label(lang string) string {
	if v, ok := c.PrefLabel[lang]; ok && v != "" {
		return v
	}
	for _, v := range c.PrefLabel {
		if v != "" {
			return v
		}
	}
	return ""
}

// PathFor returns the concept's display path in lang, falling back to the
// first present language.
func (c *Concept) PathFor(lang string) []string {
	if v, ok := c.Path[lang]; ok && len(v) > 0 {
		return v
	}
	for _, v := range c.Path {
		if len(v) > 0 {
			return v
		}
	}
	return nil
}
