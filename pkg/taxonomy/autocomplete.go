package taxonomy

import (
	"sort"

	"github.com/orneryd/twic/pkg/normalize"
)

// Autocomplete returns up to limit prefix matches against lang's sorted
// label list. Labels are pre-sorted at Load time so a lookup is a binary
// search for the prefix's insertion point followed by a forward scan
// while the prefix still matches — O(log n + k) rather than scanning
// every concept per keystroke.
//
// Results are cached by (lang, normalized query, limit); the cache is
// purged whenever Load installs a new snapshot.
func (s *Store) Autocomplete(query, lang string, limit int) []AutocompleteHit {
	snap := s.snap.Load()
	if snap == nil {
		return nil
	}
	if limit <= 0 {
		limit = 15
	}
	lang = resolveACLang(snap, lang)
	qNorm := normalize.Default(query)
	if qNorm == "" {
		return nil
	}

	key := acCacheKey{lang: lang, query: qNorm, limit: limit}
	if cached, ok := s.acCache.Get(key); ok {
		return cached
	}

	entries := snap.acEntries[lang]
	idx := sort.Search(len(entries), func(i int) bool { return entries[i].norm >= qNorm })

	var out []AutocompleteHit
	for idx < len(entries) && len(out) < limit && hasPrefix(entries[idx].norm, qNorm) {
		e := entries[idx]
		out = append(out, AutocompleteHit{ConceptID: e.conceptID, Label: e.label, Kind: e.kind})
		idx++
	}

	s.acCache.Add(key, out)
	return out
}

func resolveACLang(snap *snapshot, lang string) string {
	if _, ok := snap.acEntries[lang]; ok {
		return lang
	}
	for l := range snap.acEntries {
		return l
	}
	return lang
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
