package taxonomy

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/orneryd/twic/pkg/normalize"
)

// defaultLangs is the language set assumed when neither a configured
// language list nor any prefLabel key gives a hint.
var defaultLangs = []string{"es", "en"}

// embRow records which concept, field, and original text a row of an
// embedding matrix came from, so a similarity hit can be attributed back
// to a concept.
type embRow struct {
	conceptID string
	field     string // "pref" or "alt"
	text      string
}

// acEntry is one autocomplete candidate: a normalized label alongside the
// concept and original text it came from. Entries are kept sorted by norm
// so autocomplete can binary-search a prefix.
type acEntry struct {
	norm      string
	conceptID string
	kind      string // "pref" or "alt"
	label     string
}

// AutocompleteHit is a single autocomplete suggestion returned to callers.
type AutocompleteHit struct {
	ConceptID string
	Label     string
	Kind      string
}

type acCacheKey struct {
	lang  string
	query string
	limit int
}

// snapshot is the entire read-only state built by a single Load/Reload. A
// Store swaps this pointer atomically so in-flight reads never observe a
// half-built index.
type snapshot struct {
	langs    []string
	concepts map[string]*Concept

	inverted map[string]map[string][]string // lang -> lowercased, trimmed term -> concept ids

	embDim       int
	embMats      map[string][][]float32 // lang -> rows
	embMeta      map[string][]embRow     // lang -> row metadata, aligned with embMats
	embPrefIndex map[string]map[string]int // conceptID -> lang -> row index of its prefLabel embedding

	acEntries map[string][]acEntry // lang -> sorted entries
}

// Store owns the in-memory concept graph for one taxonomy artifact: the
// concept map, the per-language inverted index, precomputed label
// embeddings, and the sorted autocomplete lists. Everything in a snapshot
// is built once by Load and never mutated; Load installs a new snapshot
// atomically so concurrent Search/Autocomplete calls never see a partial
// rebuild.
type Store struct {
	weights  Weights
	embedder Embedder

	snap atomic.Pointer[snapshot]

	acCache *lru.Cache[acCacheKey, []AutocompleteHit]

	// embedPrefCache memoizes on-demand prefLabel embeddings keyed by
	// "id:lang", used only by the vector-boost fallback path, which runs
	// when the snapshot holds no precomputed embedding rows for the
	// query's language. Precomputed matrices remain the fast path; this cache
	// exists so that path, when it misses, still pays the embedding cost
	// once per concept rather than once per query.
	embedPrefCache sync.Map // "id:lang" -> []float32
}

// NewStore constructs an empty Store. Call Load before any Search or
// Autocomplete call; both return empty results against an unloaded store
// rather than panicking.
func NewStore(weights Weights, embedder Embedder) *Store {
	cache, _ := lru.New[acCacheKey, []AutocompleteHit](256)
	return &Store{weights: weights, embedder: embedder, acCache: cache}
}

// Langs returns the language set the currently loaded snapshot recognizes.
func (s *Store) Langs() []string {
	snap := s.snap.Load()
	if snap == nil {
		return nil
	}
	return append([]string(nil), snap.langs...)
}

// Concept looks up a single concept by id in the current snapshot.
func (s *Store) Concept(id string) (*Concept, bool) {
	snap := s.snap.Load()
	if snap == nil {
		return nil, false
	}
	c, ok := snap.concepts[id]
	return c, ok
}

// All returns every concept in the current snapshot. Used by callers that
// build their own derived indices over the full concept set, such as the
// BM25 document builder. Returns nil against an unloaded store.
func (s *Store) All() []*Concept {
	snap := s.snap.Load()
	if snap == nil {
		return nil
	}
	out := make([]*Concept, 0, len(snap.concepts))
	for _, c := range snap.concepts {
		out = append(out, c)
	}
	return out
}

// resolveLang returns lang if the snapshot recognizes it, else the first
// language the snapshot was built with. Mirrors the original service's
// "fall back to whichever language happens to be loaded" behavior rather
// than erroring on an unknown language.
func resolveLang(snap *snapshot, lang string) string {
	for _, l := range snap.langs {
		if l == lang {
			return lang
		}
	}
	if len(snap.langs) > 0 {
		return snap.langs[0]
	}
	return lang
}

// Load parses a taxonomy JSON artifact, builds the inverted index and
// autocomplete lists, and — when the store's weights enable the vector
// boost and an Embedder was supplied — precomputes per-language label
// embedding matrices.
//
// langs, when non-empty, is the configured language set every concept's
// multilingual fields are broadcast to. When empty, the language set is
// inferred from observed prefLabel keys across every row, falling back to
// {es, en} when the artifact carries no prefLabel keys at all.
func (s *Store) Load(path string, langs []string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("taxonomy: read %s: %w", path, err)
	}

	var rows []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return fmt.Errorf("taxonomy: parse %s: %w", path, err)
	}

	resolvedLangs := langs
	if len(resolvedLangs) == 0 {
		resolvedLangs = inferLangs(rows)
	}

	concepts := make(map[string]*Concept, len(rows))
	for i, row := range rows {
		c, err := buildConcept(row, resolvedLangs)
		if err != nil {
			return fmt.Errorf("taxonomy: row %d: %w", i, err)
		}
		concepts[c.ID] = c
	}

	snap := &snapshot{
		langs:    resolvedLangs,
		concepts: concepts,
	}
	snap.inverted = buildInvertedIndex(concepts, resolvedLangs)
	snap.acEntries = buildAutocompleteEntries(concepts, resolvedLangs)

	if s.weights.Vec > 0 && s.embedder != nil {
		mats, meta, prefIdx, err := buildEmbeddings(concepts, resolvedLangs, s.embedder)
		if err != nil {
			return fmt.Errorf("taxonomy: embeddings: %w", err)
		}
		snap.embDim = s.embedder.Dimension()
		snap.embMats = mats
		snap.embMeta = meta
		snap.embPrefIndex = prefIdx
	}

	s.snap.Store(snap)
	s.acCache.Purge()
	s.embedPrefCache = sync.Map{}
	return nil
}

// Loaded reports whether Load has installed a snapshot yet, used by the
// readiness coordinator.
func (s *Store) Loaded() bool {
	return s.snap.Load() != nil
}

// Reset drops the current snapshot so the next access reloads from disk.
// In-flight readers holding the old snapshot pointer are unaffected; they
// simply finish against the pre-reload data, per the atomic pointer-swap
// concurrency model.
func (s *Store) Reset() {
	s.snap.Store(nil)
	s.acCache.Purge()
	s.embedPrefCache = sync.Map{}
}

func inferLangs(rows []map[string]json.RawMessage) []string {
	seen := map[string]bool{}
	var order []string
	for _, row := range rows {
		raw, ok := row["prefLabel"]
		if !ok {
			continue
		}
		field, err := parseField(raw)
		if err != nil || field.shape != shapeMap {
			continue
		}
		for lang := range field.m {
			if !seen[lang] {
				seen[lang] = true
				order = append(order, lang)
			}
		}
	}
	if len(order) == 0 {
		return append([]string(nil), defaultLangs...)
	}
	sort.Strings(order)
	return order
}

func buildConcept(row map[string]json.RawMessage, langs []string) (*Concept, error) {
	id := decodeString(row["id"], "")
	if id == "" {
		return nil, fmt.Errorf("missing id")
	}
	uri := decodeString(row["uri"], id)

	definitionRaw, hasDefinition := row["definition"]
	if !hasDefinition {
		definitionRaw = row["desc"]
	}
	exampleRaw, hasExample := row["example"]
	if !hasExample {
		exampleRaw = row["examples"]
	}

	prefField, err := parseField(row["prefLabel"])
	if err != nil {
		return nil, fmt.Errorf("prefLabel: %w", err)
	}
	altField, err := parseField(row["altLabel"])
	if err != nil {
		return nil, fmt.Errorf("altLabel: %w", err)
	}
	hiddenField, err := parseField(row["hiddenLabel"])
	if err != nil {
		return nil, fmt.Errorf("hiddenLabel: %w", err)
	}
	defField, err := parseField(definitionRaw)
	if err != nil {
		return nil, fmt.Errorf("definition: %w", err)
	}
	scopeField, err := parseField(row["scopeNote"])
	if err != nil {
		return nil, fmt.Errorf("scopeNote: %w", err)
	}
	noteField, err := parseField(row["note"])
	if err != nil {
		return nil, fmt.Errorf("note: %w", err)
	}
	exField, err := parseField(exampleRaw)
	if err != nil {
		return nil, fmt.Errorf("example: %w", err)
	}
	pathField, err := parseField(row["path"])
	if err != nil {
		return nil, fmt.Errorf("path: %w", err)
	}

	return &Concept{
		ID:       id,
		URI:      uri,
		InScheme: decodeStringList(row["inScheme"]),

		PrefLabel:   asStringMap(broadcast(prefField, langs)),
		AltLabel:    asListMap(broadcast(altField, langs)),
		HiddenLabel: asListMap(broadcast(hiddenField, langs)),

		Definition: asOptStringMap(broadcast(defField, langs)),
		ScopeNote:  asOptStringMap(broadcast(scopeField, langs)),
		Note:       asOptStringMap(broadcast(noteField, langs)),

		Example: asListMap(broadcast(exField, langs)),
		Path:    asListMap(broadcast(pathField, langs)),

		Broader:    decodeStringList(row["broader"]),
		Narrower:   decodeStringList(row["narrower"]),
		ExactMatch: decodeStringList(row["exactMatch"]),
		CloseMatch: decodeStringList(row["closeMatch"]),
		Related:    decodeStringList(row["related"]),
	}, nil
}

// buildInvertedIndex maps, per language, every lowercased, trimmed text
// value appearing anywhere in a concept's text fields to the ids of concepts
// carrying it. Search uses this as its candidate prefilter instead of
// scanning every concept on every query.
func buildInvertedIndex(concepts map[string]*Concept, langs []string) map[string]map[string][]string {
	inv := make(map[string]map[string][]string, len(langs))
	for _, l := range langs {
		inv[l] = map[string][]string{}
	}
	for _, c := range concepts {
		for _, l := range langs {
			var terms []string
			if v := c.PrefLabel[l]; v != "" {
				terms = append(terms, v)
			}
			terms = append(terms, c.AltLabel[l]...)
			terms = append(terms, c.HiddenLabel[l]...)
			if v := c.Definition[l]; v != nil {
				terms = append(terms, *v)
			}
			if v := c.ScopeNote[l]; v != nil {
				terms = append(terms, *v)
			}
			if v := c.Note[l]; v != nil {
				terms = append(terms, *v)
			}
			terms = append(terms, c.Example[l]...)
			terms = append(terms, c.Path[l]...)

			for _, t := range terms {
				key := strings.TrimSpace(strings.ToLower(t))
				if key == "" {
					continue
				}
				inv[l][key] = append(inv[l][key], c.ID)
			}
		}
	}
	return inv
}

func buildAutocompleteEntries(concepts map[string]*Concept, langs []string) map[string][]acEntry {
	out := make(map[string][]acEntry, len(langs))
	for _, l := range langs {
		var entries []acEntry
		for _, c := range concepts {
			pref := firstNonEmpty(c.PrefLabel[l], c.PrefLabel)
			if pref != "" {
				entries = append(entries, acEntry{
					norm:      normalize.Default(pref),
					conceptID: c.ID,
					kind:      "pref",
					label:     pref,
				})
			}
			for _, alt := range c.AltLabel[l] {
				if alt == "" {
					continue
				}
				entries = append(entries, acEntry{
					norm:      normalize.Default(alt),
					conceptID: c.ID,
					kind:      "alt",
					label:     alt,
				})
			}
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].norm != entries[j].norm {
				return entries[i].norm < entries[j].norm
			}
			li, lj := len(entries[i].label), len(entries[j].label)
			if li != lj {
				return li < lj
			}
			return entries[i].kind == "pref" && entries[j].kind != "pref"
		})
		out[l] = entries
	}
	return out
}

func buildEmbeddings(concepts map[string]*Concept, langs []string, embedder Embedder) (
	map[string][][]float32, map[string][]embRow, map[string]map[string]int, error,
) {
	mats := make(map[string][][]float32, len(langs))
	metas := make(map[string][]embRow, len(langs))
	prefIdx := make(map[string]map[string]int, len(concepts))

	for _, l := range langs {
		var rows [][]float32
		var meta []embRow
		for _, c := range concepts {
			prefText := firstNonEmpty(c.PrefLabel[l], c.PrefLabel)
			if prefText != "" {
				emb, err := embedder.Embed(prefText)
				if err != nil {
					return nil, nil, nil, err
				}
				rows = append(rows, emb)
				idx := len(meta)
				meta = append(meta, embRow{conceptID: c.ID, field: "pref", text: prefText})
				if prefIdx[c.ID] == nil {
					prefIdx[c.ID] = map[string]int{}
				}
				prefIdx[c.ID][l] = idx
			}
			for _, alt := range c.AltLabel[l] {
				if alt == "" {
					continue
				}
				emb, err := embedder.Embed(alt)
				if err != nil {
					return nil, nil, nil, err
				}
				rows = append(rows, emb)
				meta = append(meta, embRow{conceptID: c.ID, field: "alt", text: alt})
			}
		}
		mats[l] = rows
		metas[l] = meta
	}
	return mats, metas, prefIdx, nil
}

// firstNonEmpty returns byLang if non-empty, else an arbitrary non-empty
// value from all. Map iteration order is unspecified, matching the
// original's "any other language will do" fallback semantics.
func firstNonEmpty(byLang string, all map[string]string) string {
	if byLang != "" {
		return byLang
	}
	for _, v := range all {
		if v != "" {
			return v
		}
	}
	return ""
}
