// Package engine owns the taxonomy store, dense retriever, BM25 index,
// and classifier as one explicit value, replacing the original service's
// module-scope singletons. It implements the pure function contracts the
// transport layer calls: Classify, TaxoSearch, TaxoAutocomplete,
// TaxoConcept, and Reload.
package engine

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/orneryd/twic/pkg/bm25"
	"github.com/orneryd/twic/pkg/classifier"
	"github.com/orneryd/twic/pkg/config"
	"github.com/orneryd/twic/pkg/retrieval"
	"github.com/orneryd/twic/pkg/taxonomy"
)

var logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)

// Embedder is the dependency used to turn a query string into a vector
// comparable against a language's class-embedding matrix.
type Embedder interface {
	Embed(text string) ([]float32, error)
	Dimension() int
}

// Engine owns every index the classification and taxonomy operations
// read, and the lazy-load guards that build them on first use per
// language. Every field is safe for concurrent use once constructed: the
// classifier pointer and readiness flags are atomics, retrievers is
// guarded by retMu, and the store and BM25 indexes synchronize internally.
type Engine struct {
	cfg      *config.Config
	embedder Embedder

	store *taxonomy.Store

	classifierPtr atomic.Pointer[classifier.Classifier]

	retMu      sync.RWMutex
	retrievers map[string]*retrieval.Retriever

	bm25 *bm25.LangIndexes

	sf singleflight.Group

	taxonomyLoaded  atomic.Bool
	classifierLoaded atomic.Bool
}

// New constructs an Engine. Nothing is loaded from disk until the first
// operation that needs it; this mirrors the original service's lazy
// per-language initialization rather than a blocking startup sequence.
func New(cfg *config.Config, embedder Embedder) *Engine {
	weights := taxonomy.Weights{
		Exact:         cfg.TaxoWExact,
		Prefix:        cfg.TaxoWPrefix,
		Substring:     cfg.TaxoWSubstring,
		Alt:           cfg.TaxoWAlt,
		Hidden:        cfg.TaxoWHidden,
		Path:          cfg.TaxoWPath,
		Context:       cfg.TaxoWContext,
		Vec:           cfg.TaxoWVec,
		Fuzzy:         cfg.TaxoWFuzzy,
		FuzzyMinRatio: cfg.TaxoFuzzyMinRatio,
		TopK:          cfg.TaxoTopK,
	}

	e := &Engine{
		cfg:        cfg,
		embedder:   embedder,
		retrievers: map[string]*retrieval.Retriever{},
	}
	e.store = taxonomy.NewStore(weights, embedder)
	e.bm25 = bm25.NewLangIndexes(e.buildBM25Docs)
	return e
}

// Ready reports the three readiness flags the startup coordinator tracks.
// Overall readiness is taxonomyLoaded && classifierLoaded; bm25Loaded is
// reported separately since it never gates readiness on its own.
func (e *Engine) Ready() (taxonomyLoaded, classifierLoaded, bm25LoadedAny bool) {
	return e.taxonomyLoaded.Load(), e.classifierLoaded.Load(), e.bm25.Loaded()
}

// ensureTaxonomy loads the taxonomy store on first call, guarded against
// concurrent callers via singleflight so only one Load runs per store
// generation.
func (e *Engine) ensureTaxonomy() error {
	if e.store.Loaded() {
		return nil
	}
	_, err, _ := e.sf.Do("taxonomy", func() (interface{}, error) {
		if e.store.Loaded() {
			return nil, nil
		}
		if err := e.store.Load(e.cfg.TaxonomyPath(), e.cfg.SupportedLangs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArtifactMissing, err)
		}
		e.taxonomyLoaded.Store(true)
		return nil, nil
	})
	return err
}

// ensureClassifier loads the classifier artifacts on first call, guarded
// the same way as ensureTaxonomy.
func (e *Engine) ensureClassifier() (*classifier.Classifier, error) {
	if c := e.classifierPtr.Load(); c != nil {
		return c, nil
	}
	v, err, _ := e.sf.Do("classifier", func() (interface{}, error) {
		if c := e.classifierPtr.Load(); c != nil {
			return c, nil
		}
		c, err := classifier.Load(e.cfg.ModelsDir)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArtifactMissing, err)
		}
		e.classifierPtr.Store(c)
		e.classifierLoaded.Store(true)
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*classifier.Classifier), nil
}

// ensureDense loads the dense retrieval matrix for lang on first call.
func (e *Engine) ensureDense(lang string) (*retrieval.Retriever, error) {
	e.retMu.RLock()
	r, ok := e.retrievers[lang]
	e.retMu.RUnlock()
	if ok {
		return r, nil
	}

	v, err, _ := e.sf.Do("dense:"+lang, func() (interface{}, error) {
		e.retMu.RLock()
		r, ok := e.retrievers[lang]
		e.retMu.RUnlock()
		if ok {
			return r, nil
		}

		r = retrieval.New(e.embedder)
		if err := r.Load(e.cfg.ClassEmbeddingsPath(lang), e.cfg.ClassIDsPath(lang)); err != nil {
			logger.Printf("dense index unavailable for lang=%s: %v", lang, err)
			// A missing dense artifact is not fatal: bm25 and the
			// classifier still contribute. r stays unloaded (TopK
			// returns nil against it) and is cached as-is so we don't
			// retry the failing Load on every request.
		}
		e.retMu.Lock()
		e.retrievers[lang] = r
		e.retMu.Unlock()
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*retrieval.Retriever), nil
}

// buildBM25Docs builds one bm25.Doc per concept for lang, the builder
// callback bm25.LangIndexes invokes the first time that language's index
// is requested.
func (e *Engine) buildBM25Docs(lang string) []bm25.Doc {
	concepts := e.store.All()
	docs := make([]bm25.Doc, 0, len(concepts))
	for _, c := range concepts {
		fields := map[string][]string{}
		if v, ok := c.PrefLabel[lang]; ok && v != "" {
			fields["prefLabel"] = []string{v}
		}
		if v, ok := c.AltLabel[lang]; ok {
			fields["altLabel"] = v
		}
		if v, ok := c.HiddenLabel[lang]; ok {
			fields["hiddenLabel"] = v
		}
		if v, ok := c.Definition[lang]; ok && v != nil && *v != "" {
			fields["definition"] = []string{*v}
		}
		if v, ok := c.ScopeNote[lang]; ok && v != nil && *v != "" {
			fields["scopeNote"] = []string{*v}
		}
		if v, ok := c.Note[lang]; ok && v != nil && *v != "" {
			fields["note"] = []string{*v}
		}
		if v, ok := c.Example[lang]; ok {
			fields["example"] = v
		}
		if v, ok := c.Path[lang]; ok {
			fields["path"] = v
		}
		docs = append(docs, bm25.Doc{ID: c.ID, Fields: fields})
	}
	return docs
}

// resolveLang normalizes lang to lowercase and substitutes the configured
// default when it is empty or not among the supported languages.
func (e *Engine) resolveLang(lang string) string {
	lang = strings.ToLower(lang)
	if lang == "" {
		return e.cfg.DefaultLang
	}
	for _, l := range e.cfg.SupportedLangs {
		if l == lang {
			return lang
		}
	}
	return e.cfg.DefaultLang
}

// TaxoSearch ensures the taxonomy store is loaded and delegates to its
// heuristic ranked search.
func (e *Engine) TaxoSearch(query, lang string, limit int) ([]*taxonomy.Concept, error) {
	if err := e.ensureTaxonomy(); err != nil {
		return nil, err
	}
	lang = e.resolveLang(lang)
	if limit <= 0 {
		limit = e.cfg.TaxoTopK
	}
	return e.store.Search(query, lang, limit), nil
}

// TaxoAutocomplete ensures the taxonomy store is loaded and delegates to
// its prefix autocomplete.
func (e *Engine) TaxoAutocomplete(query, lang string, limit int) ([]taxonomy.AutocompleteHit, error) {
	if err := e.ensureTaxonomy(); err != nil {
		return nil, err
	}
	lang = e.resolveLang(lang)
	if limit <= 0 {
		limit = e.cfg.TaxoTopK
	}
	return e.store.Autocomplete(query, lang, limit), nil
}

// TaxoConcept ensures the taxonomy store is loaded and looks up a single
// concept by id.
func (e *Engine) TaxoConcept(id string) (*taxonomy.Concept, error) {
	if err := e.ensureTaxonomy(); err != nil {
		return nil, err
	}
	c, ok := e.store.Concept(id)
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}
