package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"os"

	"github.com/orneryd/twic/pkg/retrieval"
)

// ReloadResult is the outcome of an Admin Reload call: a checksum per
// on-disk artifact considered, and the set of languages affected.
type ReloadResult struct {
	Files map[string]string
	Langs []string
}

// Reload resets the dense index unconditionally, the BM25 index for lang
// (or every language if lang is empty), and the taxonomy store, then
// reports a checksum per artifact on disk. No in-flight request observes
// a partially replaced index: each reset only drops a cached
// pointer/snapshot, and the next access rebuilds it from scratch via the
// same atomic-swap/lazy-load paths Load already uses.
func (e *Engine) Reload(lang string) *ReloadResult {
	e.retMu.Lock()
	e.retrievers = map[string]*retrieval.Retriever{}
	e.retMu.Unlock()

	e.bm25.Reset(lang)
	e.store.Reset()
	e.taxonomyLoaded.Store(false)
	e.classifierPtr.Store(nil)
	e.classifierLoaded.Store(false)

	langs := e.cfg.SupportedLangs
	if lang != "" {
		langs = []string{lang}
	}

	files := map[string]string{}
	files["taxonomy.json"] = checksumOrMissing(e.cfg.TaxonomyPath())
	for _, l := range langs {
		files["class_embeddings_"+l] = checksumOrMissing(e.cfg.ClassEmbeddingsPath(l))
		files["class_ids_"+l] = checksumOrMissing(e.cfg.ClassIDsPath(l))
	}

	return &ReloadResult{Files: files, Langs: langs}
}

// checksumOrMissing returns the first 12 hex characters of the file's
// SHA-256 digest, or "missing" if the file does not exist.
func checksumOrMissing(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "missing"
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:12]
}
