package taxonomy

import (
	"sort"
	"strings"

	"github.com/orneryd/twic/pkg/math/vector"
	"github.com/orneryd/twic/pkg/normalize"
)

// Search ranks concepts against a free-text query in lang using the
// heuristic rule weights configured on the store. Scoring proceeds in
// three passes:
//
//  1. Candidate scan: every inverted-index key that contains the
//     normalized query as a substring contributes its concepts; each
//     concept's score is the sum of the label-match rules that fire for it
//     (exact/prefix/substring on prefLabel, alt/hidden/path membership, a
//     single context bump for definition/scopeNote/note, another for
//     example), counted once per concept however many of its keys match.
//  2. Fuzzy: when weights.Fuzzy > 0, applied as a fallback (only when the
//     scan found nothing) or as a boost added to the concepts the scan
//     found — never both for the same query, and the boost never adds a
//     concept the scan did not find.
//  3. Vector: when weights.Vec > 0 and an Embedder is configured, added as
//     a boost on top of whatever the first two passes scored, using the
//     label embeddings Load precomputed or, when the snapshot has none for
//     the language, on-demand prefLabel embeddings. A query that matches
//     nothing in the first two passes never reaches this one — the vector
//     signal boosts candidates, it does not originate them.
//
// Results are sorted by descending score, ties broken by shorter
// prefLabel first (a cheap, deterministic stand-in for "more specific
// match").
func (s *Store) Search(query, lang string, limit int) []*Concept {
	snap := s.snap.Load()
	if snap == nil {
		return nil
	}
	lang = resolveLang(snap, lang)
	qNorm := normalize.Default(query)
	if qNorm == "" {
		return nil
	}

	scores := map[string]float64{}
	s.scanCandidates(snap, lang, qNorm, scores)
	baseFound := len(scores) > 0

	if !baseFound && s.weights.Fuzzy > 0 {
		s.applyFuzzy(snap, lang, qNorm, scores)
	}
	if len(scores) > 0 && s.weights.Vec > 0 {
		s.applyVectorBoost(snap, lang, query, scores)
	}
	if baseFound && s.weights.Fuzzy > 0 {
		s.applyFuzzy(snap, lang, qNorm, scores)
	}

	if len(scores) == 0 {
		return nil
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		si, sj := scores[ids[i]], scores[ids[j]]
		if si != sj {
			return si > sj
		}
		return len(snap.concepts[ids[i]].PrefLabel[lang]) < len(snap.concepts[ids[j]].PrefLabel[lang])
	})

	lim := limit
	if lim <= 0 {
		lim = s.weights.TopK
	}
	if lim > len(ids) {
		lim = len(ids)
	}
	out := make([]*Concept, 0, lim)
	for _, id := range ids[:lim] {
		out = append(out, snap.concepts[id])
	}
	return out
}

func (s *Store) scanCandidates(snap *snapshot, lang, qNorm string, scores map[string]float64) {
	w := s.weights
	for key, ids := range snap.inverted[lang] {
		if !strings.Contains(normalize.Default(key), qNorm) {
			continue
		}
		for _, cid := range ids {
			c := snap.concepts[cid]
			base := ruleScore(c, lang, qNorm, w)
			if base <= 0 {
				continue
			}
			if base > scores[cid] {
				scores[cid] = base
			}
		}
	}
}

func ruleScore(c *Concept, lang, qNorm string, w Weights) float64 {
	var base float64
	pref := normalize.Default(c.PrefLabel[lang])
	switch {
	case pref == qNorm:
		base += w.Exact
	case strings.HasPrefix(pref, qNorm):
		base += w.Prefix
	case strings.Contains(pref, qNorm):
		base += w.Substring
	}

	if containsNormalized(c.AltLabel[lang], qNorm) {
		base += w.Alt
	}
	if containsNormalized(c.HiddenLabel[lang], qNorm) {
		base += w.Hidden
	}
	if containsNormalized(c.Path[lang], qNorm) {
		base += w.Path
	}

	for _, v := range []*string{c.Definition[lang], c.ScopeNote[lang], c.Note[lang]} {
		if v != nil && strings.Contains(normalize.Default(*v), qNorm) {
			base += w.Context
			break
		}
	}
	if containsNormalized(c.Example[lang], qNorm) {
		base += w.Context
	}

	return base
}

func containsNormalized(values []string, qNorm string) bool {
	for _, v := range values {
		if strings.Contains(normalize.Default(v), qNorm) {
			return true
		}
	}
	return false
}

// applyFuzzy scores every concept's prefLabel against qNorm with
// PartialRatio, adding weights.Fuzzy-scaled credit to concepts that clear
// FuzzyMinRatio. Called either as the sole source of candidates (scores
// starts empty, and any concept that clears the ratio is added) or as a
// boost on top of scanCandidates' output (only concepts already in scores
// receive credit).
func (s *Store) applyFuzzy(snap *snapshot, lang, qNorm string, scores map[string]float64) {
	w := s.weights
	boostOnly := len(scores) > 0
	for cid, c := range snap.concepts {
		if _, ok := scores[cid]; boostOnly && !ok {
			continue
		}
		pref := firstNonEmpty(c.PrefLabel[lang], c.PrefLabel)
		if pref == "" {
			continue
		}
		ratio := normalize.PartialRatio(qNorm, normalize.Default(pref))
		if ratio >= w.FuzzyMinRatio {
			scores[cid] += (ratio / 100.0) * w.Fuzzy
		}
	}
}

// applyVectorBoost adds a cosine-similarity-derived boost to every
// concept already present in scores. It never originates new candidates:
// a concept with a great embedding match but no lexical/fuzzy hit is left
// out entirely, matching the original service's ordering of signals.
func (s *Store) applyVectorBoost(snap *snapshot, lang, rawQuery string, scores map[string]float64) {
	if s.embedder == nil {
		return
	}
	qEmb, err := s.embedder.Embed(rawQuery)
	if err != nil {
		return
	}

	mat := snap.embMats[lang]
	if len(mat) == 0 {
		s.applyVectorBoostFallback(snap, lang, qEmb, scores)
		return
	}

	meta := snap.embMeta[lang]
	for cid := range scores {
		var best float64 = -1
		if rowIdx, ok := snap.embPrefIndex[cid][lang]; ok {
			best = vector.CosineSimilarity(mat[rowIdx], qEmb)
		} else {
			for i, m := range meta {
				if m.conceptID != cid {
					continue
				}
				if sim := vector.CosineSimilarity(mat[i], qEmb); sim > best {
					best = sim
				}
			}
		}
		if best < -1 {
			continue
		}
		sim01 := (best + 1) / 2
		scores[cid] += sim01 * s.weights.Vec
	}
}

// applyVectorBoostFallback handles a language for which the snapshot holds
// no precomputed embedding rows. It embeds each candidate's prefLabel on
// demand and memoizes
// the result in embedPrefCache, so the cost is paid once per concept
// rather than once per query against that concept.
func (s *Store) applyVectorBoostFallback(snap *snapshot, lang string, qEmb []float32, scores map[string]float64) {
	for cid := range scores {
		c, ok := snap.concepts[cid]
		if !ok {
			continue
		}
		pref := c.PrefLabel[lang]
		if pref == "" {
			continue
		}
		cacheKey := cid + ":" + lang
		var emb []float32
		if cached, ok := s.embedPrefCache.Load(cacheKey); ok {
			emb = cached.([]float32)
		} else {
			var err error
			emb, err = s.embedder.Embed(pref)
			if err != nil {
				continue
			}
			s.embedPrefCache.Store(cacheKey, emb)
		}
		sim := vector.CosineSimilarity(emb, qEmb)
		sim01 := (sim + 1) / 2
		scores[cid] += sim01 * s.weights.Vec
	}
}
