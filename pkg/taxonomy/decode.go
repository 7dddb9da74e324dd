package taxonomy

import (
	"encoding/json"
	"fmt"
)

// fieldShape tags the three JSON shapes a multilingual field may arrive in:
// a plain scalar, a list, or a per-language map whose values are themselves
// scalars or lists. An unexpected shape (a number, a bool, a nested object)
// is rejected rather than silently stringified.
type fieldShape int

const (
	shapeAbsent fieldShape = iota
	shapeScalar
	shapeList
	shapeMap
)

type rawField struct {
	shape  fieldShape
	scalar string
	list   []string
	m      map[string]rawField
}

// parseField decodes a raw JSON value into a rawField, rejecting anything
// that is not absent, a string, a list of strings, or a map of
// lang -> (string | list of strings).
func parseField(raw json.RawMessage) (rawField, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return rawField{shape: shapeAbsent}, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return rawField{shape: shapeScalar, scalar: s}, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return rawField{shape: shapeList, list: list}, nil
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err == nil {
		out := make(map[string]rawField, len(m))
		for lang, v := range m {
			inner, err := parseField(v)
			if err != nil {
				return rawField{}, fmt.Errorf("field %q: %w", lang, err)
			}
			if inner.shape == shapeMap {
				return rawField{}, fmt.Errorf("field %q: nested object shape is not supported", lang)
			}
			out[lang] = inner
		}
		return rawField{shape: shapeMap, m: out}, nil
	}

	return rawField{}, fmt.Errorf("unsupported JSON shape: %s", string(raw))
}

// broadcast spreads a rawField across langs: a map keeps its per-lang
// values and fills missing langs by copying the first available value; a
// scalar or list is copied verbatim to every lang.
func broadcast(raw rawField, langs []string) map[string]rawField {
	out := make(map[string]rawField, len(langs))
	switch raw.shape {
	case shapeAbsent:
		return out
	case shapeMap:
		if len(raw.m) == 0 {
			return out
		}
		var first rawField
		for _, v := range raw.m {
			first = v
			break
		}
		for _, l := range langs {
			if v, ok := raw.m[l]; ok {
				out[l] = v
			} else {
				out[l] = first
			}
		}
	case shapeList:
		for _, l := range langs {
			out[l] = rawField{shape: shapeList, list: append([]string(nil), raw.list...)}
		}
	case shapeScalar:
		for _, l := range langs {
			out[l] = rawField{shape: shapeScalar, scalar: raw.scalar}
		}
	}
	return out
}

// asStringMap coerces a broadcast field to a single string per lang, used
// for prefLabel. A list value contributes its first element.
func asStringMap(bm map[string]rawField) map[string]string {
	out := make(map[string]string, len(bm))
	for lang, v := range bm {
		switch v.shape {
		case shapeScalar:
			out[lang] = v.scalar
		case shapeList:
			if len(v.list) > 0 {
				out[lang] = v.list[0]
			}
		}
	}
	return out
}

// asOptStringMap is asStringMap with empty values mapped to nil, used for
// definition/scopeNote/note so an absent value is distinguishable from one
// that was merely empty in the source JSON.
func asOptStringMap(bm map[string]rawField) map[string]*string {
	sm := asStringMap(bm)
	out := make(map[string]*string, len(sm))
	for lang, v := range sm {
		if v == "" {
			out[lang] = nil
			continue
		}
		val := v
		out[lang] = &val
	}
	return out
}

// asListMap coerces a broadcast field to a string list per lang, used for
// altLabel/hiddenLabel/example/path. A scalar value is wrapped in a
// single-element list.
func asListMap(bm map[string]rawField) map[string][]string {
	out := make(map[string][]string, len(bm))
	for lang, v := range bm {
		switch v.shape {
		case shapeList:
			out[lang] = v.list
		case shapeScalar:
			if v.scalar != "" {
				out[lang] = []string{v.scalar}
			}
		}
	}
	return out
}

func decodeStringList(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return []string{s}
	}
	return nil
}

func decodeString(raw json.RawMessage, fallback string) string {
	if len(raw) == 0 || string(raw) == "null" {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return fallback
}
