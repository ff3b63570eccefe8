package types

// Kwargs holds the free parameters of a resource or datum. Values are
// JSON-compatible; numbers read back from a store decode as float64.
type Kwargs map[string]any

// Clone returns a copy of k that shares no maps or slices with it. Nested
// map[string]any, Kwargs and []any values are copied; other values are
// copied by assignment. A nil Kwargs clones to an empty map.
func (k Kwargs) Clone() Kwargs {
	out := make(Kwargs, len(k))
	for key, v := range k {
		out[key] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Kwargs:
		return t.Clone()
	case map[string]any:
		return map[string]any(Kwargs(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}

// Keys returns the parameter names in k, in no particular order.
func (k Kwargs) Keys() []string {
	keys := make([]string, 0, len(k))
	for key := range k {
		keys = append(keys, key)
	}
	return keys
}
