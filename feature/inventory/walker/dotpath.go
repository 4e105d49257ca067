package walker

import (
	"strconv"
	"strings"
)

// lookupPath extracts the value at a user-supplied dot-path from a decoded
// JSON document, e.g. "data.items" or "photos.0.src". It returns nil when any
// segment is absent. Paths are plain substitution only; no expressions are
// evaluated.
func lookupPath(doc any, path string) any {
	if path == "" {
		return doc
	}
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			var ok bool
			cur, ok = node[seg]
			if !ok {
				return nil
			}
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil
			}
			cur = node[idx]
		default:
			return nil
		}
	}
	return cur
}
