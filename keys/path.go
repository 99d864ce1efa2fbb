package keys

import (
	"fmt"
	"strings"
)

// Extract resolves a key path against a decoded JSON document. It returns
// the raw (unvalidated) value and whether every path element resolved.
// A path with more than one element yields a []any with one entry per element.
func Extract(doc any, path []string) (any, bool) {
	switch len(path) {
	case 0:
		return nil, false
	case 1:
		return extractOne(doc, path[0])
	}
	out := make([]any, len(path))
	for i, p := range path {
		v, ok := extractOne(doc, p)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func extractOne(doc any, path string) (any, bool) {
	if path == "" {
		return doc, true
	}
	cur := doc
	for _, field := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[field]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// ExtractKey resolves a key path and validates the result as a key.
func ExtractKey(doc any, path []string) (any, error) {
	raw, ok := Extract(doc, path)
	if !ok {
		return nil, fmt.Errorf("%w: key path %q not present", ErrInvalidKey, strings.Join(path, ","))
	}
	return Normalize(raw)
}

// ExtractIndexKeys returns the normalized index keys a document contributes
// to an index. Documents without a valid key at the path contribute nothing.
// With multiEntry, an array value contributes each valid, distinct element.
func ExtractIndexKeys(doc any, path []string, multiEntry bool) []any {
	raw, ok := Extract(doc, path)
	if !ok {
		return nil
	}
	if arr, isArr := raw.([]any); multiEntry && isArr {
		var out []any
		seen := make(map[string]struct{}, len(arr))
		for _, elem := range arr {
			k, err := Normalize(elem)
			if err != nil {
				continue
			}
			enc := string(appendKey(nil, k))
			if _, dup := seen[enc]; dup {
				continue
			}
			seen[enc] = struct{}{}
			out = append(out, k)
		}
		return out
	}
	k, err := Normalize(raw)
	if err != nil {
		return nil
	}
	return []any{k}
}

// Inject stores key into doc at a single-element key path, creating
// intermediate objects as needed. doc must be a JSON object.
func Inject(doc any, path string, key any) error {
	obj, ok := doc.(map[string]any)
	if !ok || path == "" {
		return fmt.Errorf("%w: cannot inject key at %q", ErrNotObject, path)
	}
	fields := strings.Split(path, ".")
	for _, field := range fields[:len(fields)-1] {
		next, exists := obj[field]
		if !exists {
			child := map[string]any{}
			obj[field] = child
			obj = child
			continue
		}
		child, isObj := next.(map[string]any)
		if !isObj {
			return fmt.Errorf("%w: %q is not an object", ErrNotObject, field)
		}
		obj = child
	}
	obj[fields[len(fields)-1]] = key
	return nil
}
