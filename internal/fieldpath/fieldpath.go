// Package fieldpath resolves dotted paths such as "experience.0.employer"
// against a decoded JSON tree (map[string]any / []any).
package fieldpath

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Wildcard expands over every element of an array (or every key of an object)
const Wildcard = "*"

// Split breaks a path into its segments
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Get returns the value at path and whether it exists
func Get(root map[string]any, path string) (any, bool) {
	segs := Split(path)
	if len(segs) == 0 {
		return nil, false
	}
	var cur any = root
	for _, seg := range segs {
		next, ok := step(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Exists reports whether path resolves in root, even to an empty value
func Exists(root map[string]any, path string) bool {
	_, ok := Get(root, path)
	return ok
}

func step(cur any, seg string) (any, bool) {
	switch node := cur.(type) {
	case map[string]any:
		v, ok := node[seg]
		return v, ok
	case []any:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(node) {
			return nil, false
		}
		return node[i], true
	}
	return nil, false
}

// Set replaces the value at an existing or new leaf of path. Intermediate
// containers must already exist; array indexes must be in range.
func Set(root map[string]any, path string, value any) error {
	segs := Split(path)
	if len(segs) == 0 {
		return fmt.Errorf("empty path")
	}
	var cur any = root
	for _, seg := range segs[:len(segs)-1] {
		next, ok := step(cur, seg)
		if !ok {
			return fmt.Errorf("path %q: segment %q not found", path, seg)
		}
		cur = next
	}
	last := segs[len(segs)-1]
	switch node := cur.(type) {
	case map[string]any:
		node[last] = value
		return nil
	case []any:
		i, err := strconv.Atoi(last)
		if err != nil || i < 0 || i >= len(node) {
			return fmt.Errorf("path %q: index %q out of range", path, last)
		}
		node[i] = value
		return nil
	}
	return fmt.Errorf("path %q: parent is not a container", path)
}

// Expand resolves "*" segments against root and returns the concrete paths
// that exist. A pattern without wildcards is returned when it exists.
func Expand(root map[string]any, pattern string) []string {
	segs := Split(pattern)
	if len(segs) == 0 {
		return nil
	}
	var out []string
	expand(root, segs, "", &out)
	return out
}

func expand(cur any, segs []string, prefix string, out *[]string) {
	if len(segs) == 0 {
		*out = append(*out, prefix)
		return
	}
	seg := segs[0]
	if seg == Wildcard {
		switch node := cur.(type) {
		case []any:
			for i, child := range node {
				expand(child, segs[1:], join(prefix, strconv.Itoa(i)), out)
			}
		case map[string]any:
			for _, k := range sortedKeys(node) {
				expand(node[k], segs[1:], join(prefix, k), out)
			}
		}
		return
	}
	next, ok := step(cur, seg)
	if !ok {
		return
	}
	expand(next, segs[1:], join(prefix, seg), out)
}

func join(prefix, seg string) string {
	if prefix == "" {
		return seg
	}
	return prefix + "." + seg
}

// IsEmpty reports whether v counts as absent: nil, a whitespace-only string,
// an empty array or an empty object. Numbers and booleans are never empty.
func IsEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	case bool, float64, float32, int, int64, int32:
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Covers reports whether ref refers to path or to something inside it,
// e.g. "skills.0" covers "skills" but "skills_extra" does not.
func Covers(ref, path string) bool {
	if ref == path {
		return true
	}
	return strings.HasPrefix(ref, path+".")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
