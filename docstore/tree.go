package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

func splitPath(p string) ([]string, error) {
	segs := []string{}
	for _, s := range strings.Split(p, "/") {
		if s == "" {
			continue
		}
		if strings.ContainsAny(s, ".$#[]") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKey, s)
		}
		segs = append(segs, s)
	}
	return segs, nil
}

func joinPath(segs []string) string {
	return "/" + strings.Join(segs, "/")
}

func childPath(segs []string, rel string) ([]string, error) {
	sub, err := splitPath(rel)
	if err != nil {
		return nil, err
	}
	if len(sub) == 0 {
		return nil, fmt.Errorf("%w: empty field name", ErrInvalidKey)
	}

	out := make([]string, 0, len(segs)+len(sub))
	out = append(out, segs...)
	return append(out, sub...), nil
}

// overlaps reports whether one path is a prefix of the other, i.e. whether
// a write at one can change the value seen at the other.
func overlaps(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// normalize turns any JSON-encodable value into the generic tree form
// (map[string]any, []any, string, json.Number, bool, nil).
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding value: %w", err)
	}
	return decodeTree(b)
}

func decodeTree(b []byte) (any, error) {
	if len(b) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding tree: %w", err)
	}
	return prune(out), nil
}

func lookup(node any, segs []string) (any, bool) {
	for _, s := range segs {
		switch n := node.(type) {
		case map[string]any:
			v, ok := n[s]
			if !ok {
				return nil, false
			}
			node = v
		case []any:
			i, err := strconv.Atoi(s)
			if err != nil || i < 0 || i >= len(n) {
				return nil, false
			}
			node = n[i]
		default:
			return nil, false
		}
	}
	return node, node != nil
}

// assign places val at segs below node and returns the new node. A nil val
// removes the entry and prunes parents left empty. node is modified in place.
func assign(node any, segs []string, val any) any {
	if len(segs) == 0 {
		return prune(val)
	}

	var m map[string]any
	switch n := node.(type) {
	case map[string]any:
		m = n
	case []any:
		m = make(map[string]any, len(n))
		for i, v := range n {
			if v != nil {
				m[strconv.Itoa(i)] = v
			}
		}
	default:
		if val == nil {
			return node
		}
		m = make(map[string]any)
	}

	if child := assign(m[segs[0]], segs[1:], val); child == nil {
		delete(m, segs[0])
	} else {
		m[segs[0]] = child
	}

	if len(m) == 0 {
		return nil
	}
	return m
}

// prune drops null members and empty objects, which the tree never stores.
func prune(v any) any {
	switch n := v.(type) {
	case map[string]any:
		for k, c := range n {
			if p := prune(c); p == nil {
				delete(n, k)
			} else {
				n[k] = p
			}
		}
		if len(n) == 0 {
			return nil
		}
	case []any:
		for i, c := range n {
			n[i] = prune(c)
		}
	}
	return v
}

type fieldWrite struct {
	segs []string
	val  any
}

func fieldWrites(segs []string, fields map[string]any) ([]fieldWrite, error) {
	writes := make([]fieldWrite, 0, len(fields))
	for k, v := range fields {
		p, err := childPath(segs, k)
		if err != nil {
			return nil, err
		}

		nv, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		writes = append(writes, fieldWrite{segs: p, val: nv})
	}
	return writes, nil
}

func applyWrites(root any, writes []fieldWrite) any {
	for _, w := range writes {
		root = assign(root, w.segs, w.val)
	}
	return root
}
