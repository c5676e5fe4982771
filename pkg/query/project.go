package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Project trims serialized documents down to the requested fields. Dotted
// names ("location.city") keep only that key of the nested object; a bare
// name keeps the whole value. id is always kept. With no fields, items is
// returned unchanged.
func Project(items any, fields []string) (any, error) {
	if len(fields) == 0 {
		return items, nil
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	var docs []map[string]any
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	keep := newKeepTree(fields)
	for _, d := range docs {
		keep.trim(d)
	}
	return docs, nil
}

// keepTree maps a key to the subkeys to keep below it. A nil subtree keeps
// the whole value.
type keepTree map[string]keepTree

func newKeepTree(fields []string) keepTree {
	root := keepTree{}
	for _, f := range fields {
		node := root
		parts := strings.Split(f, ".")
		for i, p := range parts {
			if i == len(parts)-1 {
				node[p] = nil
				break
			}
			child, seen := node[p]
			if seen && child == nil {
				break
			}
			if !seen {
				child = keepTree{}
				node[p] = child
			}
			node = child
		}
	}
	root["id"] = nil
	return root
}

func (t keepTree) trim(doc map[string]any) {
	for k, v := range doc {
		sub, ok := t[k]
		if !ok {
			delete(doc, k)
			continue
		}
		if sub == nil {
			continue
		}
		switch v := v.(type) {
		case map[string]any:
			sub.trim(v)
		case []any:
			for _, e := range v {
				if m, ok := e.(map[string]any); ok {
					sub.trim(m)
				}
			}
		}
	}
}
