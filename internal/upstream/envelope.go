package upstream

import (
	"encoding/json"
	"fmt"

	"github.com/odyssey-erp/opsdash/internal/reports/categorytree"
)

// recordKeys are the envelope keys that may hold the record array, in the
// order they are tried.
var recordKeys = []string{"data", "records", "items", "results", "rows"}

// UnwrapRecords extracts the record array from a response body. Elements that
// are not JSON objects are skipped.
func UnwrapRecords(body []byte) ([]map[string]any, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", ErrTransient, err)
	}
	arr, ok := findArray(doc, 0)
	if !ok {
		return []map[string]any{}, nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out, nil
}

func findArray(doc any, depth int) ([]any, bool) {
	switch v := doc.(type) {
	case []any:
		return v, true
	case map[string]any:
		if depth > 2 {
			return nil, false
		}
		for _, key := range recordKeys {
			if child, ok := v[key]; ok {
				if arr, ok := findArray(child, depth+1); ok {
					return arr, true
				}
			}
		}
	}
	return nil, false
}

// UnwrapTree decodes the balance-sheet body, descending through a "data"
// envelope when present.
func UnwrapTree(body []byte) (*categorytree.Node, error) {
	root, err := categorytree.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	for i := 0; i < 2; i++ {
		data := root.Get("data")
		if data == nil || data.Type != categorytree.TypeObject {
			break
		}
		root = data
	}
	return root, nil
}
