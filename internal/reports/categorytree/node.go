// Package categorytree flattens the nested balance-sheet category tree into
// display rows.
package categorytree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

// NodeType is the JSON shape of a node.
type NodeType int

const (
	TypeScalar NodeType = iota
	TypeObject
	TypeArray
)

// Node is a JSON value that remembers object key order.
type Node struct {
	Type   NodeType
	Keys   []string
	Fields map[string]*Node
	Items  []*Node
	Value  any
}

// Get returns the child stored under key, or nil.
func (n *Node) Get(key string) *Node {
	if n == nil || n.Type != TypeObject {
		return nil
	}
	return n.Fields[key]
}

// Decode parses JSON into a Node tree, keeping object keys in document order.
func Decode(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	node, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("categorytree: decode: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("categorytree: decode: trailing data after document")
	}
	return node, nil
}

func decodeValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			node := &Node{Type: TypeObject, Fields: map[string]*Node{}}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				child, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				if _, dup := node.Fields[key]; !dup {
					node.Keys = append(node.Keys, key)
				}
				node.Fields[key] = child
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return node, nil
		case '[':
			node := &Node{Type: TypeArray}
			for dec.More() {
				child, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				node.Items = append(node.Items, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return node, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	default:
		return &Node{Type: TypeScalar, Value: tok}, nil
	}
}

// FromValue builds a Node tree from decoded Go values. Map keys are sorted
// because Go maps carry no order.
func FromValue(v any) *Node {
	switch val := v.(type) {
	case *Node:
		return val
	case map[string]any:
		node := &Node{Type: TypeObject, Fields: make(map[string]*Node, len(val))}
		for k := range val {
			node.Keys = append(node.Keys, k)
		}
		sort.Strings(node.Keys)
		for _, k := range node.Keys {
			node.Fields[k] = FromValue(val[k])
		}
		return node
	case []any:
		node := &Node{Type: TypeArray, Items: make([]*Node, len(val))}
		for i, item := range val {
			node.Items[i] = FromValue(item)
		}
		return node
	case []map[string]any:
		node := &Node{Type: TypeArray, Items: make([]*Node, len(val))}
		for i, item := range val {
			node.Items[i] = FromValue(item)
		}
		return node
	default:
		return &Node{Type: TypeScalar, Value: v}
	}
}
