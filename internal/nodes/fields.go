package nodes

import (
	"errors"

	"github.com/goccy/go-json"
)

var ErrNotNodeLike = errors.New("nodes: value carries no schema or microschema reference")

// IsNodeLike reports whether a field value carries its own schema or
// microschema reference, which makes it a nested (micro-)node.
func IsNodeLike(value any) bool {
	switch v := value.(type) {
	case *Node:
		return v != nil && (v.Schema != nil || v.Microschema != nil)
	case Node:
		return v.Schema != nil || v.Microschema != nil
	case map[string]any:
		return hasReference(v, "schema") || hasReference(v, "microschema")
	default:
		return false
	}
}

func hasReference(fields map[string]any, key string) bool {
	ref, ok := fields[key]
	if !ok || ref == nil {
		return false
	}
	switch r := ref.(type) {
	case map[string]any:
		return r != nil
	case *Ref:
		return r != nil
	case Ref:
		return true
	case string:
		return r != ""
	default:
		return true
	}
}

// AsNode converts a node-like field value into a Node.
func AsNode(value any) (*Node, error) {
	switch v := value.(type) {
	case *Node:
		if v == nil || !IsNodeLike(v) {
			return nil, ErrNotNodeLike
		}
		return v, nil
	case Node:
		if !IsNodeLike(v) {
			return nil, ErrNotNodeLike
		}
		return &v, nil
	case map[string]any:
		if !IsNodeLike(v) {
			return nil, ErrNotNodeLike
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		node := &Node{}
		if err := json.Unmarshal(raw, node); err != nil {
			return nil, err
		}
		return node, nil
	default:
		return nil, ErrNotNodeLike
	}
}

// Decode parses a JSON node document.
func Decode(data []byte) (*Node, error) {
	node := &Node{}
	if err := json.Unmarshal(data, node); err != nil {
		return nil, err
	}
	return node, nil
}
