package views

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gridgate/gridgate/internal/shared"
)

// Connector joins filter subtrees.
type Connector string

const (
	ConnectorAnd Connector = "AND"
	ConnectorOr  Connector = "OR"
	ConnectorNot Connector = "NOT"
)

// FilterNode is a tagged union: either a connector over children or a leaf
// predicate on a single column. The wire shape is the nested-map form
// {"AND": [...]} / {"price": {"gte": 100}}; an object with several keys is
// read as an implicit AND, one leaf per key.
type FilterNode struct {
	Connector Connector
	Children  []*FilterNode

	Column   string
	Operator string
	Value    any
}

// IsLeaf reports whether the node is a column predicate.
func (n *FilterNode) IsLeaf() bool { return n != nil && n.Connector == "" }

// Leaf builds a predicate node.
func Leaf(column, operator string, value any) *FilterNode {
	return &FilterNode{Column: column, Operator: operator, Value: value}
}

// Join builds a connector node.
func Join(c Connector, children ...*FilterNode) *FilterNode {
	return &FilterNode{Connector: c, Children: children}
}

func connectorFromKey(key string) (Connector, bool) {
	switch key {
	case "AND", "OR", "NOT":
		return Connector(key), true
	}
	return "", false
}

// UnmarshalJSON parses the nested-map wire form. Key order is preserved so
// the resulting tree is deterministic for a given document.
func (n *FilterNode) UnmarshalJSON(data []byte) error {
	parsed, err := parseFilter(data)
	if err != nil {
		return err
	}
	if parsed == nil {
		*n = FilterNode{Connector: ConnectorAnd}
		return nil
	}
	*n = *parsed
	return nil
}

// MarshalJSON emits the nested-map wire form. Implicit-AND input marshals
// back as an explicit AND connector.
func (n *FilterNode) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}
	if n.IsLeaf() {
		return json.Marshal(map[string]any{
			n.Column: map[string]any{n.Operator: n.Value},
		})
	}
	children := n.Children
	if children == nil {
		children = []*FilterNode{}
	}
	return json.Marshal(map[string][]*FilterNode{string(n.Connector): children})
}

type jsonPair struct {
	key string
	raw json.RawMessage
}

// decodePairs reads a JSON object into key/raw-value pairs in document order.
func decodePairs(data []byte) ([]jsonPair, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok != json.Delim('{') {
		return nil, shared.Validationf("filter node must be an object")
	}
	var pairs []jsonPair
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, shared.Validationf("filter key must be a string")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		pairs = append(pairs, jsonPair{key: key, raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return pairs, nil
}

func parseFilter(data []byte) (*FilterNode, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	pairs, err := decodePairs(trimmed)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return &FilterNode{Connector: ConnectorAnd}, nil
	}
	if len(pairs) == 1 {
		if c, ok := connectorFromKey(pairs[0].key); ok {
			return parseConnector(c, pairs[0].raw)
		}
	}
	leaves := make([]*FilterNode, 0, len(pairs))
	for _, pair := range pairs {
		if _, ok := connectorFromKey(pair.key); ok {
			return nil, shared.Validationf("connector %q cannot be mixed with column predicates", pair.key)
		}
		columnLeaves, err := parseLeaves(pair.key, pair.raw)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, columnLeaves...)
	}
	if len(leaves) == 1 {
		return leaves[0], nil
	}
	return &FilterNode{Connector: ConnectorAnd, Children: leaves}, nil
}

func parseConnector(c Connector, raw json.RawMessage) (*FilterNode, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, shared.Validationf("connector %s requires an array of nodes", c)
	}
	children := make([]*FilterNode, 0, len(items))
	for _, item := range items {
		child, err := parseFilter(item)
		if err != nil {
			return nil, err
		}
		if child != nil {
			children = append(children, child)
		}
	}
	return &FilterNode{Connector: c, Children: children}, nil
}

// parseLeaves turns {"gte": 100, "lte": 200} under a column key into one
// leaf per operator. A scalar value is shorthand for eq.
func parseLeaves(column string, raw json.RawMessage) ([]*FilterNode, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		pairs, err := decodePairs(trimmed)
		if err != nil {
			return nil, err
		}
		if len(pairs) == 0 {
			return nil, shared.Validationf("predicate on %q has no operator", column)
		}
		leaves := make([]*FilterNode, 0, len(pairs))
		for _, pair := range pairs {
			var value any
			dec := json.NewDecoder(bytes.NewReader(pair.raw))
			dec.UseNumber()
			if err := dec.Decode(&value); err != nil {
				return nil, err
			}
			leaves = append(leaves, Leaf(column, pair.key, value))
		}
		return leaves, nil
	}
	var value any
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	return []*FilterNode{Leaf(column, "eq", value)}, nil
}

// SortSpec orders results on one column. The wire form is {"column": "asc"}.
type SortSpec struct {
	Column    string
	Direction string
}

// MarshalJSON emits the single-key map form.
func (s SortSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{s.Column: s.Direction})
}

// UnmarshalJSON reads the single-key map form.
func (s *SortSpec) UnmarshalJSON(data []byte) error {
	var entry map[string]string
	if err := json.Unmarshal(data, &entry); err != nil {
		return err
	}
	if len(entry) != 1 {
		return fmt.Errorf("%w: sort entry must hold exactly one column", shared.ErrValidation)
	}
	for column, direction := range entry {
		s.Column = column
		s.Direction = direction
	}
	return nil
}
