package parser

import (
	"strconv"

	"gopkg.in/yaml.v3"
)

// fields is a YAML mapping node indexed by key, keeping key order and the
// key nodes for error locations.
type fields struct {
	node   *yaml.Node
	values map[string]*yaml.Node
	keys   map[string]*yaml.Node
	order  []string
}

// mapping indexes a mapping node. Document nodes are unwrapped.
func mapping(n *yaml.Node) (*fields, bool) {
	if n == nil {
		return nil, false
	}
	if n.Kind == yaml.DocumentNode && len(n.Content) == 1 {
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return nil, false
	}

	f := &fields{
		node:   n,
		values: make(map[string]*yaml.Node, len(n.Content)/2),
		keys:   make(map[string]*yaml.Node, len(n.Content)/2),
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i].Value
		if _, dup := f.values[k]; !dup {
			f.order = append(f.order, k)
		}
		f.keys[k] = n.Content[i]
		f.values[k] = n.Content[i+1]
	}
	return f, true
}

func (f *fields) get(key string) (*yaml.Node, bool) {
	n, ok := f.values[key]
	return n, ok
}

func (f *fields) has(key string) bool {
	_, ok := f.values[key]
	return ok
}

func isScalar(n *yaml.Node) bool {
	return n != nil && n.Kind == yaml.ScalarNode
}

func isSequence(n *yaml.Node) bool {
	return n != nil && n.Kind == yaml.SequenceNode
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func index(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

// Encoding helpers.

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func newSequence() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
}

func newString(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func newBool(b bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
}

func put(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, newString(key), value)
}

func putString(m *yaml.Node, key, value string) {
	put(m, key, newString(value))
}

func putBool(m *yaml.Node, key string, value bool) {
	put(m, key, newBool(value))
}
