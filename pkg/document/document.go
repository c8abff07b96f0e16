// Package document parses configuration text into the generic values
// (nil, bool, json.Number, string, []interface{} and
// map[interface{}]interface{}) that yamldiff.Normalize consumes.
package document

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// MaxDepth bounds how deeply a document may nest, aliases included.
const MaxDepth = 512

// A document may decode to at most MinNodes values plus AliasRatio
// values per byte of its text. Only aliases can push a document past
// this.
const (
	MinNodes   = 10000
	AliasRatio = 10
)

const mergeTag = "!!merge"

// Parse decodes a YAML document; JSON, being YAML, is accepted too. An
// empty document decodes to nil.
//
// Numbers are returned as json.Number holding the text as written, so
// "1.10" stays "1.10". Timestamps and other tagged scalars are returned
// as their text. Mapping keys keep their decoded type.
func Parse(data []byte) (interface{}, error) {
	return parse(data, MaxDepth, MinNodes+AliasRatio*len(data))
}

func parse(data []byte, maxDepth, maxNodes int) (interface{}, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(err, "parsing YAML document")
	}
	if root.Kind == 0 {
		return nil, nil
	}
	d := &decoder{maxDepth: maxDepth, maxNodes: maxNodes}
	return d.decode(&root, 0)
}

// decoder turns a node tree into generic values, expanding aliases
// within its limits.
type decoder struct {
	maxDepth int
	maxNodes int
	nodes    int
}

func (d *decoder) decode(n *yaml.Node, depth int) (interface{}, error) {
	if depth > d.maxDepth {
		return nil, fmt.Errorf("line %d: document nests deeper than %d levels", n.Line, d.maxDepth)
	}
	d.nodes++
	if d.nodes > d.maxNodes {
		return nil, fmt.Errorf("line %d: document expands to more than %d values; check for excessive aliasing", n.Line, d.maxNodes)
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return d.decode(n.Content[0], depth+1)
	case yaml.AliasNode:
		return d.decode(n.Alias, depth+1)
	case yaml.ScalarNode:
		return scalar(n)
	case yaml.SequenceNode:
		seq := make([]interface{}, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := d.decode(c, depth+1)
			if err != nil {
				return nil, err
			}
			seq = append(seq, v)
		}
		return seq, nil
	case yaml.MappingNode:
		return d.mapping(n, depth)
	}
	return nil, fmt.Errorf("line %d: unexpected YAML node kind %d", n.Line, n.Kind)
}

func scalar(n *yaml.Node) (interface{}, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, errors.Wrapf(err, "line %d: decoding boolean", n.Line)
		}
		return b, nil
	case "!!int", "!!float":
		return json.Number(n.Value), nil
	default:
		return n.Value, nil
	}
}

// mapping decodes a mapping node. Keys given explicitly take precedence
// over keys brought in by a merge ("<<").
func (d *decoder) mapping(n *yaml.Node, depth int) (interface{}, error) {
	m := make(map[interface{}]interface{}, len(n.Content)/2)
	var merges []*yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		kn, vn := n.Content[i], n.Content[i+1]
		if kn.Kind == yaml.ScalarNode && kn.ShortTag() == mergeTag {
			merges = append(merges, vn)
			continue
		}
		k, err := d.key(kn, depth)
		if err != nil {
			return nil, err
		}
		v, err := d.decode(vn, depth+1)
		if err != nil {
			return nil, err
		}
		m[k] = v
	}

	for _, mn := range merges {
		sources := []*yaml.Node{mn}
		if resolved := resolve(mn); resolved.Kind == yaml.SequenceNode {
			sources = resolved.Content
		}
		for _, src := range sources {
			v, err := d.decode(src, depth+1)
			if err != nil {
				return nil, err
			}
			merged, ok := v.(map[interface{}]interface{})
			if !ok {
				return nil, fmt.Errorf("line %d: merge value is not a mapping", src.Line)
			}
			for k, e := range merged {
				if _, exists := m[k]; !exists {
					m[k] = e
				}
			}
		}
	}
	return m, nil
}

func (d *decoder) key(n *yaml.Node, depth int) (interface{}, error) {
	if k := resolve(n); k.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("line %d: mapping keys must be scalars", n.Line)
	}
	return d.decode(n, depth+1)
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
