package catalog

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlFile is one locale file in YAML form. Edits go through the node tree so
// key order, comments and scalar styles survive a round trip.
//
// Rails i18n style (the locale as the single top-level key) is recognized
// when that key equals the file's locale:
//
//	en:
//	  nav:
//	    home: Home
type yamlFile struct {
	doc  *yaml.Node
	flat bool
	// rootLocaleKey is set for Rails-style files.
	rootLocaleKey string
	entries       map[string]string
}

func parseYAML(data []byte, locale string, flat bool) (*yamlFile, error) {
	f := &yamlFile{flat: flat, entries: make(map[string]string)}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	f.doc = &doc

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("YAML root must be a mapping, got kind %d", root.Kind)
	}

	if len(root.Content) == 2 && root.Content[0].Value == locale && root.Content[1].Kind == yaml.MappingNode {
		f.rootLocaleKey = locale
	}

	f.collect(f.messagesRoot(), "")
	return f, nil
}

// messagesRoot returns the mapping that holds the messages.
func (f *yamlFile) messagesRoot() *yaml.Node {
	root := f.doc.Content[0]
	if f.rootLocaleKey != "" {
		return root.Content[1]
	}
	return root
}

func (f *yamlFile) collect(node *yaml.Node, prefix string) {
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valNode := node.Content[i+1]

		path := keyNode.Value
		if prefix != "" {
			path = prefix + "." + path
		}

		switch valNode.Kind {
		case yaml.MappingNode:
			if !f.flat {
				f.collect(valNode, path)
			}
		case yaml.ScalarNode:
			// Only string scalars are messages.
			switch valNode.Tag {
			case "!!bool", "!!int", "!!float", "!!null":
				continue
			}
			f.entries[path] = valNode.Value
		}
	}
}

// set adds or updates a message, creating intermediate mappings as needed.
func (f *yamlFile) set(keyPath, value string) error {
	segments := []string{keyPath}
	if !f.flat {
		segments = strings.Split(keyPath, ".")
	}

	node := f.messagesRoot()
	for i, seg := range segments {
		if len(node.Content) == 0 {
			node.Style &^= yaml.FlowStyle
		}
		last := i == len(segments)-1
		child := mappingValue(node, seg)

		if last {
			if child == nil {
				node.Content = append(node.Content,
					&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: seg},
					stringNode(value),
				)
				break
			}
			if child.Kind != yaml.ScalarNode {
				return fmt.Errorf("%w: %q", ErrConflict, keyPath)
			}
			child.Value = value
			child.Tag = "!!str"
			if value == "" {
				child.Style = yaml.DoubleQuotedStyle
			}
			break
		}

		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: seg},
				child,
			)
		} else if child.Kind != yaml.MappingNode {
			return fmt.Errorf("%w: %q", ErrConflict, keyPath)
		}
		node = child
	}

	f.entries[keyPath] = value
	return nil
}

func (f *yamlFile) marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f.doc); err != nil {
		return nil, fmt.Errorf("marshaling YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// mappingValue returns the value node for key in a mapping, or nil.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func stringNode(value string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
	if value == "" {
		n.Style = yaml.DoubleQuotedStyle
	}
	return n
}
