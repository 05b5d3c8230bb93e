package reasoner

import (
	"gopkg.in/yaml.v3"

	"modalkb/internal/logging"
	"modalkb/internal/terms"
)

// Setting is one flattened configuration entry. Nested keys are
// compounds over the ":" functor, e.g. "server : port".
type Setting struct {
	Key   terms.Term
	Value terms.Term
}

// Configuration is the flattened property tree handed to a reasoner's
// LoadConfig. Settings keep document order; data files come from the
// "data-sources" subtree.
type Configuration struct {
	Settings  []Setting
	DataFiles []*DataFile
}

// Setting returns the value of a flat string key, if present.
func (c *Configuration) Setting(key string) (terms.Term, bool) {
	want := terms.NewString(key)
	for _, s := range c.Settings {
		if s.Key.Equals(want) {
			return s.Value, true
		}
	}
	return nil, false
}

// unwrapNode steps through document nodes to the payload.
func unwrapNode(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	return node
}

// mappingValue looks up a key in a mapping node.
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	node = unwrapNode(node)
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// LoadPropertyTree flattens a configuration tree into settings and
// data files.
func (c *Configuration) LoadPropertyTree(config *yaml.Node) {
	config = unwrapNode(config)
	if config == nil || config.Kind != yaml.MappingNode {
		return
	}

	for i := 0; i+1 < len(config.Content); i += 2 {
		key, value := config.Content[i], config.Content[i+1]
		if key.Value == "data-sources" {
			c.loadDataSources(value)
			continue
		}
		c.loadSettings(terms.NewString(key.Value), value)
	}
}

func (c *Configuration) loadSettings(key terms.Term, node *yaml.Node) {
	switch node.Kind {
	case yaml.ScalarNode:
		c.Settings = append(c.Settings, Setting{Key: key, Value: terms.NewString(node.Value)})
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			nested := terms.NewCompound(":", []terms.Term{key, terms.NewString(node.Content[i].Value)})
			c.loadSettings(nested, node.Content[i+1])
		}
	case yaml.SequenceNode:
		// list-valued settings have no defined semantics yet
		logging.Warnf("ignoring list value of setting %v", key)
	}
}

func (c *Configuration) loadDataSources(node *yaml.Node) {
	if node.Kind != yaml.SequenceNode {
		logging.Warnf("ignoring malformed data-sources entry, expected a list")
		return
	}
	for _, entry := range node.Content {
		file := mappingValue(entry, "file")
		if file == nil || file.Value == "" {
			logging.Warnf("ignoring data source without \"file\" key")
			continue
		}
		format := ""
		if f := mappingValue(entry, "format"); f != nil {
			format = f.Value
		}
		c.DataFiles = append(c.DataFiles, &DataFile{Path: file.Value, Format: format})
	}
}
