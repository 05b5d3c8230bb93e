package reasoner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"modalkb/internal/terms"
)

func parseYAML(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(text), &node))
	return &node
}

func TestLoadPropertyTreeFlatSettings(t *testing.T) {
	node := parseYAML(t, `
type: factbase
name: mykb
timeout: "30"
`)
	var cfg Configuration
	cfg.LoadPropertyTree(node)

	require.Len(t, cfg.Settings, 3)
	assert.True(t, cfg.Settings[0].Key.Equals(terms.NewString("type")))
	assert.True(t, cfg.Settings[0].Value.Equals(terms.NewString("factbase")))

	v, ok := cfg.Setting("timeout")
	require.True(t, ok)
	assert.True(t, v.Equals(terms.NewString("30")))

	_, ok = cfg.Setting("missing")
	assert.False(t, ok)
}

func TestLoadPropertyTreeNestedKeys(t *testing.T) {
	node := parseYAML(t, `
server:
  host: localhost
  port: "8080"
`)
	var cfg Configuration
	cfg.LoadPropertyTree(node)

	require.Len(t, cfg.Settings, 2)
	// nested keys become ":"-functor compounds
	key, ok := cfg.Settings[0].Key.(*terms.Compound)
	require.True(t, ok)
	assert.Equal(t, ":", key.Functor())
	assert.True(t, key.Args()[0].Equals(terms.NewString("server")))
	assert.True(t, key.Args()[1].Equals(terms.NewString("host")))
	assert.True(t, cfg.Settings[0].Value.Equals(terms.NewString("localhost")))

	// deeper nesting stacks the ":" functor
	deep := parseYAML(t, `
a:
  b:
    c: value
`)
	var deepCfg Configuration
	deepCfg.LoadPropertyTree(deep)
	require.Len(t, deepCfg.Settings, 1)
	outer, ok := deepCfg.Settings[0].Key.(*terms.Compound)
	require.True(t, ok)
	inner, ok := outer.Args()[0].(*terms.Compound)
	require.True(t, ok)
	assert.True(t, inner.Args()[0].Equals(terms.NewString("a")))
}

func TestLoadPropertyTreeListValuesWarn(t *testing.T) {
	node := parseYAML(t, `
modules:
  - one
  - two
scalar: ok
`)
	var cfg Configuration
	cfg.LoadPropertyTree(node)

	// the list value is skipped, the scalar survives
	require.Len(t, cfg.Settings, 1)
	assert.True(t, cfg.Settings[0].Key.Equals(terms.NewString("scalar")))
}

func TestLoadPropertyTreeDataSources(t *testing.T) {
	node := parseYAML(t, `
data-sources:
  - file: facts/base.facts
    format: facts
  - file: facts/extra.dat
  - format: orphan
`)
	var cfg Configuration
	cfg.LoadPropertyTree(node)

	require.Len(t, cfg.DataFiles, 2)
	assert.Equal(t, "facts/base.facts", cfg.DataFiles[0].Path)
	assert.Equal(t, "facts", cfg.DataFiles[0].Format)
	assert.Equal(t, "facts/extra.dat", cfg.DataFiles[1].Path)
	assert.True(t, cfg.DataFiles[1].HasUnknownFormat())
}
