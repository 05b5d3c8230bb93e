package semweb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPrefixes(t *testing.T) {
	r := NewPrefixRegistry()

	iri, ok := r.CreateIRI("owl", "Foo")
	require.True(t, ok)
	assert.Equal(t, "http://www.w3.org/2002/07/owl#Foo", iri)

	for _, alias := range []string{"owl", "rdf", "rdfs", "xsd", "dul"} {
		_, ok := r.URIForAlias(alias)
		assert.True(t, ok, alias)
	}

	_, ok = r.CreateIRI("nope", "Foo")
	assert.False(t, ok)
}

func TestRegisterTrimsTrailingHash(t *testing.T) {
	r := NewPrefixRegistry()
	r.Register("ex", "http://example.org/onto#")

	uri, ok := r.URIForAlias("ex")
	require.True(t, ok)
	assert.Equal(t, "http://example.org/onto", uri)

	iri, ok := r.CreateIRI("ex", "Thing")
	require.True(t, ok)
	assert.Equal(t, "http://example.org/onto#Thing", iri)

	alias, ok := r.AliasForURI("http://example.org/onto#")
	require.True(t, ok)
	assert.Equal(t, "ex", alias)
	alias, ok = r.AliasForURI("http://example.org/onto")
	require.True(t, ok)
	assert.Equal(t, "ex", alias)
}
