// Package semweb carries the semantic-web vocabulary hooks of modalkb.
// The engine itself only needs IRI prefix expansion at parse time;
// triple-store integration lives behind the reasoner contract.
package semweb

import (
	"strings"
	"sync"

	"modalkb/internal/logging"
)

// PrefixRegistry maps IRI namespace aliases to their URIs. The parser
// consults it to expand "ns:name" atoms. Safe for concurrent use.
type PrefixRegistry struct {
	mu         sync.RWMutex
	aliasToURI map[string]string
	uriToAlias map[string]string
}

// NewPrefixRegistry returns a registry preloaded with the common
// vocabularies.
func NewPrefixRegistry() *PrefixRegistry {
	r := &PrefixRegistry{
		aliasToURI: make(map[string]string),
		uriToAlias: make(map[string]string),
	}
	r.Register("owl", "http://www.w3.org/2002/07/owl")
	r.Register("rdf", "http://www.w3.org/1999/02/22-rdf-syntax-ns")
	r.Register("rdfs", "http://www.w3.org/2000/01/rdf-schema")
	r.Register("xsd", "http://www.w3.org/2001/XMLSchema")
	r.Register("dul", "http://www.ontologydesignpatterns.org/ont/dul/DUL.owl")
	return r
}

// Register adds an alias for a namespace URI. A trailing '#' on the URI
// is dropped; it is re-added on expansion.
func (r *PrefixRegistry) Register(alias, uri string) {
	uri = strings.TrimSuffix(uri, "#")
	r.mu.Lock()
	r.aliasToURI[alias] = uri
	r.uriToAlias[uri] = alias
	r.mu.Unlock()
	logging.Debugf("registered IRI alias %s -> %s", alias, uri)
}

// URIForAlias resolves an alias to its namespace URI.
func (r *PrefixRegistry) URIForAlias(alias string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uri, ok := r.aliasToURI[alias]
	return uri, ok
}

// AliasForURI resolves a namespace URI back to its alias.
func (r *PrefixRegistry) AliasForURI(uri string) (string, bool) {
	uri = strings.TrimSuffix(uri, "#")
	r.mu.RLock()
	defer r.mu.RUnlock()
	alias, ok := r.uriToAlias[uri]
	return alias, ok
}

// CreateIRI expands an alias and entity name into a full IRI. The
// second return is false when the alias is not registered.
func (r *PrefixRegistry) CreateIRI(alias, entity string) (string, bool) {
	uri, ok := r.URIForAlias(alias)
	if !ok {
		return "", false
	}
	return uri + "#" + entity, true
}
