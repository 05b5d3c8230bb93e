// Package kb is the front door of modalkb: it wires the parser, the
// prefix registry, the reasoner manager and the worker pool into a
// knowledge base with a non-blocking, streaming ask interface.
package kb

import (
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"modalkb/internal/formulas"
	"modalkb/internal/logging"
	"modalkb/internal/parser"
	"modalkb/internal/queries"
	"modalkb/internal/reasoner"
	"modalkb/internal/reasoner/factbase"
	"modalkb/internal/semweb"
)

// KnowledgeBase owns the query front-end and the reasoner runtime.
type KnowledgeBase struct {
	registry *semweb.PrefixRegistry
	parser   *parser.Parser
	manager  *reasoner.Manager
	pool     *reasoner.WorkerPool

	queryCounter atomic.Uint32
}

// Option tweaks knowledge-base construction.
type Option func(*options)

type options struct {
	workers int
	hooks   reasoner.WorkerHooks
}

// WithWorkers sets the worker-pool size.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithWorkerHooks installs per-worker initialization and finalization
// hooks.
func WithWorkerHooks(hooks reasoner.WorkerHooks) Option {
	return func(o *options) { o.hooks = hooks }
}

// New builds a knowledge base from a configuration tree. A nil config
// yields an empty knowledge base with the built-in factories
// registered and no reasoner instances.
func New(config *yaml.Node, opts ...Option) (*KnowledgeBase, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	kb := &KnowledgeBase{
		registry: semweb.NewPrefixRegistry(),
		manager:  reasoner.NewManager(),
		pool:     reasoner.NewWorkerPool(o.workers, o.hooks),
	}
	kb.parser = parser.New(kb.registry)

	kb.manager.AddFactory(factbase.TypeName, reasoner.NewFactory(factbase.TypeName,
		func(id string) (reasoner.Reasoner, error) {
			return factbase.New(id, kb.pool, kb.registry), nil
		}))

	if config != nil {
		kb.loadConfiguration(config)
	}
	return kb, nil
}

// NewFromFile builds a knowledge base from a YAML configuration file.
func NewFromFile(path string, opts ...Option) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration %s: %w", path, err)
	}
	var config yaml.Node
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse configuration %s: %w", path, err)
	}
	return New(&config, opts...)
}

// loadConfiguration applies the top-level configuration tree:
// semantic-web prefixes, reasoner instances, and shared data sources.
// Per-entry failures are logged and skipped.
func (kb *KnowledgeBase) loadConfiguration(config *yaml.Node) {
	if prefixes := childNode(config, "semantic-web", "prefixes"); prefixes != nil {
		for _, entry := range sequence(prefixes) {
			alias := scalarChild(entry, "alias")
			uri := scalarChild(entry, "uri")
			if alias == "" || uri == "" {
				logging.Warnf("invalid entry in semantic-web prefixes, 'alias' and 'uri' must be defined")
				continue
			}
			kb.registry.Register(alias, uri)
		}
	}

	if reasoners := childNode(config, "reasoner"); reasoners != nil {
		for _, entry := range sequence(reasoners) {
			if _, err := kb.manager.LoadReasoner(entry); err != nil {
				logging.Errorf("failed to load a reasoner: %v", err)
			}
		}
	} else {
		logging.Errorf("configuration has no 'reasoner' key")
	}

	if sources := childNode(config, "data-sources"); sources != nil {
		for _, entry := range sequence(sources) {
			file := scalarChild(entry, "file")
			if file == "" {
				logging.Warnf("ignoring data source without \"file\" key")
				continue
			}
			dataFile := &reasoner.DataFile{Path: file, Format: scalarChild(entry, "format")}
			for _, r := range kb.manager.Reasoners() {
				if err := r.LoadDataFile(dataFile); err != nil {
					logging.Errorf("failed to load data file %s: %v", file, err)
				}
			}
		}
	}
}

// Registry returns the IRI prefix registry.
func (kb *KnowledgeBase) Registry() *semweb.PrefixRegistry { return kb.registry }

// Parser returns the query parser bound to the registry.
func (kb *KnowledgeBase) Parser() *parser.Parser { return kb.parser }

// Manager returns the reasoner manager.
func (kb *KnowledgeBase) Manager() *reasoner.Manager { return kb.manager }

// Pool returns the worker pool.
func (kb *KnowledgeBase) Pool() *reasoner.WorkerPool { return kb.pool }

// SubmitQuery dispatches a goal to every backend that claims all of
// its predicates and returns the merged answer stream. The call is
// non-blocking; the stream terminates with EOS. A goal no backend
// claims yields an immediate empty result.
func (kb *KnowledgeBase) SubmitQuery(goal formulas.Formula, flags int) *queries.Stream {
	stream := queries.NewStream(0)

	indicators := formulas.CollectIndicators(goal)
	var backends []reasoner.Reasoner
	for _, r := range kb.manager.Reasoners() {
		claimsAll := len(indicators) > 0
		for _, ind := range indicators {
			if !r.IsCurrentPredicate(ind) {
				claimsAll = false
				break
			}
		}
		if claimsAll {
			backends = append(backends, r)
		}
	}

	if len(backends) == 0 {
		logging.Debugf("no backend claims goal %v", goal)
		stream.NewChannel().Close()
		return stream
	}

	for _, r := range backends {
		query := queries.NewQuery(kb.queryCounter.Add(1), goal, flags)
		if transformer, ok := r.(reasoner.QueryTransformer); ok {
			query = transformer.TransformQuery(query)
		}
		channel := stream.NewChannel()
		r.StartQuery(query.ID, channel, query.Goal)
		r.FinishQuery(query.ID, false)
	}
	return stream
}

// SubmitQueryText parses a goal and submits it.
func (kb *KnowledgeBase) SubmitQueryText(text string, flags int) (*queries.Stream, error) {
	goal, err := kb.parser.Parse(text)
	if err != nil {
		return nil, err
	}
	return kb.SubmitQuery(goal, flags), nil
}

// OneSolution evaluates a goal and returns its first answer, or false
// when there is none.
func (kb *KnowledgeBase) OneSolution(goal formulas.Formula) (*queries.Answer, bool) {
	return kb.SubmitQuery(goal, queries.FlagOneSolution).First()
}

// AllSolutions evaluates a goal and collects every answer.
func (kb *KnowledgeBase) AllSolutions(goal formulas.Formula) []*queries.Answer {
	return kb.SubmitQuery(goal, queries.FlagAllSolutions).Collect()
}

// Shutdown drains the worker pool. Streams of in-flight queries still
// receive EOS.
func (kb *KnowledgeBase) Shutdown() {
	kb.pool.Shutdown()
}

// childNode walks a path of mapping keys.
func childNode(node *yaml.Node, path ...string) *yaml.Node {
	for _, key := range path {
		node = mappingChild(node, key)
		if node == nil {
			return nil
		}
	}
	return node
}

func mappingChild(node *yaml.Node, key string) *yaml.Node {
	for node != nil && node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
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

func scalarChild(node *yaml.Node, key string) string {
	child := mappingChild(node, key)
	if child == nil || child.Kind != yaml.ScalarNode {
		return ""
	}
	return child.Value
}

func sequence(node *yaml.Node) []*yaml.Node {
	if node == nil || node.Kind != yaml.SequenceNode {
		return nil
	}
	return node.Content
}
