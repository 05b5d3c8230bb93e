package reasoner

import (
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"modalkb/internal/logging"
	"modalkb/internal/terms"
)

// Factory creates reasoner instances of one type.
type Factory interface {
	// Name is the type name instances are auto-named after.
	Name() string
	// CreateReasoner allocates an instance with the given id.
	CreateReasoner(id string) (Reasoner, error)
}

type typedFactory struct {
	name   string
	create func(id string) (Reasoner, error)
}

// NewFactory wraps a constructor function as a factory.
func NewFactory(name string, create func(id string) (Reasoner, error)) Factory {
	return &typedFactory{name: name, create: create}
}

func (f *typedFactory) Name() string { return f.name }

func (f *typedFactory) CreateReasoner(id string) (Reasoner, error) { return f.create(id) }

// Manager owns the factory registry, the plugin registry and the pool
// of live reasoner instances. Registries are written rarely (during
// LoadReasoner) and read often (during dispatch), so they sit behind a
// reader-writer lock.
type Manager struct {
	mu        sync.RWMutex
	factories map[string]Factory
	plugins   map[string]*Plugin
	pool      []Reasoner
	index     uint32

	// loadPlugin is swappable for tests; it defaults to loading a Go
	// plugin from disk.
	loadPlugin func(path string) (*Plugin, error)
}

// NewManager returns a manager with empty registries. Built-in
// factories are registered by the embedding knowledge base.
func NewManager() *Manager {
	return &Manager{
		factories: make(map[string]Factory),
		plugins:   make(map[string]*Plugin),
		loadPlugin: func(path string) (*Plugin, error) {
			p := NewPlugin(path)
			if err := p.Load(); err != nil {
				return p, err
			}
			return p, nil
		},
	}
}

// AddFactory registers a built-in reasoner type.
func (m *Manager) AddFactory(typeName string, factory Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[typeName] = factory
}

// AddReasoner attaches an instance to the pool.
func (m *Manager) AddReasoner(r Reasoner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pool = append(m.pool, r)
}

// RemoveReasoner detaches an instance from the pool. Outstanding
// queries are not terminated; callers finish them first.
func (m *Manager) RemoveReasoner(r Reasoner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.pool {
		if x == r {
			m.pool = append(m.pool[:i], m.pool[i+1:]...)
			return
		}
	}
}

// Reasoners returns a snapshot of the instance pool.
func (m *Manager) Reasoners() []Reasoner {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Reasoner, len(m.pool))
	copy(out, m.pool)
	return out
}

// ReasonerForPredicate returns the pool members that can evaluate the
// indicated predicate.
func (m *Manager) ReasonerForPredicate(indicator terms.PredicateIndicator) []Reasoner {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Reasoner
	for _, r := range m.pool {
		if r.IsCurrentPredicate(indicator) {
			out = append(out, r)
		}
	}
	return out
}

// LoadReasoner creates a reasoner instance from a configuration
// subtree. The "lib" key names a plugin path and takes precedence over
// the built-in "type" key; "name" overrides the auto-generated
// instance id. A nil reasoner with nil error means the instance was
// dropped because its configuration failed to load.
func (m *Manager) LoadReasoner(config *yaml.Node) (Reasoner, error) {
	lib := scalarValue(config, "lib")
	typeName := scalarValue(config, "type")
	name := scalarValue(config, "name")

	var factory Factory
	switch {
	case lib != "":
		factory = m.loadReasonerPlugin(lib)
	case typeName != "":
		m.mu.RLock()
		factory = m.factories[typeName]
		m.mu.RUnlock()
		if factory == nil {
			logging.Warnf("no factory registered for reasoner type %q", typeName)
		}
	default:
		logging.Warnf("missing 'type' or 'lib' key in reasoner config")
	}
	if factory == nil {
		return nil, NewError("failed to load a reasoner.")
	}

	m.mu.Lock()
	index := m.index
	m.index++
	m.mu.Unlock()

	reasonerID := name
	if reasonerID == "" {
		reasonerID = factory.Name() + strconv.FormatUint(uint64(index), 10)
	}
	logging.Infof("using reasoner `%s` with type `%s`", reasonerID, factory.Name())

	r, err := factory.CreateReasoner(reasonerID)
	if err != nil {
		return nil, NewError("failed to create reasoner `%s`: %v", reasonerID, err)
	}

	var cfg Configuration
	cfg.LoadPropertyTree(config)
	if err := r.LoadConfig(&cfg); err != nil {
		logging.Warnf("reasoner `%s` failed to load configuration: %v", reasonerID, err)
		return nil, nil
	}

	m.AddReasoner(r)
	return r, nil
}

// loadReasonerPlugin resolves a plugin path through the cache so the
// same shared object is opened once.
func (m *Manager) loadReasonerPlugin(path string) Factory {
	m.mu.Lock()
	cached, ok := m.plugins[path]
	if !ok {
		p, err := m.loadPlugin(path)
		m.plugins[path] = p
		m.mu.Unlock()
		if err != nil {
			logging.Warnf("failed to open reasoner library at path %q: %v", path, err)
			return nil
		}
		return p
	}
	m.mu.Unlock()

	if cached != nil && cached.IsLoaded() {
		return cached
	}
	logging.Warnf("failed to open reasoner library at path %q", path)
	return nil
}

// scalarValue reads a scalar child of a mapping node.
func scalarValue(node *yaml.Node, key string) string {
	child := mappingValue(node, key)
	if child == nil || child.Kind != yaml.ScalarNode {
		return ""
	}
	return child.Value
}
