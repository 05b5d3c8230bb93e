package reasoner

import (
	"plugin"
)

// Plugin symbol names every reasoner plugin must export:
//
//	func CreateReasoner(id string) reasoner.Reasoner
//	func PluginName() string
const (
	pluginCreateSymbol = "CreateReasoner"
	pluginNameSymbol   = "PluginName"
)

// Plugin is a dynamically loaded reasoner factory. A plugin counts as
// loaded only when both entry symbols resolved.
type Plugin struct {
	path   string
	create func(id string) Reasoner
	name   func() string
}

// NewPlugin prepares a plugin handle for the shared object at path.
// Load must be called before use.
func NewPlugin(path string) *Plugin {
	return &Plugin{path: path}
}

// Path returns the shared-object path.
func (p *Plugin) Path() string { return p.path }

// IsLoaded reports whether both entry symbols resolved.
func (p *Plugin) IsLoaded() bool { return p.create != nil && p.name != nil }

// Load opens the shared object and resolves the entry symbols. The
// handle stays open for the process lifetime; the runtime offers no
// unload.
func (p *Plugin) Load() error {
	handle, err := plugin.Open(p.path)
	if err != nil {
		return err
	}

	createSym, err := handle.Lookup(pluginCreateSymbol)
	if err != nil {
		return err
	}
	create, ok := createSym.(func(string) Reasoner)
	if !ok {
		return NewError("plugin %s exports %s with wrong signature", p.path, pluginCreateSymbol)
	}

	nameSym, err := handle.Lookup(pluginNameSymbol)
	if err != nil {
		return err
	}
	name, ok := nameSym.(func() string)
	if !ok {
		return NewError("plugin %s exports %s with wrong signature", p.path, pluginNameSymbol)
	}

	p.create = create
	p.name = name
	return nil
}

// Name returns the plugin's stable identifier.
func (p *Plugin) Name() string { return p.name() }

// CreateReasoner allocates a new backend instance.
func (p *Plugin) CreateReasoner(id string) (Reasoner, error) {
	r := p.create(id)
	if r == nil {
		return nil, NewError("plugin %s returned no reasoner for id %q", p.path, id)
	}
	return r, nil
}
