package registry

// Module is the interface that all native modules must implement to be exposed
// across the bridge.
type Module interface {
	// Name is the identifier the scripting side uses to address the module.
	Name() string
	// Register adds the module's methods to the method set.
	Register(m *Methods)
}

// Descriptor identifies a module exposed to the scripting runtime.
type Descriptor struct {
	Name   string
	Module Module
}

// Methods is the set of methods one module exposes.
type Methods struct {
	module string
	order  []string
	byName map[string]*Method
	errs   []string
}

func newMethods(module string) *Methods {
	return &Methods{
		module: module,
		byName: make(map[string]*Method),
	}
}

// Add registers a method. Problems are collected and reported by New.
func (m *Methods) Add(method *Method) {
	if method == nil {
		m.errs = append(m.errs, "nil method")
		return
	}
	if method.Name == "" {
		m.errs = append(m.errs, "method with empty name")
		return
	}
	if _, exists := m.byName[method.Name]; exists {
		m.errs = append(m.errs, "method '"+method.Name+"' already registered")
		return
	}
	m.byName[method.Name] = method
	m.order = append(m.order, method.Name)
}
