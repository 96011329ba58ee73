package features

// FactoryDefinition holds everything needed to construct one service: the key
// of a registered factory, the interface identifier the result implements, and
// the positional and keyword arguments to pass to the factory.
//
// Args and Kwargs values are config primitives (string, bool, number, or
// homogeneous lists of these). String values starting with "$" are property
// references and are substituted in place, exactly once, when the definition
// is loaded from config.
type FactoryDefinition struct {
	Factory    string
	Implements string
	Args       []any
	Kwargs     map[string]any
	Default    bool
}

// NamedDefinition pairs a factory definition with its logical service name.
// Order matters when building a FactoryMap: for an interface with several
// non-default definitions the last one registered wins the type-keyed lookup.
type NamedDefinition struct {
	Name       string
	Definition *FactoryDefinition
}

// FactoryMap provides factory definitions by interface identifier and by name.
type FactoryMap interface {
	// GetByType returns the definition serving the given interface identifier
	// together with its service name. It returns ErrFeatureNotFound if no
	// definition targets the interface.
	GetByType(iface string) (*FactoryDefinition, string, error)

	// GetByName returns the definition registered under the given name.
	// It returns ErrFeatureNotFound if the name is absent.
	GetByName(name string) (*FactoryDefinition, error)
}
