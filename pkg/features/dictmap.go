package features

import "fmt"

// dictFactoryMap is a FactoryMap sitting on top of plain maps: one keyed by
// service name, one keyed by interface identifier.
type dictFactoryMap struct {
	byName  map[string]*FactoryDefinition
	byIface map[string]ifaceEntry
}

type ifaceEntry struct {
	def  *FactoryDefinition
	name string
}

// NewFactoryMap builds a FactoryMap from ordered definitions. The interface
// index keeps, for each interface identifier, the definition marked default,
// or the last one registered when none is. Two defaults for the same
// interface is a fatal configuration error.
func NewFactoryMap(defs []NamedDefinition) (FactoryMap, error) {
	m := &dictFactoryMap{
		byName:  make(map[string]*FactoryDefinition, len(defs)),
		byIface: make(map[string]ifaceEntry),
	}
	for _, nd := range defs {
		m.byName[nd.Name] = nd.Definition

		current, ok := m.byIface[nd.Definition.Implements]
		switch {
		case !ok || !current.def.Default:
			m.byIface[nd.Definition.Implements] = ifaceEntry{def: nd.Definition, name: nd.Name}
		case nd.Definition.Default && current.def.Default:
			return nil, fmt.Errorf("%w for %s", ErrMultipleDefaults, nd.Definition.Implements)
		}
	}
	return m, nil
}

func (m *dictFactoryMap) GetByType(iface string) (*FactoryDefinition, string, error) {
	entry, ok := m.byIface[iface]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrFeatureNotFound, iface)
	}
	return entry.def, entry.name, nil
}

func (m *dictFactoryMap) GetByName(name string) (*FactoryDefinition, error) {
	def, ok := m.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFeatureNotFound, name)
	}
	return def, nil
}
