package features

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Version is the supported config schema version.
const Version = 1

type jsonDefinition struct {
	Factory    string         `json:"factory"`
	Implements string         `json:"implements"`
	Args       []any          `json:"args"`
	Kwargs     map[string]any `json:"kwargs"`
	Default    bool           `json:"default"`
}

type jsonConfig struct {
	Version  int             `json:"version"`
	Features json.RawMessage `json:"features"`
}

// FactoryMapFromJSON parses a features config document and builds a
// FactoryMap. Property tokens in args and kwargs are resolved with the given
// resolver before the map is constructed, so each definition is resolved
// exactly once.
//
// Feature order in the document is preserved: when several non-default
// definitions target the same interface, the last one wins the type-keyed
// lookup.
func FactoryMapFromJSON(r io.Reader, resolver *PropertyResolver) (FactoryMap, error) {
	var doc jsonConfig
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding feature config: %w", err)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("%w: got %d, require %d", ErrUnsupportedVersion, doc.Version, Version)
	}

	defs, err := decodeFeatures(doc.Features, resolver)
	if err != nil {
		return nil, err
	}
	return NewFactoryMap(defs)
}

// decodeFeatures walks the "features" object token by token so that the
// document order of entries survives decoding.
func decodeFeatures(raw json.RawMessage, resolver *PropertyResolver) ([]NamedDefinition, error) {
	if len(raw) == 0 {
		return nil, &ConfigError{Source: "features", Err: errors.New("section is missing")}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decoding features: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, &ConfigError{Source: "features", Err: fmt.Errorf("expected an object, got %v", tok)}
	}

	var defs []NamedDefinition
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decoding features: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("decoding features: unexpected token %v", tok)
		}

		var jd jsonDefinition
		if err := dec.Decode(&jd); err != nil {
			return nil, &ConfigError{Source: name, Err: err}
		}
		def := &FactoryDefinition{
			Factory:    jd.Factory,
			Implements: jd.Implements,
			Args:       jd.Args,
			Kwargs:     jd.Kwargs,
			Default:    jd.Default,
		}
		if def.Kwargs == nil {
			def.Kwargs = map[string]any{}
		}
		if resolver != nil {
			if err := resolver.Resolve(def); err != nil {
				return nil, err
			}
		}
		defs = append(defs, NamedDefinition{Name: name, Definition: def})
	}
	return defs, nil
}

// FactoryMapFromFile loads a JSON config file and builds a FactoryMap.
func FactoryMapFromFile(path string, resolver *PropertyResolver) (FactoryMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Source: path, Err: err}
	}
	defer f.Close()

	fm, err := FactoryMapFromJSON(f, resolver)
	if err != nil {
		return nil, &ConfigError{Source: path, Err: err}
	}
	return fm, nil
}
