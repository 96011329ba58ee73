package features

import (
	"fmt"
	"strings"
)

const (
	propertyPrefix           = "$"
	propertyDefaultSeparator = "="
)

// PropertyResolver substitutes property tokens in factory definitions by
// querying an ordered list of providers. A token is a string value of the form
// $NAME or $NAME=default; the first provider returning a non-empty value wins.
type PropertyResolver struct {
	providers []Provider
}

// NewPropertyResolver creates a resolver over the given providers, queried in
// order.
func NewPropertyResolver(providers ...Provider) *PropertyResolver {
	return &PropertyResolver{providers: providers}
}

// StandardResolver returns a resolver with the standard provider priority:
// command line, then environment, then .env file.
func StandardResolver() *PropertyResolver {
	return NewPropertyResolver(StandardProviders()...)
}

// Resolve substitutes property tokens in the definition's args and kwargs.
// Substitution is done in place and exactly once; non-string values and
// strings without the property prefix pass through unchanged.
func (r *PropertyResolver) Resolve(def *FactoryDefinition) error {
	for i, arg := range def.Args {
		s, ok := arg.(string)
		if !ok {
			continue
		}
		resolved, err := r.resolveValue(s)
		if err != nil {
			return err
		}
		def.Args[i] = resolved
	}
	for key, value := range def.Kwargs {
		s, ok := value.(string)
		if !ok {
			continue
		}
		resolved, err := r.resolveValue(s)
		if err != nil {
			return err
		}
		def.Kwargs[key] = resolved
	}
	return nil
}

func (r *PropertyResolver) resolveValue(value string) (string, error) {
	if !strings.HasPrefix(value, propertyPrefix) {
		return value, nil
	}
	name := value[len(propertyPrefix):]
	var fallback string
	if idx := strings.Index(name, propertyDefaultSeparator); idx >= 0 {
		name, fallback = name[:idx], name[idx+1:]
	}
	for _, provider := range r.providers {
		if v, ok := provider(name); ok && v != "" {
			return v, nil
		}
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", &ConfigError{Source: value, Err: fmt.Errorf("%w %s", ErrUnresolvedProperty, name)}
}
