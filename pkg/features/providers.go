package features

import (
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Provider looks up a property value by name. The second return reports
// whether a value was found; empty values are treated as not found by the
// resolver regardless.
type Provider func(name string) (string, bool)

// CommandLineProvider reads properties from arguments of the form
// --NAME=value.
func CommandLineProvider(args []string) Provider {
	return func(name string) (string, bool) {
		key := "--" + name + "="
		for _, arg := range args {
			if strings.HasPrefix(arg, key) {
				return arg[len(key):], true
			}
		}
		return "", false
	}
}

// EnvProvider reads properties from process environment variables.
func EnvProvider() Provider {
	return os.LookupEnv
}

// DotEnvProvider reads properties from a .env file. The file is parsed on
// first lookup; a missing or malformed file simply yields no values.
func DotEnvProvider(path string) Provider {
	var once sync.Once
	var values map[string]string
	return func(name string) (string, bool) {
		once.Do(func() {
			values, _ = godotenv.Read(path)
		})
		v, ok := values[name]
		return v, ok
	}
}

// StandardProviders returns the fixed priority order for property resolution:
// command line arguments, then process environment, then a .env file in the
// current working directory.
func StandardProviders() []Provider {
	return []Provider{
		CommandLineProvider(os.Args[1:]),
		EnvProvider(),
		DotEnvProvider(".env"),
	}
}
