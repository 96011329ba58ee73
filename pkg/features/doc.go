// Package features is a configuration-driven service locator.
//
// Services are declared in a JSON config file (features.json by default) as
// factory definitions: which registered constructor to call, which interface
// the result satisfies, and the arguments to pass. The locator builds services
// lazily and caches them per task scope, so config is read once and each
// service is constructed at most once per scope.
//
// Typical usage:
//
//	storage, err := features.Service[blob.Storage](ctx)
//	if err != nil {
//		// handle error
//	}
package features
