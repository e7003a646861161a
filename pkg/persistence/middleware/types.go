// Package middleware decorates scene stores with extra behavior.
package middleware

import "github.com/aretw0/espalier/pkg/ports"

// Middleware allows wrapping a SceneStore to add behavior.
type Middleware func(ports.SceneStore) ports.SceneStore

// Chain applies mws to store so that the first one is the outermost.
func Chain(store ports.SceneStore, mws ...Middleware) ports.SceneStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
