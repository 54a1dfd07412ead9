package adapter

import "context"

// ClientProvider builds an authenticated client handle for one messaging
// provider. The handle's API is opaque to callers; it is explored by the
// capability engine.
type ClientProvider interface {
	Name() string
	NewClient(ctx context.Context) (any, error)
}
