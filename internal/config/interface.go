package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads the file at path and overlays it on Default().
	Load(ctx context.Context, path string) (*Model, error)
}
