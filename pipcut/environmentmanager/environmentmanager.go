package environmentmanager

import "context"

// EnvironmentManager reads the process environment of a target host.
type EnvironmentManager interface {
	// Get returns the value of key and whether it is set.
	Get(ctx context.Context, key string) (string, bool, error)
	List(ctx context.Context) (map[string]string, error)
}
