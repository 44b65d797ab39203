package powerkit

import "errors"

// Failure classes. None of them is fatal to a pipeline run: each is turned
// into "excluded from output" or "stale cached output" at the plugin boundary.
var (
	// ErrDiscoveryMiss means a plugin list entry names no known plugin.
	ErrDiscoveryMiss = errors.New("unknown plugin")
	// ErrContractViolation means an implementation lacks mandatory operations.
	ErrContractViolation = errors.New("plugin contract violation")
	// ErrDependencyUnmet means the plugin cannot run on this host. Routine.
	ErrDependencyUnmet = errors.New("plugin dependencies unmet")
	// ErrCollectionFailure means the plugin failed to gather its data.
	ErrCollectionFailure = errors.New("plugin collection failed")
	// ErrCacheMiss means no usable cached record exists.
	ErrCacheMiss = errors.New("cache miss")
	// ErrLockContention means a refresh for the plugin is already in flight.
	ErrLockContention = errors.New("refresh already in flight")
	// ErrLifecycle means an operation was invoked in the wrong lifecycle state.
	ErrLifecycle = errors.New("invalid lifecycle transition")
)
