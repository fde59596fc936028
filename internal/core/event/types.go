package event

// WorldReloaded fires after the scene force-destroyed its active nodes.
// Pools reconcile on it.
type WorldReloaded struct {
	Generation int // reload counter, starts at 1
	Destroyed  int // nodes destroyed by the reload
}

// PoolingToggled fires when pooling is switched on or off at runtime.
type PoolingToggled struct {
	Enabled bool
}
