package pool

import (
	"testing"

	"github.com/l1jgo/pooling/internal/core/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePoolRejectsDuplicateKind(t *testing.T) {
	r, _ := newTestRegistry(Config{})
	first := mustPool(t, r, Options{Prototype: testProto("arrow"), PreloadSize: 2})

	_, err := r.CreatePool(Options{Prototype: testProto("arrow"), PreloadSize: 5})
	assert.ErrorIs(t, err, ErrDuplicateKind)

	got, ok := r.Pool("arrow")
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Equal(t, 2, got.Available())
	assert.Equal(t, []string{"arrow"}, r.Kinds())
}

func TestCreatePoolRequiresPrototype(t *testing.T) {
	r, h := newTestRegistry(Config{})

	_, err := r.CreatePool(Options{PreloadSize: 2})
	assert.ErrorIs(t, err, ErrMissingPrototype)
	_, err = r.CreatePool(Options{Prototype: testProto("")})
	assert.ErrorIs(t, err, ErrMissingPrototype)
	assert.Empty(t, h.built)
	assert.Empty(t, r.Kinds())
}

func TestCreatePoolUsesSuppliedScope(t *testing.T) {
	r, h := newTestRegistry(Config{})
	p := mustPool(t, r, Options{Prototype: testProto("arrow"), PreloadSize: 1, Scope: testScope("projectiles")})

	assert.Equal(t, testScope("projectiles"), p.Scope())
	assert.Empty(t, h.scopes)
}

func TestCreatePoolPropagatesConstructionFailure(t *testing.T) {
	r, h := newTestRegistry(Config{})
	h.failAfter = 1

	_, err := r.CreatePool(Options{Prototype: testProto("arrow"), PreloadSize: 3})
	assert.ErrorIs(t, err, errHostFull)
	assert.False(t, r.Has("arrow"))
	assert.Len(t, h.destroyed, 1, "partially preloaded instances are torn down")
}

func TestRegistryRoundTrip(t *testing.T) {
	r, _ := newTestRegistry(Config{})
	p := mustPool(t, r, Options{Prototype: testProto("arrow"), PreloadSize: 2, MaxCapacity: 3})

	inst, err := r.Allocate("arrow", Placement{X: 10, Y: 20})
	require.NoError(t, err)
	owner, ok := r.Owner(inst)
	require.True(t, ok)
	assert.Same(t, p, owner)
	assert.Equal(t, 1, p.InUse())

	require.True(t, r.Deallocate(inst))
	assert.Equal(t, 2, p.Available())
	assert.Equal(t, 0, p.InUse())

	owner, ok = r.Owner(inst)
	assert.True(t, ok, "idle instances stay registry-owned")
	assert.Same(t, p, owner)
}

func TestRegistryDeallocateUnknownInstance(t *testing.T) {
	r, _ := newTestRegistry(Config{})
	mustPool(t, r, Options{Prototype: testProto("arrow"), PreloadSize: 1})

	assert.False(t, r.Deallocate(&testInst{}))
	assert.False(t, r.Deallocate(nil))
}

func TestRegistryDeallocateIdleInstanceFails(t *testing.T) {
	r, h := newTestRegistry(Config{})
	mustPool(t, r, Options{Prototype: testProto("arrow"), PreloadSize: 1})

	assert.False(t, r.Deallocate(h.built[0]))
}

func TestRegistryUnknownKind(t *testing.T) {
	r, _ := newTestRegistry(Config{})

	_, err := r.Allocate("ghost", Placement{})
	assert.ErrorIs(t, err, ErrUnknownKind)
	_, err = r.AllocatePrototype(testProto("ghost"), Placement{})
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.False(t, r.Has("ghost"))
}

func TestRegistryExhaustedIsSoft(t *testing.T) {
	r, _ := newTestRegistry(Config{})
	mustPool(t, r, Options{Prototype: testProto("arrow"), PreloadSize: 1})

	_, err := r.Allocate("arrow", Placement{})
	require.NoError(t, err)
	inst, err := r.Allocate("arrow", Placement{})
	assert.Nil(t, inst)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestAutoCreateByKindUsesResolver(t *testing.T) {
	resolved := 0
	r, h := newTestRegistry(Config{
		AutoCreate: true,
		Resolve: func(kind string) (Options, bool) {
			resolved++
			if kind != "slime" {
				return Options{}, false
			}
			return Options{Prototype: testProto("slime"), PreloadSize: 2, MaxCapacity: 4}, true
		},
	})

	inst, err := r.Allocate("slime", Placement{})
	require.NoError(t, err)
	require.NotNil(t, inst)

	p, ok := r.Pool("slime")
	require.True(t, ok)
	assert.Equal(t, 4, p.Capacity())
	assert.Equal(t, 1, p.Available())
	assert.Len(t, h.built, 2)

	_, err = r.Allocate("slime", Placement{})
	require.NoError(t, err)
	assert.Equal(t, 1, resolved, "pool is created once")

	_, err = r.Allocate("ghost", Placement{})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestAutoCreateByKindIgnoresMismatchedResolver(t *testing.T) {
	r, _ := newTestRegistry(Config{
		AutoCreate: true,
		Resolve: func(string) (Options, bool) {
			return Options{Prototype: testProto("other")}, true
		},
	})
	_, err := r.Allocate("slime", Placement{})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestAutoCreateFromPrototypeUsesMissingCapacity(t *testing.T) {
	r, _ := newTestRegistry(Config{AutoCreate: true, MissingPoolCapacity: 3})

	for i := 0; i < 3; i++ {
		_, err := r.AllocatePrototype(testProto("spark"), Placement{})
		require.NoError(t, err)
	}
	_, err := r.AllocatePrototype(testProto("spark"), Placement{})
	assert.ErrorIs(t, err, ErrExhausted)

	p, ok := r.Pool("spark")
	require.True(t, ok)
	assert.Equal(t, 3, p.Capacity())
	assert.Equal(t, 0, p.Options().PreloadSize)
}

func TestMissingPoolCapacityDefault(t *testing.T) {
	r, _ := newTestRegistry(Config{AutoCreate: true})
	_, err := r.AllocatePrototype(testProto("spark"), Placement{})
	require.NoError(t, err)
	p, _ := r.Pool("spark")
	assert.Equal(t, DefaultMissingPoolCapacity, p.Capacity())
}

func TestPassthroughConstructsAndDestroys(t *testing.T) {
	r, h := newTestRegistry(Config{
		Passthrough: true,
		Resolve: func(kind string) (Options, bool) {
			return Options{Prototype: testProto(kind)}, kind == "tree"
		},
	})

	inst, err := r.Allocate("tree", Placement{X: 3})
	require.NoError(t, err)
	ti := inst.(*testInst)
	assert.True(t, ti.active)
	assert.Nil(t, ti.scope)
	assert.False(t, r.Has("tree"))

	assert.True(t, r.Deallocate(inst))
	assert.True(t, ti.dead)
	assert.Len(t, h.destroyed, 1)

	direct, err := r.AllocatePrototype(testProto("rock"), Placement{})
	require.NoError(t, err)
	assert.True(t, r.Deallocate(direct))

	_, err = r.Allocate("ghost", Placement{})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestTogglePoolingOffEvictsOnDeallocate(t *testing.T) {
	r, h := newTestRegistry(Config{})
	p := mustPool(t, r, Options{Prototype: testProto("arrow"), PreloadSize: 2})

	inst, err := r.Allocate("arrow", Placement{})
	require.NoError(t, err)

	r.SetPooling(false)
	assert.False(t, r.PoolingEnabled())

	fresh, err := r.Allocate("arrow", Placement{})
	require.NoError(t, err)
	_, owned := r.Owner(fresh)
	assert.False(t, owned, "passthrough instances bypass pools")

	assert.True(t, r.Deallocate(inst))
	assert.Equal(t, 0, p.InUse())
	assert.Equal(t, 1, p.Available())
	_, owned = r.Owner(inst)
	assert.False(t, owned)
	assert.Contains(t, h.destroyed, inst.(*testInst))

	r.SetPooling(true)
	_, err = r.Allocate("arrow", Placement{})
	require.NoError(t, err)
	requireInvariants(t, p)
}

func TestReloadEventReconcilesAllPools(t *testing.T) {
	bus := event.NewBus()
	r, _ := newTestRegistry(Config{})
	r.Subscribe(bus)

	arrows := mustPool(t, r, Options{Prototype: testProto("arrow"), PreloadSize: 2, MaxCapacity: 4})
	mobs := mustPool(t, r, Options{Prototype: testProto("mob"), PreloadSize: 1, MaxCapacity: 2})

	a1 := mustAllocate(t, arrows)
	a2 := mustAllocate(t, arrows)
	m1 := mustAllocate(t, mobs)
	a1.dead = true
	m1.dead = true

	event.Emit(bus, event.WorldReloaded{Generation: 1, Destroyed: 2})
	assert.Equal(t, 2, arrows.InUse(), "delivery waits for the next dispatch")

	bus.SwapBuffers()
	bus.DispatchAll()

	assert.Equal(t, 0, arrows.InUse())
	assert.Equal(t, 2, arrows.Available())
	assert.False(t, a2.active)
	assert.Equal(t, 0, mobs.InUse())
	assert.Equal(t, 1, mobs.Available())
	requireInvariants(t, arrows)
	requireInvariants(t, mobs)
}

func TestReconcileAllRunsInRegistrationOrder(t *testing.T) {
	r, h := newTestRegistry(Config{})
	for _, k := range []string{"c", "a", "b"} {
		mustPool(t, r, Options{Prototype: testProto(k), PreloadSize: 1})
	}
	for _, k := range []string{"c", "a", "b"} {
		p, _ := r.Pool(k)
		mustAllocate(t, p).dead = true
	}
	before := len(h.built)

	res := r.ReconcileAll(true)
	assert.Equal(t, 3, res.Dropped)
	assert.Equal(t, 3, res.Replenished)

	var kinds []string
	for _, inst := range h.built[before:] {
		kinds = append(kinds, inst.kind)
	}
	assert.Equal(t, []string{"c", "a", "b"}, kinds)
}

func TestSnapshotFollowsRegistrationOrder(t *testing.T) {
	r, _ := newTestRegistry(Config{})
	mustPool(t, r, Options{Prototype: testProto("mob"), PreloadSize: 1, Notification: NotifyBroadcast})
	mustPool(t, r, Options{Prototype: testProto("arrow"), PreloadSize: 2, MaxCapacity: 8, AllowRecycle: true})
	_, err := r.Allocate("arrow", Placement{})
	require.NoError(t, err)

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, Stats{Kind: "mob", Available: 1, Capacity: 1, Preload: 1, Notification: "broadcast", Created: 1}, snap[0])
	assert.Equal(t, Stats{
		Kind: "arrow", Available: 1, InUse: 1, Capacity: 8, Preload: 2, AllowRecycle: true,
		Notification: "none", Created: 2, Allocations: 1,
	}, snap[1])
}

func TestDestroyPoolAndClose(t *testing.T) {
	r, h := newTestRegistry(Config{})
	mustPool(t, r, Options{Prototype: testProto("mob"), PreloadSize: 2})
	mustPool(t, r, Options{Prototype: testProto("arrow"), PreloadSize: 1})

	assert.True(t, r.DestroyPool("mob"))
	assert.False(t, r.DestroyPool("mob"))
	assert.False(t, r.Has("mob"))
	assert.Equal(t, []string{"arrow"}, r.Kinds())
	assert.Len(t, h.destroyed, 2)

	// The kind can be registered again once destroyed.
	mustPool(t, r, Options{Prototype: testProto("mob"), PreloadSize: 1})

	r.Close()
	assert.Empty(t, r.Kinds())
	assert.Len(t, h.destroyed, 4)
	assert.Empty(t, r.owners)
}
