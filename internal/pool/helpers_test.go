package pool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testProto string

func (k testProto) Kind() string { return string(k) }

type testScope string

func (s testScope) ScopeName() string { return string(s) }

type testInst struct {
	id       int
	kind     string
	active   bool
	placed   Placement
	scope    Scope
	dead     bool
	allocs   int
	deallocs int
	parts    []any
}

func (i *testInst) Activate(p Placement) { i.active = true; i.placed = p }
func (i *testInst) Deactivate()          { i.active = false }
func (i *testInst) Attach(s Scope)       { i.scope = s }
func (i *testInst) Alive() bool          { return !i.dead }
func (i *testInst) OnAllocate()          { i.allocs++ }
func (i *testInst) OnDeallocate()        { i.deallocs++ }
func (i *testInst) Owned() []any         { return i.parts }

type testHost struct {
	built     []*testInst
	destroyed []*testInst
	scopes    []string
	failAfter int // 0: never fail
}

var errHostFull = errors.New("host refused construction")

func (h *testHost) Construct(proto Prototype, scope Scope) (Instance, error) {
	if h.failAfter > 0 && len(h.built) >= h.failAfter {
		return nil, errHostFull
	}
	inst := &testInst{id: len(h.built) + 1, kind: proto.Kind(), scope: scope}
	h.built = append(h.built, inst)
	return inst, nil
}

func (h *testHost) Destroy(inst Instance) {
	ti := inst.(*testInst)
	ti.dead = true
	h.destroyed = append(h.destroyed, ti)
}

func (h *testHost) NewScope(kind string) Scope {
	h.scopes = append(h.scopes, kind)
	return testScope("pool:" + kind)
}

func newTestRegistry(cfg Config) (*Registry, *testHost) {
	h := &testHost{}
	return NewRegistry(h, cfg, zap.NewNop()), h
}

func mustPool(t *testing.T, r *Registry, opts Options) *Pool {
	t.Helper()
	p, err := r.CreatePool(opts)
	require.NoError(t, err)
	return p
}

func mustAllocate(t *testing.T, p *Pool) *testInst {
	t.Helper()
	inst, err := p.Allocate(Placement{})
	require.NoError(t, err)
	return inst.(*testInst)
}

// requireInvariants checks the bookkeeping rules that must hold after every
// pool operation.
func requireInvariants(t *testing.T, p *Pool) {
	t.Helper()
	seen := make(map[Instance]bool, p.Loaded())
	for _, inst := range p.available {
		_, dup := p.inUse[inst]
		require.False(t, dup, "instance both available and in use")
		require.False(t, seen[inst], "instance twice in available")
		seen[inst] = true
	}
	require.LessOrEqual(t, p.Loaded(), p.Capacity())
	for inst := range seen {
		require.Same(t, p, p.reg.owners[inst])
	}
	for inst := range p.inUse {
		require.Same(t, p, p.reg.owners[inst])
	}
}
