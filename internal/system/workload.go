package system

import (
	"errors"
	"sort"
	"time"

	coresys "github.com/l1jgo/pooling/internal/core/system"
	"github.com/l1jgo/pooling/internal/pool"
	"github.com/l1jgo/pooling/internal/scene"
	"github.com/l1jgo/pooling/internal/scripting"
	"go.uber.org/zap"
)

// Workload produces the per-tick command list (scripting.Engine).
type Workload interface {
	RunWorkload(ctx scripting.WorkloadContext) []scripting.Command
}

// WorkloadSystem runs the workload script and applies its commands to the
// registry and scene. It tracks the instances the workload holds so scripts
// can refer to them by handle. Phase 2 (Update).
type WorkloadSystem struct {
	workload   Workload
	registry   *pool.Registry
	scene      *scene.Scene
	maxPerTick int
	log        *zap.Logger

	live map[scene.Handle]string // handle -> kind
	tick uint64
}

func NewWorkloadSystem(w Workload, reg *pool.Registry, s *scene.Scene, maxPerTick int, log *zap.Logger) *WorkloadSystem {
	return &WorkloadSystem{
		workload:   w,
		registry:   reg,
		scene:      s,
		maxPerTick: maxPerTick,
		log:        log,
		live:       make(map[scene.Handle]string, 64),
	}
}

func (s *WorkloadSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

// Live returns the handles the workload currently holds, ascending.
func (s *WorkloadSystem) Live() []scene.Handle {
	out := make([]scene.Handle, 0, len(s.live))
	for h := range s.live {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *WorkloadSystem) Update(_ time.Duration) {
	s.tick++
	s.pruneDead()

	ctx := scripting.WorkloadContext{
		Tick:    s.tick,
		Pooling: s.registry.PoolingEnabled(),
	}
	for _, st := range s.registry.Snapshot() {
		ctx.Pools = append(ctx.Pools, scripting.PoolView{
			Kind:      st.Kind,
			Available: st.Available,
			InUse:     st.InUse,
			Capacity:  st.Capacity,
		})
	}
	for _, h := range s.Live() {
		ctx.Live = append(ctx.Live, scripting.LiveView{Handle: uint64(h), Kind: s.live[h]})
	}

	cmds := s.workload.RunWorkload(ctx)
	if s.maxPerTick > 0 && len(cmds) > s.maxPerTick {
		s.log.Warn("workload command limit reached",
			zap.Int("commands", len(cmds)), zap.Int("limit", s.maxPerTick))
		cmds = cmds[:s.maxPerTick]
	}
	for _, cmd := range cmds {
		s.apply(cmd)
	}
}

func (s *WorkloadSystem) apply(cmd scripting.Command) {
	switch cmd.Type {
	case "allocate":
		s.allocate(cmd)
	case "deallocate":
		s.deallocate(scene.Handle(cmd.Handle))
	case "destroy":
		if n, ok := s.scene.Get(scene.Handle(cmd.Handle)); ok {
			s.scene.MarkForDestruction(n)
		}
		delete(s.live, scene.Handle(cmd.Handle))
	case "reload":
		s.scene.Reload()
	default:
		s.log.Warn("unknown workload command", zap.String("type", cmd.Type))
	}
}

func (s *WorkloadSystem) allocate(cmd scripting.Command) {
	inst, err := s.registry.Allocate(cmd.Kind, pool.Placement{
		X: cmd.X, Y: cmd.Y, MapID: cmd.MapID, Heading: cmd.Heading,
	})
	switch {
	case errors.Is(err, pool.ErrExhausted):
		s.log.Debug("pool exhausted", zap.String("kind", cmd.Kind))
		return
	case err != nil:
		s.log.Warn("workload allocate failed", zap.String("kind", cmd.Kind), zap.Error(err))
		return
	}
	n, ok := inst.(*scene.Node)
	if !ok {
		return
	}
	s.live[n.ID()] = cmd.Kind
}

// deallocate hands the node back; nodes the registry refuses are destroyed.
func (s *WorkloadSystem) deallocate(h scene.Handle) {
	delete(s.live, h)
	n, ok := s.scene.Get(h)
	if !ok {
		return
	}
	if !s.registry.Deallocate(n) {
		s.log.Debug("deallocate refused, destroying", zap.String("kind", n.Kind()))
		s.scene.DestroyNode(n)
	}
}

// pruneDead forgets handles destroyed since last tick, and instances a
// pool reclaimed for another allocation.
func (s *WorkloadSystem) pruneDead() {
	for h := range s.live {
		n, ok := s.scene.Get(h)
		if !ok || !n.Active() {
			delete(s.live, h)
		}
	}
}
