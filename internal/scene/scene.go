package scene

import (
	"fmt"
	"sort"

	"github.com/l1jgo/pooling/internal/core/event"
	"github.com/l1jgo/pooling/internal/data"
	"github.com/l1jgo/pooling/internal/pool"
	"go.uber.org/zap"
)

// PoolsRootName names the persistent root every pool scope hangs off.
const PoolsRootName = "_pools"

// HookFunc receives lifecycle notifications delivered to nodes.
type HookFunc func(n *Node, ev pool.Event)

// Scene is the world pooled nodes live in. It owns every node, can destroy
// them behind the pools' backs (Reload), and implements pool.Host.
// Accessed only from the game loop goroutine, no locks.
type Scene struct {
	handles      handleTable
	nodes        map[Handle]*Node
	roots        []*Node
	poolsRoot    *Node
	scopes       map[string]*Node
	destroyQueue []Handle
	bus          *event.Bus
	hook         HookFunc
	generation   int
	log          *zap.Logger
}

func New(bus *event.Bus, log *zap.Logger) *Scene {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scene{
		handles:      newHandleTable(),
		nodes:        make(map[Handle]*Node, 1024),
		scopes:       make(map[string]*Node),
		destroyQueue: make([]Handle, 0, 64),
		bus:          bus,
		log:          log,
	}
	s.poolsRoot = s.Spawn(PoolsRootName, nil)
	s.poolsRoot.persistent = true
	s.poolsRoot.scope = true
	return s
}

// SetHook installs the lifecycle hook (the Lua engine in poolsim).
func (s *Scene) SetHook(fn HookFunc) { s.hook = fn }

// Spawn creates an inactive node under parent (nil: a new root).
func (s *Scene) Spawn(name string, parent *Node) *Node {
	n := &Node{
		id:     s.handles.create(),
		name:   name,
		scene:  s,
		parent: parent,
	}
	s.nodes[n.id] = n
	if parent == nil {
		s.roots = append(s.roots, n)
	} else {
		parent.children = append(parent.children, n)
	}
	return n
}

func (s *Scene) Get(h Handle) (*Node, bool) {
	if !s.handles.alive(h) {
		return nil, false
	}
	n, ok := s.nodes[h]
	return n, ok
}

func (s *Scene) Alive(h Handle) bool {
	_, ok := s.Get(h)
	return ok
}

// Len is the number of live nodes, the pools root included.
func (s *Scene) Len() int { return len(s.nodes) }

// Roots returns a copy of the root list.
func (s *Scene) Roots() []*Node {
	out := make([]*Node, len(s.roots))
	copy(out, s.roots)
	return out
}

func (s *Scene) Generation() int { return s.generation }

// DestroyNode destroys n and its subtree immediately and returns the
// number of nodes destroyed.
func (s *Scene) DestroyNode(n *Node) int {
	if n == nil || n.scene != s || !s.Alive(n.id) {
		return 0
	}
	n.detach()
	return s.destroyTree(n)
}

func (s *Scene) destroyTree(n *Node) int {
	count := 0
	for _, c := range n.children {
		c.parent = nil
		count += s.destroyTree(c)
	}
	n.children = nil
	n.active = false
	if n.scope {
		delete(s.scopes, n.name)
	}
	delete(s.nodes, n.id)
	s.handles.release(n.id)
	return count + 1
}

// MarkForDestruction queues n for end-of-tick destruction.
func (s *Scene) MarkForDestruction(n *Node) {
	if n != nil {
		s.destroyQueue = append(s.destroyQueue, n.id)
	}
}

// FlushDestroyQueue destroys every queued node still alive.
// Called by CleanupSystem at the end of each tick.
func (s *Scene) FlushDestroyQueue() int {
	count := 0
	for _, h := range s.destroyQueue {
		if n, ok := s.Get(h); ok {
			count += s.DestroyNode(n)
		}
	}
	s.destroyQueue = s.destroyQueue[:0]
	return count
}

// Scope returns the named persistent scope, creating it under the pools
// root on first use.
func (s *Scene) Scope(name string) *Node {
	if n, ok := s.scopes[name]; ok && s.Alive(n.id) {
		return n
	}
	n := s.Spawn(name, s.poolsRoot)
	n.scope = true
	n.persistent = true
	s.scopes[name] = n
	return n
}

// Reload simulates a world transition: every non-persistent root and every
// active node is destroyed, whatever the pools think they own. Pools learn
// about it through event.WorldReloaded on the next dispatch.
func (s *Scene) Reload() int {
	s.generation++

	var doomed []*Node
	for _, r := range s.Roots() {
		if !r.persistent {
			doomed = append(doomed, r)
			continue
		}
		doomed = collectActive(r, doomed)
	}
	destroyed := 0
	for _, n := range doomed {
		destroyed += s.DestroyNode(n)
	}
	s.destroyQueue = s.destroyQueue[:0]

	s.log.Info("world reloaded", zap.Int("generation", s.generation), zap.Int("destroyed", destroyed))
	if s.bus != nil {
		event.Emit(s.bus, event.WorldReloaded{Generation: s.generation, Destroyed: destroyed})
	}
	return destroyed
}

// collectActive appends the topmost active nodes below n.
func collectActive(n *Node, out []*Node) []*Node {
	for _, c := range n.children {
		if c.active {
			out = append(out, c)
			continue
		}
		out = collectActive(c, out)
	}
	return out
}

// Handles lists live handles in ascending order.
func (s *Scene) Handles() []Handle {
	out := make([]Handle, 0, len(s.nodes))
	for h := range s.nodes {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Scene) isRoot(n *Node) bool {
	for _, r := range s.roots {
		if r == n {
			return true
		}
	}
	return false
}

func (s *Scene) fire(n *Node, ev pool.Event) {
	if s.hook != nil {
		s.hook(n, ev)
	}
}

// Construct builds an inactive node tree for proto under scope.
func (s *Scene) Construct(proto pool.Prototype, scope pool.Scope) (pool.Instance, error) {
	p, ok := proto.(*Prototype)
	if !ok || p == nil {
		return nil, fmt.Errorf("scene: unsupported prototype %T", proto)
	}
	var parent *Node
	if sn, ok := scope.(*Node); ok && sn.scene == s && s.Alive(sn.id) {
		parent = sn
	}
	n := s.Spawn(p.Name, parent)
	n.kind = p.Name
	for _, comp := range p.Components {
		c := s.Spawn(comp, n)
		c.kind = p.Name
		c.component = comp
	}
	return n, nil
}

// Destroy implements pool.Host.
func (s *Scene) Destroy(inst pool.Instance) {
	if n, ok := inst.(*Node); ok {
		s.DestroyNode(n)
	}
}

// NewScope implements pool.Host: one persistent scope per kind.
func (s *Scene) NewScope(kind string) pool.Scope {
	return s.Scope("pool:" + kind)
}

// OptionsFor turns a catalog entry into pool options backed by this scene.
func (s *Scene) OptionsFor(e data.PoolEntry) (pool.Options, error) {
	mode, err := pool.ParseNotificationMode(e.Notification)
	if err != nil {
		return pool.Options{}, fmt.Errorf("pool %s: %w", e.Kind, err)
	}
	opts := pool.Options{
		Prototype:    &Prototype{Name: e.Kind, Components: e.Components},
		PreloadSize:  e.Preload,
		MaxCapacity:  e.MaxCapacity,
		AllowRecycle: e.AllowRecycle,
		Notification: mode,
	}
	if e.Scope != "" {
		opts.Scope = s.Scope(e.Scope)
	}
	return opts, nil
}

// Resolver adapts the catalog to pool.Config.Resolve.
func (s *Scene) Resolver(c *data.Catalog) func(kind string) (pool.Options, bool) {
	return func(kind string) (pool.Options, bool) {
		e, ok := c.Get(kind)
		if !ok {
			return pool.Options{}, false
		}
		opts, err := s.OptionsFor(*e)
		if err != nil {
			s.log.Warn("catalog entry unusable", zap.String("kind", kind), zap.Error(err))
			return pool.Options{}, false
		}
		return opts, true
	}
}
