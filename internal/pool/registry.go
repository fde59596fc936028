package pool

import (
	"fmt"

	"github.com/l1jgo/pooling/internal/core/event"
	"go.uber.org/zap"
)

// Host is the world pooled instances live in: it builds them, destroys
// them, and provides the scopes idle instances are parked under.
type Host interface {
	// Construct returns a deactivated instance attached to scope.
	Construct(proto Prototype, scope Scope) (Instance, error)
	Destroy(inst Instance)
	NewScope(kind string) Scope
}

// DefaultMissingPoolCapacity is the capacity of auto-created pools when the
// config leaves it unset.
const DefaultMissingPoolCapacity = 10

// Config tunes a Registry.
type Config struct {
	// Passthrough disables pooling: Allocate constructs, Deallocate destroys.
	Passthrough bool
	// AutoCreate creates missing pools on first allocation.
	AutoCreate bool
	// MissingPoolCapacity caps pools auto-created from a bare prototype.
	MissingPoolCapacity int
	// Resolve supplies options for kinds that have no pool yet. Used for
	// auto-creation by kind name and to find prototypes in passthrough mode.
	Resolve func(kind string) (Options, bool)
}

// Registry routes allocation by kind and tracks which pool owns every live
// instance. Not safe for concurrent use; it belongs to the game loop.
type Registry struct {
	host Host
	cfg  Config
	log  *zap.Logger

	pools  map[string]*Pool
	order  []*Pool // registration order
	owners map[Instance]*Pool
}

func NewRegistry(host Host, cfg Config, log *zap.Logger) *Registry {
	if cfg.MissingPoolCapacity <= 0 {
		cfg.MissingPoolCapacity = DefaultMissingPoolCapacity
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		host:   host,
		cfg:    cfg,
		log:    log,
		pools:  make(map[string]*Pool),
		owners: make(map[Instance]*Pool, 256),
	}
}

// CreatePool registers and preloads a pool for opts' kind.
func (r *Registry) CreatePool(opts Options) (*Pool, error) {
	if err := opts.validate(); err != nil {
		r.log.Error("create pool rejected", zap.Error(err))
		return nil, fmt.Errorf("create pool: %w", err)
	}
	opts = opts.normalize()
	kind := opts.Kind()
	if _, ok := r.pools[kind]; ok {
		r.log.Error("pool kind already registered, kinds must be unique", zap.String("kind", kind))
		return nil, fmt.Errorf("create pool %s: %w", kind, ErrDuplicateKind)
	}
	if opts.PreloadSize > opts.MaxCapacity {
		r.log.Warn("preload exceeds capacity, clamping",
			zap.String("kind", kind),
			zap.Int("preload", opts.PreloadSize),
			zap.Int("capacity", opts.MaxCapacity))
	}

	scope := opts.Scope
	if scope == nil {
		scope = r.host.NewScope(kind)
	}
	p, err := newPool(r, opts, scope)
	if err != nil {
		return nil, fmt.Errorf("create pool %s: %w", kind, err)
	}
	r.pools[kind] = p
	r.order = append(r.order, p)
	r.log.Debug("pool created",
		zap.String("kind", kind),
		zap.Int("preload", p.Available()),
		zap.Int("capacity", opts.MaxCapacity),
		zap.Bool("recycle", opts.AllowRecycle))
	return p, nil
}

// Allocate hands out an instance of kind placed at pl.
func (r *Registry) Allocate(kind string, pl Placement) (Instance, error) {
	if r.cfg.Passthrough {
		proto, ok := r.prototypeOf(kind)
		if !ok {
			return nil, fmt.Errorf("allocate %s: %w", kind, ErrUnknownKind)
		}
		return r.constructDirect(proto, pl)
	}

	p, ok := r.pools[kind]
	if !ok {
		var err error
		if p, err = r.autoCreate(kind); err != nil {
			return nil, err
		}
	}
	return r.allocateFrom(p, pl)
}

// AllocatePrototype is Allocate keyed by proto's kind. With auto-creation on,
// a missing pool is created from the resolver or, failing that, with the
// missing-pool capacity.
func (r *Registry) AllocatePrototype(proto Prototype, pl Placement) (Instance, error) {
	if proto == nil || proto.Kind() == "" {
		return nil, fmt.Errorf("allocate: %w", ErrMissingPrototype)
	}
	if r.cfg.Passthrough {
		return r.constructDirect(proto, pl)
	}

	kind := proto.Kind()
	p, ok := r.pools[kind]
	if !ok {
		if !r.cfg.AutoCreate {
			r.log.Warn("no pool for prototype", zap.String("kind", kind))
			return nil, fmt.Errorf("allocate %s: %w", kind, ErrUnknownKind)
		}
		opts, found := r.resolve(kind)
		if !found {
			opts = Options{Prototype: proto, MaxCapacity: r.cfg.MissingPoolCapacity}
		}
		var err error
		if p, err = r.CreatePool(opts); err != nil {
			return nil, fmt.Errorf("allocate %s: %w", kind, err)
		}
	}
	return r.allocateFrom(p, pl)
}

func (r *Registry) allocateFrom(p *Pool, pl Placement) (Instance, error) {
	inst, err := p.Allocate(pl)
	if err != nil {
		r.log.Debug("allocate failed", zap.String("kind", p.Kind()), zap.Error(err))
		return nil, err
	}
	r.owners[inst] = p
	r.log.Debug("allocated", zap.String("kind", p.Kind()),
		zap.Int("available", p.Available()), zap.Int("in_use", p.InUse()))
	return inst, nil
}

func (r *Registry) autoCreate(kind string) (*Pool, error) {
	if !r.cfg.AutoCreate {
		r.log.Warn("no pool for kind", zap.String("kind", kind))
		return nil, fmt.Errorf("allocate %s: %w", kind, ErrUnknownKind)
	}
	opts, ok := r.resolve(kind)
	if !ok {
		r.log.Warn("no pool options for kind", zap.String("kind", kind))
		return nil, fmt.Errorf("allocate %s: %w", kind, ErrUnknownKind)
	}
	if opts.MaxCapacity <= 0 && opts.PreloadSize <= 0 {
		opts.MaxCapacity = r.cfg.MissingPoolCapacity
	}
	p, err := r.CreatePool(opts)
	if err != nil {
		return nil, fmt.Errorf("allocate %s: %w", kind, err)
	}
	return p, nil
}

func (r *Registry) resolve(kind string) (Options, bool) {
	if r.cfg.Resolve == nil {
		return Options{}, false
	}
	opts, ok := r.cfg.Resolve(kind)
	if !ok || opts.Kind() != kind {
		return Options{}, false
	}
	return opts, true
}

func (r *Registry) prototypeOf(kind string) (Prototype, bool) {
	if p, ok := r.pools[kind]; ok {
		return p.opts.Prototype, true
	}
	if opts, ok := r.resolve(kind); ok {
		return opts.Prototype, true
	}
	return nil, false
}

func (r *Registry) constructDirect(proto Prototype, pl Placement) (Instance, error) {
	inst, err := r.host.Construct(proto, nil)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", proto.Kind(), err)
	}
	inst.Activate(pl)
	return inst, nil
}

// Deallocate returns inst to its pool. It reports false for instances the
// registry does not own, so callers can fall back to destroying them. The
// ownership entry stays: an idle instance is still registry-owned.
//
// In passthrough mode the instance is destroyed instead and true returned.
func (r *Registry) Deallocate(inst Instance) bool {
	if inst == nil {
		return false
	}
	if r.cfg.Passthrough {
		if p, ok := r.owners[inst]; ok {
			p.evict(inst)
			delete(r.owners, inst)
		}
		if inst.Alive() {
			r.host.Destroy(inst)
		}
		return true
	}
	p, ok := r.owners[inst]
	if !ok {
		return false
	}
	if !p.Deallocate(inst) {
		return false
	}
	r.log.Debug("deallocated", zap.String("kind", p.Kind()),
		zap.Int("available", p.Available()), zap.Int("in_use", p.InUse()))
	return true
}

// ReconcileAll runs Reconcile on every pool in registration order.
func (r *Registry) ReconcileAll(replenish bool) ReconcileResult {
	var total ReconcileResult
	for _, p := range r.order {
		res := p.Reconcile(replenish)
		total.Recovered += res.Recovered
		total.Dropped += res.Dropped
		total.Replenished += res.Replenished
	}
	r.log.Info("pools reconciled",
		zap.Int("pools", len(r.order)),
		zap.Int("recovered", total.Recovered),
		zap.Int("dropped", total.Dropped),
		zap.Int("replenished", total.Replenished))
	return total
}

// Subscribe hooks the registry onto the world reload event.
func (r *Registry) Subscribe(bus *event.Bus) {
	event.Subscribe(bus, func(ev event.WorldReloaded) {
		r.log.Debug("world reloaded", zap.Int("generation", ev.Generation), zap.Int("destroyed", ev.Destroyed))
		r.ReconcileAll(true)
	})
}

// SetPooling switches pooling on or off without touching call sites.
func (r *Registry) SetPooling(enabled bool) {
	r.cfg.Passthrough = !enabled
	r.log.Info("pooling toggled", zap.Bool("enabled", enabled))
}

func (r *Registry) PoolingEnabled() bool { return !r.cfg.Passthrough }

// Pool returns the pool registered for kind.
func (r *Registry) Pool(kind string) (*Pool, bool) {
	p, ok := r.pools[kind]
	return p, ok
}

func (r *Registry) Has(kind string) bool {
	_, ok := r.pools[kind]
	return ok
}

// Owner returns the pool that owns inst, idle or in use.
func (r *Registry) Owner(inst Instance) (*Pool, bool) {
	p, ok := r.owners[inst]
	return p, ok
}

// Kinds lists registered kinds in registration order.
func (r *Registry) Kinds() []string {
	out := make([]string, len(r.order))
	for i, p := range r.order {
		out[i] = p.Kind()
	}
	return out
}

// Snapshot returns per-pool stats in registration order.
func (r *Registry) Snapshot() []Stats {
	out := make([]Stats, len(r.order))
	for i, p := range r.order {
		out[i] = p.Stats()
	}
	return out
}

// DestroyPool tears down the pool for kind and all its instances.
func (r *Registry) DestroyPool(kind string) bool {
	p, ok := r.pools[kind]
	if !ok {
		return false
	}
	p.Close()
	delete(r.pools, kind)
	for i, q := range r.order {
		if q == p {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.log.Debug("pool destroyed", zap.String("kind", kind))
	return true
}

// Close tears down every pool.
func (r *Registry) Close() {
	for _, p := range r.order {
		p.Close()
	}
	r.pools = make(map[string]*Pool)
	r.order = nil
	clear(r.owners)
}
