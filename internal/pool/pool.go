package pool

import (
	"fmt"

	"github.com/eapache/queue"
	"go.uber.org/zap"
)

// Stats is a point-in-time view of one pool.
type Stats struct {
	Kind         string `json:"kind"`
	Available    int    `json:"available"`
	InUse        int    `json:"in_use"`
	Capacity     int    `json:"capacity"`
	Preload      int    `json:"preload"`
	AllowRecycle bool   `json:"allow_recycle"`
	Notification string `json:"notification"`
	Created      uint64 `json:"created"`
	Allocations  uint64 `json:"allocations"`
	Recycled     uint64 `json:"recycled"`
	Exhausted    uint64 `json:"exhausted"`
	Dropped      uint64 `json:"dropped"`
}

// ReconcileResult summarizes one Reconcile pass.
type ReconcileResult struct {
	Recovered   int // in-use instances that survived and went back to available
	Dropped     int // instances found destroyed and forgotten
	Replenished int // instances constructed to get back to the preload size
}

// useEntry records one allocation. An entry is stale once its instance was
// deallocated or reallocated under a newer seq.
type useEntry struct {
	inst Instance
	seq  uint64
}

// Pool owns the idle and in-use instances of one kind. Pools are created by
// a Registry and, like the registry, are only touched from the game loop.
type Pool struct {
	reg   *Registry
	opts  Options
	scope Scope

	available []Instance          // top of stack = last element
	inUse     map[Instance]uint64 // instance -> allocation seq
	order     *queue.Queue        // useEntry in allocation order, may hold stale entries
	seq       uint64

	created     uint64
	allocations uint64
	recycled    uint64
	exhausted   uint64
	dropped     uint64
}

func newPool(reg *Registry, opts Options, scope Scope) (*Pool, error) {
	p := &Pool{
		reg:       reg,
		opts:      opts,
		scope:     scope,
		available: make([]Instance, 0, opts.MaxCapacity),
		inUse:     make(map[Instance]uint64, opts.MaxCapacity),
		order:     queue.New(),
	}
	if _, err := p.preloadTo(opts.PreloadSize); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *Pool) Kind() string     { return p.opts.Kind() }
func (p *Pool) Options() Options { return p.opts }
func (p *Pool) Scope() Scope     { return p.scope }
func (p *Pool) Available() int   { return len(p.available) }
func (p *Pool) InUse() int       { return len(p.inUse) }
func (p *Pool) Capacity() int    { return p.opts.MaxCapacity }

// Loaded is the number of live instances the pool accounts for.
func (p *Pool) Loaded() int { return len(p.available) + len(p.inUse) }

// Contains reports whether inst is currently handed out by this pool.
func (p *Pool) Contains(inst Instance) bool {
	_, ok := p.inUse[inst]
	return ok
}

func (p *Pool) Stats() Stats {
	return Stats{
		Kind:         p.Kind(),
		Available:    len(p.available),
		InUse:        len(p.inUse),
		Capacity:     p.opts.MaxCapacity,
		Preload:      p.opts.PreloadSize,
		AllowRecycle: p.opts.AllowRecycle,
		Notification: p.opts.Notification.String(),
		Created:      p.created,
		Allocations:  p.allocations,
		Recycled:     p.recycled,
		Exhausted:    p.exhausted,
		Dropped:      p.dropped,
	}
}

// Allocate hands out an instance: the most recently returned idle one,
// else a new one while under capacity, else (if allowed) the oldest
// allocation still in use. Returns ErrExhausted when none of these apply.
func (p *Pool) Allocate(pl Placement) (Instance, error) {
	inst, err := p.acquire()
	if err != nil {
		return nil, err
	}
	p.markInUse(inst)
	p.allocations++
	inst.Activate(pl)
	Notify(p.opts.Notification, inst, EventAllocate)
	return inst, nil
}

func (p *Pool) acquire() (Instance, error) {
	for {
		if n := len(p.available); n > 0 {
			inst := p.available[n-1]
			p.available[n-1] = nil
			p.available = p.available[:n-1]
			if !inst.Alive() {
				p.drop(inst)
				continue
			}
			return inst, nil
		}
		if p.Loaded() < p.opts.MaxCapacity {
			return p.construct()
		}
		if !p.opts.AllowRecycle || !p.recycleOne() {
			p.exhausted++
			return nil, fmt.Errorf("allocate %s (capacity %d): %w", p.Kind(), p.opts.MaxCapacity, ErrExhausted)
		}
	}
}

// recycleOne reclaims the oldest in-use allocation. A reclaimed instance
// that turns out to be destroyed is dropped instead, which frees capacity
// just the same. Returns false when nothing is in use.
func (p *Pool) recycleOne() bool {
	for p.order.Length() > 0 {
		e := p.order.Remove().(useEntry)
		seq, ok := p.inUse[e.inst]
		if !ok || seq != e.seq {
			continue
		}
		delete(p.inUse, e.inst)
		if !e.inst.Alive() {
			p.drop(e.inst)
			return true
		}
		p.release(e.inst)
		p.recycled++
		p.reg.log.Debug("recycled in-use instance", zap.String("kind", p.Kind()))
		return true
	}
	return false
}

// Deallocate returns inst to the idle stack. It reports false when inst is
// not in use by this pool, or when it was destroyed behind the pool's back
// (in which case it is forgotten).
func (p *Pool) Deallocate(inst Instance) bool {
	if _, ok := p.inUse[inst]; !ok {
		return false
	}
	delete(p.inUse, inst)
	if !inst.Alive() {
		p.drop(inst)
		return false
	}
	p.release(inst)
	return true
}

// Reconcile resynchronizes bookkeeping after an external event destroyed an
// unknown subset of the pool's instances. Survivors get the normal
// deallocate side effects, destroyed instances are dropped, and with
// replenish the idle stack is topped back up to the preload size.
func (p *Pool) Reconcile(replenish bool) ReconcileResult {
	var res ReconcileResult
	for _, inst := range p.inUseInOrder() {
		if inst.Alive() {
			p.release(inst)
			res.Recovered++
		} else {
			p.drop(inst)
			res.Dropped++
		}
	}
	clear(p.inUse)
	p.order = queue.New()
	res.Dropped += p.pruneAvailable()

	if replenish {
		n, err := p.preloadTo(p.opts.PreloadSize)
		res.Replenished = n
		if err != nil {
			p.reg.log.Warn("replenish failed", zap.String("kind", p.Kind()), zap.Error(err))
		}
	}
	return res
}

// Close destroys every instance the pool still owns.
func (p *Pool) Close() {
	for _, inst := range p.inUseInOrder() {
		p.destroy(inst)
	}
	clear(p.inUse)
	p.order = queue.New()
	for i, inst := range p.available {
		p.destroy(inst)
		p.available[i] = nil
	}
	p.available = p.available[:0]
}

// evict removes inst from the pool without any side effects and reports
// whether the pool held it. Used when pooling is switched off.
func (p *Pool) evict(inst Instance) bool {
	if _, ok := p.inUse[inst]; ok {
		delete(p.inUse, inst)
		return true
	}
	for i, a := range p.available {
		if a == inst {
			p.available = append(p.available[:i], p.available[i+1:]...)
			return true
		}
	}
	return false
}

// preloadTo constructs idle instances until available reaches size,
// never beyond capacity.
func (p *Pool) preloadTo(size int) (int, error) {
	if len(p.inUse) > 0 {
		p.Reconcile(false)
	}
	if size > p.opts.MaxCapacity {
		size = p.opts.MaxCapacity
	}
	built := 0
	for len(p.available) < size {
		inst, err := p.construct()
		if err != nil {
			return built, err
		}
		p.available = append(p.available, inst)
		built++
	}
	return built, nil
}

func (p *Pool) construct() (Instance, error) {
	inst, err := p.reg.host.Construct(p.opts.Prototype, p.scope)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", p.Kind(), err)
	}
	p.reg.owners[inst] = p
	p.created++
	return inst, nil
}

// release applies the deallocate side effects and pushes inst on top of
// the idle stack. The caller has already removed it from inUse.
func (p *Pool) release(inst Instance) {
	Notify(p.opts.Notification, inst, EventDeallocate)
	inst.Deactivate()
	inst.Attach(p.scope)
	p.available = append(p.available, inst)
}

func (p *Pool) drop(inst Instance) {
	delete(p.reg.owners, inst)
	p.dropped++
}

func (p *Pool) destroy(inst Instance) {
	if inst.Alive() {
		p.reg.host.Destroy(inst)
	}
	delete(p.reg.owners, inst)
}

func (p *Pool) markInUse(inst Instance) {
	p.seq++
	p.inUse[inst] = p.seq
	p.order.Add(useEntry{inst: inst, seq: p.seq})
	p.compact()
}

// compact rebuilds the order queue once stale entries dominate it.
func (p *Pool) compact() {
	if p.order.Length() <= 2*len(p.inUse)+32 {
		return
	}
	fresh := queue.New()
	for i := 0; i < p.order.Length(); i++ {
		e := p.order.Get(i).(useEntry)
		if seq, ok := p.inUse[e.inst]; ok && seq == e.seq {
			fresh.Add(e)
		}
	}
	p.order = fresh
}

// inUseInOrder lists in-use instances oldest allocation first.
func (p *Pool) inUseInOrder() []Instance {
	out := make([]Instance, 0, len(p.inUse))
	for i := 0; i < p.order.Length(); i++ {
		e := p.order.Get(i).(useEntry)
		if seq, ok := p.inUse[e.inst]; ok && seq == e.seq {
			out = append(out, e.inst)
		}
	}
	return out
}

// pruneAvailable forgets idle instances that no longer exist.
func (p *Pool) pruneAvailable() int {
	kept := p.available[:0]
	lost := 0
	for _, inst := range p.available {
		if inst.Alive() {
			kept = append(kept, inst)
		} else {
			p.drop(inst)
			lost++
		}
	}
	for i := len(kept); i < len(p.available); i++ {
		p.available[i] = nil
	}
	p.available = kept
	return lost
}
