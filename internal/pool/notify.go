package pool

// Event identifies a lifecycle notification.
type Event int

const (
	EventAllocate Event = iota
	EventDeallocate
)

func (e Event) String() string {
	if e == EventAllocate {
		return "allocate"
	}
	return "deallocate"
}

// AllocateHandler is implemented by instances (or their sub-components)
// that want to hear about being handed out.
type AllocateHandler interface {
	OnAllocate()
}

// DeallocateHandler is implemented by instances (or their sub-components)
// that want to hear about being returned to their pool.
type DeallocateHandler interface {
	OnDeallocate()
}

// Owner exposes the sub-components a broadcast descends into.
type Owner interface {
	Owned() []any
}

// Notify delivers ev to target according to mode. Delivery is synchronous
// and best-effort: targets without a handler are skipped.
func Notify(mode NotificationMode, target any, ev Event) {
	switch mode {
	case NotifyDirect:
		deliver(target, ev)
	case NotifyBroadcast:
		broadcast(target, ev)
	}
}

// broadcast walks target and its owned sub-components depth-first, parent
// before children.
func broadcast(target any, ev Event) {
	deliver(target, ev)
	o, ok := target.(Owner)
	if !ok {
		return
	}
	for _, child := range o.Owned() {
		broadcast(child, ev)
	}
}

func deliver(target any, ev Event) {
	switch ev {
	case EventAllocate:
		if h, ok := target.(AllocateHandler); ok {
			h.OnAllocate()
		}
	case EventDeallocate:
		if h, ok := target.(DeallocateHandler); ok {
			h.OnDeallocate()
		}
	}
}
