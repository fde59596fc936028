package pool

import (
	"fmt"
	"strings"
)

// NotificationMode controls how lifecycle events reach an instance.
type NotificationMode int

const (
	NotifyNone      NotificationMode = iota // no events delivered
	NotifyDirect                            // instance only
	NotifyBroadcast                         // instance and everything it owns
)

func (m NotificationMode) String() string {
	switch m {
	case NotifyDirect:
		return "direct"
	case NotifyBroadcast:
		return "broadcast"
	default:
		return "none"
	}
}

// ParseNotificationMode maps a config string onto a NotificationMode.
// The empty string means NotifyNone.
func ParseNotificationMode(s string) (NotificationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return NotifyNone, nil
	case "direct":
		return NotifyDirect, nil
	case "broadcast":
		return NotifyBroadcast, nil
	}
	return NotifyNone, fmt.Errorf("unknown notification mode %q", s)
}

// Prototype is the template a pool stamps instances from. Its Kind is the
// pool's unique key inside a Registry.
type Prototype interface {
	Kind() string
}

// Scope is the container idle instances are parented under.
type Scope interface {
	ScopeName() string
}

// Placement carries the activation parameters applied on allocation.
type Placement struct {
	X       int32
	Y       int32
	MapID   int16
	Heading int16
}

// Instance is a pooled resource. Implementations must be comparable
// (pointer types) since instances key the registry's ownership map.
type Instance interface {
	Activate(p Placement)
	Deactivate()
	Attach(scope Scope)
	// Alive reports false once the instance was destroyed, including
	// destruction the pool did not initiate.
	Alive() bool
}

// Options configures one pool.
type Options struct {
	Prototype    Prototype
	PreloadSize  int
	MaxCapacity  int // <= 0 means PreloadSize
	AllowRecycle bool
	Notification NotificationMode
	Scope        Scope // nil: the registry creates one through the host
}

// Kind returns the prototype's kind, or "" without a prototype.
func (o Options) Kind() string {
	if o.Prototype == nil {
		return ""
	}
	return o.Prototype.Kind()
}

// normalize applies the capacity default. It runs once, at CreatePool.
func (o Options) normalize() Options {
	if o.PreloadSize < 0 {
		o.PreloadSize = 0
	}
	if o.MaxCapacity <= 0 {
		o.MaxCapacity = o.PreloadSize
	}
	return o
}

func (o Options) validate() error {
	if o.Prototype == nil || o.Prototype.Kind() == "" {
		return ErrMissingPrototype
	}
	return nil
}
