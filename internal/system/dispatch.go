package system

import (
	"time"

	"github.com/l1jgo/pooling/internal/core/event"
	coresys "github.com/l1jgo/pooling/internal/core/system"
)

// EventDispatchSystem delivers events emitted during the previous tick.
// Phase 1 (Dispatch).
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhaseDispatch }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
