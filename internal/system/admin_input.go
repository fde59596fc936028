package system

import (
	"time"

	"github.com/l1jgo/pooling/internal/admin"
	"github.com/l1jgo/pooling/internal/core/event"
	coresys "github.com/l1jgo/pooling/internal/core/system"
	"github.com/l1jgo/pooling/internal/pool"
	"github.com/l1jgo/pooling/internal/scene"
	"go.uber.org/zap"
)

// AdminInputSystem drains commands queued by the admin API and applies them
// on the game loop. Phase 0 (Input).
type AdminInputSystem struct {
	commands   <-chan admin.Command
	scene      *scene.Scene
	registry   *pool.Registry
	bus        *event.Bus
	maxPerTick int
	log        *zap.Logger
}

func NewAdminInputSystem(commands <-chan admin.Command, s *scene.Scene, reg *pool.Registry, bus *event.Bus, maxPerTick int, log *zap.Logger) *AdminInputSystem {
	if maxPerTick <= 0 {
		maxPerTick = 16
	}
	return &AdminInputSystem{
		commands:   commands,
		scene:      s,
		registry:   reg,
		bus:        bus,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *AdminInputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *AdminInputSystem) Update(_ time.Duration) {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case cmd := <-s.commands:
			s.apply(cmd)
		default:
			return
		}
	}
}

func (s *AdminInputSystem) apply(cmd admin.Command) {
	switch cmd.Kind {
	case admin.CommandReload:
		s.scene.Reload()
	case admin.CommandSetPooling:
		if s.registry.PoolingEnabled() == cmd.Enabled {
			return
		}
		s.registry.SetPooling(cmd.Enabled)
		event.Emit(s.bus, event.PoolingToggled{Enabled: cmd.Enabled})
	default:
		s.log.Warn("unknown admin command", zap.Stringer("command", cmd.Kind))
	}
}
