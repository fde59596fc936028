package system

import (
	"time"

	coresys "github.com/l1jgo/pooling/internal/core/system"
	"github.com/l1jgo/pooling/internal/scene"
)

// ReloadTimerSystem reloads the world every N ticks. Phase 2 (Update).
type ReloadTimerSystem struct {
	scene     *scene.Scene
	interval  int
	tickCount int
}

func NewReloadTimerSystem(s *scene.Scene, intervalTicks int) *ReloadTimerSystem {
	return &ReloadTimerSystem{scene: s, interval: intervalTicks}
}

func (s *ReloadTimerSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *ReloadTimerSystem) Update(_ time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.scene.Reload()
}
