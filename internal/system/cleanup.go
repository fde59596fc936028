package system

import (
	"time"

	coresys "github.com/l1jgo/pooling/internal/core/system"
	"github.com/l1jgo/pooling/internal/scene"
)

// CleanupSystem flushes the scene's deferred destruction queue at tick end.
// Phase 5 (Cleanup).
type CleanupSystem struct {
	scene *scene.Scene
}

func NewCleanupSystem(s *scene.Scene) *CleanupSystem {
	return &CleanupSystem{scene: s}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.scene.FlushDestroyQueue()
}
