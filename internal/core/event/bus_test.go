package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventsArriveNextDispatch(t *testing.T) {
	b := NewBus()
	var got []int
	Subscribe(b, func(ev WorldReloaded) { got = append(got, ev.Generation) })

	Emit(b, WorldReloaded{Generation: 1})
	assert.Equal(t, 1, b.Pending())
	assert.Equal(t, 0, b.DispatchAll(), "not swapped yet")
	assert.Empty(t, got)

	b.SwapBuffers()
	assert.Equal(t, 0, b.Pending())
	assert.Equal(t, 1, b.DispatchAll())
	assert.Equal(t, []int{1}, got)

	b.SwapBuffers()
	assert.Equal(t, 0, b.DispatchAll())
}

func TestDispatchOrderFollowsFirstEmit(t *testing.T) {
	b := NewBus()
	var trail []string
	Subscribe(b, func(ev PoolingToggled) { trail = append(trail, "toggle") })
	Subscribe(b, func(ev WorldReloaded) { trail = append(trail, "reload") })

	Emit(b, PoolingToggled{Enabled: false})
	Emit(b, WorldReloaded{Generation: 1})
	Emit(b, PoolingToggled{Enabled: true})
	b.SwapBuffers()
	assert.Equal(t, 3, b.DispatchAll())
	assert.Equal(t, []string{"toggle", "toggle", "reload"}, trail)
}

func TestEmitDuringDispatchWaitsATick(t *testing.T) {
	b := NewBus()
	reloads := 0
	Subscribe(b, func(ev PoolingToggled) { Emit(b, WorldReloaded{}) })
	Subscribe(b, func(ev WorldReloaded) { reloads++ })

	Emit(b, PoolingToggled{})
	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, 0, reloads)

	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, 1, reloads)
}
