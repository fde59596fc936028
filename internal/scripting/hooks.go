package scripting

import (
	"github.com/l1jgo/pooling/internal/pool"
	"github.com/l1jgo/pooling/internal/scene"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// HookContext is what a lifecycle hook sees about the notified node.
type HookContext struct {
	Event     string // "allocate" or "deallocate"
	Kind      string
	Name      string
	Component string // empty for the instance root
	Handle    uint64
	X         int32
	Y         int32
	MapID     int16
	Heading   int16
}

// CallHook runs pool_hooks[kind]["on_"..event](ctx), falling back to
// pool_hooks.default. It reports whether a hook ran; a kind without hooks
// is not an error.
func (e *Engine) CallHook(ctx HookContext) bool {
	fn := e.findHook(ctx.Kind, "on_"+ctx.Event)
	if fn == nil {
		return false
	}

	t := e.vm.NewTable()
	t.RawSetString("event", lua.LString(ctx.Event))
	t.RawSetString("kind", lua.LString(ctx.Kind))
	t.RawSetString("name", lua.LString(ctx.Name))
	t.RawSetString("component", lua.LString(ctx.Component))
	t.RawSetString("handle", lua.LNumber(ctx.Handle))
	t.RawSetString("x", lua.LNumber(ctx.X))
	t.RawSetString("y", lua.LNumber(ctx.Y))
	t.RawSetString("map_id", lua.LNumber(ctx.MapID))
	t.RawSetString("heading", lua.LNumber(ctx.Heading))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua hook error",
			zap.String("kind", ctx.Kind),
			zap.String("event", ctx.Event),
			zap.Error(err))
	}
	return true
}

func (e *Engine) findHook(kind, name string) *lua.LFunction {
	hooks, ok := e.vm.GetGlobal("pool_hooks").(*lua.LTable)
	if !ok {
		return nil
	}
	for _, key := range []string{kind, "default"} {
		tbl, ok := hooks.RawGetString(key).(*lua.LTable)
		if !ok {
			continue
		}
		if fn, ok := tbl.RawGetString(name).(*lua.LFunction); ok {
			return fn
		}
	}
	return nil
}

// SceneHook adapts the engine to scene.HookFunc.
func SceneHook(e *Engine) scene.HookFunc {
	return func(n *scene.Node, ev pool.Event) {
		pl := n.Placement()
		e.CallHook(HookContext{
			Event:     ev.String(),
			Kind:      n.Kind(),
			Name:      n.Name(),
			Component: n.Component(),
			Handle:    uint64(n.ID()),
			X:         pl.X,
			Y:         pl.Y,
			MapID:     pl.MapID,
			Heading:   pl.Heading,
		})
	}
}
