package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// PoolView is one pool as the workload script sees it.
type PoolView struct {
	Kind      string
	Available int
	InUse     int
	Capacity  int
}

// LiveView is one instance the workload currently holds.
type LiveView struct {
	Handle uint64
	Kind   string
}

// WorkloadContext holds pre-packed data for one workload_tick call.
type WorkloadContext struct {
	Tick    uint64
	Pooling bool
	Pools   []PoolView
	Live    []LiveView
}

// Command is one action returned by workload_tick.
type Command struct {
	Type    string // allocate, deallocate, destroy, reload
	Kind    string
	Handle  uint64
	X       int32
	Y       int32
	MapID   int16
	Heading int16
}

// HasWorkload reports whether a workload_tick function is loaded.
func (e *Engine) HasWorkload() bool {
	_, ok := e.vm.GetGlobal("workload_tick").(*lua.LFunction)
	return ok
}

// RunWorkload calls Lua workload_tick(ctx) and returns its commands.
func (e *Engine) RunWorkload(ctx WorkloadContext) []Command {
	fn := e.vm.GetGlobal("workload_tick")
	if fn == lua.LNil {
		return nil
	}

	t := e.vm.NewTable()
	t.RawSetString("tick", lua.LNumber(ctx.Tick))
	t.RawSetString("pooling", lBool(ctx.Pooling))

	pools := e.vm.NewTable()
	for i, p := range ctx.Pools {
		row := e.vm.NewTable()
		row.RawSetString("kind", lua.LString(p.Kind))
		row.RawSetString("available", lua.LNumber(p.Available))
		row.RawSetString("in_use", lua.LNumber(p.InUse))
		row.RawSetString("capacity", lua.LNumber(p.Capacity))
		pools.RawSetInt(i+1, row)
	}
	t.RawSetString("pools", pools)

	live := e.vm.NewTable()
	for i, l := range ctx.Live {
		row := e.vm.NewTable()
		row.RawSetString("handle", lua.LNumber(l.Handle))
		row.RawSetString("kind", lua.LString(l.Kind))
		live.RawSetInt(i+1, row)
	}
	t.RawSetString("live", live)

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua workload_tick error", zap.Error(err), zap.Uint64("tick", ctx.Tick))
		return nil
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return nil
	}

	var cmds []Command
	rt.ForEach(func(_, v lua.LValue) {
		if row, ok := v.(*lua.LTable); ok {
			cmds = append(cmds, Command{
				Type:    lStr(row, "type"),
				Kind:    lStr(row, "kind"),
				Handle:  uint64(lua.LVAsNumber(row.RawGetString("handle"))),
				X:       int32(lInt(row, "x")),
				Y:       int32(lInt(row, "y")),
				MapID:   int16(lInt(row, "map_id")),
				Heading: int16(lInt(row, "heading")),
			})
		}
	})
	return cmds
}
