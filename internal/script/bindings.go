package script

import (
	"context"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/modelundo/internal/model"
	"github.com/dshills/modelundo/internal/undo"
)

func checkID(L *lua.LState, n int) model.ID {
	return model.ID(L.CheckString(n))
}

func (e *Engine) modelFuncs() map[string]lua.LGFunction {
	m := e.session.Model
	return map[string]lua.LGFunction{
		"create": func(L *lua.LState) int {
			el, err := m.Create(ctxOf(L), L.CheckString(1))
			check(L, err)
			L.Push(lua.LString(el.ID()))
			return 1
		},
		"delete": func(L *lua.LState) int {
			check(L, m.Delete(ctxOf(L), checkID(L, 1)))
			return 0
		},
		"set": func(L *lua.LState) int {
			id, name := checkID(L, 1), L.CheckString(2)
			check(L, m.SetAttribute(ctxOf(L), id, name, toGo(L.Get(3))))
			return 0
		},
		"get": func(L *lua.LState) int {
			v, err := m.Attribute(checkID(L, 1), L.CheckString(2))
			check(L, err)
			L.Push(toLua(L, v))
			return 1
		},
		"ref": func(L *lua.LState) int {
			el, ok := m.Get(checkID(L, 1))
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			if ref := el.Ref(L.CheckString(2)); ref != "" {
				L.Push(lua.LString(ref))
			} else {
				L.Push(lua.LNil)
			}
			return 1
		},
		"refs": func(L *lua.LState) int {
			t := L.NewTable()
			if el, ok := m.Get(checkID(L, 1)); ok {
				for _, id := range el.Refs(L.CheckString(2)) {
					t.Append(lua.LString(id))
				}
			}
			L.Push(t)
			return 1
		},
		"link": func(L *lua.LState) int {
			check(L, m.Link(ctxOf(L), checkID(L, 1), L.CheckString(2), checkID(L, 3)))
			return 0
		},
		"unlink": func(L *lua.LState) int {
			check(L, m.Unlink(ctxOf(L), checkID(L, 1), L.CheckString(2), checkID(L, 3)))
			return 0
		},
		"class": func(L *lua.LState) int {
			el, ok := m.Get(checkID(L, 1))
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LString(el.Class().Name))
			return 1
		},
		"exists": func(L *lua.LState) int {
			_, ok := m.Get(checkID(L, 1))
			L.Push(lua.LBool(ok))
			return 1
		},
		"elements": func(L *lua.LState) int {
			var els []*model.Element
			if class := L.OptString(1, ""); class != "" {
				els = m.Select(class)
			} else {
				els = m.Elements()
			}
			t := L.CreateTable(len(els), 0)
			for _, el := range els {
				t.Append(lua.LString(el.ID()))
			}
			L.Push(t)
			return 1
		},
		"len": func(L *lua.LState) int {
			L.Push(lua.LNumber(m.Len()))
			return 1
		},
		"snapshot": func(L *lua.LState) int {
			data, err := m.Snapshot()
			check(L, err)
			L.Push(lua.LString(string(data)))
			return 1
		},
		"query": func(L *lua.LState) int {
			res, err := m.Query(L.CheckString(1))
			check(L, err)
			L.Push(toLua(L, res.Value()))
			return 1
		},
	}
}

func (e *Engine) txFuncs() map[string]lua.LGFunction {
	tx := e.session.Tx
	return map[string]lua.LGFunction{
		"begin": func(L *lua.LState) int {
			check(L, tx.Begin(ctxOf(L)))
			return 0
		},
		"commit": func(L *lua.LState) int {
			check(L, tx.Commit(ctxOf(L)))
			return 0
		},
		"rollback": func(L *lua.LState) int {
			check(L, tx.Rollback(ctxOf(L)))
			return 0
		},
		"run": func(L *lua.LState) int {
			fn := L.CheckFunction(1)
			err := tx.Run(ctxOf(L), func(context.Context) error {
				return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
			})
			check(L, err)
			return 0
		},
		"active": func(L *lua.LState) int {
			L.Push(lua.LBool(tx.InTransaction()))
			return 1
		},
		"depth": func(L *lua.LState) int {
			L.Push(lua.LNumber(tx.Depth()))
			return 1
		},
	}
}

func (e *Engine) undoFuncs() map[string]lua.LGFunction {
	mgr := e.session.Undo
	return map[string]lua.LGFunction{
		"undo": func(L *lua.LState) int {
			check(L, mgr.Undo(ctxOf(L)))
			return 0
		},
		"redo": func(L *lua.LState) int {
			check(L, mgr.Redo(ctxOf(L)))
			return 0
		},
		"can_undo": func(L *lua.LState) int {
			L.Push(lua.LBool(mgr.CanUndo()))
			return 1
		},
		"can_redo": func(L *lua.LState) int {
			L.Push(lua.LBool(mgr.CanRedo()))
			return 1
		},
		"count": func(L *lua.LState) int {
			L.Push(lua.LNumber(mgr.UndoCount()))
			return 1
		},
		"redo_count": func(L *lua.LState) int {
			L.Push(lua.LNumber(mgr.RedoCount()))
			return 1
		},
		"depth": func(L *lua.LState) int {
			L.Push(lua.LNumber(mgr.Depth()))
			return 1
		},
		"set_depth": func(L *lua.LState) int {
			check(L, mgr.SetDepth(ctxOf(L), L.CheckInt(1)))
			return 0
		},
		"reset": func(L *lua.LState) int {
			mgr.Reset(ctxOf(L))
			return 0
		},
		"discard": func(L *lua.LState) int {
			mgr.DiscardTransaction(ctxOf(L))
			return 0
		},
		// add(desc, revert, reapply) records a reversible action for
		// script state into the open transaction.
		"add": func(L *lua.LState) int {
			desc := L.CheckString(1)
			revert, reapply := L.CheckFunction(2), L.CheckFunction(3)
			mgr.AddUndoAction(ctxOf(L), undo.Reversible(desc, callLua(L, revert), callLua(L, reapply)))
			return 0
		},
		"peek": func(L *lua.LState) int {
			L.Push(toLua(L, mgr.PeekUndo()))
			return 1
		},
	}
}

// callLua adapts a Lua function to an action body.
func callLua(L *lua.LState, fn *lua.LFunction) func(context.Context) error {
	return func(context.Context) error {
		return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
	}
}
