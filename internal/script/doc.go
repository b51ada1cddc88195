// Package script drives modelundo sessions from Lua.
//
// An Engine owns a gopher-lua state with the safe standard libraries
// (base, table, string, math) and three modules bound to a session:
//
//	model   create, delete, set, get, ref, refs, link, unlink,
//	        class, exists, elements, len, snapshot, query
//	tx      begin, commit, rollback, run, active, depth
//	undo    undo, redo, can_undo, can_redo, count, redo_count,
//	        depth, set_depth, reset, discard, add, peek
//
// Errors from the session are raised as Lua errors, so scripts may
// recover with pcall:
//
//	tx.run(function()
//	    local c = model.create("Class")
//	    model.set(c, "name", "Order")
//	end)
//	undo.undo()
//	assert(model.len() == 0)
//
// Like the underlying LState, an Engine is not goroutine-safe beyond
// its own mutex; run one script at a time.
package script
