package script

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/modelundo/internal/logging"
	"github.com/dshills/modelundo/internal/model"
	"github.com/dshills/modelundo/internal/transaction"
	"github.com/dshills/modelundo/internal/undo"
)

// Session is the set of components a script operates on.
type Session struct {
	Model *model.Model
	Tx    *transaction.Coordinator
	Undo  *undo.Manager
}

// Engine runs Lua scripts against a Session.
type Engine struct {
	L *lua.LState

	mu      sync.Mutex
	session Session
	logger  *logging.Logger
	output  io.Writer
	timeout time.Duration
	closed  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithOutput redirects Lua print. The default is stdout.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) {
		if w != nil {
			e.output = w
		}
	}
}

// WithTimeout bounds each script run. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.timeout = d
		}
	}
}

// New creates an engine bound to s.
func New(s Session, opts ...Option) (*Engine, error) {
	if s.Model == nil || s.Tx == nil || s.Undo == nil {
		return nil, ErrIncompleteSession
	}

	e := &Engine{
		session: s,
		logger:  logging.NullLogger,
		output:  os.Stdout,
	}
	for _, opt := range opts {
		opt(e)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)
	e.L = L

	L.SetGlobal("print", L.NewFunction(e.print))
	e.register("model", e.modelFuncs())
	e.register("tx", e.txFuncs())
	e.register("undo", e.undoFuncs())

	return e, nil
}

// openSafeLibraries opens the libraries that cannot reach outside the
// session.
func openSafeLibraries(L *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
}

func (e *Engine) register(name string, funcs map[string]lua.LGFunction) {
	e.L.SetGlobal(name, e.L.SetFuncs(e.L.NewTable(), funcs))
}

// DoFile runs the script at path.
func (e *Engine) DoFile(ctx context.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}
	return e.run(ctx, path, func(L *lua.LState) error {
		fn, err := L.Load(strings.NewReader(string(src)), path)
		if err != nil {
			return err
		}
		L.Push(fn)
		return L.PCall(0, lua.MultRet, nil)
	})
}

// DoString runs code.
func (e *Engine) DoString(ctx context.Context, code string) error {
	return e.run(ctx, "<string>", func(L *lua.LState) error {
		return L.DoString(code)
	})
}

func (e *Engine) run(ctx context.Context, name string, fn func(*lua.LState) error) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	e.L.SetContext(ctx)
	defer e.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic in %s: %v", name, r)
		}
	}()

	top := e.L.GetTop()
	defer e.L.SetTop(top)

	e.logger.Debug("running %s", name)
	if err := fn(e.L); err != nil {
		return fmt.Errorf("script %s: %w", name, err)
	}
	return nil
}

// Global returns a global Lua value converted to Go.
func (e *Engine) Global(name string) any {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	return toGo(e.L.GetGlobal(name))
}

// Close releases the Lua state. It is safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.L.Close()
	e.closed = true
	return nil
}

func (e *Engine) print(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, n)
	for i := 1; i <= n; i++ {
		parts[i-1] = L.ToStringMeta(L.Get(i)).String()
	}
	fmt.Fprintln(e.output, strings.Join(parts, "\t"))
	return 0
}

// ctxOf returns the context of the running script.
func ctxOf(L *lua.LState) context.Context {
	if ctx := L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// check raises err as a Lua error.
func check(L *lua.LState, err error) {
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
}
