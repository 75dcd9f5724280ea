package scripting

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	hwerrors "github.com/lexlapax/hookwrap/pkg/errors"
	"github.com/lexlapax/hookwrap/pkg/log"
	lua "github.com/yuin/gopher-lua"
)

var (
	// ErrFunctionNotFound is returned when calling a global that is not a Lua function
	ErrFunctionNotFound = errors.New("lua function not found")

	// ErrEngineClosed is returned when using an engine after Close
	ErrEngineClosed = errors.New("lua engine closed")
)

// LuaEngine implements Engine on top of gopher-lua.
//
// An LState is not goroutine-safe; every entry point takes the engine mutex.
type LuaEngine struct {
	mu      sync.Mutex
	L       *lua.LState
	config  Config
	scripts []string
	closed  bool
}

// NewLuaEngine creates a Lua engine with the API table registered.
func NewLuaEngine(config Config) (*LuaEngine, error) {
	opts := lua.Options{SkipOpenLibs: config.EnableSandboxing}
	if config.CallStackSize > 0 {
		opts.CallStackSize = config.CallStackSize
	}
	L := lua.NewState(opts)

	if config.EnableSandboxing {
		setupSandbox(L)
	}
	registerAPIFunctions(L)

	log.Debug("Initialized Lua engine",
		"sandboxed", config.EnableSandboxing,
		"timeout_ms", config.ScriptTimeoutMs,
	)

	return &LuaEngine{L: L, config: config}, nil
}

// LoadScript runs content so that its global definitions become available.
func (e *LuaEngine) LoadScript(name string, content []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}

	fn, err := e.L.Load(strings.NewReader(string(content)), name)
	if err != nil {
		return fmt.Errorf("%w: load %s: %v", hwerrors.ErrLuaExecution, name, err)
	}
	e.L.Push(fn)
	if err := e.L.PCall(0, lua.MultRet, nil); err != nil {
		return fmt.Errorf("%w: run %s: %v", hwerrors.ErrLuaExecution, name, err)
	}
	e.L.SetTop(0)
	e.scripts = append(e.scripts, name)

	log.Debug("Loaded Lua script", "name", name, "size", len(content))
	return nil
}

// LoadScriptFile loads the script at path.
func (e *LuaEngine) LoadScriptFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read script %s: %w", path, err)
	}
	return e.LoadScript(filepath.Base(path), content)
}

// LoadScriptDir loads every *.lua file in dir in lexical order.
func (e *LuaEngine) LoadScriptDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read script directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		if err := e.LoadScriptFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteFunction calls the global Lua function funcName with args converted
// to Lua values and returns its first result converted back to Go.
//
// During the call the global ctx table exposes the context deadline.
func (e *LuaEngine) ExecuteFunction(ctx context.Context, funcName string, args ...interface{}) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}

	fn, ok := e.L.GetGlobal(funcName).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, funcName)
	}

	if e.config.ScriptTimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.config.ScriptTimeoutMs)*time.Millisecond)
		defer cancel()
	}
	e.L.SetContext(ctx)
	defer e.L.RemoveContext()

	e.L.SetGlobal("ctx", contextTable(e.L, ctx))
	defer e.L.SetGlobal("ctx", lua.LNil)

	lArgs := make([]lua.LValue, len(args))
	for i, arg := range args {
		lArgs[i] = convertGoToLua(e.L, arg)
	}

	if err := e.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lArgs...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %s: %w", hwerrors.ErrLuaExecution, funcName, ctxErr)
		}
		return nil, fmt.Errorf("%w: %s: %v", hwerrors.ErrLuaExecution, funcName, err)
	}

	ret := e.L.Get(-1)
	e.L.Pop(1)
	return convertLuaToGo(ret), nil
}

// FunctionNames lists global Lua functions, sorted. Go builtins registered
// by the engine are excluded.
func (e *LuaEngine) FunctionNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	var names []string
	e.L.G.Global.ForEach(func(k, v lua.LValue) {
		name, ok := k.(lua.LString)
		if !ok {
			return
		}
		if fn, ok := v.(*lua.LFunction); ok && !fn.IsG {
			names = append(names, string(name))
		}
	})
	sort.Strings(names)
	return names
}

// GetGlobal returns the Go value of the global name.
func (e *LuaEngine) GetGlobal(name string) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	return convertLuaToGo(e.L.GetGlobal(name)), nil
}

// Scripts returns the names of the loaded scripts in load order.
func (e *LuaEngine) Scripts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.scripts...)
}

// Close releases the Lua state. Closing twice is a no-op.
func (e *LuaEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.L.Close()
	return nil
}

func contextTable(L *lua.LState, ctx context.Context) *lua.LTable {
	t := L.NewTable()
	if deadline, ok := ctx.Deadline(); ok {
		t.RawSetString("deadline", lua.LNumber(deadline.Unix()))
	}
	return t
}
