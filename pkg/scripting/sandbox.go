package scripting

import (
	"fmt"
	"strings"

	"github.com/lexlapax/hookwrap/pkg/log"
	lua "github.com/yuin/gopher-lua"
)

// safeLibs are the only standard libraries a sandboxed state opens.
var safeLibs = []struct {
	name string
	fn   lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// setupSandbox opens the safe libraries on a state created with
// SkipOpenLibs and strips the base functions that reach the filesystem or
// compile arbitrary code.
func setupSandbox(L *lua.LState) {
	for _, lib := range safeLibs {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module", "io", "os", "package", "debug"} {
		L.SetGlobal(name, lua.LNil)
	}

	L.SetGlobal("print", L.NewFunction(safePrint))
}

// safePrint redirects Lua's print to the logger
func safePrint(L *lua.LState) int {
	top := L.GetTop()
	parts := make([]string, top)
	for i := 1; i <= top; i++ {
		parts[i-1] = fmt.Sprint(convertLuaToGo(L.Get(i)))
	}

	log.Info("Lua print", "message", strings.Join(parts, "\t"))
	return 0
}
