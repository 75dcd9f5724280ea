package scripting

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lexlapax/hookwrap/pkg/log"
	lua "github.com/yuin/gopher-lua"
)

// registerAPIFunctions registers the hookwrap table available to Lua scripts.
func registerAPIFunctions(L *lua.LState) {
	api := L.NewTable()

	L.SetField(api, "log", L.NewFunction(apiLog))
	L.SetField(api, "now", L.NewFunction(apiNow))
	L.SetField(api, "format_time", L.NewFunction(apiFormatTime))
	L.SetField(api, "uuid", L.NewFunction(apiUUID))
	L.SetField(api, "json_encode", L.NewFunction(apiJSONEncode))
	L.SetField(api, "json_decode", L.NewFunction(apiJSONDecode))

	L.SetGlobal("hookwrap", api)
}

// apiLog is a function to log messages from Lua
func apiLog(L *lua.LState) int {
	level := L.CheckString(1)
	message := L.CheckString(2)

	switch level {
	case "debug":
		log.Debug("Lua script message", "message", message)
	case "warn", "warning":
		log.Warn("Lua script message", "message", message)
	case "error":
		log.Error("Lua script message", "message", message)
	default:
		log.Info("Lua script message", "message", message)
	}

	return 0
}

// apiNow returns the current time as a Unix timestamp
func apiNow(L *lua.LState) int {
	L.Push(lua.LNumber(time.Now().Unix()))
	return 1
}

// apiFormatTime formats a Unix timestamp as a string
func apiFormatTime(L *lua.LState) int {
	timestamp := L.CheckNumber(1)
	format := L.OptString(2, time.RFC3339)

	t := time.Unix(int64(timestamp), 0).UTC()
	L.Push(lua.LString(t.Format(format)))
	return 1
}

func apiUUID(L *lua.LState) int {
	L.Push(lua.LString(uuid.NewString()))
	return 1
}

// apiJSONEncode encodes a Lua value to a JSON string. On failure it returns
// nil and the error message.
func apiJSONEncode(L *lua.LState) int {
	value := convertLuaToGo(L.CheckAny(1))

	data, err := json.Marshal(value)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(data))
	return 1
}

// apiJSONDecode decodes a JSON string into Lua values.
func apiJSONDecode(L *lua.LState) int {
	jsonStr := L.CheckString(1)

	var value interface{}
	if err := json.Unmarshal([]byte(jsonStr), &value); err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(convertGoToLua(L, value))
	return 1
}
