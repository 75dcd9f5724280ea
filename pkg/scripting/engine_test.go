package scripting

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	hwerrors "github.com/lexlapax/hookwrap/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLuaEngine_LoadScript(t *testing.T) {
	engine, err := NewLuaEngine(DefaultConfig())
	require.NoError(t, err)
	defer engine.Close()

	// Test loading a valid script
	err = engine.LoadScript("test", []byte(`
		function hello()
			return "Hello, World!"
		end
	`))
	assert.NoError(t, err)

	// Test loading an invalid script
	err = engine.LoadScript("invalid", []byte(`
		function invalid(
			return "This is not valid Lua"
		end
	`))
	assert.Error(t, err)
}

func TestLuaEngine_ExecuteFunction(t *testing.T) {
	engine, err := NewLuaEngine(DefaultConfig())
	require.NoError(t, err)
	defer engine.Close()

	// Load a test script
	err = engine.LoadScript("test", []byte(`
		function hello()
			return "Hello, World!"
		end

		function add(a, b)
			return a + b
		end

		function get_table()
			return {
				name = "test",
				value = 123,
				nested = {
					key = "value"
				}
			}
		end

		function use_args(args)
			return args.name .. " is " .. args.age
		end

		function sleep(ms)
			local start = hookwrap.now()
			-- Create a simple busy wait using a counter
			local counter = 0
			local target = ms * 1000 -- Convert to microseconds for longer delay
			while counter < target do
				counter = counter + 1
			end
			return "done"
		end
	`))
	require.NoError(t, err)

	// Test calling a function that returns a string
	t.Run("string return", func(t *testing.T) {
		result, err := engine.ExecuteFunction(context.Background(), "hello")
		assert.NoError(t, err)
		assert.Equal(t, "Hello, World!", result)
	})

	// Test calling a function that takes arguments
	t.Run("with arguments", func(t *testing.T) {
		result, err := engine.ExecuteFunction(context.Background(), "add", 5, 3)
		assert.NoError(t, err)
		assert.Equal(t, float64(8), result)
	})

	// Test calling a function that returns a table
	t.Run("table return", func(t *testing.T) {
		result, err := engine.ExecuteFunction(context.Background(), "get_table")
		assert.NoError(t, err)

		// Check that we got a map back
		resultMap, ok := result.(map[string]interface{})
		assert.True(t, ok)
		assert.Equal(t, "test", resultMap["name"])
		assert.Equal(t, float64(123), resultMap["value"])

		// Check nested map
		nestedMap, ok := resultMap["nested"].(map[string]interface{})
		assert.True(t, ok)
		assert.Equal(t, "value", nestedMap["key"])
	})

	// Test calling a function with a map argument
	t.Run("map argument", func(t *testing.T) {
		args := map[string]interface{}{
			"name": "John",
			"age":  30,
		}
		result, err := engine.ExecuteFunction(context.Background(), "use_args", args)
		assert.NoError(t, err)
		assert.Equal(t, "John is 30", result)
	})

	// Test calling a non-existent function
	t.Run("non-existent function", func(t *testing.T) {
		_, err := engine.ExecuteFunction(context.Background(), "nonexistent")
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrFunctionNotFound)
	})

	t.Run("context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := engine.ExecuteFunction(ctx, "sleep", 1000)
		assert.ErrorIs(t, err, hwerrors.ErrLuaExecution)
		assert.ErrorIs(t, err, context.Canceled)

		// the state stays usable after an interrupted call
		result, err := engine.ExecuteFunction(context.Background(), "hello")
		assert.NoError(t, err)
		assert.Equal(t, "Hello, World!", result)
	})
}

func TestLuaEngine_Timeout(t *testing.T) {
	engine, err := NewLuaEngine(Config{EnableSandboxing: true, ScriptTimeoutMs: 50})
	require.NoError(t, err)
	defer engine.Close()

	require.NoError(t, engine.LoadScript("loop", []byte(`
		function spin()
			while true do end
		end
	`)))

	_, err = engine.ExecuteFunction(context.Background(), "spin")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLuaEngine_RuntimeError(t *testing.T) {
	engine, err := NewLuaEngine(DefaultConfig())
	require.NoError(t, err)
	defer engine.Close()

	require.NoError(t, engine.LoadScript("fail", []byte(`
		function fail() error("bad input") end
	`)))

	_, err = engine.ExecuteFunction(context.Background(), "fail")
	assert.ErrorIs(t, err, hwerrors.ErrLuaExecution)
	assert.Contains(t, err.Error(), "bad input")
}

func TestLuaEngine_Globals(t *testing.T) {
	engine, err := NewLuaEngine(DefaultConfig())
	require.NoError(t, err)
	defer engine.Close()

	require.NoError(t, engine.LoadScript("globals", []byte(`
		_chronicle = "run-42"
		limits = {1, 2, 3}
		function after_add(p) return p.result end
		function before_add(p) return p.params end
	`)))

	assert.Equal(t, []string{"after_add", "before_add"}, engine.FunctionNames())

	v, err := engine.GetGlobal("_chronicle")
	require.NoError(t, err)
	assert.Equal(t, "run-42", v)

	v, err = engine.GetGlobal("limits")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{float64(1), float64(2), float64(3)}, v)

	v, err = engine.GetGlobal("missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.Equal(t, []string{"globals"}, engine.Scripts())
}

func TestLuaEngine_Closed(t *testing.T) {
	engine, err := NewLuaEngine(DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, engine.Close())
	require.NoError(t, engine.Close())

	_, err = engine.ExecuteFunction(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrEngineClosed)
	assert.ErrorIs(t, engine.LoadScript("x", []byte("x = 1")), ErrEngineClosed)
	assert.Nil(t, engine.FunctionNames())
}

func TestLoadAllScripts(t *testing.T) {
	engine, err := NewLuaEngine(DefaultConfig())
	require.NoError(t, err)
	defer engine.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`function a() return 1 end`), 0600))

	single := filepath.Join(t.TempDir(), "single.lua")
	require.NoError(t, os.WriteFile(single, []byte(`function b() return 2 end`), 0600))

	require.NoError(t, LoadAllScripts(engine, dir, single))
	assert.Equal(t, []string{"a", "b"}, engine.FunctionNames())

	assert.Error(t, LoadAllScripts(engine, filepath.Join(dir, "missing")))
}

func TestLuaEngine_Sandboxing(t *testing.T) {
	engine, err := NewLuaEngine(Config{
		EnableSandboxing: true,
		ScriptTimeoutMs:  1000,
		CallStackSize:    128,
	})
	require.NoError(t, err)
	defer engine.Close()

	// Test trying to access os/io modules
	t.Run("sandbox restrictions", func(t *testing.T) {
		// Load a script that tries to access prohibited modules
		err = engine.LoadScript("sandbox_test", []byte(`
			function test_os()
				if os == nil then
					return "os is nil"
				else
					return "os is available"
				end
			end

			function test_io()
				if io == nil then
					return "io is nil"
				else
					return "io is available"
				end
			end

			function test_require()
				if require == nil then
					return "require is nil"
				else
					return "require is available"
				end
			end
		`))
		require.NoError(t, err)

		// Check that os is nil
		result, err := engine.ExecuteFunction(context.Background(), "test_os")
		assert.NoError(t, err)
		assert.Equal(t, "os is nil", result)

		// Check that io is nil
		result, err = engine.ExecuteFunction(context.Background(), "test_io")
		assert.NoError(t, err)
		assert.Equal(t, "io is nil", result)

		// Check that require is nil
		result, err = engine.ExecuteFunction(context.Background(), "test_require")
		assert.NoError(t, err)
		assert.Equal(t, "require is nil", result)
	})
}

func TestLuaEngine_LoadScriptFile(t *testing.T) {
	engine, err := NewLuaEngine(DefaultConfig())
	require.NoError(t, err)
	defer engine.Close()

	// Create a temporary directory
	tmpDir, err := os.MkdirTemp("", "lua_test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	// Create a test script file
	scriptPath := filepath.Join(tmpDir, "test.lua")
	scriptContent := []byte(`
		function file_test()
			return "File loaded successfully"
		end
	`)
	err = os.WriteFile(scriptPath, scriptContent, 0600)
	require.NoError(t, err)

	// Load the script file
	err = engine.LoadScriptFile(scriptPath)
	assert.NoError(t, err)

	// Execute the function from the file
	result, err := engine.ExecuteFunction(context.Background(), "file_test")
	assert.NoError(t, err)
	assert.Equal(t, "File loaded successfully", result)
}

func TestLuaEngine_LoadScriptDir(t *testing.T) {
	engine, err := NewLuaEngine(DefaultConfig())
	require.NoError(t, err)
	defer engine.Close()

	// Create a temporary directory
	tmpDir, err := os.MkdirTemp("", "lua_test_dir")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	// Create multiple script files
	script1Path := filepath.Join(tmpDir, "script1.lua")
	script1Content := []byte(`
		function script1_test()
			return "Script 1"
		end
	`)
	err = os.WriteFile(script1Path, script1Content, 0600)
	require.NoError(t, err)

	script2Path := filepath.Join(tmpDir, "script2.lua")
	script2Content := []byte(`
		function script2_test()
			return "Script 2"
		end
	`)
	err = os.WriteFile(script2Path, script2Content, 0600)
	require.NoError(t, err)

	// Create a non-Lua file that should be ignored
	textPath := filepath.Join(tmpDir, "not_a_script.txt")
	textContent := []byte(`This is not a Lua script`)
	err = os.WriteFile(textPath, textContent, 0600)
	require.NoError(t, err)

	// Load the script directory
	err = engine.LoadScriptDir(tmpDir)
	assert.NoError(t, err)

	// Execute functions from both scripts
	result1, err := engine.ExecuteFunction(context.Background(), "script1_test")
	assert.NoError(t, err)
	assert.Equal(t, "Script 1", result1)

	result2, err := engine.ExecuteFunction(context.Background(), "script2_test")
	assert.NoError(t, err)
	assert.Equal(t, "Script 2", result2)
}
