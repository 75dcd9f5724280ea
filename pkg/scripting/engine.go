package scripting

import (
	"context"
	"fmt"
	"os"
)

// Engine is the interface for the Lua scripting engine.
type Engine interface {
	// LoadScript loads a Lua script with the given name and content.
	LoadScript(name string, content []byte) error

	// LoadScriptFile loads a Lua script from a file path.
	LoadScriptFile(path string) error

	// LoadScriptDir loads all Lua scripts from a directory.
	LoadScriptDir(dir string) error

	// ExecuteFunction calls a Lua function with the given arguments.
	// The function should be previously loaded via LoadScript or LoadScriptFile.
	ExecuteFunction(ctx context.Context, funcName string, args ...interface{}) (interface{}, error)

	// FunctionNames lists the global functions defined by loaded scripts, sorted.
	FunctionNames() []string

	// GetGlobal returns the Go value of a global variable, nil when unset.
	GetGlobal(name string) (interface{}, error)

	// Close releases resources associated with the engine.
	Close() error
}

// Config contains configuration options for the scripting engine.
type Config struct {
	// EnableSandboxing restricts access to potentially dangerous Lua modules like os and io
	EnableSandboxing bool `yaml:"enable_sandboxing"`

	// ScriptTimeoutMs sets a maximum execution time for a single function call in milliseconds
	ScriptTimeoutMs int `yaml:"script_timeout_ms"`

	// CallStackSize bounds the Lua call stack
	CallStackSize int `yaml:"call_stack_size"`
}

// DefaultConfig returns the default configuration for the scripting engine.
func DefaultConfig() Config {
	return Config{
		EnableSandboxing: true,
		ScriptTimeoutMs:  1000, // 1 second
		CallStackSize:    256,
	}
}

// LoadAllScripts loads every path in order. A directory contributes all of
// its .lua files, any other path is loaded as a single script.
func LoadAllScripts(engine Engine, paths ...string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to load scripts from %s: %w", path, err)
		}
		if info.IsDir() {
			err = engine.LoadScriptDir(path)
		} else {
			err = engine.LoadScriptFile(path)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
