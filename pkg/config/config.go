package config

import (
	"github.com/lexlapax/hookwrap/pkg/log"
	"github.com/lexlapax/hookwrap/pkg/scripting"
)

// Config represents the top-level configuration of a hookwrap process.
type Config struct {
	// Logging configures the logging behavior
	Logging log.Config `yaml:"logging"`

	// Scripting configures the Lua engine hook scripts run in
	Scripting ScriptingConfig `yaml:"scripting"`

	// Journal configures call recording; recording is off without a path
	Journal JournalConfig `yaml:"journal"`

	// Chronicle tags every hook payload when scripts do not set _chronicle
	Chronicle string `yaml:"chronicle"`
}

// ScriptingConfig configures the Lua scripting engine.
type ScriptingConfig struct {
	// Paths lists directories or single .lua files holding hook scripts
	Paths []string `yaml:"paths"`

	scripting.Config `yaml:",inline"`
}

// JournalConfig configures the bbolt call journal.
type JournalConfig struct {
	// Path is the database file
	Path string `yaml:"path"`
}

// Default returns the configuration used for anything a file leaves unset.
func Default() Config {
	return Config{
		Logging:   log.DefaultConfig(),
		Scripting: ScriptingConfig{Config: scripting.DefaultConfig()},
	}
}
