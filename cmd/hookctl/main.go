// Command hookctl decorates a demo calculator with the hooks found in Lua
// scripts and lets you call it interactively or from stdin.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/lexlapax/hookwrap/pkg/config"
	"github.com/lexlapax/hookwrap/pkg/hookwrap"
	"github.com/lexlapax/hookwrap/pkg/log"
)

// historyFile is the file where command history is stored
const historyFile = ".hookctl_history"

type options struct {
	configPath string
	envFile    string
	stdinMode  bool
	scripts    []string
	journal    string
	chronicle  string
	logLevel   string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("hookctl", flag.ContinueOnError)
	fs.StringVarP(&o.configPath, "config", "c", "", "Path to configuration file")
	fs.StringVar(&o.envFile, "env-file", ".env", "Environment file loaded before configuration")
	fs.BoolVarP(&o.stdinMode, "stdin", "s", false, "Read commands from stdin and exit when complete")
	fs.StringSliceVar(&o.scripts, "script", nil, "Hook script file or directory (repeatable)")
	fs.StringVarP(&o.journal, "journal", "j", "", "Journal database path")
	fs.StringVar(&o.chronicle, "chronicle", "", "Chronicle tag for this session")
	fs.StringVarP(&o.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	err := fs.Parse(args)
	return o, err
}

// loadConfig reads the configuration and applies flag overrides on top.
func loadConfig(o options) (*config.Config, error) {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return nil, err
	}

	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFromFile(o.configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, err
	}

	cfg.Scripting.Paths = append(cfg.Scripting.Paths, o.scripts...)
	if o.journal != "" {
		cfg.Journal.Path = o.journal
	}
	if o.chronicle != "" {
		cfg.Chronicle = o.chronicle
	}
	if o.logLevel != "" {
		level, err := log.ParseLevel(o.logLevel)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Level = level
	}
	return cfg, nil
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log.Setup(cfg.Logging)

	ctx := context.Background()
	rt, err := hookwrap.New(ctx, cfg)
	if err != nil {
		log.Error("Failed to initialize hookwrap runtime", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	s, err := newSession(rt, os.Stdout)
	if err != nil {
		log.Error("Failed to start session", "error", err)
		os.Exit(1)
	}

	if o.stdinMode {
		runStdin(ctx, s, os.Stdin)
		return
	}
	runInteractive(ctx, s)
}

// runStdin processes one command per line until input ends.
func runStdin(ctx context.Context, s *session, in io.Reader) {
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(s.out, "\n=== hookctl (stdin mode) ===")
	fmt.Fprintf(s.out, "Chronicle: %v\n", s.runtime.Chronicle())

	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		// Skip comments for scripted sessions
		if strings.HasPrefix(input, "#") || strings.HasPrefix(input, "//") {
			continue
		}

		// Echo a fake prompt for readable transcripts
		fmt.Fprint(s.out, s.prompt(), input, "\n")

		if !s.processCommand(ctx, input) {
			fmt.Fprintln(s.out, "Goodbye!")
			return
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(s.out, "Error reading stdin: %v\n", err)
	}
	fmt.Fprintln(s.out, "Goodbye!")
}

// runInteractive runs the liner-backed REPL.
func runInteractive(ctx context.Context, s *session) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetMultiLineMode(false)

	line.SetCompleter(func(line string) (c []string) {
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, line) {
				c = append(c, cmd)
			}
		}
		return
	})

	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintln(s.out, "\n=== hookctl ===")
	fmt.Fprintf(s.out, "Chronicle: %v | Hooked members: %d\n", s.runtime.Chronicle(), len(s.runtime.Bag().Hooks))
	fmt.Fprintln(s.out, "Type !help for available commands.")

	for {
		input, err := line.Prompt(s.prompt())
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Fprintln(s.out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(s.out, "Error reading input: %v\n", err)
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if !s.processCommand(ctx, input) {
			fmt.Fprintln(s.out, "Goodbye!")
			return
		}
	}
}
