package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/lexlapax/hookwrap/pkg/decorate"
	"github.com/lexlapax/hookwrap/pkg/hookwrap"
	"github.com/lexlapax/hookwrap/pkg/introspect"
	"github.com/lexlapax/hookwrap/pkg/object"
)

// Constants for the command-line interface
const (
	cmdHelp      = "!help"
	cmdQuit      = "!quit"
	cmdMembers   = "!members"
	cmdCall      = "!call"
	cmdJournal   = "!journal"
	cmdChronicle = "!chronicle"
	cmdConfig    = "!config"
)

var commands = []string{cmdHelp, cmdQuit, cmdMembers, cmdCall, cmdJournal, cmdChronicle, cmdConfig}

// Command-line help text
const helpText = `
hookctl - Command Reference:
-----------------------------------------
!help                    - Show this help message
!members                 - List the calculator's invocable members
!call <member> [args..]  - Call a member of the decorated calculator
!journal [chronicle]     - Show journaled calls (current chronicle by default)
!chronicle               - Show the current chronicle
!config                  - Show current configuration
!quit                    - Exit the application

Notes:
- Regular text input is treated as a call: "add 1 2"
- Numeric arguments are passed as numbers, everything else as strings
- Deferred results are awaited before printing`

// awaitTimeout bounds how long a deferred result is waited for
const awaitTimeout = 5 * time.Second

// session holds the decorated target the commands operate on.
type session struct {
	runtime *hookwrap.Runtime
	target  *object.Object
	out     io.Writer
}

func newSession(r *hookwrap.Runtime, out io.Writer) (*session, error) {
	target, err := r.DecorateObject(newCalculator())
	if err != nil {
		return nil, fmt.Errorf("failed to decorate calculator: %w", err)
	}
	return &session{runtime: r, target: target, out: out}, nil
}

// prompt is the prompt shown before each command.
func (s *session) prompt() string {
	return fmt.Sprintf("hookctl::%v> ", s.runtime.Chronicle())
}

// processCommand handles a single command and returns false if the CLI should exit
func (s *session) processCommand(ctx context.Context, input string) bool {
	if !strings.HasPrefix(input, "!") {
		s.call(ctx, strings.Fields(input))
		return true
	}

	parts := strings.Fields(input)
	switch parts[0] {
	case cmdHelp:
		fmt.Fprintln(s.out, helpText)

	case cmdQuit:
		return false

	case cmdMembers:
		caps := introspect.Capabilities(s.target)
		fmt.Fprintf(s.out, "%d members:\n", caps.Len())
		for _, c := range caps.All() {
			fmt.Fprintf(s.out, "%-12s %-8s level %d\n", c.Name, c.Kind, c.Level)
		}

	case cmdCall:
		if len(parts) == 1 {
			fmt.Fprintln(s.out, "Member name required")
			return true
		}
		s.call(ctx, parts[1:])

	case cmdJournal:
		var chronicle any = s.runtime.Chronicle()
		if len(parts) > 1 {
			chronicle = parts[1]
		}
		s.journal(ctx, chronicle)

	case cmdChronicle:
		fmt.Fprintf(s.out, "Chronicle: %v\n", s.runtime.Chronicle())

	case cmdConfig:
		cfg := s.runtime.Config()
		fmt.Fprintln(s.out, "\nCurrent Configuration:")
		fmt.Fprintln(s.out, "======================")
		fmt.Fprintf(s.out, "Script Paths: %s\n", strings.Join(cfg.Scripting.Paths, ", "))
		fmt.Fprintf(s.out, "Sandboxing: %v\n", cfg.Scripting.EnableSandboxing)
		fmt.Fprintf(s.out, "Script Timeout: %dms\n", cfg.Scripting.ScriptTimeoutMs)
		fmt.Fprintf(s.out, "Journal: %s\n", orNone(cfg.Journal.Path))
		fmt.Fprintf(s.out, "Log Level: %s\n", cfg.Logging.Level)
		fmt.Fprintf(s.out, "Hooked Members: %d\n", len(s.runtime.Bag().Hooks))

	default:
		fmt.Fprintf(s.out, "Unknown command: %s\nType !help for available commands.\n", parts[0])
	}
	return true
}

func (s *session) call(ctx context.Context, parts []string) {
	if len(parts) == 0 {
		return
	}
	name := parts[0]
	if !introspect.Capabilities(s.target).Has(name) {
		fmt.Fprintf(s.out, "Unknown member: %s\nType !members to list them.\n", name)
		return
	}
	args := make([]any, len(parts)-1)
	for i, p := range parts[1:] {
		args[i] = parseArg(p)
	}

	out, err := s.target.Call(name, args...)
	if err != nil {
		fmt.Fprintf(s.out, "Error calling %s: %v\n", name, err)
		return
	}

	if r := decorate.Classify(out); r.IsDeferred() {
		ctx, cancel := context.WithTimeout(ctx, awaitTimeout)
		defer cancel()
		out, err = r.Deferred.Await(ctx)
		if err != nil {
			fmt.Fprintf(s.out, "Error awaiting %s: %v\n", name, err)
			return
		}
	}
	fmt.Fprintf(s.out, "%s => %v\n", name, out)
}

func (s *session) journal(ctx context.Context, chronicle any) {
	events, err := s.runtime.Events(ctx, chronicle)
	if err != nil {
		fmt.Fprintf(s.out, "Error reading journal: %v\n", err)
		return
	}
	if len(events) == 0 {
		fmt.Fprintln(s.out, "No journaled calls")
		return
	}
	for _, e := range events {
		line := fmt.Sprintf("%s %-8s %-7s params=%v", e.Time.Format(time.RFC3339), e.Method, e.Stage, e.Params)
		switch {
		case e.Error != "":
			line += " error=" + e.Error
		case e.Result != nil:
			line += fmt.Sprintf(" result=%v", e.Result)
		}
		fmt.Fprintln(s.out, line)
	}
}

// parseArg turns a command word into a float64 or bool where it reads as
// one; anything else stays a string.
func parseArg(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
