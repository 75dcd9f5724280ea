// Package luahooks builds method bags from Lua scripts.
//
// A script defines plain global functions following the method bag naming
// convention:
//
//	_chronicle = "nightly-import"
//
//	function before_add(p)
//	  return { p.params[1] * 2, p.params[2] }
//	end
//
//	function after_add(p)
//	  return p.result + 1
//	end
//
//	function onError(p)
//	  hookwrap.log("warn", p.method .. ": " .. p.error)
//	end
//
// Every hook receives one table with the fields method, chronicle, context,
// params and, depending on the stage, raw_params, result or error. Other
// global functions become injected members.
package luahooks

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/lexlapax/hookwrap/pkg/decorate"
	"github.com/lexlapax/hookwrap/pkg/errors"
	"github.com/lexlapax/hookwrap/pkg/log"
	"github.com/lexlapax/hookwrap/pkg/object"
	"github.com/lexlapax/hookwrap/pkg/scripting"
)

// LoadBag builds a method bag from the functions defined in engine.
//
// ctx is used for every later hook call; cancelling it makes the hooks fail.
// Lua numbers come back as float64.
func LoadBag(ctx context.Context, engine scripting.Engine) (*decorate.MethodBag, error) {
	raw := make(map[string]any)

	for _, name := range engine.FunctionNames() {
		switch {
		case strings.HasPrefix(name, decorate.BeforePrefix):
			raw[name] = paramsHook(ctx, engine, name)
		case strings.HasPrefix(name, decorate.AfterPrefix):
			raw[name] = successHook(ctx, engine, name)
		case name == decorate.OnErrorKey:
			raw[name] = errorHook(ctx, engine, name)
		default:
			raw[name] = member(ctx, engine, name)
		}
	}

	chronicle, err := engine.GetGlobal(decorate.ChronicleKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read %s", decorate.ChronicleKey)
	}
	if chronicle != nil {
		raw[decorate.ChronicleKey] = chronicle
	}

	bag, err := decorate.ParseBag(raw)
	if err != nil {
		return nil, err
	}

	log.Debug("Loaded Lua method bag",
		"hooks", len(bag.Hooks),
		"members", len(bag.Members),
		"on_error", bag.OnError != nil,
	)
	return bag, nil
}

// paramsHook calls a Lua before hook. A nil return keeps the params; a
// table replaces them.
func paramsHook(ctx context.Context, engine scripting.Engine, fn string) decorate.ParamsHook {
	return func(p decorate.ParamsPayload) ([]any, error) {
		out, err := engine.ExecuteFunction(ctx, fn, map[string]any{
			"method":    p.Method,
			"chronicle": p.Chronicle,
			"context":   p.Context,
			"params":    p.Params,
		})
		if err != nil {
			return nil, err
		}

		switch v := out.(type) {
		case nil:
			return p.Params, nil
		case []any:
			return v, nil
		case map[string]any:
			if len(v) == 0 {
				return []any{}, nil
			}
		}
		return nil, fmt.Errorf("%w: %s returned %T, want an array", errors.ErrInvalidHook, fn, out)
	}
}

// successHook calls a Lua after hook. A nil return keeps the result. The
// hook type cannot report errors, so a failing script panics and the
// decorated wrapper hands that to the error hook.
func successHook(ctx context.Context, engine scripting.Engine, fn string) decorate.SuccessHook {
	return func(p decorate.SuccessPayload) any {
		out, err := engine.ExecuteFunction(ctx, fn, invocation(p.Invocation, "result", p.Result))
		if err != nil {
			panic(err)
		}
		if out == nil {
			return p.Result
		}
		return out
	}
}

// errorHook calls a Lua onError hook. Returning nil or false absorbs the
// failure, true rethrows it and a string rethrows it with that message.
func errorHook(ctx context.Context, engine scripting.Engine, fn string) decorate.ErrorHook {
	return func(p decorate.ErrorPayload) error {
		out, err := engine.ExecuteFunction(ctx, fn, invocation(p.Invocation, "error", p.Error))
		if err != nil {
			return stderrors.Join(p.Error, err)
		}

		switch v := out.(type) {
		case nil:
			return nil
		case bool:
			if v {
				return p.Error
			}
			return nil
		case string:
			return &ScriptError{Message: v, Cause: p.Error}
		}
		return &ScriptError{Message: fmt.Sprint(out), Cause: p.Error}
	}
}

// member exposes a Lua function as an injectable member. The receiver is
// passed as the first argument.
func member(ctx context.Context, engine scripting.Engine, fn string) object.Func {
	return func(this *object.Object, args ...any) (any, error) {
		var self any
		if this != nil {
			self = this
		}
		return engine.ExecuteFunction(ctx, fn, append([]any{self}, args...)...)
	}
}

func invocation(inv decorate.Invocation, key string, v any) map[string]any {
	return map[string]any{
		"method":     inv.Method,
		"chronicle":  inv.Chronicle,
		"context":    inv.Context,
		"params":     inv.Params,
		"raw_params": inv.RawParams,
		key:          v,
	}
}

// ScriptError is the error an onError script rethrows by returning a message.
type ScriptError struct {
	Message string
	Cause   error
}

func (e *ScriptError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *ScriptError) Unwrap() error {
	return e.Cause
}
