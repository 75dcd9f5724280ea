package decorate

import (
	"log/slog"

	"github.com/lexlapax/hookwrap/pkg/log"
)

// ParamsPayload is handed to a before hook.
type ParamsPayload struct {
	// Params is the raw argument list of the call
	Params []any

	// Context is the receiver the member was called on, nil for bare functions
	Context any

	Method    string
	Chronicle any
}

// Invocation carries everything known about a call once params are settled.
type Invocation struct {
	Method    string
	Chronicle any
	Context   any

	// RawParams are the arguments as passed by the caller
	RawParams []any

	// Params are the arguments after the before hook; nil when that hook failed
	Params []any
}

// SuccessPayload is handed to an after hook.
type SuccessPayload struct {
	Invocation
	Result any
}

// ErrorPayload is handed to an error hook.
type ErrorPayload struct {
	Invocation
	Error error
}

// ParamsHook transforms the argument list before the wrapped member runs.
type ParamsHook func(ParamsPayload) ([]any, error)

// SuccessHook transforms the settled result before it reaches the caller.
type SuccessHook func(SuccessPayload) any

// ErrorHook receives failures. Returning nil absorbs the failure and the
// call yields nil; returning an error hands it back to the caller.
type ErrorHook func(ErrorPayload) error

// HookConfig is the resolved set of hooks around one member.
type HookConfig struct {
	OnParams  ParamsHook
	OnSuccess SuccessHook
	OnError   ErrorHook
	Chronicle any
}

// PassParams is the default before hook: params pass through unchanged.
func PassParams(p ParamsPayload) ([]any, error) {
	return p.Params, nil
}

// PassResult is the default after hook: the result passes through unchanged.
func PassResult(p SuccessPayload) any {
	return p.Result
}

// LogError is the process-wide default error hook. It logs through the
// default logger and absorbs the failure.
func LogError(p ErrorPayload) error {
	report(slog.Default(), p)
	return nil
}

// Reporter returns an error hook logging to logger and absorbing the failure.
func Reporter(logger *slog.Logger) ErrorHook {
	return func(p ErrorPayload) error {
		report(logger, p)
		return nil
	}
}

func report(logger *slog.Logger, p ErrorPayload) {
	log.WithChronicle(logger, p.Chronicle).Error("Decorated call failed",
		"method", p.Method,
		"error", p.Error,
	)
}

// Defaults holds process-wide settings. The package value is created once
// and never mutated; override it per call with WithDefaults.
type Defaults struct {
	OnError ErrorHook
}

// DefaultDefaults returns the settings used when no override is given.
func DefaultDefaults() Defaults {
	return Defaults{OnError: LogError}
}

var processDefaults = DefaultDefaults()

// Option adjusts a single Decorate call.
type Option func(*options)

type options struct {
	defaults Defaults
	onError  ErrorHook
}

// WithErrorHook overrides the error hook for every member wrapped by the call.
// It takes precedence over the bag's OnError.
func WithErrorHook(h ErrorHook) Option {
	return func(o *options) {
		o.onError = h
	}
}

// WithDefaults replaces the process-wide defaults for the call.
func WithDefaults(d Defaults) Option {
	return func(o *options) {
		o.defaults = d
	}
}

func buildOptions(opts []Option) options {
	o := options{defaults: processDefaults}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// baseConfig is the configuration shared by every wrapper of one call:
// error hook and chronicle.
func baseConfig(bag *MethodBag, o options) HookConfig {
	onError := o.onError
	if onError == nil {
		onError = bag.OnError
	}
	if onError == nil {
		onError = o.defaults.OnError
	}
	if onError == nil {
		onError = LogError
	}
	if observe := bag.ObserveError; observe != nil {
		resolved := onError
		onError = func(p ErrorPayload) error {
			observe(p)
			return resolved(p)
		}
	}
	return HookConfig{OnError: onError, Chronicle: bag.Chronicle}
}

// with fills the before and after hooks, falling back to pass-through.
func (c HookConfig) with(h Hooks) HookConfig {
	c.OnParams = PassParams
	if h.Before != nil {
		c.OnParams = h.Before
	}
	c.OnSuccess = PassResult
	if h.After != nil {
		c.OnSuccess = h.After
	}
	return c
}
