package decorate

import (
	"github.com/lexlapax/hookwrap/pkg/errors"
	"github.com/lexlapax/hookwrap/pkg/future"
	"github.com/lexlapax/hookwrap/pkg/object"
)

// Result is what a wrapped member produced: either an immediate value or a
// deferred one. Exactly one of the two is meaningful.
type Result struct {
	Value    any
	Deferred *future.Future
}

// IsDeferred reports whether the result settles later.
func (r Result) IsDeferred() bool {
	return r.Deferred != nil
}

// Classify resolves the shape of a raw return value once.
func Classify(v any) Result {
	if f, ok := v.(*future.Future); ok && f != nil {
		return Result{Deferred: f}
	}
	return Result{Value: v}
}

// invoker runs the original member with the settled params.
type invoker func(recv any, params []any) (any, error)

// intercept runs one call of fn through cfg.
//
// The before hook and the invocation share one recovery boundary: an error
// or panic from either goes to OnError. A deferred result is answered with a
// new future settled after the hooks ran. The returned error is non-nil only
// when OnError hands one back.
func intercept(method string, cfg HookConfig, fn invoker, recv any, args []any) (any, error) {
	inv := Invocation{
		Method:    method,
		Chronicle: cfg.Chronicle,
		Context:   recv,
		RawParams: args,
	}

	res, err := invokeGuarded(cfg, &inv, fn)
	if err != nil {
		return nil, cfg.fail(inv, err)
	}

	if res.IsDeferred() {
		return res.Deferred.Then(
			func(v any) (any, error) {
				return cfg.succeed(inv, v)
			},
			func(cause error) (any, error) {
				return nil, cfg.fail(inv, cause)
			},
		), nil
	}
	return cfg.succeed(inv, res.Value)
}

func invokeGuarded(cfg HookConfig, inv *Invocation, fn invoker) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.FromPanic(r)
		}
	}()

	params, err := cfg.OnParams(ParamsPayload{
		Params:    inv.RawParams,
		Context:   inv.Context,
		Method:    inv.Method,
		Chronicle: inv.Chronicle,
	})
	if err != nil {
		return Result{}, err
	}
	inv.Params = params

	v, err := fn(inv.Context, params)
	if err != nil {
		return Result{}, err
	}
	return Classify(v), nil
}

// succeed runs the after hook. A panic there is treated as a failure of the call.
func (c HookConfig) succeed(inv Invocation, result any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, c.fail(inv, errors.FromPanic(r))
		}
	}()
	return c.OnSuccess(SuccessPayload{Invocation: inv, Result: result}), nil
}

func (c HookConfig) fail(inv Invocation, cause error) error {
	return c.OnError(ErrorPayload{Invocation: inv, Error: cause})
}

// wrapMember returns a Func running orig through cfg. orig need not be
// callable; invoking a non-callable member fails through OnError.
func wrapMember(name string, cfg HookConfig, orig any) object.Func {
	call := func(recv any, params []any) (any, error) {
		this, _ := recv.(*object.Object)
		return object.Apply(orig, this, params)
	}
	return func(this *object.Object, args ...any) (any, error) {
		return intercept(name, cfg, call, receiver(this), args)
	}
}

// receiver keeps a nil *object.Object from turning into a non-nil interface.
func receiver(this *object.Object) any {
	if this == nil {
		return nil
	}
	return this
}
