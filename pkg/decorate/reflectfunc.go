package decorate

import (
	"fmt"
	"reflect"

	"github.com/lexlapax/hookwrap/pkg/errors"
	"github.com/lexlapax/hookwrap/pkg/log"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// wrapTyped builds a function of fn's exact type that runs fn through cfg.
//
// Hooks see the logical argument list (variadic arguments flattened) and a
// result made of every non-error return value: nil for none, the value for
// one, []any for several. A trailing error return marks failure.
func wrapTyped(name string, cfg HookConfig, fn reflect.Value, recv any) reflect.Value {
	ft := fn.Type()
	errIdx := errorIndex(ft)

	call := func(_ any, params []any) (any, error) {
		in, err := buildArgs(ft, params)
		if err != nil {
			return nil, err
		}
		return splitResults(fn.Call(in), errIdx)
	}

	return reflect.MakeFunc(ft, func(in []reflect.Value) []reflect.Value {
		out, err := intercept(name, cfg, call, recv, flattenArgs(ft, in))
		return packResults(name, ft, errIdx, out, err)
	})
}

// errorIndex returns the index of a trailing error result, or -1.
func errorIndex(ft reflect.Type) int {
	n := ft.NumOut()
	if n > 0 && ft.Out(n-1) == errorType {
		return n - 1
	}
	return -1
}

func flattenArgs(ft reflect.Type, in []reflect.Value) []any {
	args := make([]any, 0, len(in))
	for i, v := range in {
		if ft.IsVariadic() && i == len(in)-1 {
			for j := 0; j < v.Len(); j++ {
				args = append(args, v.Index(j).Interface())
			}
			break
		}
		args = append(args, v.Interface())
	}
	return args
}

// buildArgs converts params back to fn's parameter types. Variadic
// parameters are passed one by one; reflect builds the slice.
func buildArgs(ft reflect.Type, params []any) ([]reflect.Value, error) {
	fixed := ft.NumIn()
	if ft.IsVariadic() {
		fixed--
		if len(params) < fixed {
			return nil, fmt.Errorf("%w: want at least %d params, got %d", errors.ErrParamMismatch, fixed, len(params))
		}
	} else if len(params) != fixed {
		return nil, fmt.Errorf("%w: want %d params, got %d", errors.ErrParamMismatch, fixed, len(params))
	}

	in := make([]reflect.Value, len(params))
	for i, p := range params {
		var t reflect.Type
		if i < fixed {
			t = ft.In(i)
		} else {
			t = ft.In(fixed).Elem()
		}
		v, err := convertValue(p, t)
		if err != nil {
			return nil, fmt.Errorf("param %d: %w", i, err)
		}
		in[i] = v
	}
	return in, nil
}

func splitResults(outs []reflect.Value, errIdx int) (any, error) {
	if errIdx >= 0 && !outs[errIdx].IsNil() {
		return nil, outs[errIdx].Interface().(error)
	}
	vals := make([]any, 0, len(outs))
	for i, o := range outs {
		if i == errIdx {
			continue
		}
		vals = append(vals, o.Interface())
	}
	switch len(vals) {
	case 0:
		return nil, nil
	case 1:
		return vals[0], nil
	default:
		return vals, nil
	}
}

// packResults maps the intercepted outcome back onto ft's results. A failure
// leaves zero values; an error handed back by OnError goes into the error
// slot, or is raised as a panic when the signature has none.
func packResults(name string, ft reflect.Type, errIdx int, out any, err error) []reflect.Value {
	res := make([]reflect.Value, ft.NumOut())
	var idx []int
	for i := range res {
		res[i] = reflect.Zero(ft.Out(i))
		if i != errIdx {
			idx = append(idx, i)
		}
	}

	if err != nil {
		if errIdx < 0 {
			panic(err)
		}
		res[errIdx] = reflect.ValueOf(&err).Elem()
		return res
	}

	var vals []any
	switch len(idx) {
	case 0:
		return res
	case 1:
		vals = []any{out}
	default:
		var ok bool
		if vals, ok = out.([]any); !ok || len(vals) != len(idx) {
			log.Warn("Decorated result does not fit signature, returning zero values",
				"method", name,
				"want", len(idx),
			)
			return res
		}
	}

	for j, i := range idx {
		v, cerr := convertValue(vals[j], ft.Out(i))
		if cerr != nil {
			log.Warn("Decorated result does not fit signature, returning zero value",
				"method", name,
				"index", i,
				"error", cerr,
			)
			continue
		}
		res[i] = v
	}
	return res
}

// convertValue turns v into a value of type t. nil maps to the zero value;
// numbers convert across numeric kinds.
func convertValue(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == t {
		return rv, nil
	}
	// MakeFunc results must carry the exact declared type
	if rv.Type().AssignableTo(t) {
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out, nil
	}
	if isNumeric(rv.Kind()) && isNumeric(t.Kind()) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: cannot use %T as %s", errors.ErrParamMismatch, v, t)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
