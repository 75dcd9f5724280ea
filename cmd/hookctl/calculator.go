package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/lexlapax/hookwrap/pkg/future"
	"github.com/lexlapax/hookwrap/pkg/object"
)

var errDivisionByZero = errors.New("division by zero")

// newCalculator builds the demo target: add and sub live on the prototype,
// mul, div and slow on the object itself, and _precision stays private.
func newCalculator() *object.Object {
	base := object.New(nil).
		Method("add", binary(func(a, b float64) (any, error) { return a + b, nil })).
		Method("sub", binary(func(a, b float64) (any, error) { return a - b, nil }))

	return object.New(base).
		Method("mul", binary(func(a, b float64) (any, error) { return a * b, nil })).
		Method("div", binary(func(a, b float64) (any, error) {
			if b == 0 {
				return nil, errDivisionByZero
			}
			return a / b, nil
		})).
		Method("slow", binary(func(a, b float64) (any, error) {
			return future.Go(func() (any, error) {
				time.Sleep(10 * time.Millisecond)
				return a + b, nil
			}), nil
		})).
		Method("_precision", func(this *object.Object, args ...any) (any, error) {
			return 64, nil
		}).
		Accessor("model", func(this *object.Object, args ...any) (any, error) {
			return "hookctl demo calculator", nil
		})
}

func binary(fn func(a, b float64) (any, error)) object.Func {
	return func(this *object.Object, args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("want 2 operands, got %d", len(args))
		}
		a, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("operand %v is not a number", args[0])
		}
		b, ok := args[1].(float64)
		if !ok {
			return nil, fmt.Errorf("operand %v is not a number", args[1])
		}
		return fn(a, b)
	}
}
