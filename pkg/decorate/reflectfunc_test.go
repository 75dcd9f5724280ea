package decorate

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	hwerrors "github.com/lexlapax/hookwrap/pkg/errors"
	"github.com/lexlapax/hookwrap/pkg/future"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecorateFunc_DefaultHooks(t *testing.T) {
	var order []string
	add := func(a, b int) int {
		order = append(order, "call")
		return a + b
	}

	bag := &MethodBag{Default: Hooks{
		Before: func(p ParamsPayload) ([]any, error) {
			order = append(order, "before")
			assert.Equal(t, "", p.Method)
			assert.Nil(t, p.Context)
			return []any{p.Params[0].(int) * 10, p.Params[1]}, nil
		},
		After: func(p SuccessPayload) any {
			order = append(order, "after")
			return p.Result.(int) + 1
		},
	}}

	wrapped, err := DecorateFunc(add, bag)
	require.NoError(t, err)

	assert.Equal(t, 23, wrapped(2, 2))
	assert.Equal(t, []string{"before", "call", "after"}, order)

	order = nil
	assert.Equal(t, 12, wrapped(1, 1))
	assert.Equal(t, []string{"before", "call", "after"}, order)
}

func TestDecorateFunc_ErrorResult(t *testing.T) {
	boom := errors.New("boom")
	parse := func(s string) (int, error) {
		if s == "" {
			return 0, boom
		}
		return len(s), nil
	}

	rec := &errorRecorder{}
	wrapped, err := DecorateFunc(parse, &MethodBag{OnError: rec.hook})
	require.NoError(t, err)

	n, err := wrapped("abc")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = wrapped("")
	assert.NoError(t, err, "errors are absorbed by default")
	assert.Equal(t, 0, n)
	require.Len(t, rec.payloads, 1)
	assert.ErrorIs(t, rec.payloads[0].Error, boom)

	rethrowing, err := DecorateFunc(parse, nil, WithErrorHook(func(p ErrorPayload) error {
		return fmt.Errorf("wrapped: %w", p.Error)
	}))
	require.NoError(t, err)
	_, err = rethrowing("")
	assert.ErrorIs(t, err, boom)
}

func TestDecorateFunc_RethrowWithoutErrorResultPanics(t *testing.T) {
	boom := errors.New("boom")
	explode := func() int { panic(boom) }

	wrapped, err := DecorateFunc(explode, nil, WithErrorHook(func(p ErrorPayload) error {
		return p.Error
	}))
	require.NoError(t, err)

	assert.PanicsWithError(t, hwerrors.FromPanic(boom).Error(), func() { wrapped() })
}

func TestDecorateFunc_Variadic(t *testing.T) {
	join := func(sep string, parts ...string) string {
		return strings.Join(parts, sep)
	}

	var seen []any
	bag := &MethodBag{Default: Hooks{Before: func(p ParamsPayload) ([]any, error) {
		seen = p.Params
		return append(p.Params, "tail"), nil
	}}}
	wrapped, err := DecorateFunc(join, bag)
	require.NoError(t, err)

	assert.Equal(t, "a-b-tail", wrapped("-", "a", "b"))
	assert.Equal(t, []any{"-", "a", "b"}, seen)
}

func TestDecorateFunc_ParamMismatch(t *testing.T) {
	double := func(n int) int { return n * 2 }

	rec := &errorRecorder{}
	bag := &MethodBag{
		Default: Hooks{Before: func(p ParamsPayload) ([]any, error) {
			return []any{"not a number"}, nil
		}},
		OnError: rec.hook,
	}
	wrapped, err := DecorateFunc(double, bag)
	require.NoError(t, err)

	assert.Equal(t, 0, wrapped(4))
	require.Len(t, rec.payloads, 1)
	assert.ErrorIs(t, rec.payloads[0].Error, hwerrors.ErrParamMismatch)
}

func TestDecorateFunc_NumericConversion(t *testing.T) {
	square := func(n int) int64 { return int64(n * n) }

	bag := &MethodBag{Default: Hooks{
		Before: func(p ParamsPayload) ([]any, error) { return []any{float64(3)}, nil },
		After:  func(p SuccessPayload) any { return p.Result.(int64) + 1 },
	}}
	wrapped, err := DecorateFunc(square, bag)
	require.NoError(t, err)
	assert.Equal(t, int64(10), wrapped(100))
}

func TestDecorateFunc_MultipleResults(t *testing.T) {
	split := func(s string) (string, string, error) {
		head, tail, _ := strings.Cut(s, ":")
		return head, tail, nil
	}

	bag := &MethodBag{Default: Hooks{After: func(p SuccessPayload) any {
		vals := p.Result.([]any)
		return []any{vals[1], vals[0]}
	}}}
	wrapped, err := DecorateFunc(split, bag)
	require.NoError(t, err)

	a, b, err := wrapped("left:right")
	require.NoError(t, err)
	assert.Equal(t, "right", a)
	assert.Equal(t, "left", b)
}

func TestDecorateFunc_Deferred(t *testing.T) {
	fetch := func(id int) *future.Future {
		return future.Go(func() (any, error) { return id * 100, nil })
	}

	bag := &MethodBag{Default: Hooks{After: func(p SuccessPayload) any {
		return p.Result.(int) + 1
	}}}
	wrapped, err := DecorateFunc(fetch, bag)
	require.NoError(t, err)

	assert.Equal(t, 201, awaitValue(t, wrapped(2)))
}

type greeter func(name string) string

func (greeter) Describe() string { return "greets" }

func TestDecorateFunc_RejectsProperties(t *testing.T) {
	g := greeter(func(name string) string { return "hi " + name })

	_, err := DecorateFunc(g, &MethodBag{Members: map[string]any{"helper": func() {}}})
	assert.ErrorIs(t, err, hwerrors.ErrNotSettable)

	_, err = DecorateFunc(g, &MethodBag{Hooks: map[string]Hooks{"Describe": {After: PassResult}}})
	assert.ErrorIs(t, err, hwerrors.ErrNotSettable)

	wrapped, err := DecorateFunc(g, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi bob", wrapped("bob"))

	_, err = DecorateFunc(42, nil)
	assert.ErrorIs(t, err, hwerrors.ErrInvalidTarget)

	var nilFn func()
	_, err = DecorateFunc(nilFn, nil)
	assert.ErrorIs(t, err, hwerrors.ErrInvalidTarget)
}

type store struct {
	Load func(key string) (string, error)
}

type cachedStore struct {
	store

	Save  func(key, value string) error
	Stats func() int
	Name  string
	saved map[string]string
}

func (c *cachedStore) Flush() error { return nil }

func newCachedStore() *cachedStore {
	c := &cachedStore{saved: make(map[string]string), Name: "cache"}
	c.Load = func(key string) (string, error) {
		v, ok := c.saved[key]
		if !ok {
			return "", fmt.Errorf("missing %q", key)
		}
		return v, nil
	}
	c.Save = func(key, value string) error {
		c.saved[key] = value
		return nil
	}
	c.Stats = func() int { return len(c.saved) }
	return c
}

func TestDecorateStruct_InPlace(t *testing.T) {
	c := newCachedStore()
	var contexts []any

	bag, err := ParseBag(map[string]any{
		"before_Save": func(p ParamsPayload) ([]any, error) {
			contexts = append(contexts, p.Context)
			return []any{strings.ToUpper(p.Params[0].(string)), p.Params[1]}, nil
		},
		"after_Load": func(p SuccessPayload) any {
			contexts = append(contexts, p.Context)
			return "<" + p.Result.(string) + ">"
		},
	})
	require.NoError(t, err)

	out, err := Decorate(c, bag, WithErrorHook(func(ErrorPayload) error { return nil }))
	require.NoError(t, err)
	assert.Same(t, c, out)

	require.NoError(t, c.Save("k", "v"))
	v, err := c.Load("K")
	require.NoError(t, err)
	assert.Equal(t, "<v>", v)

	v, err = c.Load("absent")
	assert.NoError(t, err)
	assert.Equal(t, "", v)

	assert.Equal(t, 1, c.Stats(), "unhooked fields are untouched")
	require.Len(t, contexts, 2)
	assert.Same(t, c, contexts[0])
}

func TestDecorateStruct_Errors(t *testing.T) {
	c := newCachedStore()

	err := DecorateStruct(c, &MethodBag{Hooks: map[string]Hooks{"Flush": {Before: PassParams}}})
	assert.ErrorIs(t, err, hwerrors.ErrNotSettable)

	err = DecorateStruct(c, &MethodBag{Members: map[string]any{"Missing": func() {}}})
	assert.ErrorIs(t, err, hwerrors.ErrNotSettable)

	err = DecorateStruct(c, &MethodBag{Members: map[string]any{"Stats": func() string { return "" }}})
	assert.ErrorIs(t, err, hwerrors.ErrNotSettable)

	err = DecorateStruct(*c, nil)
	assert.ErrorIs(t, err, hwerrors.ErrInvalidTarget)
}

func TestDecorateStruct_Injection(t *testing.T) {
	c := newCachedStore()
	err := DecorateStruct(c, &MethodBag{Members: map[string]any{
		"Stats": func() int { return -1 },
	}})
	require.NoError(t, err)
	assert.Equal(t, -1, c.Stats())
}

func TestDecorateStruct_HooksOutsideSurface(t *testing.T) {
	c := newCachedStore()
	calls := 0
	count := func(p ParamsPayload) ([]any, error) {
		calls++
		return p.Params, nil
	}

	bag := &MethodBag{Hooks: map[string]Hooks{
		"saved":   {Before: count},
		"Name":    {Before: count},
		"Missing": {Before: count},
		"Stats":   {},
		"Save":    {Before: count},
	}}
	assert.Equal(t, []string{"Missing", "Name", "Save", "saved"}, bag.hookNames())

	require.NoError(t, DecorateStruct(c, bag))
	require.NoError(t, c.Save("k", "v"))
	assert.Equal(t, 1, c.Stats())
	assert.Equal(t, 1, calls)
}
