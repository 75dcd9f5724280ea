package object

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/lexlapax/hookwrap/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(v any) Func {
	return func(this *Object, args ...any) (any, error) {
		return v, nil
	}
}

func TestObject_PrototypeLookup(t *testing.T) {
	base := New(nil).Method("greet", constant("hello"))
	derived := New(base).Method("shout", constant("HEY"))
	inst := New(derived)

	assert.Same(t, derived, inst.Proto())
	assert.Nil(t, base.Proto())
	assert.False(t, inst.HasOwn("greet"))

	v, err := inst.Call("greet")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	v, err = inst.Call("shout")
	require.NoError(t, err)
	assert.Equal(t, "HEY", v)

	missing, err := inst.Get("nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestObject_ReceiverIsCaller(t *testing.T) {
	base := New(nil).Method("name", func(this *Object, args ...any) (any, error) {
		return this.Get("label")
	})
	inst := New(base)
	require.NoError(t, inst.Set("label", "instance"))

	v, err := inst.Call("name")
	require.NoError(t, err)
	assert.Equal(t, "instance", v)
}

func TestObject_Accessor(t *testing.T) {
	calls := 0
	base := New(nil).Accessor("size", func(this *Object, args ...any) (any, error) {
		calls++
		return 3, nil
	})
	inst := New(base)

	v, err := inst.Get("size")
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.Equal(t, 1, calls)

	err = base.Set("size", 4)
	assert.ErrorIs(t, err, errors.ErrNotWritable)
}

func TestObject_DefineProperty(t *testing.T) {
	o := New(nil)

	err := o.DefineProperty("both", Descriptor{Value: 1, Get: constant(2)})
	assert.ErrorIs(t, err, errors.ErrInvalidDescriptor)

	require.NoError(t, o.DefineProperty("fixed", Descriptor{Value: 1}))
	err = o.DefineProperty("fixed", DataDescriptor(2))
	assert.ErrorIs(t, err, errors.ErrNotConfigurable)

	require.NoError(t, o.DefineProperty("open", Descriptor{Value: 1, Writable: true}))
	require.NoError(t, o.DefineProperty("open", DataDescriptor(2)))
	v, _ := o.Get("open")
	assert.Equal(t, 2, v)

	assert.Equal(t, []string{"fixed", "open"}, o.OwnNames())
}

func TestObject_BuilderRejectedDefinition(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	o := New(nil)
	require.NoError(t, o.DefineProperty("fixed", Descriptor{Value: constant("old")}))

	assert.Same(t, o, o.Method("fixed", constant("new")).Accessor("fixed", constant("getter")))

	v, err := o.Call("fixed")
	require.NoError(t, err)
	assert.Equal(t, "old", v)
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("Ignored object member definition")))
	assert.Contains(t, buf.String(), "name=fixed")
}

func TestObject_CallNotCallable(t *testing.T) {
	o := New(nil)
	require.NoError(t, o.Set("data", 42))

	_, err := o.Call("data")
	assert.ErrorIs(t, err, errors.ErrNotCallable)

	_, err = o.Invoke(nil)
	assert.ErrorIs(t, err, errors.ErrNotCallable)
}

func TestFunctionObject(t *testing.T) {
	fn := NewFunction(func(this *Object, args ...any) (any, error) {
		return len(args), nil
	}, nil)

	assert.True(t, fn.Callable())
	assert.True(t, IsCallable(fn))
	assert.False(t, IsCallable(New(nil)))

	v, err := Apply(fn, nil, []any{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestIsCallable(t *testing.T) {
	var nilFunc Func
	assert.False(t, IsCallable(nil))
	assert.False(t, IsCallable(nilFunc))
	assert.False(t, IsCallable(7))
	assert.True(t, IsCallable(constant(1)))
	assert.True(t, IsCallable(func() {}))
}
