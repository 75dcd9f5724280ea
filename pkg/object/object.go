// Package object provides dynamic objects with an explicit prototype chain.
//
// An Object owns a set of named properties and delegates lookups it cannot
// satisfy to its prototype. Properties are either data properties (Value) or
// accessors (Get). An Object created with NewFunction is also callable.
package object

import (
	"fmt"
	"reflect"

	"github.com/lexlapax/hookwrap/pkg/errors"
	"github.com/lexlapax/hookwrap/pkg/log"
)

// Func is the signature of every callable member of an Object.
// this is the receiver the member was looked up on.
type Func func(this *Object, args ...any) (any, error)

// Descriptor describes a single property.
type Descriptor struct {
	// Value holds the data of a data property
	Value any

	// Get computes the value of an accessor property
	Get Func

	Writable     bool
	Enumerable   bool
	Configurable bool
}

// IsAccessor reports whether d describes an accessor property.
func (d Descriptor) IsAccessor() bool {
	return d.Get != nil
}

// DataDescriptor returns a writable, enumerable, configurable data descriptor.
func DataDescriptor(v any) Descriptor {
	return Descriptor{Value: v, Writable: true, Enumerable: true, Configurable: true}
}

// Object is a dynamic object. The zero value is not usable; use New.
type Object struct {
	proto *Object
	props map[string]*Descriptor
	order []string
	fn    Func
}

// New creates an empty object whose prototype is proto. A nil proto makes
// the object a chain root.
func New(proto *Object) *Object {
	return &Object{
		proto: proto,
		props: make(map[string]*Descriptor),
	}
}

// NewFunction creates a callable object running fn when invoked.
func NewFunction(fn Func, proto *Object) *Object {
	o := New(proto)
	o.fn = fn
	return o
}

// Proto returns the prototype, or nil at the end of the chain.
func (o *Object) Proto() *Object {
	if o == nil {
		return nil
	}
	return o.proto
}

// Callable reports whether the object itself can be invoked.
func (o *Object) Callable() bool {
	return o != nil && o.fn != nil
}

// Invoke runs the object's function body with the given receiver.
func (o *Object) Invoke(this *Object, args ...any) (any, error) {
	if !o.Callable() {
		return nil, errors.ErrNotCallable
	}
	return o.fn(this, args...)
}

// DefineProperty installs d as the own property name, replacing any existing
// own property.
func (o *Object) DefineProperty(name string, d Descriptor) error {
	if d.Get != nil && d.Value != nil {
		return fmt.Errorf("%w: %q has both accessor and value", errors.ErrInvalidDescriptor, name)
	}
	if cur, ok := o.props[name]; ok {
		if !cur.Configurable && !(cur.Writable && !d.IsAccessor()) {
			return fmt.Errorf("%w: %q", errors.ErrNotConfigurable, name)
		}
		*cur = d
		return nil
	}
	nd := d
	o.props[name] = &nd
	o.order = append(o.order, name)
	return nil
}

// OwnPropertyDescriptor returns a copy of the own property name.
func (o *Object) OwnPropertyDescriptor(name string) (Descriptor, bool) {
	if o == nil {
		return Descriptor{}, false
	}
	d, ok := o.props[name]
	if !ok {
		return Descriptor{}, false
	}
	return *d, true
}

// HasOwn reports whether name is an own property.
func (o *Object) HasOwn(name string) bool {
	_, ok := o.OwnPropertyDescriptor(name)
	return ok
}

// OwnNames returns the own property names in definition order.
func (o *Object) OwnNames() []string {
	if o == nil {
		return nil
	}
	names := make([]string, len(o.order))
	copy(names, o.order)
	return names
}

// Lookup finds the descriptor for name on o or its prototype chain.
func (o *Object) Lookup(name string) (Descriptor, bool) {
	for cur := o; cur != nil; cur = cur.proto {
		if d, ok := cur.props[name]; ok {
			return *d, true
		}
	}
	return Descriptor{}, false
}

// Get resolves name along the chain. Accessors run with o as receiver.
// A missing property yields nil.
func (o *Object) Get(name string) (any, error) {
	d, ok := o.Lookup(name)
	if !ok {
		return nil, nil
	}
	if d.IsAccessor() {
		return d.Get(o)
	}
	return d.Value, nil
}

// Set assigns a data property on o. A new property is created writable,
// enumerable and configurable.
func (o *Object) Set(name string, v any) error {
	if cur, ok := o.props[name]; ok {
		if cur.IsAccessor() || !cur.Writable {
			return fmt.Errorf("%w: %q is read-only", errors.ErrNotWritable, name)
		}
		cur.Value = v
		return nil
	}
	return o.DefineProperty(name, DataDescriptor(v))
}

// Method defines a callable data property. It returns o for chaining.
// The builders are meant for fresh objects; a definition DefineProperty
// rejects is logged and skipped.
func (o *Object) Method(name string, fn Func) *Object {
	o.build(name, DataDescriptor(fn))
	return o
}

// Accessor defines a getter. It returns o for chaining.
func (o *Object) Accessor(name string, get Func) *Object {
	o.build(name, Descriptor{Get: get, Enumerable: true, Configurable: true})
	return o
}

func (o *Object) build(name string, d Descriptor) {
	if err := o.DefineProperty(name, d); err != nil {
		log.Warn("Ignored object member definition", "name", name, "error", err)
	}
}

// Call looks up name and invokes it with o as receiver.
func (o *Object) Call(name string, args ...any) (any, error) {
	v, err := o.Get(name)
	if err != nil {
		return nil, err
	}
	if !IsCallable(v) {
		return nil, fmt.Errorf("%w: %q", errors.ErrNotCallable, name)
	}
	return Apply(v, o, args)
}

// IsCallable reports whether v can be passed to Apply. Plain Go functions
// count as callable so that introspection sees them, even though Apply only
// runs Func values and callable objects.
func IsCallable(v any) bool {
	switch fn := v.(type) {
	case nil:
		return false
	case Func:
		return fn != nil
	case *Object:
		return fn.Callable()
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Func && !rv.IsNil()
}

// Apply invokes fn with receiver this.
func Apply(fn any, this *Object, args []any) (any, error) {
	switch f := fn.(type) {
	case Func:
		if f == nil {
			return nil, errors.ErrNotCallable
		}
		return f(this, args...)
	case func(this *Object, args ...any) (any, error):
		return f(this, args...)
	case *Object:
		return f.Invoke(this, args...)
	}
	return nil, fmt.Errorf("%w: %T", errors.ErrNotCallable, fn)
}
