// Package decorate wraps functions and objects with before, after and error
// hooks without the wrapped code knowing.
//
// Decorate accepts a target and a MethodBag. Every member of the target's
// invocable surface that has a before or after hook in the bag is replaced by
// a wrapper; everything else is left alone. The wrapper runs the before hook
// on the arguments, invokes the original member, then runs the after hook on
// the result, or the error hook on failure. Deferred results (*future.Future)
// are answered with a future that settles after the hooks ran.
//
// Failures are absorbed by default: the error hook logs and the call yields
// nil. An error hook that returns an error hands it back to the caller.
package decorate

import (
	"fmt"
	"reflect"

	"github.com/lexlapax/hookwrap/pkg/errors"
	"github.com/lexlapax/hookwrap/pkg/introspect"
	"github.com/lexlapax/hookwrap/pkg/log"
	"github.com/lexlapax/hookwrap/pkg/object"
)

// reservedCallableNames are never wrapped on function targets.
var reservedCallableNames = map[string]bool{
	"caller":    true,
	"arguments": true,
}

// Decorate dispatches on the kind of target:
//
//   - *object.Object: decorated in place, or replaced by a new callable
//     object when it is itself callable (see DecorateObject)
//   - object.Func: a new object.Func
//   - any other func: a new func of the same type (see DecorateFunc)
//   - pointer to struct: func fields replaced in place (see DecorateStruct)
func Decorate(target any, bag *MethodBag, opts ...Option) (any, error) {
	switch t := target.(type) {
	case nil:
		return nil, errors.ErrInvalidTarget
	case *object.Object:
		out, err := DecorateObject(t, bag, opts...)
		if err != nil {
			return nil, err
		}
		return out, nil
	case object.Func:
		out, err := decorateObjectFunc(t, bag, opts)
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	rv := reflect.ValueOf(target)
	switch {
	case rv.Kind() == reflect.Func:
		out, err := decorateFuncValue(rv, bag, opts)
		if err != nil {
			return nil, err
		}
		return out.Interface(), nil
	case rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Kind() == reflect.Struct:
		if err := DecorateStruct(target, bag, opts...); err != nil {
			return nil, err
		}
		return target, nil
	}
	return nil, fmt.Errorf("%w: %T", errors.ErrInvalidTarget, target)
}

// DecorateObject decorates obj.
//
// A plain object is mutated and returned. Each hooked member gets an own data
// property holding the wrapper; inherited members, accessors included, are
// resolved once and materialized on obj. A hook bound to an own accessor is an
// error.
//
// A callable object is wrapped as a whole with the bag's Default hooks and a
// new callable object is returned. Its prototype is obj, so unhooked members
// stay reachable; hooked members get own wrappers. Injected members land on
// the returned object in both cases.
func DecorateObject(obj *object.Object, bag *MethodBag, opts ...Option) (*object.Object, error) {
	if obj == nil {
		return nil, errors.ErrInvalidTarget
	}
	bag = bag.orEmpty()
	base := baseConfig(bag, buildOptions(opts))
	callable := obj.Callable()

	decorated := obj
	if callable {
		whole := wrapMember("", base.with(bag.Default), obj)
		decorated = object.NewFunction(whole, obj)
	}

	for _, name := range bag.memberNames() {
		if err := decorated.Set(name, bag.Members[name]); err != nil {
			return nil, errors.Wrap(err, "inject %q", name)
		}
	}

	for _, name := range introspect.ListInvocableMembers(obj) {
		if callable && reservedCallableNames[name] {
			continue
		}
		hooks, ok := bag.hooksFor(name)
		if !ok {
			continue
		}
		cfg := base.with(hooks)

		if callable {
			orig, err := obj.Get(name)
			if err != nil {
				return nil, errors.Wrap(err, "resolve %q", name)
			}
			if err := decorated.Set(name, wrapMember(name, cfg, orig)); err != nil {
				return nil, errors.Wrap(err, "install %q", name)
			}
			continue
		}

		desc, own := decorated.OwnPropertyDescriptor(name)
		if !own {
			v, err := decorated.Get(name)
			if err != nil {
				return nil, errors.Wrap(err, "resolve %q", name)
			}
			desc = object.DataDescriptor(v)
		}
		desc.Value = wrapMember(name, cfg, desc.Value)
		if err := decorated.DefineProperty(name, desc); err != nil {
			return nil, errors.Wrap(err, "install %q", name)
		}
	}

	log.Debug("Decorated object",
		"callable", callable,
		"hooked", len(bag.Hooks),
		"injected", len(bag.Members),
	)
	return decorated, nil
}

// DecorateFunc wraps fn with the bag's Default hooks and returns a function of
// the same type. Plain Go functions carry no properties, so a bag injecting
// members or hooking methods of fn's named type is rejected.
func DecorateFunc[F any](fn F, bag *MethodBag, opts ...Option) (F, error) {
	var zero F
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return zero, fmt.Errorf("%w: %T is not a function", errors.ErrInvalidTarget, fn)
	}
	out, err := decorateFuncValue(rv, bag, opts)
	if err != nil {
		return zero, err
	}
	return out.Interface().(F), nil
}

func decorateFuncValue(rv reflect.Value, bag *MethodBag, opts []Option) (reflect.Value, error) {
	if rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("%w: nil function", errors.ErrInvalidTarget)
	}
	bag = bag.orEmpty()
	if err := checkBareFunc(rv.Interface(), bag); err != nil {
		return reflect.Value{}, err
	}
	cfg := baseConfig(bag, buildOptions(opts)).with(bag.Default)
	return wrapTyped("", cfg, rv, nil), nil
}

func decorateObjectFunc(fn object.Func, bag *MethodBag, opts []Option) (object.Func, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil function", errors.ErrInvalidTarget)
	}
	bag = bag.orEmpty()
	if err := checkBareFunc(fn, bag); err != nil {
		return nil, err
	}
	cfg := baseConfig(bag, buildOptions(opts)).with(bag.Default)
	return wrapMember("", cfg, fn), nil
}

// checkBareFunc rejects bags that would need to set properties on a Go func.
func checkBareFunc(fn any, bag *MethodBag) error {
	if len(bag.Members) > 0 {
		return fmt.Errorf("%w: cannot inject members into a %T; use an *object.Object", errors.ErrNotSettable, fn)
	}
	for _, name := range introspect.ListInvocableMembers(fn) {
		if reservedCallableNames[name] {
			continue
		}
		if _, ok := bag.hooksFor(name); ok {
			return fmt.Errorf("%w: method %q of %T cannot be replaced", errors.ErrNotSettable, name, fn)
		}
	}
	return nil
}

// DecorateStruct decorates the struct ptr points to in place. Hooked members
// must be exported func fields, own or promoted from embedded structs; they
// are replaced by wrappers of the same type with ptr as context. Injected
// members must name assignable exported fields. Methods cannot be replaced
// and hooking one is an error.
func DecorateStruct(ptr any, bag *MethodBag, opts ...Option) error {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: want a non-nil pointer to struct, got %T", errors.ErrInvalidTarget, ptr)
	}
	bag = bag.orEmpty()
	base := baseConfig(bag, buildOptions(opts))
	elem := rv.Elem()

	for _, name := range bag.memberNames() {
		field, err := settableField(elem, name)
		if err != nil {
			return err
		}
		v, err := convertValue(bag.Members[name], field.Type())
		if err != nil {
			return fmt.Errorf("%w: inject %q: %v", errors.ErrNotSettable, name, err)
		}
		field.Set(v)
	}

	caps := introspect.Capabilities(ptr)
	for _, name := range bag.hookNames() {
		c, ok := caps.Lookup(name)
		if !ok {
			continue
		}
		field, err := settableField(elem, c.Name)
		if err != nil {
			return err
		}
		if field.Kind() != reflect.Func {
			return fmt.Errorf("%w: %q is a method", errors.ErrNotSettable, c.Name)
		}
		orig := reflect.ValueOf(field.Interface())
		field.Set(wrapTyped(c.Name, base.with(bag.Hooks[name]), orig, ptr))
	}
	return nil
}

func settableField(elem reflect.Value, name string) (reflect.Value, error) {
	sf, ok := elem.Type().FieldByName(name)
	if !ok {
		return reflect.Value{}, fmt.Errorf("%w: %s has no field %q", errors.ErrNotSettable, elem.Type(), name)
	}
	field, err := elem.FieldByIndexErr(sf.Index)
	if err != nil || !field.CanSet() {
		return reflect.Value{}, fmt.Errorf("%w: field %q", errors.ErrNotSettable, name)
	}
	return field, nil
}
