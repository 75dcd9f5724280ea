// Package introspect lists the invocable surface of a value.
//
// The surface is collected level by level along the value's ownership chain:
// the prototype chain of an *object.Object, or the embedding chain of a Go
// struct. The result is an immutable registry of capabilities, deduplicated
// by name, with constructors and underscore-prefixed names removed.
package introspect

import (
	"reflect"
	"sort"
	"strings"

	"github.com/lexlapax/hookwrap/pkg/object"
)

// Kind tells how a capability is reached.
type Kind int

const (
	// Method is a callable member
	Method Kind = iota
	// Accessor is a getter-style member
	Accessor
)

func (k Kind) String() string {
	if k == Accessor {
		return "accessor"
	}
	return "method"
}

// constructorName is never part of a surface.
const constructorName = "constructor"

// Capability describes one invocable member.
type Capability struct {
	Name  string
	Kind  Kind
	Level int // 0 for own members, +1 per step up the chain
}

// Set is an ordered, deduplicated collection of capabilities.
type Set struct {
	caps  []Capability
	index map[string]int
}

// Capabilities walks target's chain and returns its invocable surface.
// Supported targets are *object.Object, map[string]any, structs, pointers to
// structs and (named) func types. Anything else yields an empty set.
func Capabilities(target any) Set {
	var raw []Capability
	switch t := target.(type) {
	case nil:
	case *object.Object:
		raw = objectChain(t, 0)
	case map[string]any:
		raw = mapLevel(t)
	default:
		raw = typeChain(reflect.TypeOf(target), 0, make(map[reflect.Type]bool))
	}
	return newSet(raw)
}

// ListInvocableMembers returns the names in target's surface.
func ListInvocableMembers(target any) []string {
	return Capabilities(target).Names()
}

func newSet(raw []Capability) Set {
	s := Set{index: make(map[string]int, len(raw))}
	for _, c := range raw {
		if _, dup := s.index[c.Name]; dup {
			continue
		}
		if c.Name == constructorName || strings.HasPrefix(c.Name, "_") {
			continue
		}
		s.index[c.Name] = len(s.caps)
		s.caps = append(s.caps, c)
	}
	return s
}

// Names returns the capability names in discovery order.
func (s Set) Names() []string {
	names := make([]string, len(s.caps))
	for i, c := range s.caps {
		names[i] = c.Name
	}
	return names
}

// All returns a copy of the capabilities in discovery order.
func (s Set) All() []Capability {
	out := make([]Capability, len(s.caps))
	copy(out, s.caps)
	return out
}

// Lookup returns the capability registered under name.
func (s Set) Lookup(name string) (Capability, bool) {
	i, ok := s.index[name]
	if !ok {
		return Capability{}, false
	}
	return s.caps[i], true
}

// Has reports whether name is part of the surface.
func (s Set) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Len returns the number of capabilities.
func (s Set) Len() int {
	return len(s.caps)
}

func objectChain(o *object.Object, level int) []Capability {
	if o == nil {
		return nil
	}
	var caps []Capability
	for _, name := range o.OwnNames() {
		d, _ := o.OwnPropertyDescriptor(name)
		switch {
		case d.IsAccessor():
			caps = append(caps, Capability{Name: name, Kind: Accessor, Level: level})
		case object.IsCallable(d.Value):
			caps = append(caps, Capability{Name: name, Kind: Method, Level: level})
		}
	}
	return append(caps, objectChain(o.Proto(), level+1)...)
}

func mapLevel(m map[string]any) []Capability {
	var caps []Capability
	for name, v := range m {
		if object.IsCallable(v) {
			caps = append(caps, Capability{Name: name, Kind: Method})
		}
	}
	// map iteration order is random; keep the registry stable
	sort.Slice(caps, func(i, j int) bool { return caps[i].Name < caps[j].Name })
	return caps
}

// typeChain collects own func fields and declared methods of t, then recurses
// into embedded structs one level deeper. reflect cannot tell an own method
// from one that shadows an embedded method of the same name, so the latter
// is reported at the embedded level.
func typeChain(t reflect.Type, level int, seen map[reflect.Type]bool) []Capability {
	if t == nil || seen[t] {
		return nil
	}
	seen[t] = true

	st := t
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}

	var caps []Capability
	var embedded []reflect.Type
	promoted := make(map[string]bool)

	if st.Kind() == reflect.Struct {
		for i := 0; i < st.NumField(); i++ {
			f := st.Field(i)
			if f.Anonymous {
				et := f.Type
				if et.Kind() == reflect.Struct {
					et = reflect.PointerTo(et)
				}
				embedded = append(embedded, et)
				markMethods(et, promoted)
				continue
			}
			if f.IsExported() && f.Type.Kind() == reflect.Func {
				caps = append(caps, Capability{Name: f.Name, Kind: Method, Level: level})
			}
		}
	}

	// method types of concrete types carry the receiver as first input
	recv := 1
	if t.Kind() == reflect.Interface {
		recv = 0
	}
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if promoted[m.Name] {
			continue
		}
		kind := Method
		if m.Type.NumIn() == recv && m.Type.NumOut() == 1 {
			kind = Accessor
		}
		caps = append(caps, Capability{Name: m.Name, Kind: kind, Level: level})
	}

	for _, et := range embedded {
		caps = append(caps, typeChain(et, level+1, seen)...)
	}
	return caps
}

func markMethods(t reflect.Type, into map[string]bool) {
	for i := 0; i < t.NumMethod(); i++ {
		into[t.Method(i).Name] = true
	}
}
