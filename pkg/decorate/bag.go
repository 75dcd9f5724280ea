package decorate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lexlapax/hookwrap/pkg/errors"
	"github.com/lexlapax/hookwrap/pkg/introspect"
)

// Method bag keys recognized by ParseBag.
const (
	BeforePrefix = "before_"
	AfterPrefix  = "after_"

	// DefaultMember names the hooks used when the target itself is a function
	DefaultMember = "default"

	ChronicleKey = "_chronicle"
	OnErrorKey   = "onError"
)

// Hooks is the before/after pair bound to one member name.
type Hooks struct {
	Before ParamsHook
	After  SuccessHook
}

// IsZero reports whether neither hook is set.
func (h Hooks) IsZero() bool {
	return h.Before == nil && h.After == nil
}

// MethodBag is everything supplied to Decorate besides the target.
type MethodBag struct {
	// Hooks binds member names to their hooks
	Hooks map[string]Hooks

	// Default wraps the target itself when it is a function
	Default Hooks

	// Members are injected onto the decorated target as is
	Members map[string]any

	// OnError overrides the process-wide error hook
	OnError ErrorHook

	// ObserveError sees every failure before the resolved error hook runs,
	// whichever hook that turns out to be
	ObserveError func(ErrorPayload)

	// Chronicle is an opaque tag threaded through every hook payload
	Chronicle any
}

// hooksFor returns the hooks bound to name, if any.
func (b *MethodBag) hooksFor(name string) (Hooks, bool) {
	h, ok := b.Hooks[name]
	if !ok || h.IsZero() {
		return Hooks{}, false
	}
	return h, true
}

func (b *MethodBag) orEmpty() *MethodBag {
	if b == nil {
		return &MethodBag{}
	}
	return b
}

// hookNames returns the names with at least one hook, sorted.
func (b *MethodBag) hookNames() []string {
	names := make([]string, 0, len(b.Hooks))
	for name, h := range b.Hooks {
		if !h.IsZero() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// memberNames returns the injected member names in a stable order.
func (b *MethodBag) memberNames() []string {
	names := make([]string, 0, len(b.Members))
	for name := range b.Members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseBag builds a MethodBag from a flat map following the naming
// convention: before_<name> and after_<name> bind hooks to <name>,
// before_default and after_default wrap a function target, _chronicle sets
// the chronicle and onError sets the error hook. Every other callable entry
// becomes an injected member; keys mentioning before_ or after_ never do.
func ParseBag(m map[string]any) (*MethodBag, error) {
	bag := &MethodBag{
		Hooks:     make(map[string]Hooks),
		Members:   make(map[string]any),
		Chronicle: m[ChronicleKey],
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		v := m[key]
		switch {
		case strings.HasPrefix(key, BeforePrefix):
			h, err := asParamsHook(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", errors.ErrInvalidHook, key, err)
			}
			name := strings.TrimPrefix(key, BeforePrefix)
			hooks := bag.Hooks[name]
			hooks.Before = h
			bag.Hooks[name] = hooks
		case strings.HasPrefix(key, AfterPrefix):
			h, err := asSuccessHook(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", errors.ErrInvalidHook, key, err)
			}
			name := strings.TrimPrefix(key, AfterPrefix)
			hooks := bag.Hooks[name]
			hooks.After = h
			bag.Hooks[name] = hooks
		case key == OnErrorKey:
			h, err := asErrorHook(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", errors.ErrInvalidHook, key, err)
			}
			bag.OnError = h
		}
	}
	bag.Default = bag.Hooks[DefaultMember]

	for _, name := range introspect.ListInvocableMembers(m) {
		if name == OnErrorKey || strings.Contains(name, BeforePrefix) || strings.Contains(name, AfterPrefix) {
			continue
		}
		bag.Members[name] = m[name]
	}
	return bag, nil
}

func asParamsHook(v any) (ParamsHook, error) {
	switch h := v.(type) {
	case ParamsHook:
		return h, nil
	case func(ParamsPayload) ([]any, error):
		return h, nil
	case func(ParamsPayload) []any:
		return func(p ParamsPayload) ([]any, error) { return h(p), nil }, nil
	}
	return nil, fmt.Errorf("want a params hook, got %T", v)
}

func asSuccessHook(v any) (SuccessHook, error) {
	switch h := v.(type) {
	case SuccessHook:
		return h, nil
	case func(SuccessPayload) any:
		return h, nil
	}
	return nil, fmt.Errorf("want a success hook, got %T", v)
}

func asErrorHook(v any) (ErrorHook, error) {
	switch h := v.(type) {
	case ErrorHook:
		return h, nil
	case func(ErrorPayload) error:
		return h, nil
	case func(ErrorPayload):
		return func(p ErrorPayload) error { h(p); return nil }, nil
	}
	return nil, fmt.Errorf("want an error hook, got %T", v)
}
