// Package hookwrap is the facade tying configuration, Lua method bags, the
// call journal and the decorate engine together.
package hookwrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lexlapax/hookwrap/pkg/config"
	"github.com/lexlapax/hookwrap/pkg/decorate"
	hwerrors "github.com/lexlapax/hookwrap/pkg/errors"
	"github.com/lexlapax/hookwrap/pkg/introspect"
	"github.com/lexlapax/hookwrap/pkg/journal"
	"github.com/lexlapax/hookwrap/pkg/log"
	"github.com/lexlapax/hookwrap/pkg/luahooks"
	"github.com/lexlapax/hookwrap/pkg/object"
	"github.com/lexlapax/hookwrap/pkg/scripting"
)

// Runtime decorates targets with the method bag loaded from hook scripts.
type Runtime struct {
	config  *config.Config
	engine  scripting.Engine
	bag     *decorate.MethodBag
	journal *journal.Journal
	opts    []decorate.Option
}

// NewFromConfig loads the configuration at configPath, or from the
// environment alone when configPath is empty, and builds a Runtime.
func NewFromConfig(ctx context.Context, configPath string, opts ...decorate.Option) (*Runtime, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath == "" {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.LoadFromFile(configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return New(ctx, cfg, opts...)
}

// New builds a Runtime from cfg. ctx bounds every later Lua hook call.
//
// The chronicle comes from the scripts' _chronicle global, then
// cfg.Chronicle, and is otherwise a fresh UUID.
func New(ctx context.Context, cfg *config.Config, opts ...decorate.Option) (*Runtime, error) {
	engine, err := scripting.NewLuaEngine(cfg.Scripting.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Lua engine: %w", err)
	}

	if err := scripting.LoadAllScripts(engine, cfg.Scripting.Paths...); err != nil {
		engine.Close()
		return nil, fmt.Errorf("failed to load hook scripts: %w", err)
	}

	bag, err := luahooks.LoadBag(ctx, engine)
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("failed to build method bag: %w", err)
	}
	if bag.Chronicle == nil {
		bag.Chronicle = cfg.Chronicle
		if cfg.Chronicle == "" {
			bag.Chronicle = uuid.New().String()
		}
	}

	r := &Runtime{config: cfg, engine: engine, bag: bag, opts: opts}

	if cfg.Journal.Path != "" {
		r.journal, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			engine.Close()
			return nil, err
		}
	}

	log.Info("Hookwrap runtime initialized",
		"scripts", len(cfg.Scripting.Paths),
		"hooks", len(bag.Hooks),
		"journal", cfg.Journal.Path != "",
		"chronicle", bag.Chronicle,
	)
	return r, nil
}

// Config returns the configuration the runtime was built from.
func (r *Runtime) Config() *config.Config {
	return r.config
}

// Bag returns the method bag loaded from the hook scripts.
func (r *Runtime) Bag() *decorate.MethodBag {
	return r.bag
}

// Chronicle returns the chronicle threaded through every hook payload.
func (r *Runtime) Chronicle() any {
	return r.bag.Chronicle
}

// Engine returns the Lua engine hooks run in.
func (r *Runtime) Engine() scripting.Engine {
	return r.engine
}

// bagFor returns the bag to decorate target with. With a journal, every
// method of an *object.Object target is recorded, hooked or not; other
// targets only record their hooked members.
func (r *Runtime) bagFor(target any) *decorate.MethodBag {
	if r.journal == nil {
		return r.bag
	}
	var methods []string
	if obj, ok := target.(*object.Object); ok {
		for _, c := range introspect.Capabilities(obj).All() {
			if c.Kind == introspect.Method {
				methods = append(methods, c.Name)
			}
		}
	}
	return r.journal.Observe(r.bag, methods...)
}

// Decorate decorates target with the runtime's bag.
func (r *Runtime) Decorate(target any) (any, error) {
	return decorate.Decorate(target, r.bagFor(target), r.opts...)
}

// DecorateObject decorates obj with the runtime's bag.
func (r *Runtime) DecorateObject(obj *object.Object) (*object.Object, error) {
	return decorate.DecorateObject(obj, r.bagFor(obj), r.opts...)
}

// Events returns the journaled events of chronicle, or
// errors.ErrJournalDisabled when the runtime has no journal.
func (r *Runtime) Events(ctx context.Context, chronicle any) ([]journal.Event, error) {
	if r.journal == nil {
		return nil, hwerrors.ErrJournalDisabled
	}
	return r.journal.Events(ctx, chronicle)
}

// Close releases the Lua engine and the journal.
func (r *Runtime) Close() error {
	var errs []error
	if err := r.engine.Close(); err != nil {
		errs = append(errs, err)
	}
	if r.journal != nil {
		if err := r.journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
