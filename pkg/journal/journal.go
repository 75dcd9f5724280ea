// Package journal records decorated calls to a bbolt database, grouped by
// chronicle. The decorate package never persists anything itself; a journal
// is attached by passing a bag through Observe.
package journal

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lexlapax/hookwrap/pkg/decorate"
	"github.com/lexlapax/hookwrap/pkg/log"
	bolt "go.etcd.io/bbolt"
)

var rootBucket = []byte("chronicles")

// NoChronicle is the bucket used for calls made without a chronicle.
const NoChronicle = "<none>"

// Stage names the point of a call an event was recorded at.
type Stage string

const (
	StageParams  Stage = "params"
	StageSuccess Stage = "success"
	StageError   Stage = "error"
)

// Event is one recorded hook invocation.
type Event struct {
	ID        string    `json:"id"`
	Chronicle string    `json:"chronicle"`
	Method    string    `json:"method"`
	Stage     Stage     `json:"stage"`
	Params    []any     `json:"params,omitempty"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Time      time.Time `json:"time"`
}

// Journal stores events in a bbolt database.
type Journal struct {
	db     *bolt.DB
	ownsDB bool
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	j, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	j.ownsDB = true
	return j, nil
}

// New creates a journal on an open database. Close does not close db.
func New(db *bolt.DB) (*Journal, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize journal buckets: %w", err)
	}

	log.Debug("Initialized journal", "db_path", db.Path())
	return &Journal{db: db}, nil
}

// Close closes the database if the journal opened it.
func (j *Journal) Close() error {
	if !j.ownsDB {
		return nil
	}
	return j.db.Close()
}

// Record stores e, filling in its ID and time when unset.
func (j *Journal) Record(e Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	if e.Chronicle == "" {
		e.Chronicle = NoChronicle
	}
	e.Params = encodableParams(e.Params)
	e.Result = encodable(e.Result)

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return j.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(rootBucket).CreateBucketIfNotExists([]byte(e.Chronicle))
		if err != nil {
			return fmt.Errorf("failed to create chronicle bucket %s: %w", e.Chronicle, err)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(sequenceKey(seq), data)
	})
}

// Events returns the events recorded under chronicle in recording order.
// A nil chronicle selects calls made without one.
func (j *Journal) Events(ctx context.Context, chronicle any) ([]Event, error) {
	var events []Event

	err := j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(rootBucket).Bucket([]byte(chronicleKey(chronicle)))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var e Event
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("failed to unmarshal event: %w", err)
			}
			events = append(events, e)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return events, nil
}

// Chronicles lists the chronicles that have events, sorted.
func (j *Journal) Chronicles() ([]string, error) {
	var names []string
	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(rootBucket).ForEach(func(k, v []byte) error {
			if v == nil {
				names = append(names, string(k))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Observe returns a copy of bag whose hooks record an event before
// delegating to the original hooks. Methods not hooked by bag can be listed
// in extra to be recorded with pass-through hooks.
//
// Failures are recorded before the error hook decorate resolves runs, so
// WithErrorHook and WithDefaults keep working on an observed bag.
func (j *Journal) Observe(bag *decorate.MethodBag, extra ...string) *decorate.MethodBag {
	if bag == nil {
		bag = &decorate.MethodBag{}
	}
	chronicle := chronicleKey(bag.Chronicle)

	out := &decorate.MethodBag{
		Hooks:     make(map[string]decorate.Hooks, len(bag.Hooks)+len(extra)),
		Members:   bag.Members,
		Chronicle: bag.Chronicle,
	}
	for name, h := range bag.Hooks {
		out.Hooks[name] = j.observeHooks(chronicle, h)
	}
	for _, name := range extra {
		if _, ok := out.Hooks[name]; !ok {
			out.Hooks[name] = j.observeHooks(chronicle, decorate.Hooks{})
		}
	}
	out.Default = j.observeHooks(chronicle, bag.Default)

	observed := bag.ObserveError
	out.OnError = bag.OnError
	out.ObserveError = func(p decorate.ErrorPayload) {
		params := p.Params
		if params == nil {
			params = p.RawParams
		}
		j.record(Event{
			Chronicle: chronicle,
			Method:    p.Method,
			Stage:     StageError,
			Params:    params,
			Error:     p.Error.Error(),
		})
		if observed != nil {
			observed(p)
		}
	}
	return out
}

func (j *Journal) observeHooks(chronicle string, h decorate.Hooks) decorate.Hooks {
	before := h.Before
	if before == nil {
		before = decorate.PassParams
	}
	after := h.After
	if after == nil {
		after = decorate.PassResult
	}

	return decorate.Hooks{
		Before: func(p decorate.ParamsPayload) ([]any, error) {
			j.record(Event{Chronicle: chronicle, Method: p.Method, Stage: StageParams, Params: p.Params})
			return before(p)
		},
		After: func(p decorate.SuccessPayload) any {
			out := after(p)
			j.record(Event{Chronicle: chronicle, Method: p.Method, Stage: StageSuccess, Params: p.Params, Result: out})
			return out
		},
	}
}

// record stores e; a journal failure never fails the observed call.
func (j *Journal) record(e Event) {
	if err := j.Record(e); err != nil {
		log.Warn("Failed to record journal event",
			"method", e.Method,
			"stage", e.Stage,
			"error", err,
		)
	}
}

func chronicleKey(c any) string {
	if c == nil {
		return NoChronicle
	}
	if s := fmt.Sprint(c); s != "" {
		return s
	}
	return NoChronicle
}

func sequenceKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func encodableParams(params []any) []any {
	if params == nil {
		return nil
	}
	out := make([]any, len(params))
	for i, p := range params {
		out[i] = encodable(p)
	}
	return out
}

// encodable replaces a value JSON cannot encode with its printed form.
func encodable(v any) any {
	if v == nil {
		return nil
	}
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprint(v)
	}
	return v
}
