package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"maptss.ao/internal/kv"
	"maptss.ao/internal/obs"
)

// DefaultPrefix namespaces every persisted key.
const DefaultPrefix = "maptss_"

// TimeLayout is the timestamp format written into createdAt/updatedAt.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Spec describes one collection. Cap > 0 bounds the collection; the oldest
// records are evicted first.
type Spec struct {
	Name string
	Cap  int
}

// IndexSpec maps records of Collection to the keys they are filed under.
// A Unique index lets at most one record hold each key.
type IndexSpec struct {
	Name       string
	Collection string
	Keys       func(Record) []string
	Unique     bool
}

// AsUnique returns a copy of s that rejects a key shared by two records.
func (s IndexSpec) AsUnique() IndexSpec {
	s.Unique = true
	return s
}

// Schema lists the collections and secondary indexes of a DB.
type Schema struct {
	Collections []Spec
	Indexes     []IndexSpec
}

// DB is a record store over a kv substrate. Each collection is persisted as a
// JSON array under prefix+name and each index as a JSON object under
// prefix+"idx_"+name. All operations are serialised by one lock.
type DB struct {
	mu      sync.RWMutex
	kv      kv.Store
	prefix  string
	specs   map[string]Spec
	order   []string
	indexes map[string]*index
	byColl  map[string][]*index
	now     func() time.Time
	logger  *slog.Logger
}

// Option customises a DB.
type Option func(*DB) error

// WithClock overrides the timestamp source.
func WithClock(fn func() time.Time) Option {
	return func(d *DB) error {
		if fn == nil {
			return errors.New("store: clock cannot be nil")
		}
		d.now = fn
		return nil
	}
}

// WithLogger overrides the logger used for repair warnings.
func WithLogger(l *slog.Logger) Option {
	return func(d *DB) error {
		if l != nil {
			d.logger = l
		}
		return nil
	}
}

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(d *DB) error {
		if prefix == "" {
			return errors.New("store: prefix cannot be empty")
		}
		d.prefix = prefix
		return nil
	}
}

// Open validates schema, loads the persisted indexes and repairs any index
// that disagrees with a rebuild from the primary collections.
func Open(ctx context.Context, substrate kv.Store, schema Schema, opts ...Option) (*DB, error) {
	if substrate == nil {
		return nil, errors.New("store: kv substrate is required")
	}
	d := &DB{
		kv:      substrate,
		prefix:  DefaultPrefix,
		specs:   make(map[string]Spec, len(schema.Collections)),
		indexes: make(map[string]*index, len(schema.Indexes)),
		byColl:  make(map[string][]*index),
		now:     time.Now,
		logger:  obs.Logger(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	for _, spec := range schema.Collections {
		if spec.Name == "" {
			return nil, errors.New("store: collection name is required")
		}
		if _, dup := d.specs[spec.Name]; dup {
			return nil, fmt.Errorf("store: duplicate collection %q", spec.Name)
		}
		d.specs[spec.Name] = spec
		d.order = append(d.order, spec.Name)
	}
	for _, is := range schema.Indexes {
		if _, ok := d.specs[is.Collection]; !ok {
			return nil, fmt.Errorf("%w: index %s on %s", ErrUnknownCollection, is.Name, is.Collection)
		}
		if is.Name == "" || is.Keys == nil {
			return nil, fmt.Errorf("store: index on %s needs a name and key func", is.Collection)
		}
		if _, dup := d.indexes[is.Name]; dup {
			return nil, fmt.Errorf("store: duplicate index %q", is.Name)
		}
		idx := newIndex(is)
		d.indexes[is.Name] = idx
		d.byColl[is.Collection] = append(d.byColl[is.Collection], idx)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.verifyIndexesLocked(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Collections returns collection names in schema order.
func (d *DB) Collections() []string {
	return append([]string(nil), d.order...)
}

// Capacity returns the cap of name, 0 when unbounded.
func (d *DB) Capacity(name string) int {
	return d.specs[name].Cap
}

func (d *DB) collectionKey(name string) string { return d.prefix + name }

func (d *DB) indexKey(name string) string { return d.prefix + "idx_" + name }

func (d *DB) stamp() string { return d.now().UTC().Format(TimeLayout) }

func (d *DB) checkCollection(name string) error {
	if _, ok := d.specs[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return nil
}

func count(op, collection string) {
	obs.StoreOperations.WithLabelValues(op, collection).Inc()
}
