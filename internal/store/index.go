package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"maptss.ao/internal/kv"
	"maptss.ao/internal/obs"
)

// index maps a key to the set of record ids filed under it.
type index struct {
	spec    IndexSpec
	entries map[string]map[string]struct{}
}

func newIndex(spec IndexSpec) *index {
	return &index{spec: spec, entries: make(map[string]map[string]struct{})}
}

func (ix *index) keysOf(r Record) []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var keys []string
	for _, k := range ix.spec.Keys(r) {
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

func (ix *index) add(key, id string) bool {
	set, ok := ix.entries[key]
	if !ok {
		set = make(map[string]struct{})
		ix.entries[key] = set
	}
	if _, ok := set[id]; ok {
		return false
	}
	set[id] = struct{}{}
	return true
}

func (ix *index) remove(key, id string) bool {
	set, ok := ix.entries[key]
	if !ok {
		return false
	}
	if _, ok := set[id]; !ok {
		return false
	}
	delete(set, id)
	if len(set) == 0 {
		delete(ix.entries, key)
	}
	return true
}

// snapshot returns key -> sorted ids.
func (ix *index) snapshot() map[string][]string {
	out := make(map[string][]string, len(ix.entries))
	for key, set := range ix.entries {
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out[key] = ids
	}
	return out
}

func (ix *index) lookup(key string) []string {
	set := ix.entries[key]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func buildIndex(spec IndexSpec, records []Record) *index {
	ix := newIndex(spec)
	for _, r := range records {
		for _, k := range ix.keysOf(r) {
			ix.add(k, r.ID())
		}
	}
	return ix
}

// reindexLocked moves the id of old/next between keys of every index on
// collection. Either record may be nil (insert or delete). Returns the names
// of indexes that changed.
func (d *DB) reindexLocked(collection string, old, next Record) map[string]bool {
	touched := make(map[string]bool)
	id := ""
	if next != nil {
		id = next.ID()
	} else if old != nil {
		id = old.ID()
	}
	for _, ix := range d.byColl[collection] {
		newKeys := ix.keysOf(next)
		keep := make(map[string]struct{}, len(newKeys))
		for _, k := range newKeys {
			keep[k] = struct{}{}
		}
		for _, k := range ix.keysOf(old) {
			if _, ok := keep[k]; ok {
				continue
			}
			if ix.remove(k, id) {
				touched[ix.spec.Name] = true
			}
		}
		for _, k := range newKeys {
			if ix.add(k, id) {
				touched[ix.spec.Name] = true
			}
		}
	}
	return touched
}

// checkUniqueLocked fails when next would share a key of a unique index on
// collection with a record other than itself.
func (d *DB) checkUniqueLocked(collection string, next Record) error {
	id := next.ID()
	for _, ix := range d.byColl[collection] {
		if !ix.spec.Unique {
			continue
		}
		for _, k := range ix.keysOf(next) {
			for owner := range ix.entries[k] {
				if owner != id {
					return fmt.Errorf("%w: %s %q held by %s", ErrUniqueViolation, ix.spec.Name, k, owner)
				}
			}
		}
	}
	return nil
}

// checkSnapshot rejects repeated ids, and repeated keys of unique
// indexes, within one collection of records.
func (d *DB) checkSnapshot(collection string, records []Record) error {
	ids := make(map[string]struct{}, len(records))
	for i, r := range records {
		id := r.ID()
		if id == "" {
			return fmt.Errorf("%w: %s[%d]", ErrMissingID, collection, i)
		}
		if _, dup := ids[id]; dup {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateID, collection, id)
		}
		ids[id] = struct{}{}
	}
	for _, ix := range d.byColl[collection] {
		if !ix.spec.Unique {
			continue
		}
		owners := make(map[string]string)
		for _, r := range records {
			for _, k := range ix.keysOf(r) {
				if owner, dup := owners[k]; dup {
					return fmt.Errorf("%w: %s %q held by %s and %s", ErrUniqueViolation, ix.spec.Name, k, owner, r.ID())
				}
				owners[k] = r.ID()
			}
		}
	}
	return nil
}

func mergeTouched(a, b map[string]bool) map[string]bool {
	for k := range b {
		a[k] = true
	}
	return a
}

func (d *DB) persistIndexesLocked(ctx context.Context, names map[string]bool) error {
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)
	for _, name := range sorted {
		if err := d.persistIndexLocked(ctx, d.indexes[name]); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) persistIndexLocked(ctx context.Context, ix *index) error {
	raw, err := json.Marshal(ix.snapshot())
	if err != nil {
		return fmt.Errorf("encode index %s: %w", ix.spec.Name, err)
	}
	if err := d.kv.Set(ctx, d.indexKey(ix.spec.Name), string(raw)); err != nil {
		return fmt.Errorf("save index %s: %w", ix.spec.Name, err)
	}
	return nil
}

func (d *DB) loadIndexLocked(ctx context.Context, name string) (map[string][]string, error) {
	raw, err := d.kv.Get(ctx, d.indexKey(name))
	if errors.Is(err, kv.ErrNotFound) {
		return map[string][]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", name, err)
	}
	var persisted map[string][]string
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		// unreadable indexes are treated as empty and get repaired
		return map[string][]string{}, nil
	}
	for key, ids := range persisted {
		sort.Strings(ids)
		if len(ids) == 0 {
			delete(persisted, key)
		}
	}
	return persisted, nil
}

func (d *DB) indexNames() []string {
	names := make([]string, 0, len(d.indexes))
	for name := range d.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the sorted ids filed under key in the named index.
func (d *DB) Lookup(name, key string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ix, ok := d.indexes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIndex, name)
	}
	return ix.lookup(key), nil
}

// Indexes returns index names in lexical order.
func (d *DB) Indexes() []string { return d.indexNames() }

// IndexSnapshot returns key -> sorted ids for the named index.
func (d *DB) IndexSnapshot(name string) (map[string][]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ix, ok := d.indexes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIndex, name)
	}
	return ix.snapshot(), nil
}

// RebuildAllIndexes recomputes every index from the primary collections and
// persists the result.
func (d *DB) RebuildAllIndexes(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rebuildLocked(ctx)
}

func (d *DB) rebuildLocked(ctx context.Context) error {
	for _, name := range d.indexNames() {
		ix := d.indexes[name]
		records, err := d.loadLocked(ctx, ix.spec.Collection)
		if err != nil {
			return err
		}
		rebuilt := buildIndex(ix.spec, records)
		ix.entries = rebuilt.entries
		if err := d.persistIndexLocked(ctx, ix); err != nil {
			return err
		}
	}
	count("rebuild_indexes", "*")
	return nil
}

// VerifyIndexes compares persisted indexes with a rebuild from the
// collections and repairs those that differ. Returns the repaired names.
func (d *DB) VerifyIndexes(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.verifyIndexesLocked(ctx)
}

func (d *DB) verifyIndexesLocked(ctx context.Context) ([]string, error) {
	var repaired []string
	for _, name := range d.indexNames() {
		ix := d.indexes[name]
		records, err := d.loadLocked(ctx, ix.spec.Collection)
		if err != nil {
			return nil, err
		}
		rebuilt := buildIndex(ix.spec, records)
		persisted, err := d.loadIndexLocked(ctx, name)
		if err != nil {
			return nil, err
		}
		ix.entries = rebuilt.entries
		if indexesEqual(persisted, ix.snapshot()) {
			continue
		}
		d.logger.Warn("index inconsistent with collection, repairing",
			"index", name, "collection", ix.spec.Collection,
			"persisted_keys", len(persisted), "derived_keys", len(ix.entries))
		obs.IndexRepairs.Inc()
		if err := d.persistIndexLocked(ctx, ix); err != nil {
			return nil, err
		}
		repaired = append(repaired, name)
	}
	return repaired, nil
}

func indexesEqual(a, b map[string][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for key, ids := range a {
		other, ok := b[key]
		if !ok || len(other) != len(ids) {
			return false
		}
		for i := range ids {
			if ids[i] != other[i] {
				return false
			}
		}
	}
	return true
}
