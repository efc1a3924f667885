package store

import (
	"context"
	"fmt"
)

// Upsert stores record in collection. An existing record with the same id is
// merged field by field (record wins) keeping its createdAt; otherwise the
// record is appended with createdAt and updatedAt stamped. The stored record
// is returned.
func (d *DB) Upsert(ctx context.Context, collection string, record any) (Record, error) {
	if err := d.checkCollection(collection); err != nil {
		return nil, err
	}
	rec, err := ToRecord(record)
	if err != nil {
		return nil, err
	}
	id := rec.ID()
	if id == "" {
		return nil, ErrMissingID
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	records, err := d.loadLocked(ctx, collection)
	if err != nil {
		return nil, err
	}
	now := d.stamp()
	var (
		stored   Record
		previous Record
		evicted  []Record
	)
	if pos := position(records, id); pos >= 0 {
		previous = records[pos]
		stored = previous.Clone()
		for k, v := range rec {
			stored[k] = v
		}
		if created, ok := previous["createdAt"]; ok {
			stored["createdAt"] = created
		} else if _, ok := stored["createdAt"]; !ok {
			stored["createdAt"] = now
		}
		stored["updatedAt"] = now
		records[pos] = stored
	} else {
		stored = rec
		stored["createdAt"] = now
		stored["updatedAt"] = now
		records = append(records, stored)
		if limit := d.specs[collection].Cap; limit > 0 && len(records) > limit {
			overflow := len(records) - limit
			evicted = append(evicted, records[:overflow]...)
			records = append([]Record(nil), records[overflow:]...)
		}
	}

	if err := d.checkUniqueLocked(collection, stored); err != nil {
		return nil, err
	}
	if err := d.saveLocked(ctx, collection, records); err != nil {
		return nil, err
	}
	touched := d.reindexLocked(collection, previous, stored)
	for _, old := range evicted {
		touched = mergeTouched(touched, d.reindexLocked(collection, old, nil))
	}
	if err := d.persistIndexesLocked(ctx, touched); err != nil {
		return nil, err
	}
	count("upsert", collection)
	return stored.Clone(), nil
}

// Get returns the record with id; ok is false when absent.
func (d *DB) Get(ctx context.Context, collection, id string) (Record, bool, error) {
	if err := d.checkCollection(collection); err != nil {
		return nil, false, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	records, err := d.loadLocked(ctx, collection)
	if err != nil {
		return nil, false, err
	}
	count("get", collection)
	if pos := position(records, id); pos >= 0 {
		return records[pos], true, nil
	}
	return nil, false, nil
}

// All returns every record of collection in insertion order.
func (d *DB) All(ctx context.Context, collection string) ([]Record, error) {
	return d.FindWhere(ctx, collection, nil)
}

// FindByField returns records whose field equals value, in insertion order.
// Records without the field never match.
func (d *DB) FindByField(ctx context.Context, collection, field string, value any) ([]Record, error) {
	want, err := normaliseValue(value)
	if err != nil {
		return nil, err
	}
	return d.FindWhere(ctx, collection, func(r Record) bool {
		got, ok := r[field]
		return ok && valuesEqual(got, want)
	})
}

// FindWhere returns records matching pred (all records when pred is nil) as a
// fresh slice in insertion order.
func (d *DB) FindWhere(ctx context.Context, collection string, pred func(Record) bool) ([]Record, error) {
	if err := d.checkCollection(collection); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	records, err := d.loadLocked(ctx, collection)
	if err != nil {
		return nil, err
	}
	count("find", collection)
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if pred == nil || pred(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Delete removes the record with id. Deleting an absent id is not an error.
func (d *DB) Delete(ctx context.Context, collection, id string) error {
	if err := d.checkCollection(collection); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	records, err := d.loadLocked(ctx, collection)
	if err != nil {
		return err
	}
	pos := position(records, id)
	if pos < 0 {
		return nil
	}
	removed := records[pos]
	records = append(records[:pos:pos], records[pos+1:]...)
	if err := d.saveLocked(ctx, collection, records); err != nil {
		return err
	}
	if err := d.persistIndexesLocked(ctx, d.reindexLocked(collection, removed, nil)); err != nil {
		return err
	}
	count("delete", collection)
	return nil
}

// Update applies fn to the record with id and stores the result in one
// critical section. fn cannot change id or createdAt. Returns
// ErrRecordNotFound when id is absent; an error from fn aborts the write.
func (d *DB) Update(ctx context.Context, collection, id string, fn func(Record) error) (Record, error) {
	if err := d.checkCollection(collection); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	records, err := d.loadLocked(ctx, collection)
	if err != nil {
		return nil, err
	}
	pos := position(records, id)
	if pos < 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, collection, id)
	}
	previous := records[pos]
	next := previous.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next, err = ToRecord(next)
	if err != nil {
		return nil, err
	}
	next["id"] = id
	if created, ok := previous["createdAt"]; ok {
		next["createdAt"] = created
	}
	next["updatedAt"] = d.stamp()
	if err := d.checkUniqueLocked(collection, next); err != nil {
		return nil, err
	}
	records[pos] = next
	if err := d.saveLocked(ctx, collection, records); err != nil {
		return nil, err
	}
	if err := d.persistIndexesLocked(ctx, d.reindexLocked(collection, previous, next)); err != nil {
		return nil, err
	}
	count("update", collection)
	return next.Clone(), nil
}

func normaliseValue(v any) (any, error) {
	wrapped, err := ToRecord(map[string]any{"v": v})
	if err != nil {
		return nil, err
	}
	return wrapped["v"], nil
}
