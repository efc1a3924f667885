package store

import (
	"context"
	"fmt"
)

// Collection is a typed view over one collection of a DB. T must encode to a
// JSON object with an "id" field.
type Collection[T any] struct {
	db   *DB
	name string
}

// NewCollection binds name in db to T.
func NewCollection[T any](db *DB, name string) *Collection[T] {
	return &Collection[T]{db: db, name: name}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.name }

// DB returns the underlying store.
func (c *Collection[T]) DB() *DB { return c.db }

func (c *Collection[T]) decode(r Record) (T, error) {
	var v T
	if err := FromRecord(r, &v); err != nil {
		return v, fmt.Errorf("%s/%s: %w", c.name, r.ID(), err)
	}
	return v, nil
}

func (c *Collection[T]) decodeAll(records []Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, r := range records {
		v, err := c.decode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Upsert stores v and returns the stored value with timestamps filled in.
func (c *Collection[T]) Upsert(ctx context.Context, v T) (T, error) {
	stored, err := c.db.Upsert(ctx, c.name, v)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.decode(stored)
}

// Get returns the value with id; ok is false when absent.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var zero T
	r, ok, err := c.db.Get(ctx, c.name, id)
	if err != nil || !ok {
		return zero, ok, err
	}
	v, err := c.decode(r)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// MustGet is Get with absence reported as ErrRecordNotFound.
func (c *Collection[T]) MustGet(ctx context.Context, id string) (T, error) {
	v, ok, err := c.Get(ctx, id)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, c.name, id)
	}
	return v, nil
}

// All returns every value in insertion order.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	records, err := c.db.All(ctx, c.name)
	if err != nil {
		return nil, err
	}
	return c.decodeAll(records)
}

// FindByField returns values whose JSON field equals value.
func (c *Collection[T]) FindByField(ctx context.Context, field string, value any) ([]T, error) {
	records, err := c.db.FindByField(ctx, c.name, field, value)
	if err != nil {
		return nil, err
	}
	return c.decodeAll(records)
}

// FindWhere returns values matching pred in insertion order.
func (c *Collection[T]) FindWhere(ctx context.Context, pred func(T) bool) ([]T, error) {
	all, err := c.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(all))
	for _, v := range all {
		if pred(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

// Update decodes the stored value, applies fn and writes the fields back
// atomically. Fields unknown to T are preserved.
func (c *Collection[T]) Update(ctx context.Context, id string, fn func(*T) error) (T, error) {
	var zero T
	stored, err := c.db.Update(ctx, c.name, id, func(r Record) error {
		v, err := c.decode(r)
		if err != nil {
			return err
		}
		if err := fn(&v); err != nil {
			return err
		}
		fields, err := ToRecord(v)
		if err != nil {
			return err
		}
		for k, val := range fields {
			r[k] = val
		}
		return nil
	})
	if err != nil {
		return zero, err
	}
	return c.decode(stored)
}

// Delete removes id; absent ids are ignored.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.db.Delete(ctx, c.name, id)
}

// Lookup resolves the ids filed under key in index to values, in insertion
// order.
func (c *Collection[T]) Lookup(ctx context.Context, index, key string) ([]T, error) {
	ids, err := c.db.Lookup(index, key)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []T{}, nil
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	records, err := c.db.FindWhere(ctx, c.name, func(r Record) bool {
		_, ok := wanted[r.ID()]
		return ok
	})
	if err != nil {
		return nil, err
	}
	return c.decodeAll(records)
}

// IndexOn builds an IndexSpec whose key function works on decoded T values.
// Records that do not decode are left out of the index.
func IndexOn[T any](name, collection string, keys func(T) []string) IndexSpec {
	return IndexSpec{
		Name:       name,
		Collection: collection,
		Keys: func(r Record) []string {
			var v T
			if err := FromRecord(r, &v); err != nil {
				return nil
			}
			return keys(v)
		},
	}
}
