package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"maptss.ao/internal/kv"
)

// Snapshot maps collection name to its records in insertion order.
type Snapshot map[string][]Record

// ExportAll returns every collection. Collections never written appear empty.
func (d *DB) ExportAll(ctx context.Context) (Snapshot, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	snap := make(Snapshot, len(d.order))
	for _, name := range d.order {
		records, err := d.loadLocked(ctx, name)
		if err != nil {
			return nil, err
		}
		if records == nil {
			records = []Record{}
		}
		snap[name] = records
	}
	count("export", "*")
	return snap, nil
}

// ImportAll replaces every collection with the snapshot's content. A
// collection missing from snap becomes empty. Indexes are rebuilt afterwards.
// Capped collections keep their newest records. A snapshot repeating an id,
// or a unique index key, within a collection is rejected before any write.
func (d *DB) ImportAll(ctx context.Context, snap Snapshot) error {
	for name, records := range snap {
		if err := d.checkCollection(name); err != nil {
			return err
		}
		if err := d.checkSnapshot(name, records); err != nil {
			return err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, name := range d.order {
		records, err := normaliseAll(snap[name])
		if err != nil {
			return fmt.Errorf("import %s: %w", name, err)
		}
		if limit := d.specs[name].Cap; limit > 0 && len(records) > limit {
			records = records[len(records)-limit:]
		}
		if err := d.saveLocked(ctx, name, records); err != nil {
			return err
		}
	}
	if err := d.rebuildLocked(ctx); err != nil {
		return err
	}
	count("import", "*")
	return nil
}

func normaliseAll(records []Record) ([]Record, error) {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		n, err := ToRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// ClearAll removes every collection and index key.
func (d *DB) ClearAll(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, name := range d.order {
		if err := d.kv.Remove(ctx, d.collectionKey(name)); err != nil {
			return fmt.Errorf("clear %s: %w", name, err)
		}
	}
	for _, name := range d.indexNames() {
		if err := d.kv.Remove(ctx, d.indexKey(name)); err != nil {
			return fmt.Errorf("clear index %s: %w", name, err)
		}
		d.indexes[name].entries = make(map[string]map[string]struct{})
	}
	count("clear", "*")
	return nil
}

// CollectionStats summarises one collection.
type CollectionStats struct {
	Count int `json:"count"`
	// LastUpdated is the latest updatedAt (or createdAt); nil when empty.
	LastUpdated *time.Time `json:"lastUpdated"`
}

// Stats returns per-collection counts and last modification times.
func (d *DB) Stats(ctx context.Context) (map[string]CollectionStats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	stats := make(map[string]CollectionStats, len(d.order))
	for _, name := range d.order {
		records, err := d.loadLocked(ctx, name)
		if err != nil {
			return nil, err
		}
		st := CollectionStats{Count: len(records)}
		for _, r := range records {
			t := r.Time("updatedAt")
			if t.IsZero() {
				t = r.Time("createdAt")
			}
			if t.IsZero() {
				continue
			}
			if st.LastUpdated == nil || t.After(*st.LastUpdated) {
				latest := t
				st.LastUpdated = &latest
			}
		}
		stats[name] = st
	}
	return stats, nil
}

// StorageInfo reports the size in bytes of each persisted collection.
type StorageInfo struct {
	TotalSize   int            `json:"totalSize"`
	Collections map[string]int `json:"tablesSizes"`
}

// StorageInfo measures the raw persisted size of every collection.
func (d *DB) StorageInfo(ctx context.Context) (StorageInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	info := StorageInfo{Collections: make(map[string]int, len(d.order))}
	for _, name := range d.order {
		raw, err := d.kv.Get(ctx, d.collectionKey(name))
		if errors.Is(err, kv.ErrNotFound) {
			info.Collections[name] = 0
			continue
		}
		if err != nil {
			return StorageInfo{}, fmt.Errorf("size %s: %w", name, err)
		}
		info.Collections[name] = len(raw)
		info.TotalSize += len(raw)
	}
	return info, nil
}
