package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"maptss.ao/internal/kv"
)

// Record is a stored JSON object. Values are JSON-native: string, bool,
// json.Number, []any, map[string]any or nil.
type Record map[string]any

// ID returns the record's "id" field or "".
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// String returns field as a string, "" when absent or not a string.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Bool returns field as a bool.
func (r Record) Bool(field string) bool {
	b, _ := r[field].(bool)
	return b
}

// Time parses a timestamp field. The zero time is returned when the field is
// absent or unparseable.
func (r Record) Time(field string) time.Time {
	s := r.String(field)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return cloneValue(map[string]any(r)).(map[string]any)
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = cloneValue(val)
		}
		return out
	case Record:
		return cloneValue(map[string]any(x))
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

// ToRecord converts any JSON-encodable value into a Record.
func ToRecord(v any) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var r Record
	if err := decode(raw, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if r == nil {
		return nil, errors.New("record must be a JSON object")
	}
	return r, nil
}

// FromRecord decodes r into dst.
func FromRecord(r Record, dst any) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

func decode(raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(dst)
}

// valuesEqual compares by canonical JSON; map keys are sorted by encoding/json.
func valuesEqual(a, b any) bool {
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ra, rb)
}

func (d *DB) loadLocked(ctx context.Context, collection string) ([]Record, error) {
	raw, err := d.kv.Get(ctx, d.collectionKey(collection))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", collection, err)
	}
	var records []Record
	if err := decode([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	return records, nil
}

func (d *DB) saveLocked(ctx context.Context, collection string, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	if err := d.kv.Set(ctx, d.collectionKey(collection), string(raw)); err != nil {
		return fmt.Errorf("save %s: %w", collection, err)
	}
	return nil
}

func position(records []Record, id string) int {
	for i, r := range records {
		if r.ID() == id {
			return i
		}
	}
	return -1
}
