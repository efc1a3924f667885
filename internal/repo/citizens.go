package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"maptss.ao/internal/model"
	"maptss.ao/internal/store"
)

type Citizens struct {
	*store.Collection[model.Citizen]
}

// Save upserts c. A BI held by another citizen fails with ErrDuplicateBI.
func (r *Citizens) Save(ctx context.Context, c model.Citizen) (model.Citizen, error) {
	saved, err := r.Upsert(ctx, c)
	if errors.Is(err, store.ErrUniqueViolation) {
		return model.Citizen{}, fmt.Errorf("%w: %s", ErrDuplicateBI, c.BI)
	}
	return saved, err
}

// ByBI returns the citizen holding identity document bi.
func (r *Citizens) ByBI(ctx context.Context, bi string) (model.Citizen, bool, error) {
	items, err := r.Lookup(ctx, IndexCitizensBI, bi)
	return first(items, err)
}

// ByEmail returns the citizen registered with email.
func (r *Citizens) ByEmail(ctx context.Context, email string) (model.Citizen, bool, error) {
	items, err := r.Lookup(ctx, IndexCitizensEmail, email)
	return first(items, err)
}

// ContactUpdate lists the fields UpdateContact may change. Empty fields are
// left untouched.
type ContactUpdate struct {
	Phone        string
	Email        string
	Address      string
	Province     string
	Municipality string
	Location     *model.GeoPoint
}

// UpdateContact changes contact and address fields only.
func (r *Citizens) UpdateContact(ctx context.Context, id string, u ContactUpdate) (model.Citizen, error) {
	return r.Update(ctx, id, func(c *model.Citizen) error {
		set(&c.Phone, u.Phone)
		set(&c.Email, strings.TrimSpace(u.Email))
		set(&c.Address, u.Address)
		set(&c.Province, u.Province)
		set(&c.Municipality, u.Municipality)
		if u.Location != nil {
			loc := *u.Location
			c.Location = &loc
		}
		return nil
	})
}

func set(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func first[T any](items []T, err error) (T, bool, error) {
	var zero T
	if err != nil || len(items) == 0 {
		return zero, false, err
	}
	return items[0], true, nil
}
