package repo

import (
	"context"
	"sort"
	"time"

	"maptss.ao/internal/model"
	"maptss.ao/internal/store"
)

type Notifications struct {
	*store.Collection[model.Notification]
}

func (r *Notifications) ForUser(ctx context.Context, userID string) ([]model.Notification, error) {
	return r.FindByField(ctx, "userId", userID)
}

func (r *Notifications) Unread(ctx context.Context, userID string) ([]model.Notification, error) {
	return r.FindWhere(ctx, func(n model.Notification) bool {
		return n.UserID == userID && !n.Read
	})
}

// MarkRead flags a notification as read. Marking twice keeps the first readAt.
func (r *Notifications) MarkRead(ctx context.Context, id string, at time.Time) (model.Notification, error) {
	return r.Update(ctx, id, func(n *model.Notification) error {
		if n.Read {
			return nil
		}
		n.Read = true
		n.ReadAt = at.UTC()
		return nil
	})
}

type Activities struct {
	*store.Collection[model.Activity]
}

// Recent returns up to limit activities, newest first. Entries with equal
// timestamps are ordered by insertion, latest first. limit <= 0 means all.
func (r *Activities) Recent(ctx context.Context, limit int) ([]model.Activity, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	return newestFirst(all, limit), nil
}

func (r *Activities) ByUser(ctx context.Context, userID string, limit int) ([]model.Activity, error) {
	items, err := r.FindByField(ctx, "userId", userID)
	if err != nil {
		return nil, err
	}
	return newestFirst(items, limit), nil
}

func (r *Activities) ByType(ctx context.Context, activityType string) ([]model.Activity, error) {
	return r.FindByField(ctx, "type", activityType)
}

func newestFirst(items []model.Activity, limit int) []model.Activity {
	out := make([]model.Activity, len(items))
	for i, a := range items {
		out[len(items)-1-i] = a
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
