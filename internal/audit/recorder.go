package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"maptss.ao/internal/ids"
	"maptss.ao/internal/model"
	"maptss.ao/internal/repo"
)

// Recorder appends activities to the bounded activity log and mirrors each
// one as an audit log line. It satisfies auth.ActivityRecorder.
type Recorder struct {
	activities *repo.Activities
	now        func() time.Time
	newID      ids.Generator
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the activity timestamp source.
func WithClock(fn func() time.Time) Option {
	return func(r *Recorder) {
		if fn != nil {
			r.now = fn
		}
	}
}

// WithIDGenerator overrides the activity id source. Ids are prefixed "act_".
func WithIDGenerator(gen ids.Generator) Option {
	return func(r *Recorder) {
		if gen != nil {
			r.newID = ids.Prefixed("act", gen)
		}
	}
}

func NewRecorder(activities *repo.Activities, opts ...Option) (*Recorder, error) {
	if activities == nil {
		return nil, errors.New("audit: activities repository is required")
	}
	r := &Recorder{
		activities: activities,
		now:        time.Now,
		newID:      ids.Prefixed("act", ids.New),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Record persists one activity. The oldest entries are evicted once the
// activity log is full.
func (r *Recorder) Record(ctx context.Context, activityType, userID, targetID, details string) error {
	activityType = strings.TrimSpace(activityType)
	if activityType == "" {
		return errors.New("activity type is required")
	}
	act := model.Activity{
		Meta:      model.Meta{ID: r.newID()},
		Type:      activityType,
		UserID:    userID,
		TargetID:  targetID,
		Details:   details,
		Timestamp: r.now().UTC(),
	}
	if _, err := r.activities.Upsert(ctx, act); err != nil {
		return fmt.Errorf("record activity %s: %w", activityType, err)
	}
	fields := map[string]any{"activity_id": act.ID}
	if userID != "" {
		fields["actor"] = userID
	}
	if targetID != "" {
		fields["target"] = targetID
	}
	if details != "" {
		fields["details"] = details
	}
	return LogEvent(ctx, activityType, fields)
}
