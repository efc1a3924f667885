// Package portal composes the repositories into the operations the portal
// screens need: dashboards, registration management, graduate search,
// certificate checks, geo ranking, reports and notifications. It holds no
// state of its own; every call recomputes from the store.
package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"maptss.ao/internal/audit"
	"maptss.ao/internal/errs"
	"maptss.ao/internal/ids"
	"maptss.ao/internal/notify"
	"maptss.ao/internal/obs"
	"maptss.ao/internal/repo"
)

const (
	// DefaultNearbyRadiusKm bounds NearbyCenters when no radius is given.
	DefaultNearbyRadiusKm = 50.0
	// RecentActivityLimit is how many activities the manager dashboard shows.
	RecentActivityLimit = 20

	defaultEnrichConcurrency = 8
	employerActivityLimit    = 10
	recentGraduatesLimit     = 10
)

// ActivityRecorder appends audit activities.
type ActivityRecorder interface {
	Record(ctx context.Context, activityType, userID, targetID, details string) error
}

// Service is the query and aggregation facade.
type Service struct {
	repos    *repo.Repos
	recorder ActivityRecorder
	hub      *notify.Hub
	logger   *slog.Logger
	now      func() time.Time
	gen      ids.Generator

	nearbyRadius float64
	enrichLimit  int
}

// Option configures the facade.
type Option func(*Service) error

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithIDGenerator overrides the id source. Each entity prefixes its own tag.
func WithIDGenerator(gen ids.Generator) Option {
	return func(s *Service) error {
		if gen != nil {
			s.gen = gen
		}
		return nil
	}
}

// WithRecorder replaces the default activity recorder.
func WithRecorder(r ActivityRecorder) Option {
	return func(s *Service) error {
		if r != nil {
			s.recorder = r
		}
		return nil
	}
}

// WithHub sets where sent notifications are fanned out.
func WithHub(h *notify.Hub) Option {
	return func(s *Service) error {
		if h != nil {
			s.hub = h
		}
		return nil
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) error {
		if l != nil {
			s.logger = l
		}
		return nil
	}
}

// WithNearbyRadius sets the default NearbyCenters radius in kilometres.
func WithNearbyRadius(km float64) Option {
	return func(s *Service) error {
		if km < 0 {
			return fmt.Errorf("portal: nearby radius must not be negative, got %v", km)
		}
		if km > 0 {
			s.nearbyRadius = km
		}
		return nil
	}
}

// WithEnrichConcurrency bounds the parallel lookups of
// RegistrationsForManagement.
func WithEnrichConcurrency(n int) Option {
	return func(s *Service) error {
		if n < 1 {
			return fmt.Errorf("portal: enrich concurrency must be positive, got %d", n)
		}
		s.enrichLimit = n
		return nil
	}
}

// New builds the facade over repos. Activities go to an audit recorder over
// repos.Activities unless WithRecorder says otherwise.
func New(repos *repo.Repos, opts ...Option) (*Service, error) {
	if repos == nil {
		return nil, errors.New("portal: repositories are required")
	}
	s := &Service{
		repos:        repos,
		hub:          notify.NewHub(),
		logger:       obs.Logger(),
		now:          time.Now,
		gen:          ids.New,
		nearbyRadius: DefaultNearbyRadiusKm,
		enrichLimit:  defaultEnrichConcurrency,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.recorder == nil {
		rec, err := audit.NewRecorder(repos.Activities, audit.WithClock(s.now), audit.WithIDGenerator(s.gen))
		if err != nil {
			return nil, err
		}
		s.recorder = rec
	}
	return s, nil
}

// Hub returns the notification fan-out hub.
func (s *Service) Hub() *notify.Hub { return s.hub }

func (s *Service) newID(prefix string) string {
	return ids.Prefixed(prefix, s.gen)()
}

func (s *Service) stamp() time.Time {
	return s.now().UTC()
}

// observe counts one facade call by outcome.
func observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = string(errs.KindOf(err))
	}
	obs.PortalOperations.WithLabelValues(op, result).Inc()
}
