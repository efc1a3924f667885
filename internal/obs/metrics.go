package obs

import (
	"fmt"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

var (
	initOnce sync.Once

	// StoreOperations counts record store calls by operation and collection.
	StoreOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maptss_store_operations_total",
			Help: "Record store operations by kind and collection.",
		},
		[]string{"op", "collection"},
	)

	// IndexRepairs counts index rebuilds triggered by a detected inconsistency.
	IndexRepairs = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "maptss_store_index_repairs_total",
		Help: "Index rebuilds triggered by a mismatch between persisted and derived indexes.",
	})

	// PortalOperations counts facade calls by operation and result kind.
	PortalOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maptss_portal_operations_total",
			Help: "Facade operations by name and result.",
		},
		[]string{"op", "result"},
	)

	// LoginAttempts counts login outcomes by role.
	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maptss_auth_logins_total",
			Help: "Login attempts by role and outcome.",
		},
		[]string{"role", "outcome"},
	)
)

// Init registers metrics in the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(StoreOperations, IndexRepairs, PortalOperations, LoginAttempts, buildInfo)
	})
}

// WriteText renders every metric family of the default gatherer in the
// Prometheus text exposition format.
func WriteText(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
