package obs

import "github.com/prometheus/client_golang/prometheus"

// buildInfo is a constant 1 gauge labelled with version and commit.
var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "build_info",
		Help: "MAPTSS build information.",
	},
	[]string{"version", "commit"},
)

// InitBuildInfo registers metrics (once) and sets build_info{version,commit} to 1.
func InitBuildInfo(version, commit string) {
	Init()
	buildInfo.WithLabelValues(version, commit).Set(1)
}
