package compare

import (
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"

	fluxmetrics "github.com/fluxcd/stackdiff/pkg/metrics"
)

var (
	filesCompared = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: "stackdiff",
		Subsystem: "compare",
		Name:      "files_total",
		Help:      "Count of configuration files compared between stacks, by outcome.",
	}, []string{fluxmetrics.LabelOutcome})
)
