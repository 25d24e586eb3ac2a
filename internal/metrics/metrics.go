package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gnobounty"

var (
	ledgerCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "calls_total",
		Help:      "Count of qeval calls against the realm.",
	}, []string{"operation", "status"})
	ledgerCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "call_duration_seconds",
		Help:      "Duration of qeval calls against the realm.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})
	parsedRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "parser",
		Name:      "records_total",
		Help:      "Count of records considered by the dump parser, by outcome.",
	}, []string{"schema", "outcome"})
)

// Ledger tracks metrics for realm evaluation calls.
type Ledger struct{}

// NewLedger constructs a metrics collector for ledger calls.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Observe records a single call outcome and duration.
func (Ledger) Observe(operation string, err error, started time.Time) {
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}

	ledgerCallsTotal.WithLabelValues(operation, status).Inc()
	ledgerCallDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}

// Parser counts parser outcomes per schema.
type Parser struct{}

// NewParser constructs a metrics collector for the dump parser.
func NewParser() *Parser {
	return &Parser{}
}

func (Parser) ObserveRecord(schema, outcome string) {
	parsedRecordsTotal.WithLabelValues(schema, outcome).Inc()
}
