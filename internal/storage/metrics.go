package storage

import "github.com/prometheus/client_golang/prometheus"

var (
	recordsStored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rostervault_records_stored_total",
		Help: "Record files written.",
	})

	recordsLoaded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rostervault_records_loaded_total",
		Help: "Record files loaded by directory scans.",
	})

	loadFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rostervault_record_load_failures_total",
		Help: "Record files skipped by directory scans, by reason.",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(recordsStored, recordsLoaded, loadFailures)
}
