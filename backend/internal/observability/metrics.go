package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "persinteret_operation_seconds",
		Help:    "Time spent serving a data-access operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persinteret_operation_errors_total",
		Help: "Total number of data-access operations that returned an error.",
	}, []string{"operation", "type"})

	FallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persinteret_fallbacks_total",
		Help: "Total number of failures answered with a default value instead of an error.",
	}, []string{"operation"})

	PhotoBytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "persinteret_photo_bytes_written_total",
		Help: "Total number of photo bytes written to the side store.",
	})
)
