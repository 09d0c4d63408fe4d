package settings

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "mothy_settings_cache_total",
	Help: "Guild settings lookups by result",
}, []string{"result"})

var fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "mothy_settings_fetch_duration_sec",
	Help:    "Time spent loading guild settings from storage",
	Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
})

var fetchErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "mothy_settings_fetch_errors_total",
	Help: "Guild settings loads that failed in storage or decoding",
})
