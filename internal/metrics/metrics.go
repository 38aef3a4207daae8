// Package metrics содержит метрики синхронизации и операций хранилищ.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Результаты операций для меток.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultRejected = "rejected"
)

// SyncMetrics собирает метрики загрузок и изменений.
type SyncMetrics struct {
	registry  *prometheus.Registry
	fetches   *prometheus.CounterVec
	latencyMS *prometheus.HistogramVec
	cacheSize *prometheus.GaugeVec
	mutations *prometheus.CounterVec
}

// NewSyncMetrics создаёт метрики в собственном реестре.
func NewSyncMetrics() *SyncMetrics {
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "foodadmin",
		Subsystem: "sync",
		Name:      "fetch_total",
		Help:      "Total number of list fetches against the remote service.",
	}, []string{"store", "result"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "foodadmin",
		Subsystem: "sync",
		Name:      "fetch_duration_ms",
		Help:      "List fetch latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"store"})
	cacheSize := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "foodadmin",
		Name:      "cache_items",
		Help:      "Number of entries in the local cache.",
	}, []string{"store"})
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "foodadmin",
		Name:      "mutation_total",
		Help:      "Total number of add/remove/status-update operations.",
	}, []string{"op", "result"})

	reg := prometheus.NewRegistry()
	reg.MustRegister(fetches, latency, cacheSize, mutations)

	return &SyncMetrics{
		registry:  reg,
		fetches:   fetches,
		latencyMS: latency,
		cacheSize: cacheSize,
		mutations: mutations,
	}
}

// ObserveFetch учитывает одну загрузку списка. Метод безопасен для nil.
func (m *SyncMetrics) ObserveFetch(store, result string, d time.Duration, size int) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(store, result).Inc()
	m.latencyMS.WithLabelValues(store).Observe(float64(d.Milliseconds()))
	if result == ResultOK {
		m.cacheSize.WithLabelValues(store).Set(float64(size))
	}
}

// SetCacheSize обновляет размер кэша после локального изменения.
func (m *SyncMetrics) SetCacheSize(store string, size int) {
	if m == nil {
		return
	}
	m.cacheSize.WithLabelValues(store).Set(float64(size))
}

// ObserveMutation учитывает одну операцию изменения.
func (m *SyncMetrics) ObserveMutation(op, result string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, result).Inc()
}

// Registry возвращает реестр метрик.
func (m *SyncMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler возвращает HTTP-обработчик для экспорта метрик.
func (m *SyncMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
