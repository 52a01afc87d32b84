// Package metrics exposes pool and worker state in Prometheus format.
package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// WorkerStats is the view of the probe worker pool the collector reads.
type WorkerStats interface {
	InFlight() int
	Queued() int
}

// PoolCollector reads pgxpool and worker stats at scrape time.
type PoolCollector struct {
	pool    *pgxpool.Pool
	workers WorkerStats

	totalConns      *prometheus.Desc
	idleConns       *prometheus.Desc
	acquiredConns   *prometheus.Desc
	maxConns        *prometheus.Desc
	acquireCount    *prometheus.Desc
	acquireSeconds  *prometheus.Desc
	emptyAcquires   *prometheus.Desc
	canceledAcquire *prometheus.Desc
	workersInFlight *prometheus.Desc
	workersQueued   *prometheus.Desc
}

func NewPoolCollector(pool *pgxpool.Pool, workers WorkerStats) *PoolCollector {
	return &PoolCollector{
		pool:    pool,
		workers: workers,

		totalConns:      prometheus.NewDesc("db_pool_conns", "Total connections in pool.", nil, nil),
		idleConns:       prometheus.NewDesc("db_pool_idle_conns", "Idle connections in pool.", nil, nil),
		acquiredConns:   prometheus.NewDesc("db_pool_acquired_conns", "Connections currently borrowed from the pool.", nil, nil),
		maxConns:        prometheus.NewDesc("db_pool_max_conns", "Maximum size of the pool.", nil, nil),
		acquireCount:    prometheus.NewDesc("db_pool_acquires_total", "Total pool acquires.", nil, nil),
		acquireSeconds:  prometheus.NewDesc("db_pool_acquire_seconds_total", "Sum of acquire latencies.", nil, nil),
		emptyAcquires:   prometheus.NewDesc("db_pool_empty_acquires_total", "Acquires that had to wait for a connection.", nil, nil),
		canceledAcquire: prometheus.NewDesc("db_pool_canceled_acquires_total", "Acquires cancelled by their context.", nil, nil),
		workersInFlight: prometheus.NewDesc("worker_inflight", "Health probes currently running.", nil, nil),
		workersQueued:   prometheus.NewDesc("worker_queued", "Health probes waiting for a worker.", nil, nil),
	}
}

func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalConns
	ch <- c.idleConns
	ch <- c.acquiredConns
	ch <- c.maxConns
	ch <- c.acquireCount
	ch <- c.acquireSeconds
	ch <- c.emptyAcquires
	ch <- c.canceledAcquire
	ch <- c.workersInFlight
	ch <- c.workersQueued
}

func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stat()

	gauge := func(desc *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v)
	}
	counter := func(desc *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, v)
	}

	gauge(c.totalConns, float64(s.TotalConns()))
	gauge(c.idleConns, float64(s.IdleConns()))
	gauge(c.acquiredConns, float64(s.AcquiredConns()))
	gauge(c.maxConns, float64(s.MaxConns()))
	counter(c.acquireCount, float64(s.AcquireCount()))
	counter(c.acquireSeconds, s.AcquireDuration().Seconds())
	counter(c.emptyAcquires, float64(s.EmptyAcquireCount()))
	counter(c.canceledAcquire, float64(s.CanceledAcquireCount()))
	gauge(c.workersInFlight, float64(c.workers.InFlight()))
	gauge(c.workersQueued, float64(c.workers.Queued()))
}

// NewRegistry returns a fresh registry with the Go and process collectors plus cs.
func NewRegistry(cs ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reg.MustRegister(cs...)
	return reg
}
