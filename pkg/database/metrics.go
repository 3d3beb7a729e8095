package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStatsCollector implements prometheus.Collector for pgxpool connection
// metrics. Alongside the raw pgxpool counters it derives a utilization ratio
// (acquired/max), which is the number the saturation alerts watch.
type PoolStatsCollector struct {
	pool    *pgxpool.Pool
	service string

	acquiredConns      *prometheus.Desc
	idleConns          *prometheus.Desc
	totalConns         *prometheus.Desc
	maxConns           *prometheus.Desc
	utilization        *prometheus.Desc
	constructingConns  *prometheus.Desc
	acquireCount       *prometheus.Desc
	acquireDuration    *prometheus.Desc
	canceledAcquires   *prometheus.Desc
	emptyAcquires      *prometheus.Desc
	newConnsCount      *prometheus.Desc
	maxLifetimeDestroy *prometheus.Desc
	maxIdleDestroy     *prometheus.Desc
}

// NewPoolStatsCollector creates a Prometheus collector exporting pgxpool
// statistics, labeled with the service name.
func NewPoolStatsCollector(pool *pgxpool.Pool, service string) *PoolStatsCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(name, help, []string{"service"}, nil)
	}
	return &PoolStatsCollector{
		pool:               pool,
		service:            service,
		acquiredConns:      desc("db_pool_acquired_connections", "Number of currently acquired connections"),
		idleConns:          desc("db_pool_idle_connections", "Number of currently idle connections"),
		totalConns:         desc("db_pool_total_connections", "Total number of connections in the pool"),
		maxConns:           desc("db_pool_max_connections", "Maximum number of connections allowed"),
		utilization:        desc("db_pool_utilization_ratio", "Acquired connections as a fraction of the pool maximum"),
		constructingConns:  desc("db_pool_constructing_connections", "Number of connections currently being constructed"),
		acquireCount:       desc("db_pool_acquire_count_total", "Total number of connection acquires"),
		acquireDuration:    desc("db_pool_acquire_duration_seconds_total", "Total time spent acquiring connections in seconds"),
		canceledAcquires:   desc("db_pool_canceled_acquire_count_total", "Total number of canceled connection acquires"),
		emptyAcquires:      desc("db_pool_empty_acquire_count_total", "Total number of acquires that had to wait for a connection"),
		newConnsCount:      desc("db_pool_new_connections_total", "Total number of new connections created"),
		maxLifetimeDestroy: desc("db_pool_max_lifetime_destroy_total", "Total connections destroyed due to max lifetime"),
		maxIdleDestroy:     desc("db_pool_max_idle_destroy_total", "Total connections destroyed due to max idle time"),
	}
}

// Describe sends the descriptors of all metrics to the provided channel.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.acquiredConns, c.idleConns, c.totalConns, c.maxConns, c.utilization,
		c.constructingConns, c.acquireCount, c.acquireDuration,
		c.canceledAcquires, c.emptyAcquires, c.newConnsCount,
		c.maxLifetimeDestroy, c.maxIdleDestroy,
	} {
		ch <- d
	}
}

// Collect reads current pool statistics and sends them as Prometheus metrics.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.pool.Stat()

	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, c.service)
	}
	counter := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v, c.service)
	}

	gauge(c.acquiredConns, float64(stat.AcquiredConns()))
	gauge(c.idleConns, float64(stat.IdleConns()))
	gauge(c.totalConns, float64(stat.TotalConns()))
	gauge(c.maxConns, float64(stat.MaxConns()))
	if max := stat.MaxConns(); max > 0 {
		gauge(c.utilization, float64(stat.AcquiredConns())/float64(max))
	}
	gauge(c.constructingConns, float64(stat.ConstructingConns()))
	counter(c.acquireCount, float64(stat.AcquireCount()))
	counter(c.acquireDuration, stat.AcquireDuration().Seconds())
	counter(c.canceledAcquires, float64(stat.CanceledAcquireCount()))
	counter(c.emptyAcquires, float64(stat.EmptyAcquireCount()))
	counter(c.newConnsCount, float64(stat.NewConnsCount()))
	counter(c.maxLifetimeDestroy, float64(stat.MaxLifetimeDestroyCount()))
	counter(c.maxIdleDestroy, float64(stat.MaxIdleDestroyCount()))
}

// RegisterPoolMetrics creates and registers a pgxpool metrics collector with
// the default Prometheus registry.
func RegisterPoolMetrics(pool *pgxpool.Pool, service string) {
	prometheus.MustRegister(NewPoolStatsCollector(pool, service))
}
