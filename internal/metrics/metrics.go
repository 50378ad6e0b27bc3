// Package metrics 导出服务端的 Prometheus 指标。
// *Collector 为 nil 时所有方法都是空操作，未开启指标时可以直接传 nil。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

type Collector struct {
	registry *prometheus.Registry

	connections    prometheus.Gauge
	accepted       prometheus.Counter
	commands       *prometheus.CounterVec
	protocolErrors prometheus.Counter
	requestBytes   prometheus.Histogram
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Collector{
		registry: reg,
		connections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "nessdb_connections",
			Help: "Number of currently connected clients",
		}),
		accepted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "nessdb_connections_accepted_total",
			Help: "Total number of accepted client connections",
		}),
		commands: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nessdb_commands_total",
				Help: "Total number of processed commands by command and result",
			},
			[]string{"command", "result"},
		),
		protocolErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "nessdb_protocol_errors_total",
			Help: "Total number of malformed requests",
		}),
		requestBytes: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name: "nessdb_read_bytes",
			Help: "Distribution of bytes received per readable event",
			Buckets: []float64{
				64,    // single small command
				512,   // short pipeline
				4096,  // 4KB
				10240, // default read buffer
				65536, // 64KB
			},
		}),
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.accepted.Inc()
	c.connections.Inc()
}

func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connections.Dec()
}

// SetConnections 用计数器的真实值校正 gauge
func (c *Collector) SetConnections(n int64) {
	if c == nil {
		return
	}
	c.connections.Set(float64(n))
}

func (c *Collector) ObserveCommand(command string, ok bool) {
	if c == nil {
		return
	}
	result := ResultOK
	if !ok {
		result = ResultError
	}
	c.commands.WithLabelValues(command, result).Inc()
}

func (c *Collector) ProtocolError() {
	if c == nil {
		return
	}
	c.protocolErrors.Inc()
}

func (c *Collector) ObserveRead(n int) {
	if c == nil {
		return
	}
	c.requestBytes.Observe(float64(n))
}
