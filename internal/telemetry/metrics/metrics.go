// Package metrics exposes the transport's counters and gauges as
// Prometheus collectors, following the same client_golang types the
// retrieval pack's TCP_INFO exporters use for kernel socket stats —
// here applied to a userspace one instead of /proc.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the set of collectors a single Endpoint reports through.
// Each Endpoint is given its own Metrics, labeled with the connection
// id passed to New as a "conn" label, rather than sharing package-level
// globals, so many concurrent Endpoints in one process don't clobber
// one another's numbers. Registering the collectors is the caller's job.
type Metrics struct {
	FramesSent          prometheus.Counter
	FramesRetransmitted prometheus.Counter
	DuplicatesDropped   prometheus.Counter
	MalformedDropped    prometheus.Counter
	AckedSeq            prometheus.Gauge
	RecvWatermark       prometheus.Gauge
	BytesSent           prometheus.Counter
	BytesRecv           prometheus.Counter
}

// New builds a Metrics with every collector labeled conn=connID, ready
// to be registered with a prometheus.Registerer.
func New(connID string) *Metrics {
	labels := prometheus.Labels{"conn": connID}
	return &Metrics{
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "reliudp_frames_sent_total",
			Help:        "Data and control frames sent, including retransmissions.",
			ConstLabels: labels,
		}),
		FramesRetransmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "reliudp_frames_retransmitted_total",
			Help:        "Frames resent after their retransmit timeout elapsed unacked.",
			ConstLabels: labels,
		}),
		DuplicatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "reliudp_duplicates_dropped_total",
			Help:        "Inbound frames discarded because their sequence was already consumed.",
			ConstLabels: labels,
		}),
		MalformedDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "reliudp_malformed_dropped_total",
			Help:        "Inbound datagrams discarded for failing frame decode.",
			ConstLabels: labels,
		}),
		AckedSeq: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "reliudp_acked_seq",
			Help:        "Highest cumulative sequence number acknowledged by the peer.",
			ConstLabels: labels,
		}),
		RecvWatermark: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "reliudp_recv_watermark",
			Help:        "Next sequence number expected from the peer.",
			ConstLabels: labels,
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "reliudp_bytes_sent_total",
			Help:        "Payload bytes handed to Send, excluding retransmissions.",
			ConstLabels: labels,
		}),
		BytesRecv: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "reliudp_bytes_recv_total",
			Help:        "Payload bytes received in stream order and buffered for Recv.",
			ConstLabels: labels,
		}),
	}
}

// Collectors returns every collector in m, for bulk registration:
//
//	reg.MustRegister(m.Collectors()...)
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FramesSent,
		m.FramesRetransmitted,
		m.DuplicatesDropped,
		m.MalformedDropped,
		m.AckedSeq,
		m.RecvWatermark,
		m.BytesSent,
		m.BytesRecv,
	}
}
