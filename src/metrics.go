package direwolf

// Prometheus metrics for a running receiver.
//
// Attach with (*Metrics).Attach and serve with Handler.  Nothing here is on
// the per-sample path except the DCD transitions, which are rare.

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	framesTotal    *prometheus.CounterVec   // Frames with good FCS (by channel, subchannel, slice, retries)
	dcdTransitions *prometheus.CounterVec   // DCD changes (by channel, subchannel, slice, state)
	dcdState       *prometheus.GaugeVec     // Current DCD (by channel, subchannel, slice)
	channelBusy    *prometheus.GaugeVec     // Composite DCD for the channel
	audioLevel     *prometheus.GaugeVec     // Audio level of the last frame (by channel, kind: rec, mark, space)
	speedError     *prometheus.HistogramVec // Transmitter speed error in percent (by channel)
}

func NewMetrics() *Metrics {
	var reg = prometheus.NewRegistry()
	var factory = promauto.With(reg)

	var m = &Metrics{registry: reg}

	m.framesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "samoyed_rx_frames_total",
		Help: "Frames received with a good FCS",
	}, []string{"channel", "subchannel", "slice", "retries"})

	m.dcdTransitions = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "samoyed_rx_dcd_transitions_total",
		Help: "Data carrier detect changes per slicer",
	}, []string{"channel", "subchannel", "slice", "state"})

	m.dcdState = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "samoyed_rx_dcd",
		Help: "Data carrier detect per slicer (1=locked on to a signal)",
	}, []string{"channel", "subchannel", "slice"})

	m.channelBusy = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "samoyed_rx_channel_busy",
		Help: "Any demodulator of the channel has data carrier detect",
	}, []string{"channel"})

	m.audioLevel = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "samoyed_rx_audio_level",
		Help: "Received audio level at the end of the last frame",
	}, []string{"channel", "kind"})

	m.speedError = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "samoyed_rx_speed_error_percent",
		Help:    "Estimated transmitter data rate error",
		Buckets: prometheus.LinearBuckets(-5, 0.5, 21),
	}, []string{"channel"})

	return m
}

// Registry holding only the receiver metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}) //nolint:exhaustruct
}

// Start listening to everything the receiver reports.
func (m *Metrics) Attach(r *Receiver) {
	r.AddPacketSink(m)
	r.AddDCDListener(m)
	r.AddChannelBusyListener(m)
}

func (m *Metrics) RecPacket(p *Packet) {
	var ch = strconv.Itoa(p.Channel)

	m.framesTotal.WithLabelValues(ch, strconv.Itoa(p.Subchannel), strconv.Itoa(p.Slice), strconv.Itoa(int(p.Retries))).Inc()

	if p.Alevel != noAudioLevel {
		m.audioLevel.WithLabelValues(ch, "rec").Set(float64(p.Alevel.Rec))
		if p.Alevel.Mark >= 0 {
			m.audioLevel.WithLabelValues(ch, "mark").Set(float64(p.Alevel.Mark))
		}
		if p.Alevel.Space >= 0 {
			m.audioLevel.WithLabelValues(ch, "space").Set(float64(p.Alevel.Space))
		}
	}

	m.speedError.WithLabelValues(ch).Observe(p.SpeedError)
}

func (m *Metrics) DCDChange(channel, subchannel, slice int, asserted bool) {
	var ch, sub, sl = strconv.Itoa(channel), strconv.Itoa(subchannel), strconv.Itoa(slice)

	m.dcdTransitions.WithLabelValues(ch, sub, sl, IfThenElse(asserted, "on", "off")).Inc()
	m.dcdState.WithLabelValues(ch, sub, sl).Set(IfThenElse(asserted, 1.0, 0.0))
}

func (m *Metrics) ChannelBusy(channel int, busy bool) {
	m.channelBusy.WithLabelValues(strconv.Itoa(channel)).Set(IfThenElse(busy, 1.0, 0.0))
}
