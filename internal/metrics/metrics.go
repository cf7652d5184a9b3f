// Package metrics exposes Prometheus metrics for the helmet and base services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"helmet-signal/internal/types"
)

var (
	framesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helmet",
		Name:      "frames_received_total",
		Help:      "Radio frames accepted by the helmet, by message type",
	}, []string{"type"})

	framesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helmet",
		Name:      "frames_dropped_total",
		Help:      "Radio frames discarded before reaching the control loop",
	}, []string{"reason"})

	linkUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "helmet",
		Name:      "link_up",
		Help:      "1 while frames arrive from the base within the link timeout",
	})

	brightness = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "helmet",
		Name:      "brightness",
		Help:      "Current strip brightness (0-255)",
	})

	signal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "helmet",
		Name:      "signal",
		Help:      "Current signal bitmask (1=left, 2=right, 4=brake)",
	})

	renderFrames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "helmet",
		Name:      "render_frames_total",
		Help:      "Frames pushed to the LED strip",
	})

	framesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "base",
		Name:      "frames_sent_total",
		Help:      "Radio frames sent by the base, by message type",
	}, []string{"type"})

	sendErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "base",
		Name:      "send_errors_total",
		Help:      "Radio sends that failed",
	})
)

// FrameReceived counts an accepted frame of the given type name.
func FrameReceived(msgType string) {
	framesReceived.WithLabelValues(msgType).Inc()
}

// FrameDropped counts a discarded frame. Reasons in use are crc,
// malformed, overflow, duplicate, misaddressed and foreign.
func FrameDropped(reason string) {
	framesDropped.WithLabelValues(reason).Inc()
}

func SetLinkUp(up bool) {
	if up {
		linkUp.Set(1)
	} else {
		linkUp.Set(0)
	}
}

func SetBrightness(b uint8) {
	brightness.Set(float64(b))
}

func SetSignal(s types.Signal) {
	signal.Set(float64(s))
}

func FrameRendered() {
	renderFrames.Inc()
}

func FrameSent(msgType string) {
	framesSent.WithLabelValues(msgType).Inc()
}

func SendFailed() {
	sendErrors.Inc()
}
