// Package metrics exposes the assistant's counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/teslashibe/go-blindaid/pkg/speech"
)

const namespace = "blindaid"

// Metrics holds all application metrics
type Metrics struct {
	// Camera and detection
	FramesRead      atomic.Uint64
	FrameFailures   atomic.Uint64
	FramesProcessed atomic.Uint64
	Detections      atomic.Uint64
	DetectErrors    atomic.Uint64

	// Speech
	Announcements   atomic.Uint64
	SpeechSpoken    atomic.Uint64
	SpeechThrottled atomic.Uint64
	SpeechFailed    atomic.Uint64
	DetectionActive atomic.Uint64 // 0 = idle, 1 = active

	// Voice commands
	CommandsStart        atomic.Uint64
	CommandsStop         atomic.Uint64
	CommandsCalibrate    atomic.Uint64
	CommandsUnrecognized atomic.Uint64

	// Calibration
	CalibrationsCommitted atomic.Uint64
	CalibrationsAborted   atomic.Uint64
	calibrationK          atomic.Uint64 // float64 bits

	// Latency
	DetectLatencyMs atomic.Uint64

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) gauge(name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help},
		fn,
	))
}

func (m *Metrics) counter(name, help string, v *atomic.Uint64) {
	m.gauge(name, help, func() float64 { return float64(v.Load()) })
}

func (m *Metrics) registerPrometheusMetrics() {
	m.counter("frames_read_total", "Total frames read from the camera", &m.FramesRead)
	m.counter("frame_failures_total", "Total failed camera reads", &m.FrameFailures)
	m.counter("frames_processed_total", "Total frames run through the detector", &m.FramesProcessed)
	m.counter("detections_total", "Total objects detected", &m.Detections)
	m.counter("detect_errors_total", "Total detector failures", &m.DetectErrors)

	m.counter("announcements_total", "Total obstacle announcements requested", &m.Announcements)
	m.counter("speech_spoken_total", "Total utterances played", &m.SpeechSpoken)
	m.counter("speech_throttled_total", "Total utterances dropped by the cooldown", &m.SpeechThrottled)
	m.counter("speech_failed_total", "Total utterances that failed to synthesize or play", &m.SpeechFailed)
	m.counter("detection_active", "Detection active (0=idle, 1=active)", &m.DetectionActive)

	m.counter("voice_commands_start_total", "Start detection commands heard", &m.CommandsStart)
	m.counter("voice_commands_stop_total", "Stop detection commands heard", &m.CommandsStop)
	m.counter("voice_commands_calibrate_total", "Calibrate commands heard", &m.CommandsCalibrate)
	m.counter("voice_commands_unrecognized_total", "Transcriptions with no command", &m.CommandsUnrecognized)

	m.counter("calibrations_committed_total", "Calibration sessions that saved a new K", &m.CalibrationsCommitted)
	m.counter("calibrations_aborted_total", "Calibration sessions that ended without samples", &m.CalibrationsAborted)
	m.gauge("calibration_k", "Current calibration constant, 0 when uncalibrated",
		func() float64 { return math.Float64frombits(m.calibrationK.Load()) })

	m.counter("detect_latency_ms", "Last detector latency in milliseconds", &m.DetectLatencyMs)
}

// ObserveSpeech counts the outcome of one speak request.
func (m *Metrics) ObserveSpeech(err error) {
	switch {
	case err == nil:
		m.SpeechSpoken.Add(1)
	case errors.Is(err, speech.ErrThrottled):
		m.SpeechThrottled.Add(1)
	default:
		m.SpeechFailed.Add(1)
	}
}

// ObserveCommand counts a voice command by name ("start", "stop",
// "calibrate"); anything else is unrecognized.
func (m *Metrics) ObserveCommand(name string) {
	switch name {
	case "start":
		m.CommandsStart.Add(1)
	case "stop":
		m.CommandsStop.Add(1)
	case "calibrate":
		m.CommandsCalibrate.Add(1)
	default:
		m.CommandsUnrecognized.Add(1)
	}
}

// SetCalibrationK records the current K. nil means uncalibrated.
func (m *Metrics) SetCalibrationK(k *float64) {
	v := 0.0
	if k != nil {
		v = *k
	}
	m.calibrationK.Store(math.Float64bits(v))
}

// SetDetectionActive records the detection flag.
func (m *Metrics) SetDetectionActive(active bool) {
	if active {
		m.DetectionActive.Store(1)
	} else {
		m.DetectionActive.Store(0)
	}
}

// UpdateDetectLatency records how long the last detection took.
func (m *Metrics) UpdateDetectLatency(d time.Duration) {
	m.DetectLatencyMs.Store(uint64(d.Milliseconds()))
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
