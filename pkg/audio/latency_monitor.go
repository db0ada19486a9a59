package audio

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/roc-streaming/roc-go-receiver/pkg/packet"
	"github.com/roc-streaming/roc-go-receiver/pkg/sampleutil"
	"github.com/roc-streaming/roc-go-receiver/shared"
)

// ScalingResampler is the subset of ResamplerReader the latency monitor
// needs: pushing a new scaling factor.
type ScalingResampler interface {
	Reader
	SetScaling(f float64) bool
}

// LatencyMonitorConfig carries the tunables for one session's latency
// monitor, mirroring roc_audio::LatencyMonitorConfig.
type LatencyMonitorConfig struct {
	// FeUpdateInterval is how often, in samples_per_channel of output,
	// the frequency estimator is updated and the resampler re-scaled.
	FeUpdateInterval uint32

	// TargetLatency is the desired niq_latency, in samples_per_channel.
	TargetLatency uint32

	// LatencyTolerance bounds niq_latency around TargetLatency; outside
	// [Target-Tolerance, Target+Tolerance] the session is declared dead
	// (subject to the empty-queue grace case).
	LatencyTolerance uint32

	// MaxScalingDelta bounds the frequency estimator's output around
	// 1.0, e.g. 0.005 allows freq_coeff in [0.995, 1.005].
	MaxScalingDelta float64

	Profile FreqEstimatorProfile
}

// LatencyMonitorMetrics is a read-only snapshot for diagnostics.
type LatencyMonitorMetrics struct {
	NiqLatencyNs int64
	E2eLatencyNs int64
}

// LatencyMonitor wraps the depacketizer and (optionally) a resampler,
// tracking niq_latency and e2e_latency and driving the frequency
// estimator's scaling updates. Port of roc_audio::LatencyMonitor.
type LatencyMonitor struct {
	upstream      Reader
	queue         *packet.Queue
	depacketizer  *Depacketizer
	resampler     ScalingResampler
	fe            *FreqEstimator
	spec          sampleutil.SampleSpec
	cfg           LatencyMonitorConfig
	logger        shared.LoggerAdapter

	minLatency int64
	maxLatency int64

	streamPos uint64
	streamCts int64
	updatePos uint64

	niqLatency    int64
	e2eLatency    int64
	hasNiqLatency bool

	alive bool
}

// NewLatencyMonitor constructs a LatencyMonitor. resampler may be nil, in
// which case no scaling is ever attempted (the session runs at a fixed
// 1.0 rate).
func NewLatencyMonitor(
	upstream Reader,
	queue *packet.Queue,
	depacketizer *Depacketizer,
	resampler ScalingResampler,
	spec sampleutil.SampleSpec,
	cfg LatencyMonitorConfig,
	logger shared.LoggerAdapter,
) *LatencyMonitor {
	if logger == nil {
		logger = shared.NopLogger()
	}

	m := &LatencyMonitor{
		upstream:     upstream,
		queue:        queue,
		depacketizer: depacketizer,
		resampler:    resampler,
		spec:         spec,
		cfg:          cfg,
		logger:       logger,
		minLatency:   int64(cfg.TargetLatency) - int64(cfg.LatencyTolerance),
		maxLatency:   int64(cfg.TargetLatency) + int64(cfg.LatencyTolerance),
		alive:        true,
	}

	if resampler != nil {
		m.fe = NewFreqEstimator(cfg.Profile, cfg.TargetLatency)
		resampler.SetScaling(1.0)
	}

	return m
}

// Alive reports whether the session is still within bounds.
func (m *LatencyMonitor) Alive() bool {
	return m.alive
}

// Metrics returns the latest latency snapshot, in nanoseconds.
func (m *LatencyMonitor) Metrics() LatencyMonitorMetrics {
	return LatencyMonitorMetrics{
		NiqLatencyNs: m.spec.StreamTimestampDeltaToNs(m.niqLatency),
		E2eLatencyNs: m.spec.StreamTimestampDeltaToNs(m.e2eLatency),
	}
}

// Read implements Reader. It updates niq_latency and, if configured, the
// frequency estimator's scaling before forwarding the pull to upstream.
func (m *LatencyMonitor) Read(frame *Frame) error {
	if !m.alive {
		return fmt.Errorf("audio: latency monitor: session is no longer alive")
	}

	m.computeNiqLatency()

	if err := m.update(); err != nil {
		m.alive = false
		return err
	}

	if err := m.upstream.Read(frame); err != nil {
		return err
	}

	m.streamPos += uint64(frame.DurationSamples)
	m.streamCts = frame.CaptureTimestampNs

	return nil
}

// Reclock is invoked once the device has reported when the most recently
// read frame will audibly play, so e2e_latency can be updated for
// reporting. It never fails the session.
func (m *LatencyMonitor) Reclock(playbackTimestampNs int64) {
	if m.streamCts == 0 {
		return
	}
	m.e2eLatency = m.spec.NsToStreamTimestampDelta(playbackTimestampNs - m.streamCts)
}

func (m *LatencyMonitor) computeNiqLatency() {
	if !m.depacketizer.IsStarted() {
		return
	}

	latest := m.queue.Latest()
	if latest == nil {
		return
	}

	niqHead := m.depacketizer.NextTimestamp()
	niqTail := latest.End()

	m.niqLatency = int64(packet.TimestampDiff(niqHead, niqTail))
	m.hasNiqLatency = true
}

func (m *LatencyMonitor) update() error {
	if !m.hasNiqLatency {
		return nil
	}

	if !m.checkBounds() {
		return fmt.Errorf("audio: latency monitor: niq_latency %d out of bounds [%d, %d]",
			m.niqLatency, m.minLatency, m.maxLatency)
	}

	if m.fe != nil {
		if err := m.updateScaling(); err != nil {
			return err
		}
	}

	return nil
}

// checkBounds applies the out-of-bounds rule: below min is tolerated while
// the incoming queue is empty (the watchdog decides the session's fate in
// that case), anything else out of range is fatal.
func (m *LatencyMonitor) checkBounds() bool {
	if m.niqLatency < m.minLatency && m.queue.Size() == 0 {
		return true
	}
	if m.niqLatency < m.minLatency || m.niqLatency > m.maxLatency {
		m.logger.Debug("latency monitor: latency out of bounds",
			zap.Int64("niq_latency", m.niqLatency),
			zap.Uint32("target", m.cfg.TargetLatency),
			zap.Int64("min", m.minLatency),
			zap.Int64("max", m.maxLatency),
			zap.Int("queue_size", m.queue.Size()))
		return false
	}
	return true
}

func (m *LatencyMonitor) updateScaling() error {
	latency := m.niqLatency
	if latency < 0 {
		latency = 0
	}

	if m.streamPos < m.updatePos {
		return nil
	}

	for m.updatePos <= m.streamPos {
		m.fe.Update(uint32(latency))
		m.updatePos += uint64(m.cfg.FeUpdateInterval)
	}

	coeff := m.fe.FreqCoeff()
	if coeff > 1+m.cfg.MaxScalingDelta {
		coeff = 1 + m.cfg.MaxScalingDelta
	} else if coeff < 1-m.cfg.MaxScalingDelta {
		coeff = 1 - m.cfg.MaxScalingDelta
	}

	if !m.resampler.SetScaling(coeff) {
		return fmt.Errorf("audio: latency monitor: scaling factor %f out of resampler range", coeff)
	}

	return nil
}
