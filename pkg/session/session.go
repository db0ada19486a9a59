// Package session wires one remote sender's packet stream into the full
// pull chain described by the pipeline: sorted queues, optional FEC
// repair, delayed buffering, depacketization, PCM mapping, and the
// latency-driven resampler control loop. It also owns the per-session
// bookkeeping that sits alongside that chain but isn't part of it: link
// statistics and the no-playback watchdog.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roc-streaming/roc-go-receiver/pkg/audio"
	"github.com/roc-streaming/roc-go-receiver/pkg/fec"
	"github.com/roc-streaming/roc-go-receiver/pkg/packet"
	"github.com/roc-streaming/roc-go-receiver/pkg/sampleutil"
	"github.com/roc-streaming/roc-go-receiver/shared"
)

// ErrSessionDead is returned by ReadFrame once the session has been
// declared over: by the latency monitor (out-of-bounds latency), by the
// FEC reader (SSRC mismatch on a repaired packet) or by the no-playback
// watchdog.
var ErrSessionDead = errors.New("session is no longer alive")

// PacketSource is the network-facing boundary a host program implements
// to hand datagrams to the pipeline. Parsing and session routing happen
// on this side; the source only hands over bytes and a sender address.
type PacketSource interface {
	ReadPacket(ctx context.Context) (data []byte, addr string, err error)
}

// PacketSink is the (rarely needed) outbound counterpart, for control
// traffic a host program may want to send back (e.g. RTCP reports built
// from LinkStats). Not used by the core pipeline itself.
type PacketSink interface {
	WritePacket(ctx context.Context, data []byte, addr string) error
}

// FrameSink is the audio-device-facing boundary: wherever decoded frames
// ultimately go (a sound card, a WAV file, a test harness).
type FrameSink interface {
	Write(frame *audio.Frame) error
}

// queueReader adapts a *packet.Queue's ReadMode API to the zero-arg
// audio.PacketReader interface the delayed reader and FEC reader consume.
type queueReader struct {
	queue *packet.Queue
}

func (q *queueReader) Read() (*packet.Packet, error) {
	return q.queue.Read(packet.ModeFetch)
}

// Config bundles everything a Session needs beyond the raw queues, all of
// it values a session negotiation (SDP-equivalent) would normally produce.
type Config struct {
	SSRC        uint32
	InputSpec   sampleutil.SampleSpec
	OutputSpec  sampleutil.SampleSpec
	MaxQueueLen int

	// TargetLatencyNs is the depacketizer+latency-monitor's target
	// buffering depth.
	TargetLatencyNs int64
	LatencyMonitor  audio.LatencyMonitorConfig

	// FEC, if non-nil, enables loss repair via the given scheme's
	// decoder constructor and SSRC check.
	FEC *fec.Config

	// NoPlaybackTimeoutNs bounds how long the session tolerates
	// producing nothing but gap-filled silence before the watchdog
	// declares it dead.
	NoPlaybackTimeoutNs int64

	Logger shared.LoggerAdapter
}

// Session is one remote sender's end-to-end pull chain, from its sorted
// source/repair queues down to a single Read that yields decoded,
// rate-adapted frames in OutputSpec's format.
type Session struct {
	cfg Config

	// id correlates this session's log lines and diagnostics samples
	// across a run; it has no wire meaning.
	id uuid.UUID

	mu          sync.Mutex
	sourceQueue *packet.Queue
	repairQueue *packet.Queue

	fecReader    *fec.Reader
	delayed      *audio.DelayedReader
	depacketizer *audio.Depacketizer
	mapper       audio.Reader
	resampler    *audio.ResamplerReader
	latency      *audio.LatencyMonitor

	linkMeter *LinkMeter
	watchdog  *Watchdog

	logger shared.LoggerAdapter
}

// New constructs a Session. decoder is the PCM payload decoder for
// cfg.InputSpec.Format (see pkg/audio.NewPcmDecoder).
func New(cfg Config, decoder audio.PayloadDecoder) (*Session, error) {
	if err := cfg.InputSpec.Validate(); err != nil {
		return nil, fmt.Errorf("session: invalid input spec: %w", err)
	}
	if err := cfg.OutputSpec.Validate(); err != nil {
		return nil, fmt.Errorf("session: invalid output spec: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = shared.NopLogger()
	}

	id := uuid.New()
	logger = logger.With(zap.String("session_id", id.String()))

	s := &Session{
		cfg:         cfg,
		id:          id,
		sourceQueue: packet.NewQueue(cfg.MaxQueueLen),
		repairQueue: packet.NewQueue(cfg.MaxQueueLen),
		linkMeter:   NewLinkMeter(cfg.InputSpec.Rate),
		watchdog:    NewWatchdog(cfg.NoPlaybackTimeoutNs),
		logger:      logger,
	}

	var packetSource audio.PacketReader = &queueReader{queue: s.sourceQueue}
	if cfg.FEC != nil {
		fecCfg := *cfg.FEC
		fecCfg.SSRC = cfg.SSRC
		s.fecReader = fec.NewReader(fecCfg, s.sourceQueue, s.repairQueue)
		packetSource = s.fecReader
	}

	s.delayed = audio.NewDelayedReader(packetSource, cfg.InputSpec, cfg.TargetLatencyNs)
	s.depacketizer = audio.NewDepacketizer(s.delayed, decoder, cfg.InputSpec)

	var upstream audio.Reader = s.depacketizer
	if cfg.InputSpec.Format != cfg.OutputSpec.Format {
		mapper, err := audio.NewPcmMapperReader(upstream, cfg.OutputSpec.Format)
		if err != nil {
			return nil, fmt.Errorf("session: pcm mapper: %w", err)
		}
		upstream = mapper
	}
	s.mapper = upstream

	s.resampler = audio.NewResamplerReader(s.mapper, cfg.OutputSpec)

	s.latency = audio.NewLatencyMonitor(
		s.resampler, s.sourceQueue, s.depacketizer, s.resampler,
		cfg.InputSpec, cfg.LatencyMonitor, logger,
	)

	return s, nil
}

// WritePacket routes one parsed packet into the appropriate queue
// (source or repair, per its Flags) and folds it into the link meter.
// arrivalNs is the local wall-clock time the packet was received.
func (s *Session) WritePacket(p *packet.Packet, arrivalNs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Flags.Has(packet.FlagRepair) {
		return s.repairQueue.Write(p)
	}

	s.linkMeter.Update(p, arrivalNs)
	return s.sourceQueue.Write(p)
}

// ReadFrame pulls one frame of cfg.OutputSpec-formatted audio through the
// full chain, reporting watchdog progress and returning ErrSessionDead if
// either the latency monitor or the watchdog has declared the session
// over.
func (s *Session) ReadFrame(frame *audio.Frame, nowNs int64) error {
	if !s.Alive() {
		return fmt.Errorf("session: %w", ErrSessionDead)
	}
	if s.watchdog.Expired(nowNs) {
		return fmt.Errorf("session: %w", ErrSessionDead)
	}

	// The FEC reader holds the queues directly (it needs random access
	// across a block, not just FIFO dequeue), so the lock has to span
	// the whole pull instead of just the queue dequeue at its base.
	s.mu.Lock()
	err := s.latency.Read(frame)
	s.mu.Unlock()

	if err != nil {
		return err
	}

	if !frame.Flags.Has(audio.FlagIncomplete) {
		s.watchdog.ReportProgress(nowNs)
	}

	return nil
}

// Reclock forwards a playback-time report to the latency monitor, for
// e2e_latency tracking.
func (s *Session) Reclock(playbackTimestampNs int64) {
	s.latency.Reclock(playbackTimestampNs)
}

// LinkStats returns the session's accumulated jitter/loss statistics.
func (s *Session) LinkStats() LinkStats {
	return s.linkMeter.Stats()
}

// Metrics returns the session's latency snapshot.
func (s *Session) Metrics() audio.LatencyMonitorMetrics {
	return s.latency.Metrics()
}

// Alive reports whether the session is still usable.
func (s *Session) Alive() bool {
	return s.latency.Alive() && (s.fecReader == nil || s.fecReader.Alive())
}

// ID returns the session's correlation identifier, stable for its
// lifetime and unique per New call.
func (s *Session) ID() uuid.UUID {
	return s.id
}
