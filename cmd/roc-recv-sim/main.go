// Command roc-recv-sim drives the full receiver pipeline against a
// synthetic, in-process packet source instead of a real socket, and
// writes the decoded output to a WAV file instead of a sound card. It
// exists to exercise pkg/session end to end (wire parsing, queueing,
// depacketization, resampling) without needing a network or an audio
// device, the way an integration test would but runnable as a standalone
// example.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/roc-streaming/roc-go-receiver/pkg/audio"
	"github.com/roc-streaming/roc-go-receiver/pkg/rtpwire"
	"github.com/roc-streaming/roc-go-receiver/pkg/sampleutil"
	"github.com/roc-streaming/roc-go-receiver/pkg/session"
	"github.com/roc-streaming/roc-go-receiver/shared"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "roc-recv-sim:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		out           = flag.String("out", "out.wav", "output WAV file path")
		packetCount   = flag.Int("packets", 200, "number of synthetic packets to generate")
		samplesPerPkt = flag.Uint("samples-per-packet", 480, "samples per channel per packet (10ms @ 48kHz)")
		lossRate      = flag.Float64("loss", 0.05, "fraction of packets dropped in transit")
		reorder       = flag.Int("reorder", 3, "reorder shuffle window size, 0 disables reordering")
		targetLatency = flag.Duration("target-latency", 200*time.Millisecond, "depacketizer/latency-monitor target depth")
	)
	flag.Parse()

	logger := shared.NewStdLogger()

	spec := sampleutil.SampleSpec{
		Rate:     48000,
		Format:   sampleutil.PcmSint16BE,
		Channels: sampleutil.ChannelSet{Mask: 1, Named: true},
	}

	decoder, err := audio.NewPcmDecoder(spec.Format)
	if err != nil {
		return fmt.Errorf("build pcm decoder: %w", err)
	}

	cfg := session.Config{
		SSRC:            1234,
		InputSpec:       spec,
		OutputSpec:      spec,
		MaxQueueLen:     64,
		TargetLatencyNs: targetLatency.Nanoseconds(),
		LatencyMonitor: audio.LatencyMonitorConfig{
			FeUpdateInterval: spec.Rate / 100, // every 10ms worth of samples
			TargetLatency:    uint32(spec.NsToSamplesPerChan(uint64(targetLatency.Nanoseconds()))),
			LatencyTolerance: uint32(spec.Rate), // 1s, generous for a short-lived demo run
			MaxScalingDelta:  0.1,
		},
		NoPlaybackTimeoutNs: (5 * time.Second).Nanoseconds(),
		Logger:              logger,
	}

	sess, err := session.New(cfg, decoder)
	if err != nil {
		return fmt.Errorf("build session: %w", err)
	}

	sink, err := NewWavSink(*out, spec)
	if err != nil {
		return fmt.Errorf("open wav sink: %w", err)
	}
	defer sink.Close()

	source := NewSynthSource(SynthSourceConfig{
		SSRC:          cfg.SSRC,
		Spec:          spec,
		SamplesPerPkt: uint32(*samplesPerPkt),
		PacketCount:   *packetCount,
		LossRate:      *lossRate,
		ReorderWindow: *reorder,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	binding := rtpwire.Binding{PayloadType: 97}
	bytesPerSample := spec.Format.BytesPerSample()
	numChannels := spec.NumChannels()
	samplesPerChan := func(payload []byte) uint32 {
		if bytesPerSample == 0 || numChannels == 0 {
			return 0
		}
		return uint32(len(payload) / (bytesPerSample * numChannels))
	}

	networkDone := make(chan error, 1)
	go func() {
		networkDone <- feedPackets(ctx, source, sess, binding, samplesPerChan, logger)
	}()

	if err := drainToSink(ctx, sess, sink, spec, *packetCount, *samplesPerPkt); err != nil {
		return fmt.Errorf("drain to sink: %w", err)
	}

	cancel()
	if err := <-networkDone; err != nil &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, ErrSourceExhausted) {
		logger.Warn("network feed ended with error", zap.Error(err))
	}

	stats := sess.LinkStats()
	logger.Info("done",
		zap.Uint64("packets_received", stats.PacketsReceived),
		zap.Int64("packets_lost", stats.PacketsLost),
		zap.Float64("jitter_samples", stats.JitterSamples),
		zap.String("last_source_addr", stats.LastSourceAddr))
	return nil
}

// feedPackets plays the role of a network receive thread: it pulls
// datagrams off source, parses them, and writes them into sess until the
// source runs dry or ctx is canceled.
func feedPackets(
	ctx context.Context,
	source *SynthSource,
	sess *session.Session,
	binding rtpwire.Binding,
	samplesPerChan func([]byte) uint32,
	logger shared.LoggerAdapter,
) error {
	for {
		data, addr, err := source.ReadPacket(ctx)
		if err != nil {
			return err
		}

		p, err := rtpwire.Parse(data, binding, samplesPerChan)
		if err != nil {
			logger.Warn("dropping unparsable packet")
			continue
		}
		p.UDPSourceAddr = addr

		if err := sess.WritePacket(p, time.Now().UnixNano()); err != nil {
			logger.Warn("dropping packet rejected by session")
		}
	}
}

// drainToSink plays the role of an audio device pull thread: it reads
// frames from sess at a fixed cadence and writes them to sink until the
// session is declared dead or enough audio has been produced to account
// for every packet the source was configured to emit.
func drainToSink(
	ctx context.Context,
	sess *session.Session,
	sink *WavSink,
	spec sampleutil.SampleSpec,
	packetCount int,
	samplesPerPkt uint,
) error {
	const frameSamples = 480
	totalWant := uint64(packetCount) * uint64(samplesPerPkt)

	var produced uint64
	nowNs := int64(0)
	for produced < totalWant {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame := &audio.Frame{DurationSamples: frameSamples}
		if err := sess.ReadFrame(frame, nowNs); err != nil {
			if errors.Is(err, session.ErrSessionDead) {
				return nil
			}
			return err
		}
		if err := sink.Write(frame); err != nil {
			return err
		}

		produced += frameSamples
		nowNs += int64(spec.SamplesPerChanToNs(frameSamples))
	}
	return nil
}
