package diag

import (
	"context"
	"fmt"
	"time"

	"github.com/roc-streaming/roc-go-receiver/pkg/ringbuf"
	"github.com/roc-streaming/roc-go-receiver/shared"
)

// csvHeader is written once, before the first row.
const csvHeader = "ssrc,stream_pos,niq_latency_ns,e2e_latency_ns,freq_coeff\n"

// Dumper drains a diagnostics ring buffer and writes CSV rows through a
// shared.Printer. It is the single consumer side of the SPSC contract:
// exactly one Dumper per Ring.
type Dumper struct {
	ring     *ringbuf.Ring[Sample]
	printer  *shared.Printer
	interval time.Duration
	logger   shared.LoggerAdapter
}

// NewDumper builds a Dumper that writes to sink (a file, typically)
// through a shared.Printer, polling ring every interval for new samples.
func NewDumper(ring *ringbuf.Ring[Sample], sink shared.StringWriteCloser, interval time.Duration, logger shared.LoggerAdapter) (*Dumper, error) {
	printer, err := shared.NewPrinter("", sink)
	if err != nil {
		return nil, fmt.Errorf("diag: %w", err)
	}
	if logger == nil {
		logger = shared.NopLogger()
	}
	return &Dumper{ring: ring, printer: printer, interval: interval, logger: logger}, nil
}

// Run drains the ring until ctx is cancelled, then closes the underlying
// sink. It blocks; call it from its own goroutine.
func (d *Dumper) Run(ctx context.Context) error {
	if err := d.printer.Write(csvHeader, 0); err != nil {
		return fmt.Errorf("diag: writing header: %w", err)
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.drain()
			return d.printer.Close()
		case <-ticker.C:
			d.drain()
		}
	}
}

func (d *Dumper) drain() {
	for {
		sample, ok, err := d.ring.PopFront()
		if err != nil {
			d.logger.Warn("diag: dropping malformed sample")
			continue
		}
		if !ok {
			return
		}
		row := fmt.Sprintf("%d,%d,%d,%d,%.6f\n",
			sample.SSRC, sample.StreamPos, sample.NiqLatencyNs, sample.E2eLatencyNs, sample.FreqCoeff)
		if err := d.printer.Write(row, 0); err != nil {
			d.logger.Warn("diag: write failed")
			return
		}
	}
}
