package session

// Watchdog declares a session dead after it has gone too long without
// producing any real (non-silent) audio. It exists to resolve the grace
// case the latency monitor leaves open: niq_latency below the minimum
// while the incoming queue is empty is tolerated indefinitely by the
// latency monitor itself, on the assumption that something downstream
// will eventually time out a session that never recovers. This is that
// something.
type Watchdog struct {
	timeoutNs      int64
	lastProgressNs int64
	started        bool
}

// NewWatchdog constructs a Watchdog that considers a session dead once
// timeoutNs nanoseconds pass without a call to ReportProgress.
func NewWatchdog(timeoutNs int64) *Watchdog {
	return &Watchdog{timeoutNs: timeoutNs}
}

// ReportProgress resets the timeout clock. Call this whenever a frame
// read produces at least one sample that did not come from gap-filling
// (i.e. frame.Flags does not have FlagIncomplete, or a partial frame still
// carried some real samples).
func (w *Watchdog) ReportProgress(nowNs int64) {
	w.lastProgressNs = nowNs
	w.started = true
}

// Expired reports whether the session should be torn down. The very
// first call arms the clock (starting it at nowNs) rather than declaring
// expiry, so a session that has simply never been checked before isn't
// immediately killed; every call after that measures elapsed time since
// the last progress report (or since arming, if none has happened yet).
func (w *Watchdog) Expired(nowNs int64) bool {
	if !w.started {
		w.lastProgressNs = nowNs
		w.started = true
		return false
	}
	return nowNs-w.lastProgressNs >= w.timeoutNs
}
