package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWatchdogNotExpiredBeforeFirstProgress(t *testing.T) {
	w := NewWatchdog(1000)
	require.False(t, w.Expired(5000))
}

func TestWatchdogExpiresAfterTimeoutSinceProgress(t *testing.T) {
	w := NewWatchdog(1000)
	w.ReportProgress(0)
	require.False(t, w.Expired(999))
	require.True(t, w.Expired(1000))
}

func TestWatchdogResetsOnProgress(t *testing.T) {
	w := NewWatchdog(1000)
	w.ReportProgress(0)
	w.ReportProgress(900)
	require.False(t, w.Expired(1800))
	require.True(t, w.Expired(1900))
}
