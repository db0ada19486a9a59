package audio

// FreqEstimatorProfile selects the gain tuning used by a FreqEstimator. The
// names mirror how roc_audio::FreqEstimator picks gains per deployment
// scenario: small devices favor a gentler response, desktop-class CPUs can
// afford a snappier one.
type FreqEstimatorProfile int

const (
	FreqEstimatorProfileResponsive FreqEstimatorProfile = iota
	FreqEstimatorProfileGradual
)

func gainsFor(profile FreqEstimatorProfile) (p, i float64) {
	switch profile {
	case FreqEstimatorProfileResponsive:
		return 1e-6, 1e-9
	default:
		return 2e-7, 2e-10
	}
}

// FreqEstimator is a discrete-time PI control loop producing a scaling
// factor around 1.0 from the error between a measured latency and a target
// latency. Port of roc_audio::FreqEstimator.
type FreqEstimator struct {
	targetLatency uint32

	pGain float64
	iGain float64

	integral float64
	coeff    float64
}

// NewFreqEstimator constructs an estimator that converges niq_latency
// toward targetLatency (in samples_per_channel).
func NewFreqEstimator(profile FreqEstimatorProfile, targetLatency uint32) *FreqEstimator {
	p, i := gainsFor(profile)
	return &FreqEstimator{
		targetLatency: targetLatency,
		pGain:         p,
		iGain:         i,
		coeff:         1,
	}
}

// Update feeds one latency measurement into the control loop and
// recomputes the scaling coefficient. latency is clamped to >= 0 by the
// caller before this is invoked.
func (fe *FreqEstimator) Update(latency uint32) {
	if fe.targetLatency == 0 {
		return
	}

	e := float64(int64(latency) - int64(fe.targetLatency))
	eNorm := e / float64(fe.targetLatency)

	fe.integral += fe.iGain * eNorm
	// clamp the integral term to prevent windup: once the proportional
	// term alone would already saturate max_scaling_delta, further
	// accumulation only adds overshoot once the error reverses.
	const integralClamp = 0.01
	if fe.integral > integralClamp {
		fe.integral = integralClamp
	} else if fe.integral < -integralClamp {
		fe.integral = -integralClamp
	}

	fe.coeff = 1 + fe.pGain*eNorm + fe.integral
}

// FreqCoeff returns the last-computed scaling factor. Callers between
// Update calls get the same value every time.
func (fe *FreqEstimator) FreqCoeff() float64 {
	return fe.coeff
}
