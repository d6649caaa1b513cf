package iq

import "math"

// LockStats summarizes how well a batch matches a locked BPSK signal.
type LockStats struct {
	MeanPower float64 // mean(|s|^2)

	// PhaseLock is the narrow-band phase lock indicator
	// (ΣI² - ΣQ²) / (ΣI² + ΣQ²). It approaches 1 when the carrier phase
	// is locked and all energy sits on the I axis, 0 for a free-running
	// carrier and -1 when the energy is on the Q axis.
	PhaseLock float64

	// MeanPhaseError is the average BPSK-folded carrier phase error in
	// radians, within [-π/2, π/2].
	MeanPhaseError float64
}

// Stats computes lock statistics for b. An empty or zero-power batch returns
// the zero value. MeanPower comes from the same ΣI² + ΣQ² sums as PhaseLock,
// so it matches Normalize(b).MeanPower without a separate pass.
func Stats(b Batch) LockStats {
	if len(b) == 0 {
		return LockStats{}
	}

	var sumI2, sumQ2, sumErr float64
	for _, s := range b {
		i, q := float64(real(s)), float64(imag(s))
		sumI2 += i * i
		sumQ2 += q * q

		// data bits flip the sign of I, fold them away before measuring
		if i < 0 {
			i, q = -i, -q
		}
		sumErr += math.Atan2(q, i)
	}

	total := sumI2 + sumQ2
	if total == 0 || !isFinite(total) {
		return LockStats{}
	}

	n := float64(len(b))
	return LockStats{
		MeanPower:      total / n,
		PhaseLock:      (sumI2 - sumQ2) / total,
		MeanPhaseError: sumErr / n,
	}
}
