package iq

import "math"

// NormStatus tells the caller whether normalization was applied.
type NormStatus int

const (
	NormOK NormStatus = iota
	NormEmpty
	NormPowerZero
)

func (s NormStatus) String() string {
	switch s {
	case NormOK:
		return "ok"
	case NormEmpty:
		return "empty"
	case NormPowerZero:
		return "power-zero"
	default:
		return "unknown"
	}
}

// NormalizedBatch is a batch scaled to unit mean power, which is the
// amplitude of an ideal BPSK reference, so a locked channel clusters at
// (±1, 0).
type NormalizedBatch struct {
	Samples    Batch
	MeanPower  float64 // Mean power of the source batch
	Scale      float64 // Factor applied to every sample, 1 when not normalized
	Normalized bool
	Status     NormStatus
}

// Normalize scales b by 1/sqrt(mean(|s|^2)). Batches without samples report
// NormEmpty; batches whose power is zero (or not finite) are returned
// unscaled and report NormPowerZero. b is never modified.
func Normalize(b Batch) NormalizedBatch {
	if len(b) == 0 {
		return NormalizedBatch{Samples: Batch{}, Scale: 1, Status: NormEmpty}
	}

	power := b.MeanPower()
	if power <= 0 || !isFinite(power) {
		return NormalizedBatch{
			Samples:   append(Batch(nil), b...),
			MeanPower: power,
			Scale:     1,
			Status:    NormPowerZero,
		}
	}

	scale := 1 / math.Sqrt(power)
	out := make(Batch, len(b))
	for i, s := range b {
		out[i] = complex(
			float32(float64(real(s))*scale),
			float32(float64(imag(s))*scale),
		)
	}

	return NormalizedBatch{
		Samples:    out,
		MeanPower:  power,
		Scale:      scale,
		Normalized: true,
		Status:     NormOK,
	}
}
