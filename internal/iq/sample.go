package iq

import "math"

// SampleSize is the on-disk size of one complex64 sample: a little-endian
// float32 in-phase component followed by a float32 quadrature component.
const SampleSize = 8

// Batch is an ordered sequence of I/Q samples decoded from a contiguous byte
// range of one channel file. Batches returned by this package are never
// modified afterwards; operations that change samples return a copy.
type Batch []complex64

// Len returns the number of samples in the batch.
func (b Batch) Len() int {
	return len(b)
}

// ByteSize returns the number of file bytes the batch was decoded from.
func (b Batch) ByteSize() int64 {
	return int64(len(b)) * SampleSize
}

// Head returns at most n of the earliest samples. n <= 0 means no limit.
func (b Batch) Head(n int) Batch {
	if n <= 0 || len(b) <= n {
		return b
	}
	return b[:n:n]
}

// MeanPower returns mean(|s|^2) over the batch, accumulated in float64.
// An empty batch has zero power.
func (b Batch) MeanPower() float64 {
	if len(b) == 0 {
		return 0
	}

	var sum float64
	for _, s := range b {
		re, im := float64(real(s)), float64(imag(s))
		sum += re*re + im*im
	}
	return sum / float64(len(b))
}

// Points returns the samples as (I, Q) pairs for plotting.
func (b Batch) Points() [][2]float64 {
	points := make([][2]float64, len(b))
	for i, s := range b {
		points[i] = [2]float64{float64(real(s)), float64(imag(s))}
	}
	return points
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
