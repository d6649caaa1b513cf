package iq

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// DecodeError is returned by DecodeRange when the byte range could not be
// read, e.g. the file was removed between probe and read.
type DecodeError struct {
	Path       string
	Start, End int64
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s [%d, %d): %s", e.Path, e.Start, e.End, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeBytes decodes p as concatenated little-endian complex64 samples.
// Trailing bytes that do not form a whole sample are ignored.
func DecodeBytes(p []byte) Batch {
	n := len(p) / SampleSize
	batch := make(Batch, n)
	for i := 0; i < n; i++ {
		off := i * SampleSize
		re := math.Float32frombits(binary.LittleEndian.Uint32(p[off:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(p[off+4:]))
		batch[i] = complex(re, im)
	}
	return batch
}

// EncodeBytes is the inverse of DecodeBytes.
func EncodeBytes(b Batch) []byte {
	p := make([]byte, len(b)*SampleSize)
	for i, s := range b {
		off := i * SampleSize
		binary.LittleEndian.PutUint32(p[off:], math.Float32bits(real(s)))
		binary.LittleEndian.PutUint32(p[off+4:], math.Float32bits(imag(s)))
	}
	return p
}

// DecodeRange reads the byte range [start, end) of path and decodes it. Only
// whole samples are read, so the returned batch covers
// [start, start+batch.ByteSize()). A range shorter than one sample yields an
// empty batch and no error.
func DecodeRange(path string, start, end int64) (Batch, error) {
	if start < 0 || end < start {
		return nil, &DecodeError{Path: path, Start: start, End: end, Err: fmt.Errorf("invalid range")}
	}

	size := (end - start) / SampleSize * SampleSize
	if size == 0 {
		return Batch{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Start: start, End: end, Err: err}
	}
	defer f.Close()

	p := make([]byte, size)
	if _, err = io.ReadFull(io.NewSectionReader(f, start, size), p); err != nil {
		return nil, &DecodeError{Path: path, Start: start, End: end, Err: err}
	}

	return DecodeBytes(p), nil
}
