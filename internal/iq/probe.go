package iq

import "os"

// FileState describes what a channel file looked like when it was probed.
type FileState int

const (
	StateAbsent FileState = iota
	StateEmpty
	StateHasData
)

func (s FileState) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateEmpty:
		return "empty"
	case StateHasData:
		return "has-data"
	default:
		return "unknown"
	}
}

// Probe is the result of ProbeFile.
type Probe struct {
	State FileState
	Size  int64 // Size in bytes, zero unless State is StateHasData
}

// ProbeFile reports whether path exists and how many bytes it holds. It never
// fails: any stat error, or a path that is not a regular file, reports
// StateAbsent.
func ProbeFile(path string) Probe {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return Probe{State: StateAbsent}
	}
	if info.Size() == 0 {
		return Probe{State: StateEmpty}
	}
	return Probe{State: StateHasData, Size: info.Size()}
}
