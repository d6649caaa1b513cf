package iq

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNoPRN is returned when a file name does not carry a numeric channel
// identifier.
var ErrNoPRN = errors.New("no PRN in file name")

// ParsePRN extracts the PRN from a channel file name: the token between the
// last '_' and the extension, e.g. "tracking_PRN_12.dat" is PRN 12.
func ParsePRN(path string) (int, error) {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	token := name
	if i := strings.LastIndexByte(name, '_'); i >= 0 {
		token = name[i+1:]
	}

	prn, err := strconv.Atoi(token)
	if err != nil || prn < 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoPRN, filepath.Base(path))
	}
	return prn, nil
}
