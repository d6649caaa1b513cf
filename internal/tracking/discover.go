package tracking

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/roman-kulish/gnss-constellation/internal/iq"
)

// DefaultPattern matches the channel files written by the tracking loops.
const DefaultPattern = "tracking_PRN_*.dat"

// ErrNoChannels is returned when a directory holds no channel files.
var ErrNoChannels = errors.New("no channel files found")

// ChannelFile is a channel data file and the PRN parsed from its name.
type ChannelFile struct {
	PRN  int
	Path string
}

// DiscoverChannels lists the channel files in dir matching pattern, sorted by
// PRN. Files whose name carries no PRN are skipped with a warning.
func DiscoverChannels(dir, pattern string, logger *slog.Logger) ([]ChannelFile, error) {
	if logger == nil {
		logger = discardLogger()
	}
	if pattern == "" {
		pattern = DefaultPattern
	}

	paths, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("listing channel files: %w", err)
	}

	files := make([]ChannelFile, 0, len(paths))
	for _, path := range paths {
		prn, err := iq.ParsePRN(path)
		if err != nil {
			logger.Warn("skipping file", slog.String("path", path), slog.String("reason", err.Error()))
			continue
		}
		files = append(files, ChannelFile{PRN: prn, Path: path})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoChannels, filepath.Join(dir, pattern))
	}

	SortChannels(files)
	return files, nil
}

// SortChannels orders files by PRN, then by path for equal PRNs.
func SortChannels(files []ChannelFile) {
	slices.SortStableFunc(files, func(a, b ChannelFile) int {
		if a.PRN != b.PRN {
			return a.PRN - b.PRN
		}
		if a.Path < b.Path {
			return -1
		}
		if a.Path > b.Path {
			return 1
		}
		return 0
	})
}
