package app

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/gnss-constellation/internal/tracking"
)

const (
	ModeBatch   Mode = "batch"
	ModeLive    Mode = "live"
	ModeHistory Mode = "history"

	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"

	defaultLimit = 2.0
)

type Mode string

type ImageFormat string

// Ext returns the file extension for the format, dot included.
func (f ImageFormat) Ext() string {
	return "." + string(f)
}

var (
	validModes = map[Mode]struct{}{
		ModeBatch:   {},
		ModeLive:    {},
		ModeHistory: {},
	}

	validImageFormats = map[ImageFormat]struct{}{
		ImagePNG:  {},
		ImageJPEG: {},
	}
)

// Config is the viewer configuration. It can be loaded from a YAML file and
// every field can be overridden on the command line.
type Config struct {
	Mode    Mode   `yaml:"mode" json:"mode"`
	Source  string `yaml:"source" json:"source"`   // Channel directory, or a single channel file
	Pattern string `yaml:"pattern" json:"pattern"` // Glob selecting channel files in Source
	PRN     *int   `yaml:"prn" json:"prn"`         // Live mode: follow this PRN only

	MaxSamples  int `yaml:"maxSamples" json:"maxSamples"`   // Batch mode: earliest samples kept per channel
	MaxChannels int `yaml:"maxChannels" json:"maxChannels"` // Batch mode: channels plotted

	Interval        TimeDuration `yaml:"interval" json:"interval"`               // Live mode: poll interval
	Watch           bool         `yaml:"watch" json:"watch"`                     // Live mode: poll on file change, Interval is the fallback
	WindowSize      int          `yaml:"windowSize" json:"windowSize"`           // Live mode: samples kept per channel
	ResetOnTruncate bool         `yaml:"resetOnTruncate" json:"resetOnTruncate"` // Live mode: re-read files that shrink

	OutputFile string      `yaml:"output" json:"output"`
	Format     ImageFormat `yaml:"format" json:"format"`
	Limit      float64     `yaml:"limit" json:"limit"` // Plot axes span [-Limit, Limit]

	DBPath    string `yaml:"db" json:"db"`
	SessionID int64  `yaml:"session" json:"session"` // History mode: session to summarise

	LogLevel string `yaml:"logLevel" json:"logLevel"`
}

func NewConfig() *Config {
	return &Config{
		Mode:            ModeBatch,
		Pattern:         tracking.DefaultPattern,
		MaxSamples:      tracking.DefaultMaxSamples,
		MaxChannels:     tracking.DefaultMaxChannels,
		Interval:        NewTimeDuration(tracking.DefaultInterval),
		WindowSize:      tracking.DefaultWindowSize,
		ResetOnTruncate: true,
		Format:          ImagePNG,
		Limit:           defaultLimit,
		LogLevel:        slog.LevelInfo.String(),
	}
}

// load reads a YAML configuration file over the current values.
func (c *Config) load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// NewConfigFromCLI builds the configuration from command line arguments,
// without the program name. When -c names a config file it is loaded first
// and the flags given explicitly on the command line take precedence.
func NewConfigFromCLI(args []string) (*Config, error) {
	c := NewConfig()

	fs := flag.NewFlagSet("constellation", flag.ContinueOnError)

	var configPath, mode, imageFormat string
	var prn int
	fs.StringVar(&configPath, "c", "", "Path to a YAML configuration file")
	fs.StringVar(&mode, "mode", string(c.Mode), "Run mode. [batch, live, history]")
	fs.StringVar(&c.Source, "source", "", "Channel directory or channel file")
	fs.StringVar(&c.Pattern, "pattern", c.Pattern, "Channel file name pattern")
	fs.IntVar(&prn, "prn", 0, "Live mode: PRN to follow (default all channels in source)")
	fs.IntVar(&c.MaxSamples, "max-samples", c.MaxSamples, "Batch mode: samples read per channel")
	fs.IntVar(&c.MaxChannels, "max-channels", c.MaxChannels, "Batch mode: maximum number of channels")
	fs.Var(&c.Interval, "i", "Live mode: poll interval")
	fs.BoolVar(&c.Watch, "watch", c.Watch, "Live mode: redraw when channel files change")
	fs.IntVar(&c.WindowSize, "window", c.WindowSize, "Live mode: samples displayed per channel")
	fs.BoolVar(&c.ResetOnTruncate, "reset-on-truncate", c.ResetOnTruncate, "Live mode: re-read files that shrink")
	fs.StringVar(&c.OutputFile, "o", "", "Path to the output file")
	fs.StringVar(&imageFormat, "f", string(c.Format), "Output image format. [png, jpeg]")
	fs.Float64Var(&c.Limit, "limit", c.Limit, "Plot axes limit")
	fs.StringVar(&c.DBPath, "db", "", "Path to the history database file")
	fs.Int64Var(&c.SessionID, "s", 0, "History mode: session ID")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level. [debug, info, warn, error]")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// values given on the command line, re-applied over the config file
	explicit := make(map[string]string)
	fs.Visit(func(f *flag.Flag) {
		explicit[f.Name] = f.Value.String()
	})

	if configPath != "" {
		if err := c.load(configPath); err != nil {
			return nil, err
		}
		for name, value := range explicit {
			if err := fs.Set(name, value); err != nil {
				return nil, fmt.Errorf("applying flag -%s: %w", name, err)
			}
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			c.Mode = Mode(strings.ToLower(mode))
		case "f":
			c.Format = ImageFormat(strings.ToLower(imageFormat))
		case "prn":
			c.PRN = &prn
		}
	})

	if err := c.Validate(); err != nil {
		fs.Usage()
		return nil, err
	}

	c.OutputFile = withExt(c.OutputFile, c.Format)
	return c, nil
}

func (c *Config) Validate() error {
	if _, ok := validModes[c.Mode]; !ok {
		return fmt.Errorf("invalid mode: %s", c.Mode)
	}
	if _, err := c.Level(); err != nil {
		return err
	}

	if c.Mode == ModeHistory {
		if c.DBPath == "" {
			return errors.New("db path is required")
		}
		if c.SessionID <= 0 {
			return errors.New("session id is required")
		}
		return nil
	}

	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.OutputFile == "" {
		return errors.New("output file is required")
	}
	if _, ok := validImageFormats[c.Format]; !ok {
		return fmt.Errorf("invalid image format: %s", c.Format)
	}
	if c.Limit <= 0 {
		return fmt.Errorf("limit must be positive: %0.2f given", c.Limit)
	}
	if c.PRN != nil && *c.PRN <= 0 {
		return fmt.Errorf("prn must be positive: %d given", *c.PRN)
	}

	switch c.Mode {
	case ModeBatch:
		if c.MaxSamples <= 0 {
			return fmt.Errorf("max samples must be positive: %d given", c.MaxSamples)
		}
		if c.MaxChannels <= 0 {
			return fmt.Errorf("max channels must be positive: %d given", c.MaxChannels)
		}

	case ModeLive:
		if c.WindowSize <= 0 {
			return fmt.Errorf("window size must be positive: %d given", c.WindowSize)
		}
		if err := c.Interval.Validate(); err != nil {
			return fmt.Errorf("invalid interval: %w", err)
		}
	}

	return nil
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	return level, nil
}

func withExt(path string, format ImageFormat) string {
	if path == "" {
		return path
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == format.Ext() || (format == ImageJPEG && ext == ".jpg") {
		return path
	}
	return path + format.Ext()
}
