package app

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// TimeDuration is a time.Duration that reads and writes as a Go duration
// string ("500ms", "2s") in YAML, JSON and on the command line.
type TimeDuration time.Duration

func NewTimeDuration(d time.Duration) TimeDuration {
	return TimeDuration(d)
}

func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.TimeDuration: failed to parse: %s", err)
	}

	*d = TimeDuration(duration)
	return nil
}

func (d *TimeDuration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *TimeDuration) UnmarshalJSON(bytes []byte) error {
	var v string
	if err := json.Unmarshal(bytes, &v); err != nil {
		return err
	}

	duration, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("app.TimeDuration: failed to parse: %s", err)
	}

	*d = TimeDuration(duration)
	return nil
}

func (d *TimeDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Set implements flag.Value.
func (d *TimeDuration) Set(s string) error {
	duration, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("app.TimeDuration: failed to parse: %s", err)
	}

	*d = TimeDuration(duration)
	return nil
}

func (d *TimeDuration) Validate() error {
	duration := time.Duration(*d)

	if duration <= 0 {
		return fmt.Errorf("app.TimeDuration: must be positive: %s", duration)
	}
	if duration < 10*time.Millisecond {
		return fmt.Errorf("app.TimeDuration: must be at least 10ms: %s given", duration)
	}

	return nil
}

func (d *TimeDuration) Duration() time.Duration {
	return time.Duration(*d)
}

func (d *TimeDuration) String() string {
	return time.Duration(*d).String()
}
