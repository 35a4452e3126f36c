package sim

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SimTime is a point (or span) on the simulated clock, in nanoseconds.
// It is unrelated to wall-clock time.
type SimTime int64

const (
	SimTimeNanosecond  SimTime = 1
	SimTimeMicrosecond         = 1000 * SimTimeNanosecond
	SimTimeMillisecond         = 1000 * SimTimeMicrosecond
	SimTimeSecond              = 1000 * SimTimeMillisecond

	// SimTimeMax means "never" and is used as the empty-queue sentinel.
	SimTimeMax SimTime = math.MaxInt64
)

// String renders t as a Go duration ("1.5s"), or "never" for SimTimeMax.
func (t SimTime) String() string {
	if t == SimTimeMax {
		return "never"
	}
	return time.Duration(t).String()
}

// Seconds returns t as floating-point seconds.
func (t SimTime) Seconds() float64 {
	return float64(t) / float64(SimTimeSecond)
}

// SaturatingAdd returns t+d, clamped to SimTimeMax on overflow.
func (t SimTime) SaturatingAdd(d SimTime) SimTime {
	if d > 0 && t > SimTimeMax-d {
		return SimTimeMax
	}
	return t + d
}

// ParseSimTime accepts a Go duration string ("10ms", "2s") or a bare
// integer number of nanoseconds, or "never". Negative values are rejected.
func ParseSimTime(s string) (SimTime, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0, fmt.Errorf("empty simulated time")
	case "never":
		return SimTimeMax, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("simulated time %q must be non-negative", s)
		}
		return SimTime(n), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parsing simulated time %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("simulated time %q must be non-negative", s)
	}
	return SimTime(d), nil
}

// UnmarshalYAML lets scenario files write times as "10ms" or 10000000.
func (t *SimTime) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: simulated time must be a scalar", node.Line)
	}
	v, err := ParseSimTime(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*t = v
	return nil
}

// MarshalYAML writes t in its duration form.
func (t SimTime) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}
