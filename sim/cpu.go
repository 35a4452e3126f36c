package sim

import "math"

// CPUConfig describes a host's virtual CPU.
type CPUConfig struct {
	// Capacity is work units per simulated second. 0 means unlimited:
	// work is free and never delays the host.
	Capacity float64 `yaml:"capacity"`
	// Threshold: delays shorter than this are reported as zero. The
	// backlog still accrues, so repeated small charges eventually delay.
	Threshold SimTime `yaml:"threshold"`
	// Precision rounds reported delays to a multiple of this value
	// (half rounds up). 0 disables rounding.
	Precision SimTime `yaml:"precision"`
}

// CPU converts work done by a host into simulated-time delay.
// It only ever touches its own next-available timestamp.
type CPU struct {
	config        CPUConfig
	nextAvailable SimTime
}

// NewCPU creates a CPU model from config. Negative capacities are treated
// as unlimited.
func NewCPU(config CPUConfig) *CPU {
	if config.Capacity < 0 || math.IsNaN(config.Capacity) {
		config.Capacity = 0
	}
	return &CPU{config: config}
}

// Unlimited reports whether the CPU has no capacity limit.
func (c *CPU) Unlimited() bool {
	return c.config.Capacity == 0
}

// NextAvailable returns the earliest simulated time the CPU is free.
func (c *CPU) NextAvailable() SimTime {
	return c.nextAvailable
}

// Charge accounts workUnits executed at now and returns how long after now
// the work completes. Follow-up events must not be scheduled before
// now+delay. Non-positive work is a no-op.
func (c *CPU) Charge(now SimTime, workUnits int64) SimTime {
	if workUnits <= 0 || c.Unlimited() {
		return 0
	}
	start := max(now, c.nextAvailable)
	c.nextAvailable = start.SaturatingAdd(c.cost(workUnits))

	delay := c.nextAvailable - now
	if delay < c.config.Threshold {
		return 0
	}
	if p := c.config.Precision; p > 0 {
		delay = (delay.SaturatingAdd(p/2) / p) * p
	}
	return delay
}

// cost is the simulated time workUnits occupy the CPU, rounded up to the
// next nanosecond.
func (c *CPU) cost(workUnits int64) SimTime {
	ns := math.Ceil(float64(workUnits) * float64(SimTimeSecond) / c.config.Capacity)
	if ns >= float64(SimTimeMax) {
		return SimTimeMax
	}
	return SimTime(ns)
}
