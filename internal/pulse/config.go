package pulse

import "time"

// Config controls the scheduler cadence.
type Config struct {
	Interval     time.Duration `mapstructure:"interval"`
	CycleTimeout time.Duration `mapstructure:"cycle_timeout"`
	RotateEvery  int           `mapstructure:"rotate_every"` // cycles between journal rotations; 0 disables
}

func DefaultConfig() Config {
	return Config{
		Interval:     60 * time.Second,
		CycleTimeout: 55 * time.Second,
		RotateEvery:  100,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.CycleTimeout <= 0 {
		c.CycleTimeout = d.CycleTimeout
	}
	if c.RotateEvery < 0 {
		c.RotateEvery = 0
	}
	return c
}
