package forecast

import (
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/forecast/stats"
)

// Config tunes the baseline cascade. Zero values are replaced by DefaultConfig values.
type Config struct {
	SmoothingAlpha      float64
	EWMAWindowDays      int
	MonthlyLookbackDays int
	MinMonths           int
	MaxMonths           int
	PeerStdRatio        float64
	LookupTimeout       time.Duration
}

func DefaultConfig() Config {
	return Config{
		SmoothingAlpha:      stats.DefaultAlpha,
		EWMAWindowDays:      90,
		MonthlyLookbackDays: 365,
		MinMonths:           2,
		MaxMonths:           3,
		PeerStdRatio:        0.35,
		LookupTimeout:       3 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if !stats.ValidAlpha(c.SmoothingAlpha) {
		c.SmoothingAlpha = d.SmoothingAlpha
	}
	if c.EWMAWindowDays <= 0 {
		c.EWMAWindowDays = d.EWMAWindowDays
	}
	if c.MonthlyLookbackDays <= 0 {
		c.MonthlyLookbackDays = d.MonthlyLookbackDays
	}
	if c.MinMonths <= 0 {
		c.MinMonths = d.MinMonths
	}
	if c.MaxMonths < c.MinMonths {
		c.MaxMonths = d.MaxMonths
	}
	if c.PeerStdRatio <= 0 {
		c.PeerStdRatio = d.PeerStdRatio
	}
	if c.LookupTimeout <= 0 {
		c.LookupTimeout = d.LookupTimeout
	}
	return c
}
