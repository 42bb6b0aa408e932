package fraud

import (
	"fmt"
	"time"

	"github.com/richxcame/attendance-tracker/pkg/config"
)

// Averaging selects the denominator of the composite risk score
type Averaging string

const (
	// AverageAll divides by every evaluated check, so a lone HIGH hit scores 0.16
	AverageAll Averaging = "all"
	// AverageTriggered divides by the suspicious checks only
	AverageTriggered Averaging = "triggered"
)

// Thresholds is an immutable set of tuning values passed into every evaluation
type Thresholds struct {
	MaxSpeedKmh          float64
	StagnationTime       time.Duration
	MaxMovementMeters    float64
	WifiAnomalyThreshold int
	SuspiciousThreshold  float64
	HistoryLimit         int
	Averaging            Averaging

	// WorkdayLocation sets the clock used for the unusual-hours check
	WorkdayLocation *time.Location
}

// DefaultThresholds returns the stock tuning
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxSpeedKmh:          100,
		StagnationTime:       15 * time.Minute,
		MaxMovementMeters:    10,
		WifiAnomalyThreshold: 3,
		SuspiciousThreshold:  0.7,
		HistoryLimit:         10,
		Averaging:            AverageAll,
		WorkdayLocation:      time.UTC,
	}
}

// ThresholdsFromConfig converts loaded configuration into thresholds
func ThresholdsFromConfig(cfg config.FraudConfig) (Thresholds, error) {
	t := Thresholds{
		MaxSpeedKmh:          cfg.MaxSpeedKmh,
		StagnationTime:       time.Duration(cfg.StagnationMinutes) * time.Minute,
		MaxMovementMeters:    cfg.MaxMovementMeters,
		WifiAnomalyThreshold: cfg.WifiAnomalyThreshold,
		SuspiciousThreshold:  cfg.SuspiciousThreshold,
		HistoryLimit:         cfg.HistoryLimit,
		Averaging:            Averaging(cfg.RiskAveraging),
		WorkdayLocation:      time.UTC,
	}

	if cfg.WorkdayTimezone != "" {
		loc, err := time.LoadLocation(cfg.WorkdayTimezone)
		if err != nil {
			return Thresholds{}, fmt.Errorf("invalid workday timezone %q: %w", cfg.WorkdayTimezone, err)
		}
		t.WorkdayLocation = loc
	}

	return t, t.Validate()
}

// Validate rejects thresholds that would make checks meaningless
func (t Thresholds) Validate() error {
	switch {
	case t.MaxSpeedKmh <= 0:
		return fmt.Errorf("max speed must be positive, got %v", t.MaxSpeedKmh)
	case t.StagnationTime <= 0:
		return fmt.Errorf("stagnation time must be positive, got %v", t.StagnationTime)
	case t.MaxMovementMeters < 0:
		return fmt.Errorf("max movement must not be negative, got %v", t.MaxMovementMeters)
	case t.WifiAnomalyThreshold < 0:
		return fmt.Errorf("wifi anomaly threshold must not be negative, got %d", t.WifiAnomalyThreshold)
	case t.SuspiciousThreshold <= 0 || t.SuspiciousThreshold > 1:
		return fmt.Errorf("suspicious threshold must be in (0, 1], got %v", t.SuspiciousThreshold)
	case t.HistoryLimit <= 0:
		return fmt.Errorf("history limit must be positive, got %d", t.HistoryLimit)
	case t.Averaging != AverageAll && t.Averaging != AverageTriggered:
		return fmt.Errorf("unknown risk averaging %q", t.Averaging)
	}
	return nil
}

// WithAveraging returns a copy using a different averaging mode
func (t Thresholds) WithAveraging(a Averaging) Thresholds {
	t.Averaging = a
	return t
}

func (t Thresholds) location() *time.Location {
	if t.WorkdayLocation == nil {
		return time.UTC
	}
	return t.WorkdayLocation
}
