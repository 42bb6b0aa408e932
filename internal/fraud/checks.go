package fraud

import (
	"math"

	"github.com/richxcame/attendance-tracker/internal/geo"
)

func notSuspicious(check CheckName, reason string) CheckResult {
	return CheckResult{Check: check, Reason: reason}
}

func failedOpen(check CheckName, err error) CheckResult {
	return CheckResult{
		Check:   check,
		Reason:  ReasonError,
		Details: map[string]interface{}{"error": err.Error()},
	}
}

// CheckSpeedJump flags a physically implausible speed between the last
// history sample and the current one.
func CheckSpeedJump(history []LocationSample, current LocationSample, t Thresholds) CheckResult {
	if len(history) == 0 {
		return notSuspicious(CheckGPSJump, ReasonInsufficientData)
	}

	last := history[len(history)-1]
	seconds := current.CapturedAt.Sub(last.CapturedAt).Seconds()
	if seconds <= 0 {
		return CheckResult{
			Check:   CheckGPSJump,
			Reason:  ReasonInvalidTime,
			Details: map[string]interface{}{"time_diff_seconds": seconds},
		}
	}

	distance, err := geo.DistanceBetween(last.Point, current.Point)
	if err != nil {
		return notSuspicious(CheckGPSJump, ReasonInsufficientData)
	}
	speedKmh := (distance / 1000) / (seconds / 3600)

	details := map[string]interface{}{
		"speed_kmh":         speedKmh,
		"distance_meters":   distance,
		"time_diff_seconds": seconds,
	}

	if speedKmh <= t.MaxSpeedKmh {
		return CheckResult{Check: CheckGPSJump, Reason: ReasonNormalSpeed, Details: details}
	}

	severity := SeverityMedium
	if speedKmh > 2*t.MaxSpeedKmh {
		severity = SeverityHigh
	}
	return CheckResult{
		Check:      CheckGPSJump,
		Suspicious: true,
		Severity:   severity,
		Reason:     ReasonExcessiveSpeed,
		Details:    details,
	}
}

// CheckStillness flags a run of consecutive samples that barely move for
// at least the stagnation time. A run still open at the end of the history
// counts as well.
func CheckStillness(history []LocationSample, t Thresholds) CheckResult {
	n := len(history)
	if n < 3 {
		return notSuspicious(CheckStagnation, ReasonInsufficientData)
	}

	// a run closed by movement lasts until the sample where movement resumed
	evaluate := func(start, last, until int) (CheckResult, bool) {
		span := history[until].CapturedAt.Sub(history[start].CapturedAt)
		if span < 0 {
			span = 0
		}
		if span < t.StagnationTime {
			return CheckResult{}, false
		}

		severity := SeverityMedium
		if span > 2*t.StagnationTime {
			severity = SeverityHigh
		}
		return CheckResult{
			Check:      CheckStagnation,
			Suspicious: true,
			Severity:   severity,
			Reason:     ReasonProlongedStagnation,
			Details: map[string]interface{}{
				"duration_minutes": span.Minutes(),
				"locations":        last - start + 1,
			},
		}, true
	}

	runStart := -1
	for i := 1; i < n; i++ {
		if geo.Distance(history[i-1].Point, history[i].Point) <= t.MaxMovementMeters {
			if runStart < 0 {
				runStart = i - 1
			}
			continue
		}

		if runStart >= 0 {
			if res, ok := evaluate(runStart, i-1, i); ok {
				return res
			}
			runStart = -1
		}
	}

	if runStart >= 0 {
		if res, ok := evaluate(runStart, n-1, n-1); ok {
			return res
		}
	}

	return notSuspicious(CheckStagnation, ReasonNormalMovement)
}

type deviceChange struct {
	Field    string   `json:"field"`
	Old      string   `json:"old"`
	New      string   `json:"new"`
	Severity Severity `json:"severity"`
}

// CheckDeviceDrift compares the reported device with the stored baseline.
// A missing baseline is not suspicious; the caller records the current one.
func CheckDeviceDrift(previous, current *DeviceFingerprint) CheckResult {
	if current == nil {
		return notSuspicious(CheckDeviceSharing, ReasonInsufficientData)
	}
	if previous == nil {
		return CheckResult{
			Check:   CheckDeviceSharing,
			Reason:  ReasonFirstDevice,
			Details: map[string]interface{}{"baseline_recorded": true},
		}
	}

	fields := []struct {
		name     string
		old, new string
		severity Severity
	}{
		{"user_agent", previous.UserAgent, current.UserAgent, SeverityHigh},
		{"screen_resolution", previous.ScreenResolution, current.ScreenResolution, SeverityMedium},
		{"timezone", previous.Timezone, current.Timezone, SeverityHigh},
		{"language", previous.Language, current.Language, SeverityMedium},
		{"platform", previous.Platform, current.Platform, SeverityMedium},
	}

	var changes []deviceChange
	severity := SeverityMedium
	for _, f := range fields {
		if f.old == f.new {
			continue
		}
		changes = append(changes, deviceChange{Field: f.name, Old: f.old, New: f.new, Severity: f.severity})
		if f.severity == SeverityHigh {
			severity = SeverityHigh
		}
	}

	if len(changes) == 0 {
		return notSuspicious(CheckDeviceSharing, ReasonNoChanges)
	}

	return CheckResult{
		Check:      CheckDeviceSharing,
		Suspicious: true,
		Severity:   severity,
		Reason:     ReasonDeviceChanges,
		Details:    map[string]interface{}{"changes": changes},
	}
}

// CheckWifiAnomaly compares the scanned SSID set with the known one.
// A missing baseline is not suspicious; the caller records the current scan.
func CheckWifiAnomaly(known, current []WifiObservation, t Thresholds) CheckResult {
	if current == nil {
		return notSuspicious(CheckWifiSpoofing, ReasonInsufficientData)
	}
	if len(known) == 0 {
		return CheckResult{
			Check:   CheckWifiSpoofing,
			Reason:  ReasonFirstWifiScan,
			Details: map[string]interface{}{"baseline_recorded": true},
		}
	}

	knownSet := ssidSet(known)
	currentSet := ssidSet(current)

	unknown := 0
	for ssid := range currentSet {
		if _, ok := knownSet[ssid]; !ok {
			unknown++
		}
	}
	missing := 0
	for ssid := range knownSet {
		if _, ok := currentSet[ssid]; !ok {
			missing++
		}
	}

	score := unknown + missing
	details := map[string]interface{}{
		"unknown_networks": unknown,
		"missing_networks": missing,
		"anomaly_score":    score,
	}

	if score <= t.WifiAnomalyThreshold {
		return CheckResult{Check: CheckWifiSpoofing, Reason: ReasonNormalWifi, Details: details}
	}

	severity := SeverityMedium
	if score > 2*t.WifiAnomalyThreshold {
		severity = SeverityHigh
	}
	return CheckResult{
		Check:      CheckWifiSpoofing,
		Suspicious: true,
		Severity:   severity,
		Reason:     ReasonWifiAnomaly,
		Details:    details,
	}
}

func ssidSet(networks []WifiObservation) map[string]struct{} {
	set := make(map[string]struct{}, len(networks))
	for _, n := range networks {
		set[n.SSID] = struct{}{}
	}
	return set
}

type patternAnomaly struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
}

const (
	minSamplesForTiming   = 3
	minSamplesForMovement = 5

	circularTolerance = 0.3 // fraction of the mean step
	gridBandMeters    = 5.0
)

// CheckMovementPattern looks for synthetic-looking movement and activity
// outside normal working hours.
func CheckMovementPattern(history []LocationSample, t Thresholds) CheckResult {
	if len(history) < minSamplesForTiming {
		return notSuspicious(CheckPatternAnomaly, ReasonInsufficientData)
	}

	var anomalies []patternAnomaly

	if len(history) >= minSamplesForMovement {
		circular, grid := analyzeSteps(history)
		if circular {
			anomalies = append(anomalies, patternAnomaly{Type: "circular_movement", Severity: SeverityMedium})
		}
		if grid {
			anomalies = append(anomalies, patternAnomaly{Type: "grid_movement", Severity: SeverityHigh})
		}
	}

	meanHour := meanHourOfDay(history, t)
	if meanHour < 6 || meanHour > 22 {
		anomalies = append(anomalies, patternAnomaly{Type: "unusual_timing", Severity: SeverityMedium})
	}

	if len(anomalies) == 0 {
		return notSuspicious(CheckPatternAnomaly, ReasonNormalPatterns)
	}

	severity := SeverityMedium
	for _, a := range anomalies {
		if a.Severity == SeverityHigh {
			severity = SeverityHigh
		}
	}

	return CheckResult{
		Check:      CheckPatternAnomaly,
		Suspicious: true,
		Severity:   severity,
		Reason:     ReasonPatternAnomaly,
		Details: map[string]interface{}{
			"anomalies": anomalies,
			"mean_hour": meanHour,
		},
	}
}

// analyzeSteps reports whether consecutive step lengths are all close to
// their mean, relatively (circular) and absolutely (grid).
func analyzeSteps(history []LocationSample) (circular, grid bool) {
	steps := make([]float64, 0, len(history)-1)
	var sum float64
	for i := 1; i < len(history); i++ {
		d := geo.Distance(history[i-1].Point, history[i].Point)
		steps = append(steps, d)
		sum += d
	}
	mean := sum / float64(len(steps))

	circular, grid = true, true
	for _, d := range steps {
		dev := math.Abs(d - mean)
		if dev >= mean*circularTolerance {
			circular = false
		}
		if dev >= gridBandMeters {
			grid = false
		}
	}
	return circular, grid
}

func meanHourOfDay(history []LocationSample, t Thresholds) float64 {
	loc := t.location()
	var total int
	for _, s := range history {
		total += s.CapturedAt.In(loc).Hour()
	}
	return float64(total) / float64(len(history))
}
