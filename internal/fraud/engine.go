package fraud

import (
	"github.com/richxcame/attendance-tracker/pkg/logger"
	"go.uber.org/zap"
)

// Evaluate runs every check against in and folds them into a verdict.
// It performs no I/O; inputs that failed to load are reported via the
// Input error fields and make the affected checks fail open.
func Evaluate(in Input, t Thresholds) RiskVerdict {
	results := make([]CheckResult, 0, len(CheckOrder))
	var errs []error

	if in.HistoryErr != nil {
		errs = append(errs, in.HistoryErr)
		results = append(results,
			failedOpen(CheckGPSJump, in.HistoryErr),
			failedOpen(CheckStagnation, in.HistoryErr),
		)
	} else {
		jump := CheckSpeedJump(in.History, in.Current, t)
		if jump.Reason == ReasonInvalidTime {
			logger.Warn("Non-positive time delta between location samples",
				zap.String("employee_id", in.EmployeeID.String()),
				zap.Any("time_diff_seconds", jump.Details["time_diff_seconds"]))
		}
		results = append(results, jump, CheckStillness(in.History, t))
	}

	if in.DeviceErr != nil {
		errs = append(errs, in.DeviceErr)
		results = append(results, failedOpen(CheckDeviceSharing, in.DeviceErr))
	} else {
		results = append(results, CheckDeviceDrift(in.PreviousDevice, in.Current.Device))
	}

	if in.WifiErr != nil {
		errs = append(errs, in.WifiErr)
		results = append(results, failedOpen(CheckWifiSpoofing, in.WifiErr))
	} else {
		results = append(results, CheckWifiAnomaly(in.KnownWifi, in.Current.WifiNetworks, t))
	}

	if in.HistoryErr != nil {
		results = append(results, failedOpen(CheckPatternAnomaly, in.HistoryErr))
	} else {
		results = append(results, CheckMovementPattern(in.History, t))
	}

	risk := RiskLevel(results, t.Averaging)
	checks := make(map[CheckName]CheckResult, len(results))
	for _, r := range results {
		checks[r.Check] = r
	}

	return RiskVerdict{
		RiskLevel:    risk,
		IsSuspicious: risk >= t.SuspiciousThreshold,
		PrimaryType:  PrimaryType(results),
		Severity:     SeverityForRisk(risk),
		Checks:       checks,
		Errors:       errs,
	}
}
