package attendance

import (
	"github.com/richxcame/attendance-tracker/internal/fraud"
	"github.com/richxcame/attendance-tracker/internal/geo"
	"github.com/richxcame/attendance-tracker/internal/geofence"
)

// Decide runs the trust pipeline for one event:
//
//	RECEIVED -> fraud -> {REJECTED_FRAUD | geofence -> {REJECTED_OUT_OF_AREA | ACCEPTED}}
//
// Malformed points are rejected before either check runs. A suspicious risk
// verdict short-circuits, so locate is never called for it.
func Decide(point geo.GeoPoint, assess func() (*fraud.RiskVerdict, error), locate func(geo.GeoPoint) geofence.Verdict) (Decision, error) {
	if err := point.Validate(); err != nil {
		return Decision{
			Outcome:  OutcomeRejectedInvalid,
			Reason:   ReasonInvalidLocation,
			Severity: fraud.SeverityLow,
		}, nil
	}

	risk, err := assess()
	if err != nil {
		return Decision{}, err
	}

	if risk != nil && risk.IsSuspicious {
		return Decision{
			Outcome:  OutcomeRejectedFraud,
			Reason:   risk.PrimaryReason(),
			Severity: risk.Severity,
			Risk:     risk,
		}, nil
	}

	verdict := locate(point)
	if !verdict.InArea {
		return Decision{
			Outcome:  OutcomeRejectedOutOfArea,
			Reason:   ReasonOutsideWorkArea,
			Severity: fraud.SeverityMedium,
			Risk:     risk,
			Geofence: &verdict,
		}, nil
	}

	d := Decision{
		Outcome:  OutcomeAccepted,
		Reason:   ReasonAccepted,
		Severity: fraud.SeverityLow,
		Risk:     risk,
		Geofence: &verdict,
	}
	if risk != nil {
		d.Severity = risk.Severity
	}
	return d, nil
}
