package attendance

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/richxcame/attendance-tracker/internal/fraud"
	"github.com/richxcame/attendance-tracker/internal/geo"
	"github.com/richxcame/attendance-tracker/internal/geofence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var office = geo.GeoPoint{Latitude: 32.0853, Longitude: 34.7818}

func cleanRisk() *fraud.RiskVerdict {
	return &fraud.RiskVerdict{RiskLevel: 0.04, PrimaryType: fraud.CheckNone, Severity: fraud.SeverityLow}
}

func speedRisk() *fraud.RiskVerdict {
	return &fraud.RiskVerdict{
		RiskLevel:    0.8,
		IsSuspicious: true,
		PrimaryType:  fraud.CheckGPSJump,
		Severity:     fraud.SeverityHigh,
		Checks: map[fraud.CheckName]fraud.CheckResult{
			fraud.CheckGPSJump: {Check: fraud.CheckGPSJump, Suspicious: true, Severity: fraud.SeverityHigh, Reason: fraud.ReasonExcessiveSpeed},
		},
	}
}

func TestDecide(t *testing.T) {
	areaRef := &geofence.AreaRef{ID: uuid.New(), Name: "HQ", Department: "ops"}
	inside := geofence.Verdict{InArea: true, Area: areaRef}
	outside := geofence.Verdict{Distance: 480, NearestArea: areaRef}

	tests := []struct {
		name         string
		point        geo.GeoPoint
		risk         *fraud.RiskVerdict
		verdict      geofence.Verdict
		wantOutcome  Outcome
		wantReason   string
		wantSeverity fraud.Severity
		wantAssessed bool
		wantLocated  bool
	}{
		{
			name:         "accepted",
			point:        office,
			risk:         cleanRisk(),
			verdict:      inside,
			wantOutcome:  OutcomeAccepted,
			wantReason:   ReasonAccepted,
			wantSeverity: fraud.SeverityLow,
			wantAssessed: true,
			wantLocated:  true,
		},
		{
			name:         "fraud preempts geofence",
			point:        office,
			risk:         speedRisk(),
			verdict:      outside,
			wantOutcome:  OutcomeRejectedFraud,
			wantReason:   fraud.ReasonExcessiveSpeed,
			wantSeverity: fraud.SeverityHigh,
			wantAssessed: true,
		},
		{
			name:         "outside work area",
			point:        office,
			risk:         cleanRisk(),
			verdict:      outside,
			wantOutcome:  OutcomeRejectedOutOfArea,
			wantReason:   ReasonOutsideWorkArea,
			wantSeverity: fraud.SeverityMedium,
			wantAssessed: true,
			wantLocated:  true,
		},
		{
			name:         "invalid latitude",
			point:        geo.GeoPoint{Latitude: 91, Longitude: 34},
			wantOutcome:  OutcomeRejectedInvalid,
			wantReason:   ReasonInvalidLocation,
			wantSeverity: fraud.SeverityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var assessed, located bool
			d, err := Decide(tt.point,
				func() (*fraud.RiskVerdict, error) {
					assessed = true
					return tt.risk, nil
				},
				func(geo.GeoPoint) geofence.Verdict {
					located = true
					return tt.verdict
				},
			)

			require.NoError(t, err)
			assert.Equal(t, tt.wantOutcome, d.Outcome)
			assert.Equal(t, tt.wantReason, d.Reason)
			assert.Equal(t, tt.wantSeverity, d.Severity)
			assert.Equal(t, tt.wantAssessed, assessed)
			assert.Equal(t, tt.wantLocated, located)
			assert.Equal(t, tt.wantOutcome == OutcomeAccepted, d.Accepted())
		})
	}
}

func TestDecideAttachesBothVerdictsWhenAccepted(t *testing.T) {
	risk := cleanRisk()
	verdict := geofence.Verdict{InArea: true, InBufferZone: true, Distance: 12}

	d, err := Decide(office,
		func() (*fraud.RiskVerdict, error) { return risk, nil },
		func(geo.GeoPoint) geofence.Verdict { return verdict },
	)

	require.NoError(t, err)
	assert.Same(t, risk, d.Risk)
	require.NotNil(t, d.Geofence)
	assert.True(t, d.Geofence.InBufferZone)
}

func TestDecidePropagatesAssessError(t *testing.T) {
	boom := errors.New("boom")

	_, err := Decide(office,
		func() (*fraud.RiskVerdict, error) { return nil, boom },
		func(geo.GeoPoint) geofence.Verdict {
			t.Fatal("geofence must not run after a failed assessment")
			return geofence.Verdict{}
		},
	)

	assert.ErrorIs(t, err, boom)
}

func TestRejectionErrorDetails(t *testing.T) {
	err := &RejectionError{Decision: Decision{
		Outcome:  OutcomeRejectedFraud,
		Reason:   fraud.ReasonExcessiveSpeed,
		Severity: fraud.SeverityHigh,
		Risk:     speedRisk(),
	}}

	d := err.Details()
	assert.Equal(t, fraud.CheckGPSJump, d["fraud_type"])
	assert.Equal(t, 0.8, d["risk_level"])
	assert.Equal(t, fraud.SeverityHigh, d["severity"])
	assert.Contains(t, err.Message(), "verification")
	assert.Equal(t, "REJECTED_FRAUD: excessive_speed", err.Error())
}
