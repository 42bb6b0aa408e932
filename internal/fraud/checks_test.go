package fraud

import (
	"testing"
	"time"

	"github.com/richxcame/attendance-tracker/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	origin  = geo.GeoPoint{Latitude: 32.0853, Longitude: 34.7818}
	morning = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
)

func sampleAt(p geo.GeoPoint, at time.Time) LocationSample {
	return LocationSample{Point: p, Accuracy: 5, CapturedAt: at}
}

// walk returns n samples moving east with the given step lengths, one per interval.
func walk(start geo.GeoPoint, at time.Time, interval time.Duration, steps ...float64) []LocationSample {
	out := []LocationSample{sampleAt(start, at)}
	p := start
	for i, step := range steps {
		p = geo.Destination(p, 90, step)
		out = append(out, sampleAt(p, at.Add(time.Duration(i+1)*interval)))
	}
	return out
}

func TestCheckSpeedJump(t *testing.T) {
	th := DefaultThresholds()
	last := sampleAt(origin, morning)

	tests := []struct {
		name       string
		history    []LocationSample
		current    LocationSample
		suspicious bool
		severity   Severity
		reason     string
	}{
		{
			name:    "no history",
			current: sampleAt(origin, morning),
			reason:  ReasonInsufficientData,
		},
		{
			name:    "zero seconds apart",
			history: []LocationSample{last},
			current: sampleAt(geo.Destination(origin, 90, 50000), morning),
			reason:  ReasonInvalidTime,
		},
		{
			name:    "clock went backwards",
			history: []LocationSample{last},
			current: sampleAt(geo.Destination(origin, 90, 1000), morning.Add(-time.Minute)),
			reason:  ReasonInvalidTime,
		},
		{
			name:    "walking",
			history: []LocationSample{last},
			current: sampleAt(geo.Destination(origin, 90, 80), morning.Add(time.Minute)),
			reason:  ReasonNormalSpeed,
		},
		{
			name:       "1 km in 10 s",
			history:    []LocationSample{last},
			current:    sampleAt(geo.Destination(origin, 90, 1000), morning.Add(10*time.Second)),
			suspicious: true,
			severity:   SeverityHigh,
			reason:     ReasonExcessiveSpeed,
		},
		{
			name:       "150 km/h",
			history:    []LocationSample{last},
			current:    sampleAt(geo.Destination(origin, 90, 2500), morning.Add(time.Minute)),
			suspicious: true,
			severity:   SeverityMedium,
			reason:     ReasonExcessiveSpeed,
		},
		{
			name:    "corrupt cached sample",
			history: []LocationSample{sampleAt(geo.GeoPoint{Latitude: 95, Longitude: 0}, morning)},
			current: sampleAt(origin, morning.Add(time.Minute)),
			reason:  ReasonInsufficientData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := CheckSpeedJump(tt.history, tt.current, th)
			assert.Equal(t, CheckGPSJump, r.Check)
			assert.Equal(t, tt.suspicious, r.Suspicious)
			assert.Equal(t, tt.reason, r.Reason)
			if tt.suspicious {
				assert.Equal(t, tt.severity, r.Severity)
			}
		})
	}
}

func TestCheckSpeedJumpSpeed(t *testing.T) {
	history := []LocationSample{sampleAt(origin, morning)}
	current := sampleAt(geo.Destination(origin, 90, 1000), morning.Add(10*time.Second))

	r := CheckSpeedJump(history, current, DefaultThresholds())
	require.True(t, r.Suspicious)
	assert.InDelta(t, 360, r.Details["speed_kmh"].(float64), 0.5)
}

func TestCheckStillness(t *testing.T) {
	th := DefaultThresholds()

	jitter := func(minutes ...int) []LocationSample {
		out := make([]LocationSample, len(minutes))
		for i, m := range minutes {
			// every sample within 1.5 m of origin, so within a 3 m radius
			p := geo.Destination(origin, float64(i*72), 1.5)
			out[i] = sampleAt(p, morning.Add(time.Duration(m)*time.Minute))
		}
		return out
	}

	t.Run("five samples over 20 minutes", func(t *testing.T) {
		r := CheckStillness(jitter(0, 5, 10, 15, 20), th)
		require.True(t, r.Suspicious)
		assert.Equal(t, SeverityMedium, r.Severity)
		assert.Equal(t, ReasonProlongedStagnation, r.Reason)
		assert.InDelta(t, 20, r.Details["duration_minutes"].(float64), 0.001)
		assert.Equal(t, 5, r.Details["locations"])
	})

	t.Run("over twice the threshold", func(t *testing.T) {
		r := CheckStillness(jitter(0, 10, 20, 31), th)
		require.True(t, r.Suspicious)
		assert.Equal(t, SeverityHigh, r.Severity)
	})

	t.Run("short run", func(t *testing.T) {
		r := CheckStillness(jitter(0, 2, 4, 6), th)
		assert.False(t, r.Suspicious)
		assert.Equal(t, ReasonNormalMovement, r.Reason)
	})

	t.Run("run ended by movement", func(t *testing.T) {
		history := jitter(0, 8, 16)
		history = append(history, sampleAt(geo.Destination(origin, 0, 500), morning.Add(20*time.Minute)))
		history = append(history, sampleAt(geo.Destination(origin, 0, 900), morning.Add(25*time.Minute)))

		r := CheckStillness(history, th)
		require.True(t, r.Suspicious)
		assert.InDelta(t, 20, r.Details["duration_minutes"].(float64), 0.001)
		assert.Equal(t, 3, r.Details["locations"])
	})

	t.Run("run reaches threshold when movement resumes", func(t *testing.T) {
		history := jitter(0, 5, 10)
		history = append(history, sampleAt(geo.Destination(origin, 0, 500), morning.Add(15*time.Minute)))

		r := CheckStillness(history, th)
		require.True(t, r.Suspicious)
		assert.Equal(t, SeverityMedium, r.Severity)
		assert.Equal(t, ReasonProlongedStagnation, r.Reason)
		assert.InDelta(t, 15, r.Details["duration_minutes"].(float64), 0.001)
	})

	t.Run("too few samples", func(t *testing.T) {
		r := CheckStillness(jitter(0, 30), th)
		assert.False(t, r.Suspicious)
		assert.Equal(t, ReasonInsufficientData, r.Reason)
	})

	t.Run("timestamps out of order", func(t *testing.T) {
		r := CheckStillness(jitter(20, 15, 10, 5, 0), th)
		assert.False(t, r.Suspicious)
	})

	t.Run("moving steadily", func(t *testing.T) {
		r := CheckStillness(walk(origin, morning, 5*time.Minute, 300, 250, 400, 350), th)
		assert.False(t, r.Suspicious)
	})
}

func TestCheckDeviceDrift(t *testing.T) {
	base := DeviceFingerprint{
		UserAgent:        "Mozilla/5.0 (iPhone)",
		ScreenResolution: "1170x2532",
		Timezone:         "Asia/Jerusalem",
		Language:         "he-IL",
		Platform:         "iPhone",
	}

	t.Run("no device reported", func(t *testing.T) {
		r := CheckDeviceDrift(&base, nil)
		assert.False(t, r.Suspicious)
		assert.Equal(t, ReasonInsufficientData, r.Reason)
	})

	t.Run("first device", func(t *testing.T) {
		current := base
		r := CheckDeviceDrift(nil, &current)
		assert.False(t, r.Suspicious)
		assert.Equal(t, ReasonFirstDevice, r.Reason)
	})

	t.Run("unchanged", func(t *testing.T) {
		current := base
		r := CheckDeviceDrift(&base, &current)
		assert.False(t, r.Suspicious)
		assert.Equal(t, ReasonNoChanges, r.Reason)
	})

	tests := []struct {
		name     string
		mutate   func(d *DeviceFingerprint)
		severity Severity
	}{
		{"language", func(d *DeviceFingerprint) { d.Language = "en-US" }, SeverityMedium},
		{"screen", func(d *DeviceFingerprint) { d.ScreenResolution = "1080x1920" }, SeverityMedium},
		{"user agent", func(d *DeviceFingerprint) { d.UserAgent = "Mozilla/5.0 (Linux; Android)" }, SeverityHigh},
		{"timezone", func(d *DeviceFingerprint) { d.Timezone = "Europe/London" }, SeverityHigh},
		{"platform and language", func(d *DeviceFingerprint) { d.Platform = "Android"; d.Language = "ru" }, SeverityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := base
			tt.mutate(&current)

			r := CheckDeviceDrift(&base, &current)
			require.True(t, r.Suspicious)
			assert.Equal(t, tt.severity, r.Severity)
			assert.Equal(t, ReasonDeviceChanges, r.Reason)
		})
	}
}

func wifi(ssids ...string) []WifiObservation {
	out := make([]WifiObservation, len(ssids))
	for i, s := range ssids {
		out[i] = WifiObservation{SSID: s}
	}
	return out
}

func TestCheckWifiAnomaly(t *testing.T) {
	th := DefaultThresholds()
	known := wifi("office", "office-guest", "lobby")

	tests := []struct {
		name       string
		known      []WifiObservation
		current    []WifiObservation
		suspicious bool
		severity   Severity
		reason     string
		score      int
	}{
		{name: "no scan", known: known, current: nil, reason: ReasonInsufficientData},
		{name: "no baseline", known: nil, current: wifi("home"), reason: ReasonFirstWifiScan},
		{name: "identical", known: known, current: wifi("lobby", "office", "office-guest"), reason: ReasonNormalWifi, score: 0},
		{name: "duplicates ignored", known: known, current: wifi("office", "office", "office-guest", "lobby"), reason: ReasonNormalWifi, score: 0},
		{name: "at threshold", known: known, current: wifi("office", "office-guest", "cafe", "bus"), reason: ReasonNormalWifi, score: 3},
		{name: "above threshold", known: known, current: wifi("cafe", "bus"), suspicious: true, severity: SeverityMedium, reason: ReasonWifiAnomaly, score: 5},
		{name: "nothing known seen", known: known, current: wifi("a", "b", "c", "d"), suspicious: true, severity: SeverityHigh, reason: ReasonWifiAnomaly, score: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := CheckWifiAnomaly(tt.known, tt.current, th)
			assert.Equal(t, tt.suspicious, r.Suspicious)
			assert.Equal(t, tt.reason, r.Reason)
			if tt.suspicious {
				assert.Equal(t, tt.severity, r.Severity)
			}
			if tt.reason == ReasonNormalWifi || tt.reason == ReasonWifiAnomaly {
				assert.Equal(t, tt.score, r.Details["anomaly_score"])
			}
		})
	}
}

func TestCheckMovementPattern(t *testing.T) {
	th := DefaultThresholds()

	t.Run("too few samples", func(t *testing.T) {
		r := CheckMovementPattern(walk(origin, morning, time.Minute, 50), th)
		assert.False(t, r.Suspicious)
		assert.Equal(t, ReasonInsufficientData, r.Reason)
	})

	t.Run("irregular daytime walk", func(t *testing.T) {
		r := CheckMovementPattern(walk(origin, morning, time.Minute, 20, 90, 45, 150, 10), th)
		assert.False(t, r.Suspicious)
		assert.Equal(t, ReasonNormalPatterns, r.Reason)
	})

	t.Run("evenly spaced steps", func(t *testing.T) {
		r := CheckMovementPattern(walk(origin, morning, time.Minute, 100, 102, 99, 101, 100), th)
		require.True(t, r.Suspicious)
		assert.Equal(t, SeverityHigh, r.Severity)

		anomalies := r.Details["anomalies"].([]patternAnomaly)
		assert.Len(t, anomalies, 2)
		assert.Equal(t, "circular_movement", anomalies[0].Type)
		assert.Equal(t, "grid_movement", anomalies[1].Type)
	})

	t.Run("similar but not grid", func(t *testing.T) {
		r := CheckMovementPattern(walk(origin, morning, time.Minute, 100, 115, 90, 110, 95), th)
		require.True(t, r.Suspicious)
		assert.Equal(t, SeverityMedium, r.Severity)
	})

	t.Run("night activity", func(t *testing.T) {
		night := time.Date(2024, 3, 4, 2, 0, 0, 0, time.UTC)
		r := CheckMovementPattern(walk(origin, night, time.Minute, 20, 300), th)
		require.True(t, r.Suspicious)
		assert.Equal(t, SeverityMedium, r.Severity)
		assert.Less(t, r.Details["mean_hour"].(float64), 6.0)
	})

	t.Run("night in the configured zone", func(t *testing.T) {
		tokyo, err := time.LoadLocation("Asia/Tokyo")
		require.NoError(t, err)
		local := th
		local.WorkdayLocation = tokyo

		// 17:00 UTC is 02:00 in Tokyo
		evening := time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)
		history := walk(origin, evening, time.Minute, 20, 300)

		assert.False(t, CheckMovementPattern(history, th).Suspicious)
		assert.True(t, CheckMovementPattern(history, local).Suspicious)
	})
}
