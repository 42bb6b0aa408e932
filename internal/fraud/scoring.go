package fraud

// severityWeights is the single severity-to-risk table used by every check
// and by the composite score.
var severityWeights = map[Severity]float64{
	SeverityHigh:   0.8,
	SeverityMedium: 0.5,
	SeverityLow:    0.2,
}

// Weight returns a result's contribution to the composite score
func Weight(r CheckResult) float64 {
	if !r.Suspicious {
		return 0
	}
	if w, ok := severityWeights[r.Severity]; ok {
		return w
	}
	return severityWeights[SeverityLow]
}

func severityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// RiskLevel averages the weights of the results. AverageAll divides by
// every evaluated check; AverageTriggered only by the suspicious ones.
func RiskLevel(results []CheckResult, mode Averaging) float64 {
	var total float64
	var evaluated, triggered int
	for _, r := range results {
		evaluated++
		if r.Suspicious {
			triggered++
			total += Weight(r)
		}
	}

	denominator := evaluated
	if mode == AverageTriggered {
		denominator = triggered
	}
	if denominator == 0 {
		return 0
	}
	return total / float64(denominator)
}

// SeverityForRisk grades a composite score
func SeverityForRisk(risk float64) Severity {
	switch {
	case risk >= 0.8:
		return SeverityHigh
	case risk >= 0.5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// PrimaryType picks the most severe suspicious result; the first one wins ties
func PrimaryType(results []CheckResult) CheckName {
	primary := CheckNone
	best := 0
	for _, r := range results {
		if !r.Suspicious {
			continue
		}
		if rank := severityRank(r.Severity); rank > best {
			best = rank
			primary = r.Check
		}
	}
	return primary
}
