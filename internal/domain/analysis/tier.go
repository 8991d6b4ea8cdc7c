package analysis

import (
	"math"
	"strings"
)

// Tier floors: the lowest score of the warning and healthy tiers. Risk comes from
// TierOf; the gauge reads these only to place its band edges.
const (
	WarningFloor = 40
	HealthyFloor = 70
)

// ClampScore limits s to [0,100].
func ClampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// TierOf maps a health score to its risk tier. Out-of-range scores are clamped first.
func TierOf(score int) RiskLevel {
	s := ClampScore(score)
	switch {
	case s < WarningFloor:
		return RiskCritical
	case s < HealthyFloor:
		return RiskWarning
	default:
		return RiskHealthy
	}
}

// FaultLabelFor returns the reference fault label for a tier.
func FaultLabelFor(tier RiskLevel) string {
	switch tier {
	case RiskCritical:
		return FaultShaftMisalignment
	case RiskWarning:
		return FaultBearingWear
	default:
		return NoFaultDetected
	}
}

// ClampConfidence limits c to [0,100] and rounds to one decimal place.
func ClampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return math.Round(c*10) / 10
}

// Normalize enforces the result invariants: score in range, tier derived from the
// score (any tier supplied by the classifier is discarded), a non-empty fault label
// and a bounded confidence.
func Normalize(r ClassificationResult) ClassificationResult {
	out := ClassificationResult{
		HealthScore: ClampScore(r.HealthScore),
		FaultType:   strings.TrimSpace(r.FaultType),
		Confidence:  ClampConfidence(r.Confidence),
	}
	out.RiskLevel = TierOf(out.HealthScore)
	if out.FaultType == "" {
		out.FaultType = FaultLabelFor(out.RiskLevel)
	}
	return out
}

// RiskFilter selects records by tier. RiskAll keeps everything.
type RiskFilter string

const (
	RiskAll RiskFilter = "all"
)

// ParseRiskFilter accepts "", all, healthy, warning or critical (any case).
func ParseRiskFilter(s string) (RiskFilter, error) {
	switch RiskFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "", RiskAll:
		return RiskAll, nil
	case RiskFilter(RiskHealthy):
		return RiskFilter(RiskHealthy), nil
	case RiskFilter(RiskWarning):
		return RiskFilter(RiskWarning), nil
	case RiskFilter(RiskCritical):
		return RiskFilter(RiskCritical), nil
	}
	return "", &ValidationError{Field: "risk", Reason: "must be one of all, healthy, warning, critical"}
}

// Matches reports whether a record with the given score passes the filter.
func (f RiskFilter) Matches(score int) bool {
	if f == RiskAll || f == "" {
		return true
	}
	return RiskFilter(TierOf(score)) == f
}
