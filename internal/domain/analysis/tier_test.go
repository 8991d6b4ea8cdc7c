package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score int
		want  RiskLevel
	}{
		{0, RiskCritical},
		{25, RiskCritical},
		{39, RiskCritical},
		{40, RiskWarning},
		{55, RiskWarning},
		{69, RiskWarning},
		{70, RiskHealthy},
		{85, RiskHealthy},
		{100, RiskHealthy},
		{-10, RiskCritical},
		{150, RiskHealthy},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierOf(tt.score), "score %d", tt.score)
		assert.Equal(t, TierOf(tt.score), TierOf(tt.score), "TierOf must be stable for %d", tt.score)
	}
}

func TestTierOfCoversFullRange(t *testing.T) {
	t.Parallel()

	for s := 0; s <= 100; s++ {
		got := TierOf(s)
		switch {
		case s < 40:
			assert.Equal(t, RiskCritical, got, "score %d", s)
		case s < 70:
			assert.Equal(t, RiskWarning, got, "score %d", s)
		default:
			assert.Equal(t, RiskHealthy, got, "score %d", s)
		}
	}
}

func TestClampScore(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, ClampScore(-10))
	assert.Equal(t, 100, ClampScore(150))
	assert.Equal(t, 42, ClampScore(42))
}

func TestNormalizeRecomputesTier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   ClassificationResult
		want ClassificationResult
	}{
		{
			name: "inconsistent tier overridden",
			in:   ClassificationResult{HealthScore: 85, RiskLevel: RiskCritical, FaultType: "Bearing Wear", Confidence: 90.04},
			want: ClassificationResult{HealthScore: 85, RiskLevel: RiskHealthy, FaultType: "Bearing Wear", Confidence: 90},
		},
		{
			name: "empty label gets tier label",
			in:   ClassificationResult{HealthScore: 25, Confidence: 88.88},
			want: ClassificationResult{HealthScore: 25, RiskLevel: RiskCritical, FaultType: FaultShaftMisalignment, Confidence: 88.9},
		},
		{
			name: "out of range values clamped",
			in:   ClassificationResult{HealthScore: 140, FaultType: "  ", Confidence: 120},
			want: ClassificationResult{HealthScore: 100, RiskLevel: RiskHealthy, FaultType: NoFaultDetected, Confidence: 100},
		},
		{
			name: "negative score and confidence",
			in:   ClassificationResult{HealthScore: -3, FaultType: "Cavitation", Confidence: -1},
			want: ClassificationResult{HealthScore: 0, RiskLevel: RiskCritical, FaultType: "Cavitation", Confidence: 0},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestParseRiskFilter(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]RiskFilter{
		"":         RiskAll,
		"all":      RiskAll,
		"Healthy":  RiskFilter(RiskHealthy),
		"WARNING":  RiskFilter(RiskWarning),
		"critical": RiskFilter(RiskCritical),
	} {
		got, err := ParseRiskFilter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseRiskFilter("severe")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestRiskFilterMatches(t *testing.T) {
	t.Parallel()

	assert.True(t, RiskAll.Matches(10))
	assert.True(t, RiskFilter(RiskCritical).Matches(39))
	assert.False(t, RiskFilter(RiskCritical).Matches(40))
	assert.True(t, RiskFilter(RiskWarning).Matches(69))
	assert.True(t, RiskFilter(RiskHealthy).Matches(70))
}

func TestParseMachineType(t *testing.T) {
	t.Parallel()

	got, err := ParseMachineType("conveyor belt")
	require.NoError(t, err)
	assert.Equal(t, MachineConveyorBelt, got)

	got, err = ParseMachineType(" Pump ")
	require.NoError(t, err)
	assert.Equal(t, MachinePump, got)

	for _, bad := range []string{"", "   ", "Blender"} {
		_, err := ParseMachineType(bad)
		require.Error(t, err, bad)
		assert.True(t, IsValidation(err), bad)
	}
}
