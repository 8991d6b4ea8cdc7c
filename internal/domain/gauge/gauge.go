// Package gauge maps health scores and risk tiers to display geometry and colours.
// Everything here is pure: no I/O, no state.
package gauge

import (
	"fmt"
	"math"

	"github.com/bryanwahyu/acoustic-health/internal/domain/analysis"
)

// Color is the display token for a risk tier.
type Color struct {
	Token    string `json:"token"`
	HSL      string `json:"hsl"`
	Label    string `json:"label"`
	CSSClass string `json:"css_class"`
}

var colors = map[analysis.RiskLevel]Color{
	analysis.RiskCritical: {Token: "danger", HSL: "hsl(0, 72%, 55%)", Label: "Critical", CSSClass: "text-danger"},
	analysis.RiskWarning:  {Token: "warning", HSL: "hsl(42, 95%, 55%)", Label: "Warning", CSSClass: "text-warning"},
	analysis.RiskHealthy:  {Token: "success", HSL: "hsl(152, 60%, 48%)", Label: "Healthy", CSSClass: "text-success"},
}

// NeedleAngle maps a score onto the semicircle: -90 at 0, 0 at 50, +90 at 100.
func NeedleAngle(score int) float64 {
	return -90 + float64(analysis.ClampScore(score))/100*180
}

// ColorFor returns the display token for a tier. Unknown tiers get the critical colour.
func ColorFor(tier analysis.RiskLevel) Color {
	if c, ok := colors[tier]; ok {
		return c
	}
	return colors[analysis.RiskCritical]
}

// Severity orders tiers by visual severity: critical > warning > healthy.
func Severity(tier analysis.RiskLevel) int {
	switch tier {
	case analysis.RiskCritical:
		return 2
	case analysis.RiskWarning:
		return 1
	default:
		return 0
	}
}

// Tiers lists tiers in indicator order, most severe first.
func Tiers() []analysis.RiskLevel {
	return []analysis.RiskLevel{analysis.RiskCritical, analysis.RiskWarning, analysis.RiskHealthy}
}

// Band is one background segment of the dial.
type Band struct {
	Tier       analysis.RiskLevel `json:"tier"`
	StartAngle float64            `json:"start_angle"`
	EndAngle   float64            `json:"end_angle"`
	Path       string             `json:"path"`
	Color      string             `json:"color"`
}

// Gauge is the full geometry of a rendered dial.
type Gauge struct {
	Score        int                `json:"score"`
	Tier         analysis.RiskLevel `json:"tier"`
	Color        Color              `json:"color"`
	NeedleAngle  float64            `json:"needle_angle"`
	ArcSweep     float64            `json:"arc_sweep"`
	ActiveArc    string             `json:"active_arc"`
	Bands        []Band             `json:"bands"`
	Size         float64            `json:"size"`
	Radius       float64            `json:"radius"`
	StrokeWidth  float64            `json:"stroke_width"`
	NeedleLength float64            `json:"needle_length"`
}

const DefaultSize = 200

// ScoreAngle maps a score onto the SVG arc: 180 at 0, 360 at 100.
func ScoreAngle(score int) float64 {
	return 180 + float64(analysis.ClampScore(score))/100*180
}

type bandSpan struct {
	tier       analysis.RiskLevel
	start, end float64
}

// Band edges sit at the tier floors, so the band under the needle always has the
// tier TierOf gives the score.
var bandAngles = []bandSpan{
	{analysis.RiskCritical, ScoreAngle(0), ScoreAngle(analysis.WarningFloor)},
	{analysis.RiskWarning, ScoreAngle(analysis.WarningFloor), ScoreAngle(analysis.HealthyFloor)},
	{analysis.RiskHealthy, ScoreAngle(analysis.HealthyFloor), ScoreAngle(100)},
}

// Render computes the dial for score at the given pixel size (<=0 uses DefaultSize).
func Render(score int, size float64) Gauge {
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		size = DefaultSize
	}
	s := analysis.ClampScore(score)
	tier := analysis.TierOf(s)
	g := Gauge{
		Score:       s,
		Tier:        tier,
		Color:       ColorFor(tier),
		NeedleAngle: NeedleAngle(s),
		ArcSweep:    float64(s) / 100 * 180,
		Size:        size,
		Radius:      size * 0.38,
		StrokeWidth: size * 0.08,
	}
	g.NeedleLength = g.Radius - g.StrokeWidth
	center := size / 2
	g.ActiveArc = ArcPath(center, g.Radius, 180, ScoreAngle(s))
	for _, b := range bandAngles {
		g.Bands = append(g.Bands, Band{
			Tier:       b.tier,
			StartAngle: b.start,
			EndAngle:   b.end,
			Path:       ArcPath(center, g.Radius, b.start, b.end),
			Color:      ColorFor(b.tier).HSL,
		})
	}
	return g
}

// ArcPath returns an SVG path for a circular arc around (center, center).
func ArcPath(center, radius, startAngle, endAngle float64) string {
	startRad := startAngle * math.Pi / 180
	endRad := endAngle * math.Pi / 180
	x1 := center + radius*math.Cos(startRad)
	y1 := center + radius*math.Sin(startRad)
	x2 := center + radius*math.Cos(endRad)
	y2 := center + radius*math.Sin(endRad)
	largeArc := 0
	if endAngle-startAngle > 180 {
		largeArc = 1
	}
	return fmt.Sprintf("M %s %s A %s %s 0 %d 1 %s %s",
		num(x1), num(y1), num(radius), num(radius), largeArc, num(x2), num(y2))
}

func num(f float64) string {
	f = math.Round(f*1000) / 1000
	if f == 0 {
		f = 0 // drop negative zero
	}
	return fmt.Sprintf("%g", f)
}
