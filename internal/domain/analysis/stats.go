package analysis

import (
	"math"
	"time"
)

// Summary aggregates a user's records for the dashboard.
type Summary struct {
	Total        int       `json:"total"`
	Healthy      int       `json:"healthy"`
	Warning      int       `json:"warning"`
	Critical     int       `json:"critical"`
	AverageScore float64   `json:"average_score"`
	OverallRisk  RiskLevel `json:"overall_risk,omitempty"`
	Latest       *Record   `json:"latest,omitempty"`
}

// Summarize counts records per tier. records must be newest first (ListByUser order).
func Summarize(records []*Record) Summary {
	var s Summary
	if len(records) == 0 {
		return s
	}
	sum := 0
	for _, r := range records {
		switch TierOf(r.HealthScore) {
		case RiskHealthy:
			s.Healthy++
		case RiskWarning:
			s.Warning++
		case RiskCritical:
			s.Critical++
		}
		sum += ClampScore(r.HealthScore)
	}
	s.Total = len(records)
	avg := float64(sum) / float64(s.Total)
	s.AverageScore = math.Round(avg*10) / 10
	s.OverallRisk = TierOf(int(math.Round(avg)))
	s.Latest = records[0]
	return s
}

// TrendPoint is one day of the performance trend.
type TrendPoint struct {
	Date         string  `json:"date"`
	AverageScore float64 `json:"average_score"`
	Count        int     `json:"count"`
}

// Trend returns one point per day for the `days` days ending at now (UTC), oldest
// first. Days without analyses have Count 0.
func Trend(records []*Record, now time.Time, days int) []TrendPoint {
	if days <= 0 {
		days = 7
	}
	now = now.UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -(days - 1))

	sums := make([]int, days)
	counts := make([]int, days)
	for _, r := range records {
		t := r.AnalyzedAt.UTC()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if day.Before(start) || day.After(end) {
			continue
		}
		i := int(day.Sub(start).Hours() / 24)
		sums[i] += ClampScore(r.HealthScore)
		counts[i]++
	}

	out := make([]TrendPoint, days)
	for i := range out {
		p := TrendPoint{Date: start.AddDate(0, 0, i).Format("2006-01-02"), Count: counts[i]}
		if counts[i] > 0 {
			p.AverageScore = math.Round(float64(sums[i])/float64(counts[i])*10) / 10
		}
		out[i] = p
	}
	return out
}
