// Package stub is the placeholder classifier: random scores with the distribution the
// web client used before a real model existed.
package stub

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	domain "github.com/bryanwahyu/acoustic-health/internal/domain/analysis"
)

const (
	minScore      = 40
	scoreSpan     = 60 // scores land in [40,99]
	minConfidence = 82.0
	confSpan      = 15.0 // confidence lands in [82,97]
)

type Classifier struct {
	mu    sync.Mutex
	rand  *rand.Rand
	delay time.Duration
}

// New returns a stub that waits delay before answering (0 = immediate).
func New(delay time.Duration) *Classifier {
	return NewWithSeed(time.Now().UnixNano(), delay)
}

// NewWithSeed makes the output reproducible.
func NewWithSeed(seed int64, delay time.Duration) *Classifier {
	return &Classifier{rand: rand.New(rand.NewSource(seed)), delay: delay}
}

func (c *Classifier) Classify(ctx context.Context, req domain.ClassifyRequest) (domain.ClassificationResult, error) {
	if c.delay > 0 {
		t := time.NewTimer(c.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return domain.ClassificationResult{}, ctx.Err()
		case <-t.C:
		}
	}

	c.mu.Lock()
	score := c.rand.Intn(scoreSpan) + minScore
	conf := c.rand.Float64()*confSpan + minConfidence
	c.mu.Unlock()

	tier := domain.TierOf(score)
	return domain.ClassificationResult{
		HealthScore: score,
		RiskLevel:   tier,
		FaultType:   domain.FaultLabelFor(tier),
		Confidence:  math.Round(conf*10) / 10,
	}, nil
}
