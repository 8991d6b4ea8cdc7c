// Package signal scores machine health from simple time-domain features of a WAV sample.
// It is a heuristic, not a trained model: impulsive signals (high crest factor) and
// clipped signals lose points.
package signal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	domain "github.com/bryanwahyu/acoustic-health/internal/domain/analysis"
)

// ErrTooQuiet is returned when the sample carries no usable signal.
var ErrTooQuiet = errors.New("signal: sample is silent")

const (
	silenceRMS     = 1e-4
	clipLevel      = 0.99
	crestBaseline  = 3.0 // steady rotating machinery sits below this
	crestWeight    = 6.0
	maxCrestLoss   = 70.0
	clipWeight     = 300.0
	maxClipLoss    = 30.0
	fullConfidence = 5.0 // seconds of audio for maximum confidence
)

const FaultExcessiveVibration = "Excessive Vibration"

type Classifier struct {
	Artifacts domain.ArtifactReader
}

func New(artifacts domain.ArtifactReader) *Classifier {
	return &Classifier{Artifacts: artifacts}
}

// Features summarises a decoded sample.
type Features struct {
	RMS         float64
	Peak        float64
	CrestFactor float64
	ClipRatio   float64
	Seconds     float64
}

func (c *Classifier) Classify(ctx context.Context, req domain.ClassifyRequest) (domain.ClassificationResult, error) {
	data, err := c.Artifacts.Get(ctx, req.Artifact.Path)
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("reading artifact: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.ClassificationResult{}, err
	}
	f, err := Extract(data)
	if err != nil {
		return domain.ClassificationResult{}, err
	}
	return Score(f), nil
}

// Extract decodes a WAV payload and computes its features.
func Extract(data []byte) (Features, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return Features{}, domain.ErrNotWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Features{}, fmt.Errorf("decoding wav: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return Features{}, ErrTooQuiet
	}
	f := features(buf, int(dec.BitDepth))
	if f.RMS < silenceRMS {
		return f, ErrTooQuiet
	}
	return f, nil
}

func features(buf *audio.IntBuffer, bitDepth int) Features {
	if bitDepth <= 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	full := math.Pow(2, float64(bitDepth-1))

	var sumSq, peak float64
	clipped := 0
	for _, s := range buf.Data {
		v := math.Abs(float64(s) / full)
		sumSq += v * v
		if v > peak {
			peak = v
		}
		if v >= clipLevel {
			clipped++
		}
	}
	n := float64(len(buf.Data))
	f := Features{
		RMS:       math.Sqrt(sumSq / n),
		Peak:      peak,
		ClipRatio: float64(clipped) / n,
	}
	if f.RMS > 0 {
		f.CrestFactor = f.Peak / f.RMS
	}
	if buf.Format != nil && buf.Format.SampleRate > 0 && buf.Format.NumChannels > 0 {
		f.Seconds = n / float64(buf.Format.NumChannels) / float64(buf.Format.SampleRate)
	}
	return f
}

// Score maps features to a classification. Tier always comes from TierOf.
func Score(f Features) domain.ClassificationResult {
	crestLoss := math.Min(math.Max((f.CrestFactor-crestBaseline)*crestWeight, 0), maxCrestLoss)
	clipLoss := math.Min(f.ClipRatio*clipWeight, maxClipLoss)
	score := domain.ClampScore(int(math.Round(100 - crestLoss - clipLoss)))
	tier := domain.TierOf(score)

	label := domain.FaultLabelFor(tier)
	if tier != domain.RiskHealthy {
		if clipLoss > crestLoss {
			label = FaultExcessiveVibration
		} else {
			label = domain.FaultBearingWear
		}
	}

	conf := 70 + math.Min(f.Seconds, fullConfidence)/fullConfidence*25
	return domain.ClassificationResult{
		HealthScore: score,
		RiskLevel:   tier,
		FaultType:   label,
		Confidence:  domain.ClampConfidence(conf),
	}
}
