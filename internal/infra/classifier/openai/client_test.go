package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/acoustic-health/internal/domain/analysis"
)

func TestParseResult(t *testing.T) {
	t.Parallel()

	res, err := ParseResult(`{"health_score": 55, "fault_type": "Cavitation", "confidence": 91.26}`)
	require.NoError(t, err)
	assert.Equal(t, domain.ClassificationResult{
		HealthScore: 55, RiskLevel: domain.RiskWarning, FaultType: "Cavitation", Confidence: 91.3,
	}, res)

	res, err = ParseResult("```json\n{\"health_score\": 120, \"confidence\": 50}\n```")
	require.NoError(t, err)
	assert.Equal(t, 100, res.HealthScore)
	assert.Equal(t, domain.RiskHealthy, res.RiskLevel)
	assert.Equal(t, domain.NoFaultDetected, res.FaultType)

	res, err = ParseResult(`{"health_score": -4, "fault_type": "Seized"}`)
	require.NoError(t, err)
	assert.Equal(t, 0, res.HealthScore)
	assert.Equal(t, domain.RiskCritical, res.RiskLevel)

	_, err = ParseResult(`{"fault_type": "x"}`)
	assert.Error(t, err)
	_, err = ParseResult(`not json`)
	assert.Error(t, err)
}

func newTestClassifier(t *testing.T, h http.HandlerFunc) *Classifier {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return NewClassifierWithConfig(cfg, "gpt-4o-mini", nil)
}

func TestClassifyAgainstServer(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "Machine type: Fan")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: `{"health_score": 34, "fault_type": "Imbalance", "confidence": 88.0}`,
				},
			}},
		})
	})

	res, err := c.Classify(context.Background(), domain.ClassifyRequest{
		Artifact: domain.AudioArtifact{Path: "u/1_fan.mp3", OriginalName: "fan.mp3", ContentType: "audio/mpeg", Size: 10},
		Machine:  domain.MachineFan,
	})
	require.NoError(t, err)
	assert.Equal(t, 34, res.HealthScore)
	assert.Equal(t, domain.RiskCritical, res.RiskLevel)
	assert.Equal(t, "Imbalance", res.FaultType)
}

func TestClassifyQuotaExceeded(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota","type":"insufficient_quota","code":"insufficient_quota"}}`))
	})
	_, err := c.Classify(context.Background(), domain.ClassifyRequest{Machine: domain.MachinePump})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}
