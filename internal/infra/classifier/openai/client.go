package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	domain "github.com/bryanwahyu/acoustic-health/internal/domain/analysis"
	"github.com/bryanwahyu/acoustic-health/internal/infra/classifier/signal"
)

const (
	maxTokens    = 512
	defaultModel = "gpt-4o-mini"
)

// ErrQuotaExceeded is returned when the provider answers HTTP 429.
var ErrQuotaExceeded = domain.ErrQuotaExceeded

// Classifier asks a chat model for a health assessment.
type Classifier struct {
	*openai.Client
	Model     string
	Artifacts domain.ArtifactReader // optional, enables WAV measurements in the prompt
}

func NewClassifier(apiKey, model string, artifacts domain.ArtifactReader) *Classifier {
	return &Classifier{Client: openai.NewClient(apiKey), Model: model, Artifacts: artifacts}
}

// NewClassifierWithConfig allows a custom base URL (proxies, compatible servers, tests).
func NewClassifierWithConfig(cfg openai.ClientConfig, model string, artifacts domain.ArtifactReader) *Classifier {
	return &Classifier{Client: openai.NewClientWithConfig(cfg), Model: model, Artifacts: artifacts}
}

func (c *Classifier) Classify(ctx context.Context, req domain.ClassifyRequest) (domain.ClassificationResult, error) {
	model := c.Model
	if model == "" {
		model = defaultModel
	}

	var feats *signal.Features
	if c.Artifacts != nil {
		if data, err := c.Artifacts.Get(ctx, req.Artifact.Path); err == nil {
			if f, err := signal.Extract(data); err == nil {
				feats = &f
			}
		}
	}

	creq := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req, feats)},
		},
	}
	// reasoning models (o1/o3/o4/gpt-5*) take MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		creq.MaxCompletionTokens = maxTokens
	} else {
		creq.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, creq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return domain.ClassificationResult{}, fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return domain.ClassificationResult{}, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.ClassificationResult{}, errors.New("chat completion returned no choices")
	}
	return ParseResult(resp.Choices[0].Message.Content)
}

// ParseResult decodes the model's JSON answer. The tier is derived from the score.
func ParseResult(content string) (domain.ClassificationResult, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var out struct {
		HealthScore *float64 `json:"health_score"`
		FaultType   string   `json:"fault_type"`
		Confidence  float64  `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &out); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("decoding model output: %w", err)
	}
	if out.HealthScore == nil {
		return domain.ClassificationResult{}, errors.New("model output missing health_score")
	}
	score := domain.ClampScore(int(math.Round(*out.HealthScore)))
	tier := domain.TierOf(score)
	label := strings.TrimSpace(out.FaultType)
	if label == "" {
		label = domain.FaultLabelFor(tier)
	}
	return domain.ClassificationResult{
		HealthScore: score,
		RiskLevel:   tier,
		FaultType:   label,
		Confidence:  domain.ClampConfidence(out.Confidence),
	}, nil
}
