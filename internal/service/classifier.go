package service

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/domain"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

// Classifier categorizes a raw query message. Errors are systemic outages
// and must propagate so the queue retries the job; an absent insight is not
// an error.
type Classifier interface {
	Classify(ctx context.Context, message string) (*domain.ClassifierInsights, error)
}

// NewClassifier selects the OpenAI-backed classifier when an API key is
// configured, otherwise the deterministic stub.
func NewClassifier(cfg config.ClassifierConfig, logger *zap.Logger) Classifier {
	if cfg.APIKey == "" {
		logger.Warn("OPENAI_API_KEY not set; using stub classifier")
		return &stubClassifier{}
	}
	return &openAIClassifier{
		client: openai.NewClient(cfg.APIKey),
		model:  cfg.Model,
		logger: logger,
	}
}

type openAIClassifier struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func (c *openAIClassifier) Classify(ctx context.Context, message string) (*domain.ClassifierInsights, error) {
	prompt := fmt.Sprintf(
		"Classify the following audience query message. Return JSON with keys category, sentiment, urgency, confidence (0-1). Message: %q",
		message,
	)
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, apperrors.NewClassifierFailure(err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.NewClassifierFailure(fmt.Errorf("empty completion"))
	}

	var insights domain.ClassifierInsights
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &insights); err != nil {
		return nil, apperrors.NewClassifierFailure(err)
	}
	c.logger.Debug("classified query",
		zap.String("category", insights.Category),
		zap.String("sentiment", insights.Sentiment),
		zap.String("urgency", insights.Urgency),
	)
	return &insights, nil
}

// stubClassifier derives insights from message content alone. It is
// deterministic so re-delivered jobs converge on the same result.
type stubClassifier struct{}

var stubCategories = []string{"question", "request", "complaint", "feedback"}
var stubSentiments = []string{"positive", "neutral", "negative"}
var stubUrgencies = []string{"low", "medium", "high", "critical"}

func (c *stubClassifier) Classify(_ context.Context, message string) (*domain.ClassifierInsights, error) {
	lower := strings.ToLower(message)

	category := stubCategories[hashBucket(message, len(stubCategories))]
	switch {
	case strings.Contains(lower, "refund") || strings.Contains(lower, "charge"):
		category = "complaint"
	case strings.Contains(lower, "?"):
		category = "question"
	}

	sentiment := stubSentiments[hashBucket(message, len(stubSentiments))]
	if strings.Contains(lower, "angry") || strings.Contains(lower, "terrible") {
		sentiment = "negative"
	}

	urgency := stubUrgencies[hashBucket(message, len(stubUrgencies))]
	if strings.Contains(lower, "urgent") || strings.Contains(lower, "asap") {
		urgency = "critical"
	}

	return &domain.ClassifierInsights{
		Category:   category,
		Sentiment:  sentiment,
		Urgency:    urgency,
		Confidence: 0.5 + float64(hashBucket(message, 50))/100,
	}, nil
}

func hashBucket(s string, buckets int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(buckets))
}
