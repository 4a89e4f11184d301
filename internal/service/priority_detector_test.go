package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/triage-service/internal/domain"
)

func TestDetectEmptyInputs(t *testing.T) {
	detector := NewPriorityDetector()

	result := detector.Detect("", nil, nil)

	assert.Equal(t, domain.PriorityMedium, result.Priority)
	assert.Equal(t, UrgencyMedium, result.Urgency)
	assert.Equal(t, 0.4, result.Confidence)
	assert.Equal(t, []string{
		"No urgency keywords detected",
		"No tags available",
		"No AI insights available",
	}, result.Reasons)
}

func TestDetectUrgentKeywordsNeverLow(t *testing.T) {
	detector := NewPriorityDetector()

	for _, word := range []string{"emergency", "critical", "immediately", "asap"} {
		result := detector.Detect(fmt.Sprintf("please handle this %s", word), nil, nil)
		assert.Equal(t, domain.PriorityUrgent, result.Priority, "keyword %q", word)
		assert.Equal(t, UrgencyCritical, result.Urgency)
	}
}

func TestDetectKeywordCombination(t *testing.T) {
	detector := NewPriorityDetector()

	result := detector.Detect("My payment failed and I need urgent help immediately", nil, nil)

	require.Equal(t, domain.PriorityUrgent, result.Priority)
	assert.Equal(t, 0.8, result.Confidence)
	assert.Contains(t, result.Reasons, `Keyword: "immediate"`)
	assert.Contains(t, result.Reasons, `Keyword: "urgent"`)
}

func TestDetectSingleHighKeyword(t *testing.T) {
	detector := NewPriorityDetector()

	result := detector.Detect("this is urgent", nil, nil)

	assert.Equal(t, domain.PriorityHigh, result.Priority)
	assert.Equal(t, UrgencyHigh, result.Urgency)
	assert.Equal(t, 0.6, result.Confidence)
}

func TestDetectTagPriorities(t *testing.T) {
	detector := NewPriorityDetector()

	tests := []struct {
		tag      string
		expected domain.QueryPriority
	}{
		{"urgent", domain.PriorityUrgent},
		{"critical-issue", domain.PriorityUrgent},
		{"bug", domain.PriorityHigh},
		{"complaint", domain.PriorityHigh},
		{"feedback", domain.PriorityLow},
	}
	for _, tc := range tests {
		result := detector.Detect("hello", []domain.Tag{{Name: tc.tag, Confidence: 0.9}}, nil)
		assert.Equal(t, tc.expected, result.Priority, "tag %q", tc.tag)
	}
}

func TestDetectLowOnlyWithoutHighSignals(t *testing.T) {
	detector := NewPriorityDetector()

	low := detector.Detect("hello", []domain.Tag{{Name: "feedback", Confidence: 0.9}}, nil)
	assert.Equal(t, domain.PriorityLow, low.Priority)

	// A high signal from another source overrides the low tag.
	mixed := detector.Detect("this is urgent", []domain.Tag{{Name: "feedback", Confidence: 0.9}}, nil)
	assert.Equal(t, domain.PriorityHigh, mixed.Priority)
}

func TestDetectInsightSignals(t *testing.T) {
	detector := NewPriorityDetector()

	result := detector.Detect("hello", nil, &domain.ClassifierInsights{
		Category:  "security",
		Sentiment: "very negative",
		Urgency:   "high",
	})

	assert.Equal(t, domain.PriorityUrgent, result.Priority)
	assert.Equal(t, 0.8, result.Confidence)
	assert.Contains(t, result.Reasons, "Sentiment: very negative → urgent")
	assert.Contains(t, result.Reasons, "Category: security → urgent")
	assert.Contains(t, result.Reasons, "AI urgency: high → high")
}

func TestDetectNoIndicatorsStillExplains(t *testing.T) {
	detector := NewPriorityDetector()

	result := detector.Detect("hello there", []domain.Tag{{Name: "misc", Confidence: 0.9}},
		&domain.ClassifierInsights{Sentiment: "unknown"})

	assert.Equal(t, domain.PriorityMedium, result.Priority)
	assert.Equal(t, 0.4, result.Confidence)
	assert.Contains(t, result.Reasons, "No urgency keywords detected")
	assert.Contains(t, result.Reasons, "No priority indicators in tags")
	assert.Contains(t, result.Reasons, "No priority indicators in AI insights")
}

func TestDetectIsDeterministic(t *testing.T) {
	detector := NewPriorityDetector()
	tags := []domain.Tag{{Name: "billing", Confidence: 0.7}, {Name: "urgent", Confidence: 0.9}}

	first := detector.Detect("charge dispute", tags, nil)
	second := detector.Detect("charge dispute", tags, nil)

	assert.Equal(t, first, second)
}

func TestNormalizeTagName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Billing", "billing"},
		{"not working", "not_working"},
		{"sentiment:negative", "negative"},
		{"urgency:high", "high"},
		{"Critical-Issue!", "critical_issue_"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, normalizeTagName(tc.in), "input %q", tc.in)
	}
}
