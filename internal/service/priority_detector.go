package service

import (
	"fmt"
	"strings"

	"github.com/spec-kit/triage-service/internal/domain"
)

// UrgencyBucket is the coarse urgency classification recorded next to the
// priority verdict.
type UrgencyBucket string

const (
	UrgencyLow      UrgencyBucket = "low"
	UrgencyMedium   UrgencyBucket = "medium"
	UrgencyHigh     UrgencyBucket = "high"
	UrgencyCritical UrgencyBucket = "critical"
)

// PriorityResult is the transient verdict of one detection run. Reasons exist
// for audit logging only.
type PriorityResult struct {
	Priority   domain.QueryPriority
	Urgency    UrgencyBucket
	Confidence float64
	Reasons    []string
}

// urgencyKeywords maps message substrings to priority signals. Order matters:
// reasons are reported in table order.
var urgencyKeywords = []struct {
	keyword  string
	priority domain.QueryPriority
}{
	{"critical", domain.PriorityUrgent},
	{"immediate", domain.PriorityUrgent},
	{"asap", domain.PriorityUrgent},
	{"emergency", domain.PriorityUrgent},
	{"urgent", domain.PriorityHigh},
	{"important", domain.PriorityHigh},
	{"priority", domain.PriorityHigh},
	{"soon", domain.PriorityHigh},
	{"quickly", domain.PriorityHigh},
	{"fast", domain.PriorityMedium},
	{"whenever", domain.PriorityLow},
	{"eventually", domain.PriorityLow},
	{"no_rush", domain.PriorityLow},
}

var sentimentPriorityMap = map[string]domain.QueryPriority{
	"negative":      domain.PriorityHigh,
	"very_negative": domain.PriorityUrgent,
	"angry":         domain.PriorityUrgent,
	"frustrated":    domain.PriorityHigh,
	"neutral":       domain.PriorityMedium,
	"positive":      domain.PriorityLow,
}

var categoryPriorityMap = map[string]domain.QueryPriority{
	"complaint": domain.PriorityHigh,
	"bug":       domain.PriorityHigh,
	"error":     domain.PriorityHigh,
	"security":  domain.PriorityUrgent,
	"billing":   domain.PriorityHigh,
	"payment":   domain.PriorityHigh,
	"question":  domain.PriorityMedium,
	"feedback":  domain.PriorityLow,
	"request":   domain.PriorityMedium,
}

// PriorityDetector derives a priority level from message text, tags, and
// classifier insights. Pure: no I/O, deterministic for a given input.
type PriorityDetector struct{}

// NewPriorityDetector constructs the detector.
func NewPriorityDetector() *PriorityDetector {
	return &PriorityDetector{}
}

// Detect combines the three signal sources with a highest-wins rule. The
// final priority is urgent if any source says urgent, high if any says high,
// low only when a source says low and none says high, otherwise medium.
// Confidence counts matched indicators: 0.8 for two or more, 0.6 for one,
// 0.4 for none.
func (d *PriorityDetector) Detect(message string, tags []domain.Tag, insights *domain.ClassifierInsights) PriorityResult {
	keywordBucket, keywordReasons, keywordHits := detectUrgencyFromMessage(message)
	tagPriority, tagReasons, tagHits := detectPriorityFromTags(tags)
	insightPriority, insightReasons, insightHits := detectPriorityFromInsights(insights)

	reasons := make([]string, 0, len(keywordReasons)+len(tagReasons)+len(insightReasons))
	reasons = append(reasons, keywordReasons...)
	reasons = append(reasons, tagReasons...)
	reasons = append(reasons, insightReasons...)

	candidates := []domain.QueryPriority{tagPriority, insightPriority}
	switch keywordBucket {
	case UrgencyCritical:
		candidates = append(candidates, domain.PriorityUrgent)
	case UrgencyHigh:
		candidates = append(candidates, domain.PriorityHigh)
	}

	final := domain.PriorityMedium
	switch {
	case containsPriority(candidates, domain.PriorityUrgent):
		final = domain.PriorityUrgent
	case containsPriority(candidates, domain.PriorityHigh):
		final = domain.PriorityHigh
	case containsPriority(candidates, domain.PriorityLow):
		final = domain.PriorityLow
	}

	indicators := keywordHits + tagHits + insightHits
	confidence := 0.4
	if indicators == 1 {
		confidence = 0.6
	} else if indicators >= 2 {
		confidence = 0.8
	}

	return PriorityResult{
		Priority:   final,
		Urgency:    urgencyForPriority(final),
		Confidence: confidence,
		Reasons:    reasons,
	}
}

func detectUrgencyFromMessage(message string) (UrgencyBucket, []string, int) {
	lower := strings.ToLower(message)
	reasons := []string{}
	hits := 0
	bucket := UrgencyLow

	for _, entry := range urgencyKeywords {
		if !strings.Contains(lower, entry.keyword) {
			continue
		}
		reasons = append(reasons, fmt.Sprintf("Keyword: %q", entry.keyword))
		hits++
		switch entry.priority {
		case domain.PriorityUrgent:
			bucket = UrgencyCritical
		case domain.PriorityHigh:
			if bucket != UrgencyCritical {
				bucket = UrgencyHigh
			}
		case domain.PriorityMedium:
			if bucket == UrgencyLow {
				bucket = UrgencyMedium
			}
		}
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "No urgency keywords detected")
	}
	return bucket, reasons, hits
}

func detectPriorityFromTags(tags []domain.Tag) (domain.QueryPriority, []string, int) {
	if len(tags) == 0 {
		return domain.PriorityMedium, []string{"No tags available"}, 0
	}

	reasons := []string{}
	var priorities []domain.QueryPriority
	for _, tag := range tags {
		name := normalizeTagName(tag.Name)
		switch {
		case strings.Contains(name, "urgent") || strings.Contains(name, "critical"):
			priorities = append(priorities, domain.PriorityUrgent)
			reasons = append(reasons, fmt.Sprintf("Tag: %s → urgent", name))
		case strings.Contains(name, "high") || strings.Contains(name, "important") ||
			strings.Contains(name, "complaint") || strings.Contains(name, "bug"):
			priorities = append(priorities, domain.PriorityHigh)
			reasons = append(reasons, fmt.Sprintf("Tag: %s → high", name))
		case strings.Contains(name, "low") || strings.Contains(name, "feedback"):
			priorities = append(priorities, domain.PriorityLow)
			reasons = append(reasons, fmt.Sprintf("Tag: %s → low", name))
		}
	}

	if len(priorities) == 0 {
		return domain.PriorityMedium, []string{"No priority indicators in tags"}, 0
	}
	return maxPriority(priorities), reasons, len(reasons)
}

func detectPriorityFromInsights(insights *domain.ClassifierInsights) (domain.QueryPriority, []string, int) {
	if insights == nil {
		return domain.PriorityMedium, []string{"No AI insights available"}, 0
	}

	reasons := []string{}
	var priorities []domain.QueryPriority

	if insights.Sentiment != "" {
		normalized := strings.ReplaceAll(strings.ToLower(insights.Sentiment), " ", "_")
		if priority, ok := sentimentPriorityMap[normalized]; ok {
			priorities = append(priorities, priority)
			reasons = append(reasons, fmt.Sprintf("Sentiment: %s → %s", insights.Sentiment, priority))
		}
	}
	if insights.Category != "" {
		if priority, ok := categoryPriorityMap[strings.ToLower(insights.Category)]; ok {
			priorities = append(priorities, priority)
			reasons = append(reasons, fmt.Sprintf("Category: %s → %s", insights.Category, priority))
		}
	}
	if insights.Urgency != "" {
		switch strings.ToLower(insights.Urgency) {
		case "critical":
			priorities = append(priorities, domain.PriorityUrgent)
			reasons = append(reasons, fmt.Sprintf("AI urgency: %s → urgent", insights.Urgency))
		case "high":
			priorities = append(priorities, domain.PriorityHigh)
			reasons = append(reasons, fmt.Sprintf("AI urgency: %s → high", insights.Urgency))
		}
	}

	if len(priorities) == 0 {
		return domain.PriorityMedium, []string{"No priority indicators in AI insights"}, 0
	}
	return maxPriority(priorities), reasons, len(reasons)
}

// normalizeTagName lowercases, strips classifier prefixes, and collapses
// non-alphanumerics to underscores.
func normalizeTagName(name string) string {
	lower := strings.ToLower(name)
	lower = strings.TrimPrefix(lower, "sentiment:")
	lower = strings.TrimPrefix(lower, "urgency:")
	var b strings.Builder
	b.Grow(len(lower))
	for _, ch := range lower {
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func maxPriority(priorities []domain.QueryPriority) domain.QueryPriority {
	switch {
	case containsPriority(priorities, domain.PriorityUrgent):
		return domain.PriorityUrgent
	case containsPriority(priorities, domain.PriorityHigh):
		return domain.PriorityHigh
	case containsPriority(priorities, domain.PriorityMedium):
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

func containsPriority(priorities []domain.QueryPriority, target domain.QueryPriority) bool {
	for _, priority := range priorities {
		if priority == target {
			return true
		}
	}
	return false
}

func urgencyForPriority(priority domain.QueryPriority) UrgencyBucket {
	switch priority {
	case domain.PriorityUrgent:
		return UrgencyCritical
	case domain.PriorityHigh:
		return UrgencyHigh
	case domain.PriorityLow:
		return UrgencyLow
	default:
		return UrgencyMedium
	}
}
