package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/service"
)

// HandlerSet wires the three triage queues to their job handlers.
type HandlerSet struct {
	queries    repository.QueryRepository
	classifier service.Classifier
	triage     *service.TriageService
	logger     *zap.Logger
}

// NewHandlerSet constructs the handlers.
func NewHandlerSet(queries repository.QueryRepository, classifier service.Classifier, triage *service.TriageService, logger *zap.Logger) *HandlerSet {
	return &HandlerSet{queries: queries, classifier: classifier, triage: triage, logger: logger}
}

// Register attaches each handler to its queue on the worker.
func (h *HandlerSet) Register(w *Worker) {
	w.Handle(service.QueueClassification, h.HandleClassify)
	w.Handle(service.QueuePriorityScoring, h.HandleScore)
	w.Handle(service.QueueRouting, h.HandleRoute)
}

// HandleClassify runs the classifier over the query message and stores the
// insights along with derived category, sentiment and urgency tags.
func (h *HandlerSet) HandleClassify(ctx context.Context, job Job) error {
	var payload service.ClassifyJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal classify job: %w", err)
	}

	insights, err := h.classifier.Classify(ctx, payload.Message)
	if err != nil {
		return err
	}
	query, err := h.queries.UpdateInsights(ctx, payload.QueryID, insights)
	if err != nil {
		return err
	}

	derived := []domain.Tag{
		{Name: insights.Category, Confidence: insights.Confidence},
		{Name: "sentiment:" + insights.Sentiment, Confidence: insights.Confidence},
		{Name: "urgency:" + insights.Urgency, Confidence: insights.Confidence},
	}
	tags := query.Tags
	for _, tag := range derived {
		if !hasTag(tags, tag.Name) {
			tags = append(tags, tag)
		}
	}
	if _, err := h.queries.UpdateTags(ctx, payload.QueryID, tags); err != nil {
		return err
	}

	h.logger.Info("query classified",
		zap.String("queryId", payload.QueryID),
		zap.String("category", insights.Category),
		zap.String("sentiment", insights.Sentiment),
		zap.String("urgency", insights.Urgency))
	return nil
}

// HandleScore applies the legacy urgency score: an "urgent" substring in the
// message escalates the query, anything else scores medium.
func (h *HandlerSet) HandleScore(ctx context.Context, job Job) error {
	var payload service.ScoreJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal score job: %w", err)
	}

	priority := domain.PriorityMedium
	if strings.Contains(strings.ToLower(payload.Message), "urgent") {
		priority = domain.PriorityUrgent
	}
	if _, err := h.queries.UpdatePriority(ctx, payload.QueryID, priority); err != nil {
		return err
	}
	if priority == domain.PriorityUrgent {
		if _, err := h.queries.UpdateStatus(ctx, payload.QueryID, domain.QueryStatusEscalated); err != nil {
			return err
		}
	}

	h.logger.Info("query scored",
		zap.String("queryId", payload.QueryID),
		zap.String("priority", string(priority)))
	return nil
}

// HandleRoute runs the full triage pipeline for the query.
func (h *HandlerSet) HandleRoute(ctx context.Context, job Job) error {
	var payload service.RouteJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal route job: %w", err)
	}
	_, err := h.triage.ProcessQuery(ctx, payload.QueryID)
	return err
}

func hasTag(tags []domain.Tag, name string) bool {
	for _, tag := range tags {
		if tag.Name == name {
			return true
		}
	}
	return false
}
