package publishanalysis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"opportunity-workers/internal/common/errors"
	"opportunity-workers/internal/common/logger"
	"opportunity-workers/internal/models"
)

// DocumentIndexer stores a document under a caller-chosen id.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, index, id string, doc interface{}) (int64, error)
}

// Notifier publishes a JSON message to a topic and returns its message id.
type Notifier interface {
	PublishJSON(ctx context.Context, topicARN, subject string, body interface{}, attributes map[string]string) (string, error)
}

type ServiceDependencies struct {
	Indexer  DocumentIndexer
	Notifier Notifier
	Logger   logger.Logger
}

type Service struct {
	config   *Config
	indexer  DocumentIndexer
	notifier Notifier
	logger   logger.Logger
	newID    func() string
	now      func() time.Time
}

func NewService(deps ServiceDependencies, cfg *Config) *Service {
	return &Service{
		config:   cfg,
		indexer:  deps.Indexer,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Publish indexes the analysis and, when enabled, announces it. The document
// id is the narrative hash when one is known so a retried job overwrites its
// own document.
func (s *Service) Publish(ctx context.Context, input *Input) (*Output, error) {
	id := input.NarrativeHash
	if id == "" {
		id = s.newID()
	}
	publishedAt := s.now().UTC()

	doc := AnalysisDocument{
		ID:            id,
		CustomerName:  input.CustomerName,
		OppName:       input.OppName,
		Region:        input.Region,
		NarrativeHash: input.NarrativeHash,
		SQLQuery:      input.SQLQuery,
		QualityScore:  input.QualityScore,
		Analysis:      input.Analysis,
		PublishedAt:   publishedAt,
	}

	version, err := s.indexer.IndexDocument(ctx, s.config.Index, id, doc)
	if err != nil {
		return nil, errors.NewAnalysisIndexFailedError(s.config.Index, err)
	}
	s.logger.Info("analysis indexed", map[string]interface{}{
		"documentId": id,
		"index":      s.config.Index,
		"version":    version,
	})

	output := &Output{DocumentID: id, Index: s.config.Index, DocumentVersion: version}
	if !s.config.NotifyEnabled || s.notifier == nil {
		return output, nil
	}

	m := input.Analysis.Metrics
	event := AnalysisEvent{
		EventType:       EventType,
		DocumentID:      id,
		Index:           s.config.Index,
		CustomerName:    input.CustomerName,
		OppName:         input.OppName,
		PredictedARR:    m.PredictedARR,
		LaunchDate:      m.LaunchDate,
		Confidence:      confidenceOrUnknown(m.Confidence),
		ConfidenceScore: m.ConfidenceScore,
		PublishedAt:     publishedAt,
	}
	attributes := map[string]string{
		"eventType":  EventType,
		"confidence": string(event.Confidence),
	}

	messageID, err := s.notifier.PublishJSON(ctx, s.config.TopicARN, "Opportunity analysis published", event, attributes)
	if err != nil {
		return nil, errors.NewNotificationPublishFailedError(err).WithMetadata("analysisDocumentId", id)
	}

	output.MessageID = messageID
	output.Notified = true
	return output, nil
}

func confidenceOrUnknown(c models.Confidence) models.Confidence {
	if c == "" {
		return models.ConfidenceUnknown
	}
	return c
}
