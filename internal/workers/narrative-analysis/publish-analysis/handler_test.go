package publishanalysis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"opportunity-workers/internal/common/config"
	"opportunity-workers/internal/common/database"
	"opportunity-workers/internal/common/errors"
	"opportunity-workers/internal/common/logger"
	"opportunity-workers/internal/models"
)

// ==========================
// Mocks
// ==========================

type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) IndexDocument(ctx context.Context, index, id string, doc interface{}) (int64, error) {
	args := m.Called(ctx, index, id, doc)
	return args.Get(0).(int64), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) PublishJSON(ctx context.Context, topicARN, subject string, body interface{}, attributes map[string]string) (string, error) {
	args := m.Called(ctx, topicARN, subject, body, attributes)
	return args.String(0), args.Error(1)
}

// ==========================
// Test Helper Functions
// ==========================

const topicARN = "arn:aws:sns:us-east-1:123456789012:opportunity-analyses"

var fixedNow = time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)

func createTestHandler(t *testing.T, cfg *Config, indexer DocumentIndexer, notifier Notifier) *Handler {
	h, err := NewHandler(HandlerOptions{
		Config:   cfg,
		Indexer:  indexer,
		Notifier: notifier,
		Logger:   logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	h.service.now = func() time.Time { return fixedNow }
	h.service.newID = func() string { return "generated-id" }
	return h
}

func notifyConfig() *Config {
	cfg := DefaultConfig()
	cfg.NotifyEnabled = true
	cfg.TopicARN = topicARN
	return cfg
}

func createValidInput() *Input {
	return &Input{
		NarrativeHash: "3f2a9c",
		CustomerName:  "Acme Logistics",
		OppName:       "Billing platform",
		Region:        "Germany",
		SQLQuery:      "WITH base_projects AS (SELECT 1 FROM parquet) SELECT * FROM base_projects LIMIT 200",
		QualityScore:  60,
		Analysis: models.AnalysisResult{
			Sections: models.NewAnalysisSections(),
			Metrics: models.Metrics{
				PredictedARR:    "$480,000",
				LaunchDate:      "March 2025",
				Confidence:      models.ConfidenceHigh,
				ConfidenceScore: 85,
			},
			FormattedSummary: "=== RISK FACTORS ===\nMainframe skills shortage.",
		},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_IndexAndNotify(t *testing.T) {
	indexer := new(MockIndexer)
	notifier := new(MockNotifier)

	indexer.On("IndexDocument", mock.Anything, "opportunity-analyses", "3f2a9c",
		mock.MatchedBy(func(doc AnalysisDocument) bool {
			return doc.CustomerName == "Acme Logistics" && doc.QualityScore == 60 && doc.PublishedAt.Equal(fixedNow)
		})).Return(int64(2), nil)

	wantEvent := AnalysisEvent{
		EventType:       EventType,
		DocumentID:      "3f2a9c",
		Index:           "opportunity-analyses",
		CustomerName:    "Acme Logistics",
		OppName:         "Billing platform",
		PredictedARR:    "$480,000",
		LaunchDate:      "March 2025",
		Confidence:      models.ConfidenceHigh,
		ConfidenceScore: 85,
		PublishedAt:     fixedNow,
	}
	notifier.On("PublishJSON", mock.Anything, topicARN, "Opportunity analysis published", wantEvent,
		map[string]string{"eventType": EventType, "confidence": "HIGH"}).Return("msg-123", nil)

	h := createTestHandler(t, notifyConfig(), indexer, notifier)
	output, err := h.Execute(context.Background(), createValidInput())
	require.NoError(t, err)

	assert.Equal(t, &Output{
		DocumentID:      "3f2a9c",
		Index:           "opportunity-analyses",
		DocumentVersion: 2,
		MessageID:       "msg-123",
		Notified:        true,
	}, output)
	indexer.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestHandler_Execute_NotificationsDisabled(t *testing.T) {
	indexer := new(MockIndexer)
	indexer.On("IndexDocument", mock.Anything, "opportunity-analyses", "generated-id", mock.Anything).Return(int64(1), nil)

	h := createTestHandler(t, DefaultConfig(), indexer, nil)

	input := createValidInput()
	input.NarrativeHash = ""

	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "generated-id", output.DocumentID)
	assert.False(t, output.Notified)
	assert.Empty(t, output.MessageID)
	indexer.AssertExpectations(t)
}

func TestHandler_Execute_MissingConfidenceIsUnknown(t *testing.T) {
	indexer := new(MockIndexer)
	notifier := new(MockNotifier)
	indexer.On("IndexDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
	notifier.On("PublishJSON", mock.Anything, topicARN, mock.Anything,
		mock.MatchedBy(func(e AnalysisEvent) bool { return e.Confidence == models.ConfidenceUnknown }),
		map[string]string{"eventType": EventType, "confidence": "UNKNOWN"}).Return("msg-9", nil)

	h := createTestHandler(t, notifyConfig(), indexer, notifier)

	input := createValidInput()
	input.Analysis.Metrics = models.Metrics{}

	_, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	notifier.AssertExpectations(t)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(i *MockIndexer, n *MockNotifier)
		wantCode  errors.ErrorCode
		wantRetry int
	}{
		{
			name: "index failure",
			setup: func(i *MockIndexer, n *MockNotifier) {
				i.On("IndexDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(int64(0), stderrors.New("cluster_block_exception"))
			},
			wantCode:  errors.ErrCodeAnalysisIndexFailed,
			wantRetry: 3,
		},
		{
			name: "publish failure",
			setup: func(i *MockIndexer, n *MockNotifier) {
				i.On("IndexDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
				n.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return("", stderrors.New("AuthorizationError"))
			},
			wantCode:  errors.ErrCodeNotificationPublishFailed,
			wantRetry: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			indexer, notifier := new(MockIndexer), new(MockNotifier)
			tt.setup(indexer, notifier)
			h := createTestHandler(t, notifyConfig(), indexer, notifier)

			output, err := h.Execute(context.Background(), createValidInput())
			require.Error(t, err)
			assert.Nil(t, output)

			var stdErr *errors.StandardError
			require.True(t, stderrors.As(err, &stdErr))
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.wantRetry, errors.ConvertToBPMNError(stdErr).Retries)
		})
	}
}

func TestNewHandler_Validation(t *testing.T) {
	_, err := NewHandler(HandlerOptions{})
	assert.ErrorContains(t, err, "requires a document indexer")

	_, err = NewHandler(HandlerOptions{Config: notifyConfig(), Indexer: new(MockIndexer)})
	assert.ErrorContains(t, err, "no notifier")

	cfg := DefaultConfig()
	cfg.NotifyEnabled = true
	_, err = NewHandler(HandlerOptions{Config: cfg, Indexer: new(MockIndexer), Notifier: new(MockNotifier)})
	assert.ErrorContains(t, err, "topic_arn is required")
}

func TestConfigFromApp(t *testing.T) {
	app := &config.Config{
		Narrative: config.NarrativeConfig{Index: "analyses-v2"},
		Integrations: config.IntegrationConfig{AWS: config.AWSConfig{
			SNS: config.SNSConfig{Enabled: true, TopicARN: topicARN},
		}},
	}
	cfg := ConfigFromApp(app)
	assert.Equal(t, "analyses-v2", cfg.Index)
	assert.True(t, cfg.NotifyEnabled)
	assert.Equal(t, topicARN, cfg.TopicARN)
	assert.NoError(t, cfg.Validate())
}

// ==========================
// Integration Tests
// ==========================

func TestHandler_Execute_Elasticsearch(t *testing.T) {
	var gotPath string
	var gotDoc AnalysisDocument
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotDoc)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"_id":"3f2a9c","result":"updated","_version":4}`))
	}))
	defer server.Close()

	es, err := database.NewElasticsearch(config.ElasticsearchConfig{URL: server.URL})
	require.NoError(t, err)

	h := createTestHandler(t, DefaultConfig(), es, nil)
	output, err := h.Execute(context.Background(), createValidInput())
	require.NoError(t, err)

	assert.Equal(t, int64(4), output.DocumentVersion)
	assert.Equal(t, "/opportunity-analyses/_doc/3f2a9c", gotPath)
	assert.Equal(t, "$480,000", gotDoc.Analysis.Metrics.PredictedARR)
	assert.Equal(t, models.NotAvailable, gotDoc.Analysis.Sections.Methodology)
}
