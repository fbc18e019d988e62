package publishanalysis

import (
	"time"

	"opportunity-workers/internal/models"
)

// EventType is set on every published notification.
const EventType = "opportunity.analysis.published"

type Input struct {
	Analysis      models.AnalysisResult `json:"analysis"`
	NarrativeHash string                `json:"narrativeHash,omitempty"`
	CustomerName  string                `json:"customerName,omitempty"`
	OppName       string                `json:"oppName,omitempty"`
	Region        string                `json:"region,omitempty"`
	SQLQuery      string                `json:"sql_query,omitempty"`
	QualityScore  int                   `json:"qualityScore,omitempty"`
}

// AnalysisDocument is the stored form of one analysis.
type AnalysisDocument struct {
	ID            string                `json:"id"`
	CustomerName  string                `json:"customerName"`
	OppName       string                `json:"oppName"`
	Region        string                `json:"region"`
	NarrativeHash string                `json:"narrativeHash,omitempty"`
	SQLQuery      string                `json:"sqlQuery,omitempty"`
	QualityScore  int                   `json:"qualityScore"`
	Analysis      models.AnalysisResult `json:"analysis"`
	PublishedAt   time.Time             `json:"publishedAt"`
}

// AnalysisEvent is the notification body. It carries the headline figures
// only; subscribers fetch the document for the rest.
type AnalysisEvent struct {
	EventType       string            `json:"eventType"`
	DocumentID      string            `json:"documentId"`
	Index           string            `json:"index"`
	CustomerName    string            `json:"customerName"`
	OppName         string            `json:"oppName"`
	PredictedARR    string            `json:"predictedArr"`
	LaunchDate      string            `json:"launchDate"`
	Confidence      models.Confidence `json:"confidence"`
	ConfidenceScore int               `json:"confidenceScore"`
	PublishedAt     time.Time         `json:"publishedAt"`
}

type Output struct {
	DocumentID      string `json:"analysisDocumentId"`
	Index           string `json:"analysisIndex"`
	DocumentVersion int64  `json:"analysisDocumentVersion"`
	MessageID       string `json:"notificationMessageId,omitempty"`
	Notified        bool   `json:"notified"`
}
