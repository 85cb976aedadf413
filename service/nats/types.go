package nats

import (
	"time"

	"github.com/SolyforTrenchers/SolyforTrenchers/service/db"
)

// AlertEvent represents a high-risk alert published to NATS.
// This is published to the subject "alerts.{mint}" in JetStream.
type AlertEvent struct {
	// Token identifiers
	Mint   string `json:"mint"`
	Symbol string `json:"symbol,omitempty"`

	// Assessment outcome
	Score            float64  `json:"score"`
	RiskLevel        string   `json:"risk_level"`
	Suspicious       bool     `json:"is_suspicious"`
	DetectedPatterns []string `json:"detected_patterns"`
	Confidence       float64  `json:"confidence"`

	// Human-readable summary
	Message    string `json:"message"`
	Commentary string `json:"commentary,omitempty"`

	// Metadata
	AssessedAt  time.Time `json:"assessed_at"`
	PublishedAt time.Time `json:"published_at"`
}

// FromAssessment converts a stored assessment to an AlertEvent for publishing.
func FromAssessment(a *db.Assessment, symbol, message string) *AlertEvent {
	event := &AlertEvent{
		Mint:             a.Mint,
		Symbol:           symbol,
		Score:            a.Score,
		RiskLevel:        a.RiskLevel,
		Suspicious:       a.Suspicious,
		DetectedPatterns: a.Patterns,
		Confidence:       a.Confidence,
		Message:          message,
		AssessedAt:       a.CreatedAt,
		PublishedAt:      time.Now().UTC(),
	}
	if a.Commentary != nil {
		event.Commentary = *a.Commentary
	}
	if event.DetectedPatterns == nil {
		event.DetectedPatterns = []string{}
	}
	return event
}
