package models

import "time"

// AnalysisRun is one settled Analyze submission.
type AnalysisRun struct {
	ID                 string    `json:"id"`
	SessionID          string    `json:"-"`
	ProductName        string    `json:"product_name"`
	BrandName          string    `json:"brand_name"`
	Platform           string    `json:"platform"`
	StartDate          string    `json:"start_date"`
	EndDate            string    `json:"end_date"`
	Status             string    `json:"status"`
	ErrorMessage       string    `json:"error_message,omitempty"`
	AverageSentiment   *float64  `json:"average_sentiment,omitempty"`
	TotalPosts         *int      `json:"total_posts,omitempty"`
	NegativePercentage *float64  `json:"negative_percentage,omitempty"`
	PredictedDrop      *float64  `json:"predicted_drop_percentage,omitempty"`
	LossProbability    *float64  `json:"loss_probability,omitempty"`
	RiskLevel          string    `json:"risk_level,omitempty"`
	Explanation        string    `json:"explanation,omitempty"`
	LatencyMS          int       `json:"latency_ms"`
	CreatedAt          time.Time `json:"created_at"`
}

const (
	RunStatusSuccess         = "success"
	RunStatusSentimentFailed = "sentiment_failed"
	RunStatusPredictFailed   = "prediction_failed"
)

type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"-"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Provider  string    `json:"provider,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)
