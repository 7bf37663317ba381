package analytics

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// PlatformYouTube is the only platform the backend ingests comments from.
const PlatformYouTube = "youtube"

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Date is a calendar day encoded as YYYY-MM-DD on the wire.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Selection identifies the product series a dashboard or comments query reads.
type Selection struct {
	ProductName string `json:"product_name"`
	BrandName   string `json:"brand_name"`
	Platform    string `json:"platform"`
}

type AnalysisRequest struct {
	ProductName string `json:"product_name"`
	BrandName   string `json:"brand_name"`
	Platform    string `json:"platform"`
	StartDate   Date   `json:"start_date"`
	EndDate     Date   `json:"end_date"`
}

func (r AnalysisRequest) Selection() Selection {
	return Selection{ProductName: r.ProductName, BrandName: r.BrandName, Platform: r.Platform}
}

type SentimentResult struct {
	AverageSentiment   float64 `json:"average_sentiment"`
	TotalPosts         int     `json:"total_posts"`
	NegativePercentage float64 `json:"negative_percentage"`

	ProductName string `json:"product_name,omitempty"`
	Platform    string `json:"platform,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
}

type PredictionResult struct {
	PredictedDropPercentage float64   `json:"predicted_drop_percentage"`
	LossProbability         float64   `json:"loss_probability"`
	RiskLevel               RiskLevel `json:"risk_level"`
	Explanation             string    `json:"explanation"`

	ProductName string   `json:"product_name,omitempty"`
	BrandName   string   `json:"brand_name,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

type KPIs struct {
	AverageSentiment   float64   `json:"average_sentiment"`
	NegativePercentage float64   `json:"negative_percentage"`
	PredictedSalesDrop float64   `json:"predicted_sales_drop"`
	RiskLevel          RiskLevel `json:"risk_level"`
}

type TrendPoint struct {
	Date             string  `json:"date"`
	AverageSentiment float64 `json:"average_sentiment"`
	TotalPosts       int     `json:"total_posts,omitempty"`
}

type VolumePoint struct {
	Date       string `json:"date"`
	TotalPosts int    `json:"total_posts"`
}

type SalesPoint struct {
	Date             string  `json:"date"`
	ActualRevenue    float64 `json:"actual_revenue"`
	PredictedRevenue float64 `json:"predicted_revenue"`
}

// DashboardSnapshot is one complete /get-dashboard-data response.
type DashboardSnapshot struct {
	KPIs                  KPIs           `json:"kpis"`
	SentimentTrend        []TrendPoint   `json:"sentiment_trend"`
	SentimentDistribution map[string]int `json:"sentiment_distribution"`
	CommentVolume         []VolumePoint  `json:"comment_volume"`
	SalesSeries           []SalesPoint   `json:"sales_series"`
	AIInsights            []string       `json:"ai_insights"`
	Alerts                []string       `json:"alerts"`
}

// Comment is one stored social post as listed by /comments.
type Comment struct {
	ID             int      `json:"id"`
	Content        string   `json:"content"`
	PostedAt       string   `json:"posted_at,omitempty"`
	SentimentLabel string   `json:"sentiment_label,omitempty"`
	SentimentScore *float64 `json:"sentiment_score,omitempty"`
}

// Comment filters accepted by /comments; an empty filter lists every post.
const (
	FilterAll      = ""
	FilterPositive = "positive"
	FilterNeutral  = "neutral"
	FilterNegative = "negative"
)

func ValidCommentFilter(f string) bool {
	switch f {
	case FilterAll, FilterPositive, FilterNeutral, FilterNegative:
		return true
	}
	return false
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}
