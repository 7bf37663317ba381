package render

import (
	"bytes"
	"io/fs"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sales-dashboard/web/internal/analytics"
	"github.com/sales-dashboard/web/internal/storage/models"
	"github.com/sales-dashboard/web/internal/view"
)

func fixedDay() time.Time { return time.Date(2024, 5, 8, 9, 0, 0, 0, time.UTC) }

func snapshot(risk analytics.RiskLevel, negative float64, alerts ...string) *analytics.DashboardSnapshot {
	return &analytics.DashboardSnapshot{
		KPIs:                  analytics.KPIs{AverageSentiment: -0.21, NegativePercentage: negative, PredictedSalesDrop: 7.5, RiskLevel: risk},
		SentimentTrend:        []analytics.TrendPoint{{Date: "2024-05-01", AverageSentiment: 0.2}, {Date: "2024-05-02", AverageSentiment: -0.4}},
		SentimentDistribution: map[string]int{"positive": 2, "neutral": 1, "negative": 6},
		CommentVolume:         []analytics.VolumePoint{{Date: "2024-05-01", TotalPosts: 3}, {Date: "2024-05-02", TotalPosts: 6}},
		SalesSeries:           []analytics.SalesPoint{{Date: "2024-05-01", ActualRevenue: 10000, PredictedRevenue: 9800}},
		AIInsights:            []string{"Negative comments spiked on May 2."},
		Alerts:                alerts,
	}
}

func renderDashboard(t *testing.T, state view.DashboardState, chat ChatPanel) *goquery.Document {
	t.Helper()
	r, err := New()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Dashboard(&buf, view.BuildDashboardPage(state, 2), chat))

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return doc
}

func TestDashboardRendersAlertsInOrder(t *testing.T) {
	doc := renderDashboard(t, view.DashboardState{Snapshot: snapshot(analytics.RiskHigh, 40, "Sentiment fell sharply", "Sales risk is high")}, ChatPanel{})

	banners := doc.Find("#banners .banner")
	require.Equal(t, 2, banners.Length())
	assert.Equal(t, "Sentiment fell sharply", banners.Eq(0).Text())
	assert.Equal(t, "Sales risk is high", banners.Eq(1).Text())
	banners.Each(func(_ int, s *goquery.Selection) {
		tone, _ := s.Attr("data-tone")
		assert.Equal(t, "warn", tone)
	})
}

func TestDashboardWithoutAlertsHasNoBanners(t *testing.T) {
	doc := renderDashboard(t, view.DashboardState{Snapshot: snapshot(analytics.RiskLow, 10)}, ChatPanel{})
	assert.Equal(t, 0, doc.Find("#banners .banner").Length())
	assert.Equal(t, 0, doc.Find(`meta[http-equiv="refresh"]`).Length())
}

func TestDashboardKPITones(t *testing.T) {
	doc := renderDashboard(t, view.DashboardState{Snapshot: snapshot(analytics.RiskHigh, 36)}, ChatPanel{})

	tone := func(id string) string {
		v, _ := doc.Find("#" + id).Attr("data-tone")
		return v
	}
	assert.Equal(t, "bad", tone("kpi-sentiment"))
	assert.Equal(t, "bad", tone("kpi-negative"))
	assert.Equal(t, "bad", tone("kpi-drop"))
	assert.Equal(t, "bad", tone("kpi-risk"))
	assert.Equal(t, "-0.21", doc.Find("#kpi-sentiment .value").Text())
	assert.Equal(t, "36.0%", doc.Find("#kpi-negative .value").Text())
	assert.Equal(t, "High", doc.Find("#kpi-risk .value").Text())
}

func TestDashboardErrorKeepsPreviousData(t *testing.T) {
	state := view.DashboardState{
		Snapshot: snapshot(analytics.RiskMedium, 20, "still here"),
		Error:    "Request failed with status code 503",
	}
	doc := renderDashboard(t, state, ChatPanel{})

	banners := doc.Find("#banners .banner")
	require.Equal(t, 2, banners.Length())
	tone, _ := banners.First().Attr("data-tone")
	assert.Equal(t, "error", tone)
	assert.Equal(t, "Request failed with status code 503", banners.First().Text())
	assert.Equal(t, "Medium", doc.Find("#kpi-risk .value").Text())
	assert.Equal(t, 1, doc.Find("#sentiment-trend polyline").Length())
	assert.Equal(t, 3, doc.Find("#sentiment-distribution rect").Length())
}

func TestDashboardLoadingShowsPlaceholdersAndPolls(t *testing.T) {
	doc := renderDashboard(t, view.DashboardState{Loading: true, Snapshot: snapshot(analytics.RiskHigh, 50, "hidden")}, ChatPanel{})

	assert.Equal(t, 4, doc.Find(".kpi.placeholder").Length())
	assert.Equal(t, 4, doc.Find(".chart .placeholder").Length())
	assert.Equal(t, 0, doc.Find("svg").Length())
	assert.Equal(t, "Loading...", doc.Find("#insights .placeholder").Text())

	refresh, ok := doc.Find(`meta[http-equiv="refresh"]`).Attr("content")
	require.True(t, ok)
	assert.Equal(t, "2", refresh)

	_, disabled := doc.Find("#refresh").Attr("disabled")
	assert.True(t, disabled)
}

func TestDashboardEscapesBackendText(t *testing.T) {
	doc := renderDashboard(t, view.DashboardState{Snapshot: snapshot(analytics.RiskLow, 0, "<script>alert(1)</script>")}, ChatPanel{})
	assert.Equal(t, 0, doc.Find("#banners script").Length())
	assert.Equal(t, "<script>alert(1)</script>", doc.Find("#banners .banner").Text())
}

func TestDashboardChatPanel(t *testing.T) {
	chat := ChatPanel{
		Provider:  "backend",
		MaxLength: 2000,
		Messages: []models.ChatMessage{
			{Role: models.ChatRoleUser, Content: "why?"},
			{Role: models.ChatRoleAssistant, Content: "Because."},
		},
		Error: "Request failed: chat is temporarily unavailable",
	}
	doc := renderDashboard(t, view.DashboardState{}, chat)

	msgs := doc.Find("#chat-messages .message")
	require.Equal(t, 2, msgs.Length())
	role, _ := msgs.Eq(1).Attr("data-role")
	assert.Equal(t, "assistant", role)
	assert.Contains(t, doc.Find("#chat .banner").Text(), "temporarily unavailable")
}

func TestDashboardComments(t *testing.T) {
	score := 0.8
	state := view.DashboardState{
		Comments: view.CommentsState{
			Filter: analytics.FilterPositive,
			Loaded: true,
			Items:  []analytics.Comment{{ID: 1, Content: "love the camera", PostedAt: "2024-05-02", SentimentLabel: "positive", SentimentScore: &score}},
		},
	}
	doc := renderDashboard(t, state, ChatPanel{})

	assert.Equal(t, "Positive", doc.Find("#comments .filters a.selected").Text())
	row := doc.Find("#comments .comment")
	require.Equal(t, 1, row.Length())
	tone, _ := row.Attr("data-tone")
	assert.Equal(t, "good", tone)
	assert.Contains(t, row.Find(".meta").Text(), "(0.80)")
}

func TestAnalyzePage(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	state := view.AnalyzeState{
		Form:       view.DefaultForm("iPhone 15", "Apple", fixedDay()),
		Sentiment:  &analytics.SentimentResult{AverageSentiment: 0.42, TotalPosts: 120, NegativePercentage: 18.5},
		Prediction: &analytics.PredictionResult{PredictedDropPercentage: 12.345, LossProbability: 0.5, RiskLevel: analytics.RiskHigh, Explanation: "Sentiment is falling."},
		Ready:      true,
	}

	var buf bytes.Buffer
	require.NoError(t, r.Analyze(&buf, view.BuildAnalyzePage(state, nil, "", 2)))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)

	values := doc.Find(".result dd").Map(func(_ int, s *goquery.Selection) string { return s.Text() })
	assert.Equal(t, []string{"0.42 score", "120 posts", "18.5%", "12.3% projected drop", "50.0%", "High"}, values)

	risk, _ := doc.Find(".result .row[data-tone]").Attr("data-tone")
	assert.Equal(t, "bad", risk)

	start, _ := doc.Find(`input[name="start_date"]`).Attr("value")
	assert.Equal(t, "2024-05-01", start)
	assert.Equal(t, 0, doc.Find(".banner").Length())
}

func TestAnalyzeLoadingAndError(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	var buf bytes.Buffer
	state := view.AnalyzeState{Form: view.DefaultForm("p", "b", fixedDay()), Loading: true}
	require.NoError(t, r.Analyze(&buf, view.BuildAnalyzePage(state, nil, "", 3)))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)

	assert.Equal(t, "Analyzing...", doc.Find("#analyze-form button").Text())
	refresh, _ := doc.Find(`meta[http-equiv="refresh"]`).Attr("content")
	assert.Equal(t, "3", refresh)

	buf.Reset()
	state = view.AnalyzeState{Form: view.DefaultForm("p", "b", fixedDay()), Error: "Request failed: analytics service unavailable"}
	require.NoError(t, r.Analyze(&buf, view.BuildAnalyzePage(state, nil, "", 3)))
	doc, err = goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)

	banner := doc.Find("#banners .banner")
	require.Equal(t, 1, banner.Length())
	tone, _ := banner.Attr("data-tone")
	assert.Equal(t, "error", tone)
	assert.Equal(t, 0, doc.Find(`meta[http-equiv="refresh"]`).Length())
}

func TestStaticAssets(t *testing.T) {
	for _, name := range []string{"app.css", "chat.js"} {
		_, err := fs.Stat(Static(), name)
		assert.NoError(t, err, name)
	}
}
