package view

import (
	"fmt"
	"strings"

	"github.com/sales-dashboard/web/internal/analytics"
)

type Banner struct {
	Tone    Tone
	Message string
}

// Card is a KPI tile. Placeholder cards carry Value "Loading..." or "No data".
type Card struct {
	ID          string
	Title       string
	Value       string
	Tone        Tone
	Placeholder bool
}

type ResultRow struct {
	Label string
	Value string
	Tone  Tone
}

type ResultCard struct {
	Title string
	Rows  []ResultRow
	Note  string
}

// FormValues is the raw, string-typed form as posted and re-displayed.
type FormValues struct {
	ProductName string `form:"product_name" json:"product_name"`
	BrandName   string `form:"brand_name" json:"brand_name"`
	Platform    string `form:"platform" json:"platform"`
	StartDate   string `form:"start_date" json:"start_date"`
	EndDate     string `form:"end_date" json:"end_date"`
}

func (f AnalyzeForm) Values() FormValues {
	return FormValues{
		ProductName: f.ProductName,
		BrandName:   f.BrandName,
		Platform:    f.Platform,
		StartDate:   f.StartDate.String(),
		EndDate:     f.EndDate.String(),
	}
}

// Form parses the posted values. The platform is fixed, so a blank one is
// filled in rather than rejected.
func (fv FormValues) Form() (AnalyzeForm, error) {
	platform := strings.TrimSpace(fv.Platform)
	if platform == "" {
		platform = analytics.PlatformYouTube
	}

	start, err := analytics.ParseDate(fv.StartDate)
	if err != nil {
		return AnalyzeForm{}, fmt.Errorf("%w: start date must be YYYY-MM-DD", ErrInvalidForm)
	}
	end, err := analytics.ParseDate(fv.EndDate)
	if err != nil {
		return AnalyzeForm{}, fmt.Errorf("%w: end date must be YYYY-MM-DD", ErrInvalidForm)
	}

	form := AnalyzeForm{
		ProductName: strings.TrimSpace(fv.ProductName),
		BrandName:   strings.TrimSpace(fv.BrandName),
		Platform:    platform,
		StartDate:   start,
		EndDate:     end,
	}
	return form, form.Validate()
}

type AnalyzePage struct {
	Form        FormValues
	FormError   string
	Loading     bool
	Error       *Banner
	Sentiment   *ResultCard
	Prediction  *ResultCard
	Ready       bool
	PollSeconds int
}

// BuildAnalyzePage renders state as is. When the last post failed validation,
// the caller passes the posted values and the validation message instead.
func BuildAnalyzePage(state AnalyzeState, posted *FormValues, formError string, pollSeconds int) AnalyzePage {
	page := AnalyzePage{
		Form:        state.Form.Values(),
		FormError:   formError,
		Loading:     state.Loading,
		Ready:       state.Ready,
		PollSeconds: pollSeconds,
	}
	if posted != nil {
		page.Form = *posted
	}
	if state.Error != "" {
		page.Error = &Banner{Tone: ToneError, Message: state.Error}
	}

	if s := state.Sentiment; s != nil {
		page.Sentiment = &ResultCard{
			Title: "Sentiment",
			Rows: []ResultRow{
				{Label: "Average sentiment", Value: FormatScore(s.AverageSentiment)},
				{Label: "Total posts", Value: FormatPosts(s.TotalPosts)},
				{Label: "Negative comments", Value: FormatPercent(s.NegativePercentage)},
			},
		}
	}

	if p := state.Prediction; p != nil {
		page.Prediction = &ResultCard{
			Title: "Sales-loss prediction",
			Rows: []ResultRow{
				{Label: "Predicted drop", Value: FormatDrop(p.PredictedDropPercentage)},
				{Label: "Loss probability", Value: FormatProbability(p.LossProbability)},
				{Label: "Risk level", Value: string(p.RiskLevel), Tone: RiskTone(p.RiskLevel)},
			},
			Note: p.Explanation,
		}
	}

	return page
}

type FilterOption struct {
	Value    string
	Label    string
	Selected bool
}

type CommentRow struct {
	Content  string
	PostedAt string
	Label    string
	Score    string
	Tone     Tone
}

type CommentsPanel struct {
	Filters []FilterOption
	Loading bool
	Loaded  bool
	Error   *Banner
	Rows    []CommentRow
}

type DashboardPage struct {
	Selection           analytics.Selection
	Loading             bool
	Error               *Banner
	KPIs                []Card
	Charts              []Chart
	Insights            []string
	InsightsPlaceholder bool
	Alerts              []Banner
	FetchedAt           string
	FromCache           bool
	Comments            CommentsPanel
	PollSeconds         int
}

func BuildDashboardPage(state DashboardState, pollSeconds int) DashboardPage {
	snap := state.Snapshot
	page := DashboardPage{
		Selection:   state.Selection,
		Loading:     state.Loading,
		FromCache:   state.FromCache,
		PollSeconds: pollSeconds,
		Comments:    buildCommentsPanel(state.Comments),
	}
	if !state.FetchedAt.IsZero() {
		page.FetchedAt = state.FetchedAt.Format("2006-01-02 15:04:05")
	}
	if state.Error != "" {
		page.Error = &Banner{Tone: ToneError, Message: state.Error}
	}

	page.KPIs = kpiCards(state.Loading, snap)
	page.Charts = charts(state.Loading, snap)

	page.InsightsPlaceholder = state.Loading || snap == nil
	if !page.InsightsPlaceholder {
		page.Insights = snap.AIInsights
	}

	if snap != nil {
		for _, alert := range snap.Alerts {
			page.Alerts = append(page.Alerts, Banner{Tone: ToneWarn, Message: alert})
		}
	}

	return page
}

func kpiCards(loading bool, snap *analytics.DashboardSnapshot) []Card {
	cards := []Card{
		{ID: "kpi-sentiment", Title: "Average sentiment"},
		{ID: "kpi-negative", Title: "Negative comments"},
		{ID: "kpi-drop", Title: "Predicted sales drop"},
		{ID: "kpi-risk", Title: "Risk level"},
	}

	if loading || snap == nil {
		value := "No data"
		if loading {
			value = "Loading..."
		}
		for i := range cards {
			cards[i].Placeholder = true
			cards[i].Value = value
		}
		return cards
	}

	k := snap.KPIs
	riskTone := RiskTone(k.RiskLevel)

	cards[0].Value, cards[0].Tone = FormatSentiment(k.AverageSentiment), riskTone
	cards[1].Value, cards[1].Tone = FormatPercent(k.NegativePercentage), NegativeTone(k.NegativePercentage)
	cards[2].Value, cards[2].Tone = FormatPercent(k.PredictedSalesDrop), riskTone
	cards[3].Value, cards[3].Tone = string(k.RiskLevel), riskTone
	return cards
}

func charts(loading bool, snap *analytics.DashboardSnapshot) []Chart {
	if loading || snap == nil {
		out := []Chart{
			newChart("sentiment-trend", "Sentiment trend", ChartLine),
			newChart("sentiment-distribution", "Sentiment distribution", ChartBar),
			newChart("comment-volume", "Comment volume", ChartBar),
			newChart("sales-series", "Actual vs predicted revenue", ChartLine),
		}
		for i := range out {
			out[i].Placeholder = loading
			out[i].Empty = !loading
		}
		return out
	}

	return []Chart{
		SentimentTrendChart(snap.SentimentTrend),
		SentimentDistributionChart(snap.SentimentDistribution),
		CommentVolumeChart(snap.CommentVolume),
		SalesChart(snap.SalesSeries),
	}
}

func buildCommentsPanel(state CommentsState) CommentsPanel {
	panel := CommentsPanel{
		Loading: state.Loading,
		Loaded:  state.Loaded,
	}

	options := []struct{ value, label string }{
		{analytics.FilterAll, "All"},
		{analytics.FilterPositive, "Positive"},
		{analytics.FilterNeutral, "Neutral"},
		{analytics.FilterNegative, "Negative"},
	}
	for _, o := range options {
		panel.Filters = append(panel.Filters, FilterOption{Value: o.value, Label: o.label, Selected: o.value == state.Filter})
	}

	if state.Error != "" {
		panel.Error = &Banner{Tone: ToneError, Message: state.Error}
	}
	if state.Loading {
		return panel
	}

	for _, c := range state.Items {
		row := CommentRow{
			Content:  PlainText(c.Content),
			PostedAt: c.PostedAt,
			Label:    c.SentimentLabel,
			Tone:     labelTone(c.SentimentLabel),
		}
		if c.SentimentScore != nil {
			row.Score = FormatSentiment(*c.SentimentScore)
		}
		panel.Rows = append(panel.Rows, row)
	}
	return panel
}

func labelTone(label string) Tone {
	switch label {
	case analytics.FilterPositive:
		return ToneGood
	case analytics.FilterNegative:
		return ToneBad
	default:
		return ToneWarn
	}
}
