package view

import (
	"fmt"
	"strings"
)

// ChatContext summarizes what the dashboard currently shows, for the chat
// provider's system prompt. It is empty until a snapshot has loaded.
func ChatContext(state DashboardState) string {
	snap := state.Snapshot
	if snap == nil {
		return ""
	}

	var b strings.Builder
	sel := state.Selection
	fmt.Fprintf(&b, "Product: %s (%s) on %s\n", sel.ProductName, sel.BrandName, sel.Platform)

	k := snap.KPIs
	fmt.Fprintf(&b, "Average sentiment: %s\n", FormatSentiment(k.AverageSentiment))
	fmt.Fprintf(&b, "Negative comments: %s\n", FormatPercent(k.NegativePercentage))
	fmt.Fprintf(&b, "Predicted sales drop: %s\n", FormatPercent(k.PredictedSalesDrop))
	fmt.Fprintf(&b, "Risk level: %s\n", k.RiskLevel)

	if len(snap.SentimentTrend) > 0 {
		first, last := snap.SentimentTrend[0], snap.SentimentTrend[len(snap.SentimentTrend)-1]
		fmt.Fprintf(&b, "Sentiment trend: %s on %s to %s on %s\n",
			FormatSentiment(first.AverageSentiment), first.Date,
			FormatSentiment(last.AverageSentiment), last.Date)
	}
	for _, insight := range snap.AIInsights {
		fmt.Fprintf(&b, "Insight: %s\n", insight)
	}
	for _, alert := range snap.Alerts {
		fmt.Fprintf(&b, "Alert: %s\n", alert)
	}

	return strings.TrimRight(b.String(), "\n")
}
