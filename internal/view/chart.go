package view

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/sales-dashboard/web/internal/analytics"
)

const (
	chartWidth   = 560.0
	chartHeight  = 200.0
	chartPadding = 28.0
)

type ChartKind string

const (
	ChartLine ChartKind = "line"
	ChartBar  ChartKind = "bar"
)

type LineSeries struct {
	Name   string
	Class  string
	Points string
}

type Bar struct {
	Label  string
	Value  string
	Class  string
	X      float64
	Y      float64
	Width  float64
	Height float64
}

type AxisLabel struct {
	Text string
	X    float64
	Y    float64
}

// Chart is one SVG panel. Placeholder means the panel is waiting on a fetch;
// Empty means the fetch settled without data for it.
type Chart struct {
	ID          string
	Title       string
	Kind        ChartKind
	Placeholder bool
	Empty       bool
	Width       float64
	Height      float64
	Lines       []LineSeries
	Bars        []Bar
	Labels      []AxisLabel
	YMax        string
	YMin        string
}

func newChart(id, title string, kind ChartKind) Chart {
	return Chart{ID: id, Title: title, Kind: kind, Width: chartWidth, Height: chartHeight}
}

// SentimentTrendChart plots the daily average on a fixed [-1, 1] axis.
func SentimentTrendChart(points []analytics.TrendPoint) Chart {
	c := newChart("sentiment-trend", "Sentiment trend", ChartLine)
	if len(points) == 0 {
		c.Empty = true
		return c
	}

	values := make([]float64, len(points))
	dates := make([]string, len(points))
	for i, p := range points {
		values[i] = p.AverageSentiment
		dates[i] = p.Date
	}

	c.Lines = []LineSeries{{Name: "Average sentiment", Class: "series-sentiment", Points: polyline(values, -1, 1)}}
	c.Labels = dateLabels(dates)
	c.YMin, c.YMax = "-1.00", "1.00"
	return c
}

// SentimentDistributionChart draws positive, neutral and negative first, then
// any other category alphabetically.
func SentimentDistributionChart(dist map[string]int) Chart {
	c := newChart("sentiment-distribution", "Sentiment distribution", ChartBar)
	if len(dist) == 0 {
		c.Empty = true
		return c
	}

	keys := orderedCategories(dist)
	values := make([]float64, len(keys))
	labels := make([]string, len(keys))
	classes := make([]string, len(keys))
	for i, k := range keys {
		values[i] = float64(dist[k])
		labels[i] = k
		classes[i] = "bar-" + k
	}

	c.Bars = bars(values, labels, classes, func(v float64) string { return strconv.Itoa(int(v)) })
	c.YMin, c.YMax = "0", strconv.Itoa(int(maxOf(values)))
	return c
}

func CommentVolumeChart(points []analytics.VolumePoint) Chart {
	c := newChart("comment-volume", "Comment volume", ChartBar)
	if len(points) == 0 {
		c.Empty = true
		return c
	}

	values := make([]float64, len(points))
	dates := make([]string, len(points))
	classes := make([]string, len(points))
	for i, p := range points {
		values[i] = float64(p.TotalPosts)
		dates[i] = p.Date
		classes[i] = "bar-volume"
	}

	c.Bars = bars(values, dates, classes, func(v float64) string { return strconv.Itoa(int(v)) })
	c.Labels = dateLabels(dates)
	c.YMin, c.YMax = "0", strconv.Itoa(int(maxOf(values)))
	return c
}

// SalesChart overlays actual and predicted revenue on a shared axis.
func SalesChart(points []analytics.SalesPoint) Chart {
	c := newChart("sales-series", "Actual vs predicted revenue", ChartLine)
	if len(points) == 0 {
		c.Empty = true
		return c
	}

	actual := make([]float64, len(points))
	predicted := make([]float64, len(points))
	dates := make([]string, len(points))
	for i, p := range points {
		actual[i] = p.ActualRevenue
		predicted[i] = p.PredictedRevenue
		dates[i] = p.Date
	}

	lo := math.Min(minOf(actual), minOf(predicted))
	hi := math.Max(maxOf(actual), maxOf(predicted))
	c.Lines = []LineSeries{
		{Name: "Actual revenue", Class: "series-actual", Points: polyline(actual, lo, hi)},
		{Name: "Predicted revenue", Class: "series-predicted", Points: polyline(predicted, lo, hi)},
	}
	c.Labels = dateLabels(dates)
	c.YMin, c.YMax = FormatRevenue(lo), FormatRevenue(hi)
	return c
}

func orderedCategories(dist map[string]int) []string {
	rank := map[string]int{"positive": 0, "neutral": 1, "negative": 2}
	keys := make([]string, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iKnown := rank[keys[i]]
		rj, jKnown := rank[keys[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

func polyline(values []float64, lo, hi float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatCoord(xAt(i, len(values))) + "," + formatCoord(yAt(v, lo, hi))
	}
	return strings.Join(parts, " ")
}

func bars(values []float64, labels, classes []string, format func(float64) string) []Bar {
	plotWidth := chartWidth - 2*chartPadding
	slot := plotWidth / float64(len(values))
	width := slot * 0.7
	hi := maxOf(values)

	out := make([]Bar, len(values))
	for i, v := range values {
		y := chartHeight - chartPadding
		if hi > 0 {
			y = yAt(v, 0, hi)
		}
		out[i] = Bar{
			Label:  labels[i],
			Value:  format(v),
			Class:  classes[i],
			X:      round2(chartPadding + float64(i)*slot + (slot-width)/2),
			Y:      round2(y),
			Width:  round2(width),
			Height: round2(chartHeight - chartPadding - y),
		}
	}
	return out
}

// dateLabels keeps the first, middle and last date so long series stay legible.
func dateLabels(dates []string) []AxisLabel {
	idx := []int{0}
	if len(dates) > 2 {
		idx = append(idx, len(dates)/2)
	}
	if len(dates) > 1 {
		idx = append(idx, len(dates)-1)
	}

	labels := make([]AxisLabel, 0, len(idx))
	for _, i := range idx {
		labels = append(labels, AxisLabel{
			Text: dates[i],
			X:    round2(xAt(i, len(dates))),
			Y:    chartHeight - 8,
		})
	}
	return labels
}

func xAt(i, n int) float64 {
	plotWidth := chartWidth - 2*chartPadding
	if n <= 1 {
		return chartPadding + plotWidth/2
	}
	return chartPadding + plotWidth*float64(i)/float64(n-1)
}

func yAt(v, lo, hi float64) float64 {
	plotHeight := chartHeight - 2*chartPadding
	if hi <= lo {
		return chartPadding + plotHeight/2
	}
	ratio := (v - lo) / (hi - lo)
	ratio = math.Max(0, math.Min(1, ratio))
	return chartHeight - chartPadding - ratio*plotHeight
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		m = math.Min(m, v)
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		m = math.Max(m, v)
	}
	return m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(round2(v), 'f', -1, 64)
}
