package analytics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() AnalysisRequest {
	return AnalysisRequest{
		ProductName: "iPhone 15",
		BrandName:   "Apple",
		Platform:    PlatformYouTube,
		StartDate:   NewDate(time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)),
		EndDate:     NewDate(time.Date(2024, 5, 8, 9, 0, 0, 0, time.UTC)),
	}
}

func TestAnalyzeSentimentSendsExactBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/analyze-sentiment", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{
			"product_name": "iPhone 15",
			"brand_name": "Apple",
			"platform": "youtube",
			"start_date": "2024-05-01",
			"end_date": "2024-05-08"
		}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"product_name":"iPhone 15","platform":"youtube","average_sentiment":0.42,"total_posts":120,"negative_percentage":18.5,"start_date":"2024-05-01","end_date":"2024-05-08"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, 1)
	result, err := client.AnalyzeSentiment(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, 0.42, result.AverageSentiment)
	assert.Equal(t, 120, result.TotalPosts)
	assert.Equal(t, 18.5, result.NegativePercentage)
}

func TestPredictSalesLoss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict-sales-loss", r.URL.Path)
		_, _ = w.Write([]byte(`{"predicted_drop_percentage":12.345,"loss_probability":0.5,"confidence":1.0,"risk_level":"Medium","explanation":"Detected average sentiment of 0.10."}`))
	}))
	defer srv.Close()

	result, err := NewClient(srv.URL, time.Second, 1).PredictSalesLoss(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, 12.345, result.PredictedDropPercentage)
	assert.Equal(t, 0.5, result.LossProbability)
	assert.Equal(t, RiskMedium, result.RiskLevel)
	require.NotNil(t, result.Confidence)
	assert.Equal(t, 1.0, *result.Confidence)
}

func TestGetDashboardDataQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/get-dashboard-data", r.URL.Path)
		assert.Equal(t, "iPhone 15", r.URL.Query().Get("product_name"))
		assert.Equal(t, "Apple", r.URL.Query().Get("brand_name"))
		assert.Equal(t, "youtube", r.URL.Query().Get("platform"))

		_, _ = w.Write([]byte(`{
			"kpis": {"average_sentiment": -0.2, "negative_percentage": 36, "predicted_sales_drop": 4.2, "risk_level": "High"},
			"sentiment_trend": [{"date": "2024-05-01", "average_sentiment": 0.1, "total_posts": 3}],
			"sentiment_distribution": {"positive": 3, "neutral": 1, "negative": 5},
			"comment_volume": [{"date": "2024-05-01", "average_sentiment": 0.1, "total_posts": 3}],
			"sales_series": [{"date": "2024-05-01", "actual_revenue": 10000, "predicted_revenue": 9800.5}],
			"ai_insights": ["Average sentiment over the last 30 days is -0.20."],
			"alerts": ["High risk of upcoming sales loss."]
		}`))
	}))
	defer srv.Close()

	sel := Selection{ProductName: "iPhone 15", BrandName: "Apple", Platform: PlatformYouTube}
	snap, err := NewClient(srv.URL+"/", time.Second, 1).GetDashboardData(context.Background(), sel)
	require.NoError(t, err)

	assert.Equal(t, RiskHigh, snap.KPIs.RiskLevel)
	assert.Equal(t, 36.0, snap.KPIs.NegativePercentage)
	assert.Equal(t, 5, snap.SentimentDistribution["negative"])
	assert.Equal(t, 3, snap.CommentVolume[0].TotalPosts)
	assert.Equal(t, 9800.5, snap.SalesSeries[0].PredictedRevenue)
	assert.Equal(t, []string{"High risk of upcoming sales loss."}, snap.Alerts)
}

func TestGetCommentsFilter(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["sentiment_filter"]
		if present {
			seen = append(seen, r.URL.Query().Get("sentiment_filter"))
		} else {
			seen = append(seen, "<none>")
		}
		_, _ = w.Write([]byte(`[{"id": 7, "content": "battery is terrible", "posted_at": "2024-05-02", "sentiment_label": "negative", "sentiment_score": -0.7}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, 1)
	sel := Selection{ProductName: "p", BrandName: "b", Platform: PlatformYouTube}

	comments, err := client.GetComments(context.Background(), sel, FilterNegative)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "battery is terrible", comments[0].Content)

	_, err = client.GetComments(context.Background(), sel, FilterAll)
	require.NoError(t, err)

	assert.Equal(t, []string{"negative", "<none>"}, seen)
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, _ = w.Write([]byte(`{"reply":"echo: ` + req.Message + `"}`))
	}))
	defer srv.Close()

	reply, err := NewClient(srv.URL, time.Second, 1).Chat(context.Background(), "why is risk high?")
	require.NoError(t, err)
	assert.Equal(t, "echo: why is risk high?", reply)
}

func TestErrorsAreNormalized(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
		is      error
	}{
		{
			name: "fastapi string detail",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"detail":"Product not found"}`))
			},
			want: "Request failed: Product not found",
		},
		{
			name: "fastapi validation detail",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(`{"detail":[{"loc":["body","start_date"],"msg":"invalid date format","type":"value_error"}]}`))
			},
			want: "Request failed: start_date: invalid date format",
		},
		{
			name: "bare status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			want: "Request failed with status code 502",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>oops</html>`))
			},
			want: "Request failed: unexpected response from analytics service",
			is:   ErrDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second, 1).AnalyzeSentiment(context.Background(), testRequest())
			require.Error(t, err)
			assert.Equal(t, tt.want, ErrorMessage(err))
			if tt.is != nil {
				assert.True(t, errors.Is(err, tt.is))
			}
		})
	}
}

func TestNetworkErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second, 1).AnalyzeSentiment(context.Background(), testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "Request failed: analytics service unavailable", ErrorMessage(err))
}

func TestDefaultClientDoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, 1).PredictSalesLoss(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetryBudgetSkipsClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		switch {
		case r.URL.Path == "/predict-sales-loss":
			w.WriteHeader(http.StatusBadRequest)
		case n == 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte(`{"average_sentiment":0.1,"total_posts":1,"negative_percentage":0}`))
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, 3)

	_, err := client.AnalyzeSentiment(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	_, err = client.PredictSalesLoss(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestErrorMessageNil(t *testing.T) {
	assert.Empty(t, ErrorMessage(nil))
}

func TestDateJSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-02-29"`), &d))
	assert.Equal(t, "2024-02-29", d.String())
	assert.Error(t, json.Unmarshal([]byte(`"29/02/2024"`), &d))
}
