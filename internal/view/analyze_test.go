package view

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sales-dashboard/web/internal/analytics"
	"github.com/sales-dashboard/web/internal/storage/models"
)

var fixedNow = time.Date(2024, 5, 8, 14, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fakeAnalysisAPI struct {
	mu         sync.Mutex
	calls      []string
	requests   []analytics.AnalysisRequest
	sentiment  *analytics.SentimentResult
	prediction *analytics.PredictionResult
	sentErr    error
	predErr    error

	// gate, when set, blocks AnalyzeSentiment until closed.
	gate chan struct{}
}

func (f *fakeAnalysisAPI) AnalyzeSentiment(ctx context.Context, req analytics.AnalysisRequest) (*analytics.SentimentResult, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "sentiment")
	f.requests = append(f.requests, req)
	return f.sentiment, f.sentErr
}

func (f *fakeAnalysisAPI) PredictSalesLoss(ctx context.Context, req analytics.AnalysisRequest) (*analytics.PredictionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "prediction")
	f.requests = append(f.requests, req)
	return f.prediction, f.predErr
}

func (f *fakeAnalysisAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type memoryRecorder struct {
	mu   sync.Mutex
	runs []*models.AnalysisRun
}

func (r *memoryRecorder) RecordRun(ctx context.Context, run *models.AnalysisRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func newAnalyzeView(api AnalysisAPI, rec RunRecorder) *AnalyzeView {
	return NewAnalyzeView(api, AnalyzeOptions{
		ProductName: "iPhone 15",
		BrandName:   "Apple",
		SessionID:   "session-1",
		Recorder:    rec,
		Now:         clock,
	})
}

func TestDefaultFormSpansSevenDaysEndingToday(t *testing.T) {
	form := DefaultForm("p", "b", fixedNow)

	assert.Equal(t, "2024-05-08", form.EndDate.String())
	assert.Equal(t, "2024-05-01", form.StartDate.String())
	assert.Equal(t, DefaultRangeDays*24*time.Hour, form.EndDate.Sub(form.StartDate.Time))
	assert.Equal(t, analytics.PlatformYouTube, form.Platform)

	v := newAnalyzeView(&fakeAnalysisAPI{}, nil)
	assert.Equal(t, form.Values(), v.State().Form.Values())
}

func TestSubmitSuccessStoresBothResults(t *testing.T) {
	api := &fakeAnalysisAPI{
		sentiment:  &analytics.SentimentResult{AverageSentiment: 0.42, TotalPosts: 120, NegativePercentage: 18.5},
		prediction: &analytics.PredictionResult{PredictedDropPercentage: 12.345, LossProbability: 0.5, RiskLevel: analytics.RiskMedium, Explanation: "ok"},
	}
	rec := &memoryRecorder{}
	v := newAnalyzeView(api, rec)
	form := DefaultForm("Galaxy S24", "Samsung", fixedNow)

	done, err := v.Submit(form)
	require.NoError(t, err)
	<-done

	state := v.State()
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)
	assert.True(t, state.Ready)
	assert.Equal(t, api.sentiment, state.Sentiment)
	assert.Equal(t, api.prediction, state.Prediction)
	assert.Equal(t, []string{"sentiment", "prediction"}, api.Calls())

	for _, req := range api.requests {
		assert.Equal(t, "Galaxy S24", req.ProductName)
		assert.Equal(t, "Samsung", req.BrandName)
		assert.Equal(t, "2024-05-01", req.StartDate.String())
	}

	require.Len(t, rec.runs, 1)
	assert.Equal(t, models.RunStatusSuccess, rec.runs[0].Status)
	assert.Equal(t, "session-1", rec.runs[0].SessionID)
	assert.Equal(t, "Medium", rec.runs[0].RiskLevel)
}

func TestSubmitSetsLoadingImmediately(t *testing.T) {
	api := &fakeAnalysisAPI{
		sentiment:  &analytics.SentimentResult{},
		prediction: &analytics.PredictionResult{},
		gate:       make(chan struct{}),
	}
	v := newAnalyzeView(api, nil)

	done, err := v.Submit(DefaultForm("p", "b", fixedNow))
	require.NoError(t, err)

	assert.True(t, v.State().Loading)
	close(api.gate)
	<-done
	assert.False(t, v.State().Loading)
}

func TestSentimentFailureSkipsPrediction(t *testing.T) {
	previous := &analytics.SentimentResult{AverageSentiment: 0.3, TotalPosts: 10}
	previousPrediction := &analytics.PredictionResult{RiskLevel: analytics.RiskLow}
	api := &fakeAnalysisAPI{sentiment: previous, prediction: previousPrediction}
	rec := &memoryRecorder{}
	v := newAnalyzeView(api, rec)

	done, err := v.Submit(DefaultForm("p", "b", fixedNow))
	require.NoError(t, err)
	<-done

	api.sentErr = &analytics.APIError{Endpoint: "/analyze-sentiment", StatusCode: 500}
	api.sentiment = nil
	api.prediction = &analytics.PredictionResult{RiskLevel: analytics.RiskHigh}

	done, err = v.Submit(DefaultForm("p", "b", fixedNow))
	require.NoError(t, err)
	<-done

	state := v.State()
	assert.False(t, state.Loading)
	assert.False(t, state.Ready)
	assert.Equal(t, "Request failed with status code 500", state.Error)
	assert.Same(t, previous, state.Sentiment)
	assert.Same(t, previousPrediction, state.Prediction)
	assert.Equal(t, []string{"sentiment", "prediction", "sentiment"}, api.Calls())

	require.Len(t, rec.runs, 2)
	assert.Equal(t, models.RunStatusSentimentFailed, rec.runs[1].Status)
	assert.Nil(t, rec.runs[1].AverageSentiment)
}

func TestPredictionFailureKeepsNewSentiment(t *testing.T) {
	api := &fakeAnalysisAPI{
		sentiment: &analytics.SentimentResult{AverageSentiment: -0.4},
		predErr:   analytics.ErrUnavailable,
	}
	v := newAnalyzeView(api, nil)

	done, err := v.Submit(DefaultForm("p", "b", fixedNow))
	require.NoError(t, err)
	<-done

	state := v.State()
	assert.Equal(t, -0.4, state.Sentiment.AverageSentiment)
	assert.Nil(t, state.Prediction)
	assert.False(t, state.Loading)
	assert.Equal(t, "Request failed: analytics service unavailable", state.Error)
}

func TestNewSubmitClearsError(t *testing.T) {
	api := &fakeAnalysisAPI{sentErr: errors.New("boom"), gate: make(chan struct{})}
	v := newAnalyzeView(api, nil)

	close(api.gate)
	done, _ := v.Submit(DefaultForm("p", "b", fixedNow))
	<-done
	require.NotEmpty(t, v.State().Error)

	api.gate = make(chan struct{})
	done, err := v.Submit(DefaultForm("p", "b", fixedNow))
	require.NoError(t, err)
	assert.Empty(t, v.State().Error)
	assert.True(t, v.State().Loading)
	close(api.gate)
	<-done
}

func TestSubmitRejectsInvalidForm(t *testing.T) {
	api := &fakeAnalysisAPI{}
	v := newAnalyzeView(api, nil)

	tests := []struct {
		name string
		form AnalyzeForm
		want string
	}{
		{
			name: "missing product",
			form: DefaultForm("  ", "Apple", fixedNow),
			want: "product name is required",
		},
		{
			name: "reversed dates",
			form: func() AnalyzeForm {
				f := DefaultForm("p", "b", fixedNow)
				f.StartDate, f.EndDate = f.EndDate, f.StartDate
				return f
			}(),
			want: "end date is before start date",
		},
		{
			name: "other platform",
			form: func() AnalyzeForm {
				f := DefaultForm("p", "b", fixedNow)
				f.Platform = "twitter"
				return f
			}(),
			want: "platform must be youtube",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done, err := v.Submit(tt.form)
			assert.Nil(t, done)
			require.ErrorIs(t, err, ErrInvalidForm)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.Empty(t, api.Calls())
	assert.False(t, v.State().Loading)
}

func TestFormValuesParse(t *testing.T) {
	form, err := FormValues{
		ProductName: " Pixel 8 ",
		BrandName:   "Google",
		StartDate:   "2024-04-01",
		EndDate:     "2024-04-08",
	}.Form()
	require.NoError(t, err)
	assert.Equal(t, "Pixel 8", form.ProductName)
	assert.Equal(t, analytics.PlatformYouTube, form.Platform)

	_, err = FormValues{ProductName: "p", BrandName: "b", StartDate: "04/01/2024", EndDate: "2024-04-08"}.Form()
	assert.ErrorIs(t, err, ErrInvalidForm)
}

// perProductAPI blocks each product's sentiment call on its own gate.
type perProductAPI struct {
	gates map[string]chan struct{}
	risk  map[string]analytics.RiskLevel
}

func (f *perProductAPI) AnalyzeSentiment(ctx context.Context, req analytics.AnalysisRequest) (*analytics.SentimentResult, error) {
	<-f.gates[req.ProductName]
	return &analytics.SentimentResult{ProductName: req.ProductName, TotalPosts: 10}, nil
}

func (f *perProductAPI) PredictSalesLoss(ctx context.Context, req analytics.AnalysisRequest) (*analytics.PredictionResult, error) {
	return &analytics.PredictionResult{RiskLevel: f.risk[req.ProductName], Explanation: req.ProductName}, nil
}

func TestOverlappingSubmitsCommitInResolveOrder(t *testing.T) {
	api := &perProductAPI{
		gates: map[string]chan struct{}{"Galaxy S24": make(chan struct{}), "Pixel 8": make(chan struct{})},
		risk:  map[string]analytics.RiskLevel{"Galaxy S24": analytics.RiskHigh, "Pixel 8": analytics.RiskLow},
	}
	rec := &memoryRecorder{}
	v := newAnalyzeView(api, rec)

	form := DefaultForm("Galaxy S24", "Samsung", fixedNow)
	firstDone, err := v.Submit(form)
	require.NoError(t, err)

	form.ProductName = "Pixel 8"
	form.BrandName = "Google"
	secondDone, err := v.Submit(form)
	require.NoError(t, err)
	assert.True(t, v.State().Loading)

	close(api.gates["Pixel 8"])
	<-secondDone

	state := v.State()
	assert.False(t, state.Loading, "the first cycle to settle clears loading")
	assert.True(t, state.Ready)
	require.NotNil(t, state.Prediction)
	assert.Equal(t, "Pixel 8", state.Sentiment.ProductName)
	assert.Equal(t, analytics.RiskLow, state.Prediction.RiskLevel)

	close(api.gates["Galaxy S24"])
	<-firstDone

	state = v.State()
	assert.False(t, state.Loading)
	assert.Equal(t, "Galaxy S24", state.Sentiment.ProductName, "the later-resolving cycle wins")
	assert.Equal(t, analytics.RiskHigh, state.Prediction.RiskLevel)
	assert.Equal(t, "Pixel 8", state.Form.ProductName, "the form keeps the last submission")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.runs, 2)
	assert.Equal(t, "Pixel 8", rec.runs[0].ProductName)
	assert.Equal(t, "Galaxy S24", rec.runs[1].ProductName)
}
