package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sales-dashboard/web/internal/analytics"
	"github.com/sales-dashboard/web/internal/metrics"
	"github.com/sales-dashboard/web/internal/storage/models"
	"github.com/sales-dashboard/web/pkg/logger"
)

// DefaultRangeDays is the length of the date range a fresh form starts with.
const DefaultRangeDays = 7

var validate = validator.New()

// AnalysisAPI is the part of the analytics backend the Analyze view calls.
type AnalysisAPI interface {
	AnalyzeSentiment(ctx context.Context, req analytics.AnalysisRequest) (*analytics.SentimentResult, error)
	PredictSalesLoss(ctx context.Context, req analytics.AnalysisRequest) (*analytics.PredictionResult, error)
}

// RunRecorder persists settled submissions. Failures are logged, never shown.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *models.AnalysisRun) error
}

type AnalyzeForm struct {
	ProductName string         `json:"product_name" validate:"required,max=120"`
	BrandName   string         `json:"brand_name" validate:"required,max=120"`
	Platform    string         `json:"platform" validate:"required"`
	StartDate   analytics.Date `json:"start_date"`
	EndDate     analytics.Date `json:"end_date"`
}

// DefaultForm covers the last DefaultRangeDays days ending on now's date.
func DefaultForm(product, brand string, now time.Time) AnalyzeForm {
	end := analytics.NewDate(now)
	return AnalyzeForm{
		ProductName: product,
		BrandName:   brand,
		Platform:    analytics.PlatformYouTube,
		StartDate:   analytics.NewDate(end.AddDate(0, 0, -DefaultRangeDays)),
		EndDate:     end,
	}
}

func (f AnalyzeForm) Request() analytics.AnalysisRequest {
	return analytics.AnalysisRequest{
		ProductName: strings.TrimSpace(f.ProductName),
		BrandName:   strings.TrimSpace(f.BrandName),
		Platform:    f.Platform,
		StartDate:   f.StartDate,
		EndDate:     f.EndDate,
	}
}

var ErrInvalidForm = errors.New("invalid analysis form")

func (f AnalyzeForm) Validate() error {
	f.ProductName = strings.TrimSpace(f.ProductName)
	f.BrandName = strings.TrimSpace(f.BrandName)

	if err := validate.Struct(f); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fmt.Errorf("%w: %s", ErrInvalidForm, describeField(fieldErrs[0]))
		}
		return fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}
	if f.Platform != analytics.PlatformYouTube {
		return fmt.Errorf("%w: platform must be %s", ErrInvalidForm, analytics.PlatformYouTube)
	}
	if f.StartDate.IsZero() || f.EndDate.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidForm)
	}
	if f.EndDate.Before(f.StartDate.Time) {
		return fmt.Errorf("%w: end date is before start date", ErrInvalidForm)
	}
	return nil
}

func describeField(fe validator.FieldError) string {
	name := map[string]string{
		"ProductName": "product name",
		"BrandName":   "brand name",
		"Platform":    "platform",
	}[fe.Field()]
	if name == "" {
		name = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	default:
		return name + " is invalid"
	}
}

type AnalyzeState struct {
	Form       AnalyzeForm                 `json:"form"`
	Loading    bool                        `json:"loading"`
	Error      string                      `json:"error,omitempty"`
	Sentiment  *analytics.SentimentResult  `json:"sentiment,omitempty"`
	Prediction *analytics.PredictionResult `json:"prediction,omitempty"`
	Ready      bool                        `json:"results_ready"`
}

// AnalyzeView owns the Analyze screen state for one session. A submission
// issues the sentiment request, then the prediction request, one after the
// other. Submissions are not cancelled; overlapping ones commit in the order
// they resolve.
type AnalyzeView struct {
	api       AnalysisAPI
	recorder  RunRecorder
	sessionID string
	now       func() time.Time

	mu    sync.Mutex
	state AnalyzeState
}

type AnalyzeOptions struct {
	ProductName string
	BrandName   string
	SessionID   string
	Recorder    RunRecorder
	Now         func() time.Time
}

func NewAnalyzeView(api AnalysisAPI, opts AnalyzeOptions) *AnalyzeView {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AnalyzeView{
		api:       api,
		recorder:  opts.Recorder,
		sessionID: opts.SessionID,
		now:       now,
		state: AnalyzeState{
			Form: DefaultForm(opts.ProductName, opts.BrandName, now()),
		},
	}
}

func (v *AnalyzeView) State() AnalyzeState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Submit validates the form and starts a fetch cycle. Loading is set before
// Submit returns; the returned channel closes once the cycle settles.
func (v *AnalyzeView) Submit(form AnalyzeForm) (<-chan struct{}, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.state.Form = form
	v.state.Loading = true
	v.state.Error = ""
	v.state.Ready = false
	v.mu.Unlock()

	done := make(chan struct{})
	go v.run(context.Background(), form.Request(), done)
	return done, nil
}

func (v *AnalyzeView) run(ctx context.Context, req analytics.AnalysisRequest, done chan<- struct{}) {
	defer close(done)

	metrics.InFlightCycles.WithLabelValues("analyze").Inc()
	defer metrics.InFlightCycles.WithLabelValues("analyze").Dec()

	start := v.now()
	run := &models.AnalysisRun{
		ID:          uuid.New().String(),
		SessionID:   v.sessionID,
		ProductName: req.ProductName,
		BrandName:   req.BrandName,
		Platform:    req.Platform,
		StartDate:   req.StartDate.String(),
		EndDate:     req.EndDate.String(),
		CreatedAt:   start,
	}

	sentiment, err := v.api.AnalyzeSentiment(ctx, req)
	if err != nil {
		run.Status = models.RunStatusSentimentFailed
		v.fail(ctx, run, start, err)
		return
	}

	v.mu.Lock()
	v.state.Sentiment = sentiment
	v.mu.Unlock()
	run.AverageSentiment = &sentiment.AverageSentiment
	run.TotalPosts = &sentiment.TotalPosts
	run.NegativePercentage = &sentiment.NegativePercentage

	prediction, err := v.api.PredictSalesLoss(ctx, req)
	if err != nil {
		run.Status = models.RunStatusPredictFailed
		v.fail(ctx, run, start, err)
		return
	}

	v.mu.Lock()
	v.state.Prediction = prediction
	v.state.Loading = false
	v.state.Ready = true
	v.mu.Unlock()

	run.Status = models.RunStatusSuccess
	run.PredictedDrop = &prediction.PredictedDropPercentage
	run.LossProbability = &prediction.LossProbability
	run.RiskLevel = string(prediction.RiskLevel)
	run.Explanation = prediction.Explanation
	run.LatencyMS = int(v.now().Sub(start).Milliseconds())

	metrics.FetchCycles.WithLabelValues("analyze", "success").Inc()
	logger.Info("Analysis completed",
		zap.String("run_id", run.ID),
		zap.String("product", req.ProductName),
		zap.String("risk_level", run.RiskLevel),
		zap.Int("latency_ms", run.LatencyMS),
	)
	v.record(ctx, run)
}

func (v *AnalyzeView) fail(ctx context.Context, run *models.AnalysisRun, start time.Time, err error) {
	message := analytics.ErrorMessage(err)

	v.mu.Lock()
	v.state.Error = message
	v.state.Loading = false
	v.mu.Unlock()

	run.ErrorMessage = message
	run.LatencyMS = int(v.now().Sub(start).Milliseconds())

	metrics.FetchCycles.WithLabelValues("analyze", "error").Inc()
	logger.Warn("Analysis failed",
		zap.String("run_id", run.ID),
		zap.String("status", run.Status),
		zap.Error(err),
	)
	v.record(ctx, run)
}

func (v *AnalyzeView) record(ctx context.Context, run *models.AnalysisRun) {
	if v.recorder == nil {
		return
	}
	if err := v.recorder.RecordRun(ctx, run); err != nil {
		logger.Warn("Failed to record analysis run", zap.String("run_id", run.ID), zap.Error(err))
	}
}
