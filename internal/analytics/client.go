package analytics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/sales-dashboard/web/internal/metrics"
	"github.com/sales-dashboard/web/pkg/logger"
	"github.com/sales-dashboard/web/pkg/retry"
)

const (
	pathAnalyzeSentiment = "/analyze-sentiment"
	pathPredictSalesLoss = "/predict-sales-loss"
	pathDashboardData    = "/get-dashboard-data"
	pathComments         = "/comments"
	pathChat             = "/chat"

	maxResponseBytes = 8 << 20
)

// Client talks to the sentiment / sales-loss backend.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig retry.Config
}

// NewClient builds a client. maxAttempts <= 1 disables retries.
func NewClient(baseURL string, timeout time.Duration, maxAttempts int) *Client {
	retryConfig := retry.NoRetry()
	if maxAttempts > 1 {
		retryConfig = retry.Config{
			MaxAttempts:    maxAttempts,
			InitialDelay:   200 * time.Millisecond,
			MaxDelay:       2 * time.Second,
			Multiplier:     2.0,
			JitterFraction: 0.1,
			ShouldRetry:    isRetryable,
			Logger:         logger.GetLogger(),
		}
	}

	logger.Info("Analytics client initialized",
		zap.String("base_url", baseURL),
		zap.Int("max_attempts", retryConfig.MaxAttempts),
	)

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryConfig: retryConfig,
	}
}

func (c *Client) AnalyzeSentiment(ctx context.Context, req AnalysisRequest) (*SentimentResult, error) {
	var result SentimentResult
	if err := c.do(ctx, http.MethodPost, pathAnalyzeSentiment, nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) PredictSalesLoss(ctx context.Context, req AnalysisRequest) (*PredictionResult, error) {
	var result PredictionResult
	if err := c.do(ctx, http.MethodPost, pathPredictSalesLoss, nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetDashboardData(ctx context.Context, sel Selection) (*DashboardSnapshot, error) {
	var snapshot DashboardSnapshot
	if err := c.do(ctx, http.MethodGet, pathDashboardData, selectionQuery(sel), nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (c *Client) GetComments(ctx context.Context, sel Selection, sentimentFilter string) ([]Comment, error) {
	query := selectionQuery(sel)
	if sentimentFilter != FilterAll {
		query.Set("sentiment_filter", sentimentFilter)
	}

	var comments []Comment
	if err := c.do(ctx, http.MethodGet, pathComments, query, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	var resp chatResponse
	if err := c.do(ctx, http.MethodPost, pathChat, nil, chatRequest{Message: message}, &resp); err != nil {
		return "", err
	}
	return resp.Reply, nil
}

func selectionQuery(sel Selection) url.Values {
	query := url.Values{}
	query.Set("product_name", sel.ProductName)
	query.Set("brand_name", sel.BrandName)
	query.Set("platform", sel.Platform)
	return query
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", path, err)
		}
	}

	return retry.Do(ctx, c.retryConfig, func() error {
		start := time.Now()
		status, err := c.roundTrip(ctx, method, endpoint, path, payload, out)
		metrics.UpstreamDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
		metrics.UpstreamRequests.WithLabelValues(path, status).Inc()

		if err != nil {
			logger.Warn("Analytics request failed",
				zap.String("method", method),
				zap.String("path", path),
				zap.String("status", status),
				zap.Error(err),
			)
			return err
		}

		logger.Debug("Analytics request completed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("latency", time.Since(start)),
		)
		return nil
	})
}

// roundTrip performs one attempt and returns the status label for metrics.
func (c *Client) roundTrip(ctx context.Context, method, endpoint, path string, payload []byte, out any) (string, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return "error", fmt.Errorf("failed to build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "error", ctx.Err()
		}
		return "error", fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return status, fmt.Errorf("%w: reading %s body: %v", ErrUnavailable, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return status, newAPIError(path, resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return status, fmt.Errorf("%w: decoding %s: %v", ErrDecode, path, err)
	}

	return status, nil
}
