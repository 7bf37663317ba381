package analytics

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

var (
	ErrUnavailable = errors.New("analytics service unavailable")
	ErrDecode      = errors.New("unexpected response from analytics service")
)

// APIError is a non-2xx answer from the analytics backend.
type APIError struct {
	Endpoint   string
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s returned %d: %s", e.Endpoint, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s returned %d", e.Endpoint, e.StatusCode)
}

// Temporary reports whether a repeat of the same request could succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

func newAPIError(endpoint string, status int, body []byte) *APIError {
	return &APIError{Endpoint: endpoint, StatusCode: status, Detail: parseDetail(body)}
}

// parseDetail reads the FastAPI error envelope: {"detail": "..."} or
// {"detail": [{"msg": "..."}, ...]} for validation failures.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return text
	}

	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err != nil {
		return ""
	}

	msgs := make([]string, 0, len(items))
	for _, item := range items {
		if item.Msg == "" {
			continue
		}
		if len(item.Loc) > 0 {
			msgs = append(msgs, fmt.Sprintf("%v: %s", item.Loc[len(item.Loc)-1], item.Msg))
		} else {
			msgs = append(msgs, item.Msg)
		}
	}
	return strings.Join(msgs, "; ")
}

// ErrorMessage turns any client failure into the single line shown to users.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Detail != "" {
			return "Request failed: " + apiErr.Detail
		}
		return fmt.Sprintf("Request failed with status code %d", apiErr.StatusCode)
	case errors.Is(err, ErrDecode):
		return "Request failed: " + ErrDecode.Error()
	default:
		return "Request failed: " + ErrUnavailable.Error()
	}
}

func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return errors.Is(err, ErrUnavailable)
}
