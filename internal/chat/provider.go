package chat

import (
	"context"
	"fmt"

	"github.com/sales-dashboard/web/internal/storage/models"
)

// Conversation is everything a provider sees for one reply.
type Conversation struct {
	History []models.ChatMessage
	Message string
	// Context is a short plain-text summary of what the dashboard currently shows.
	Context string
}

type Provider interface {
	Name() string
	Reply(ctx context.Context, conv Conversation) (string, error)
}

// BackendChat is the analytics backend's chat endpoint.
type BackendChat interface {
	Chat(ctx context.Context, message string) (string, error)
}

// BackendProvider forwards the latest message to the analytics backend,
// which keeps no conversation state.
type BackendProvider struct {
	api BackendChat
}

func NewBackendProvider(api BackendChat) *BackendProvider {
	return &BackendProvider{api: api}
}

func (p *BackendProvider) Name() string { return ProviderBackend }

func (p *BackendProvider) Reply(ctx context.Context, conv Conversation) (string, error) {
	reply, err := p.api.Chat(ctx, conv.Message)
	if err != nil {
		return "", fmt.Errorf("backend chat: %w", err)
	}
	return reply, nil
}

const (
	ProviderBackend = "backend"
	ProviderOpenAI  = "openai"
)
