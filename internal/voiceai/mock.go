package voiceai

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockClient provides deterministic replies for local development and tests.
type MockClient struct {
	mu   sync.Mutex
	next int
}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) CreateSession(ctx context.Context, req SessionRequest) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	c.mu.Lock()
	c.next++
	id := fmt.Sprintf("mock-session-%d", c.next)
	c.mu.Unlock()
	return id, nil
}

func (c *MockClient) SendUtterance(ctx context.Context, req UtteranceRequest) (Reply, error) {
	select {
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	default:
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Reply{Text: "I'm listening.", Intent: "neutral", Confidence: 0.5}, nil
	}
	return Reply{
		Text:       fmt.Sprintf("I hear you saying: %s. Tell me more about that.", text),
		Intent:     "neutral",
		Confidence: 0.9,
	}, nil
}
