package messenger

import (
	"context"
	"log/slog"
)

// MockProvider logs messages instead of delivering them. Used for local
// development when no page access token is configured.
type MockProvider struct {
	logger *slog.Logger
}

// NewMockProvider creates a new mock chat provider.
func NewMockProvider(logger *slog.Logger) *MockProvider {
	return &MockProvider{
		logger: logger,
	}
}

// SendMessage logs the message instead of sending it.
func (m *MockProvider) SendMessage(_ context.Context, recipientID, text string) error {
	m.logger.Info("MOCK MESSAGE",
		"to", recipientID,
		"text_length", len(text))
	return nil
}

// Profile returns a placeholder profile.
func (m *MockProvider) Profile(_ context.Context, userID string) (*Profile, error) {
	m.logger.Info("MOCK PROFILE", "user", userID)
	return &Profile{FirstName: "User"}, nil
}
