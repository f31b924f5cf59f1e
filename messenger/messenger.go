// Package messenger handles outbound chat delivery via the Messenger
// Graph API, with a pluggable provider so local development runs without
// platform credentials.
package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Profile is the subset of a user profile the bot personalizes with.
type Profile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Provider defines the interface for chat delivery implementations.
type Provider interface {
	// SendMessage delivers a text message to the recipient.
	SendMessage(ctx context.Context, recipientID, text string) error

	// Profile fetches the recipient's display profile.
	Profile(ctx context.Context, userID string) (*Profile, error)
}

// Client sends messages through the Messenger Graph API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
}

// NewClient creates a Graph API client. baseURL defaults to the public
// Graph endpoint when empty.
func NewClient(baseURL, accessToken string) *Client {
	if baseURL == "" {
		baseURL = "https://graph.facebook.com/v17.0"
	}
	return &Client{
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		baseURL:     baseURL,
		accessToken: accessToken,
	}
}

type sendRequest struct {
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

// SendMessage delivers text to recipientID. A delivery failure is final;
// retrying risks double-notifying users on transient API slowness.
func (c *Client) SendMessage(ctx context.Context, recipientID, text string) error {
	var body sendRequest
	body.Recipient.ID = recipientID
	body.Message.Text = text

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/me/messages?access_token=%s", c.baseURL, url.QueryEscape(c.accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("send message: status %d: %s", resp.StatusCode, msg)
	}
	return nil
}

// Profile fetches first and last name for userID.
func (c *Client) Profile(ctx context.Context, userID string) (*Profile, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=first_name,last_name&access_token=%s",
		c.baseURL, url.PathEscape(userID), url.QueryEscape(c.accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch profile: status %d", resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &profile, nil
}
