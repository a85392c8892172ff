// Package borg provides a client for the borg-collective relay API.
package borg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/enki09/borg-collective/internal/models"
)

// SessionHeader carries the originating session id on submitted frames.
const SessionHeader = "X-Borg-Session"

// Client is a relay API client bound to at most one capture session.
type Client struct {
	BaseURL    string
	SessionID  string
	HTTPClient *http.Client
}

// NewClient creates a new relay client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// doRequest performs an HTTP request against the relay.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.SessionID != "" {
		req.Header.Set(SessionHeader, c.SessionID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, fmt.Errorf("relay error %d: %s", resp.StatusCode, errResp.Error)
	}

	return respBody, nil
}

// sendFrame posts one frame to the relay boundary and decodes the uniform
// frame response.
func (c *Client) sendFrame(ctx context.Context, frameType string, payload interface{}) (*FrameResult, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}

	body, _ := json.Marshal(models.Frame{Type: frameType, Payload: raw})
	respBody, err := c.doRequest(ctx, "POST", "/relay", body)
	if err != nil {
		return nil, err
	}

	var result FrameResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, err
	}
	if !result.OK {
		return nil, fmt.Errorf("relay rejected frame: %s", result.Error)
	}
	return &result, nil
}

// FrameResult is the uniform response to a relay frame.
type FrameResult struct {
	OK    bool          `json:"ok"`
	Error string        `json:"error,omitempty"`
	State *models.State `json:"state,omitempty"`
	Reset bool          `json:"reset,omitempty"`
}

// RegisterSessionRequest is the request body for session registration.
type RegisterSessionRequest struct {
	Site string `json:"site,omitempty"`
	URL  string `json:"url"`
}

// RegisterSessionResponse is the response from session registration.
type RegisterSessionResponse struct {
	ID   string `json:"id"`
	Site string `json:"site"`
}

// RegisterSession registers this client as a live capture session. The
// returned id is remembered and attached to subsequent submits.
func (c *Client) RegisterSession(ctx context.Context, site, url string) (*RegisterSessionResponse, error) {
	body, _ := json.Marshal(RegisterSessionRequest{Site: site, URL: url})
	respBody, err := c.doRequest(ctx, "POST", "/sessions", body)
	if err != nil {
		return nil, err
	}

	var resp RegisterSessionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}

	c.SessionID = resp.ID
	return &resp, nil
}

// Heartbeat refreshes the registered session's liveness.
func (c *Client) Heartbeat(ctx context.Context) error {
	if c.SessionID == "" {
		return fmt.Errorf("no session registered")
	}
	_, err := c.doRequest(ctx, "POST", "/sessions/"+c.SessionID+"/heartbeat", nil)
	return err
}

// Submit relays one captured envelope.
func (c *Client) Submit(ctx context.Context, env models.Envelope) error {
	_, err := c.sendFrame(ctx, models.FrameMessageSubmit, env)
	return err
}

// GetState retrieves the full conversation state.
func (c *Client) GetState(ctx context.Context) (*models.State, error) {
	result, err := c.sendFrame(ctx, models.FrameGetState, nil)
	if err != nil {
		return nil, err
	}
	if result.State == nil {
		return models.NewState(), nil
	}
	return result.State, nil
}

// ResetState clears all conversation state on the relay.
func (c *Client) ResetState(ctx context.Context) error {
	_, err := c.sendFrame(ctx, models.FrameResetState, nil)
	return err
}

// UserBroadcast injects an operator-composed message into the collective.
func (c *Client) UserBroadcast(ctx context.Context, text, mode string) error {
	_, err := c.sendFrame(ctx, models.FrameUserBroadcast, models.UserBroadcast{Text: text, Mode: mode})
	return err
}

// InboxResponse is the response from polling a session inbox.
type InboxResponse struct {
	Frames []models.Frame `json:"frames"`
	Count  int            `json:"count"`
}

// PollInbox drains broadcast frames queued for the registered session.
func (c *Client) PollInbox(ctx context.Context, limit int) ([]models.Frame, error) {
	if c.SessionID == "" {
		return nil, fmt.Errorf("no session registered")
	}

	path := fmt.Sprintf("/sessions/%s/inbox?limit=%d", c.SessionID, limit)
	respBody, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var resp InboxResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return resp.Frames, nil
}
