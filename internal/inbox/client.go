package inbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/roomchat-backend/internal/pkg/httpx"
)

// Client talks to the chat and push endpoints of one server as one user.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client. httpClient may be nil. It must not carry an
// overall timeout if it is also used for Stream.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(token),
		http:    httpClient,
	}
}

type threadsResp struct {
	Threads []Thread `json:"threads"`
}

func (c *Client) ListThreads(ctx context.Context) ([]Thread, error) {
	var out threadsResp
	if err := c.do(ctx, http.MethodGet, "/api/chat/threads", nil, &out); err != nil {
		return nil, err
	}
	return out.Threads, nil
}

func (c *Client) DeleteThread(ctx context.Context, threadID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/chat/threads/"+threadID.String(), nil, nil)
}

func (c *Client) MarkRead(ctx context.Context, threadID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/api/chat/threads/"+threadID.String()+"/read", nil, nil)
}

func (c *Client) SendMessage(ctx context.Context, threadID uuid.UUID, body string) error {
	req := map[string]string{"body": body}
	return c.do(ctx, http.MethodPost, "/api/chat/threads/"+threadID.String()+"/messages", req, nil)
}

// StartThread opens (or reuses) the viewer's inquiry thread on a listing.
func (c *Client) StartThread(ctx context.Context, listingID uuid.UUID, body string) (uuid.UUID, error) {
	req := map[string]string{"listing_id": listingID.String(), "body": body}
	var out struct {
		Thread struct {
			ID uuid.UUID `json:"id"`
		} `json:"thread"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat/threads", req, &out); err != nil {
		return uuid.Nil, err
	}
	return out.Thread.ID, nil
}

func (c *Client) JoinThread(ctx context.Context, connectionID, threadID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, membershipPath(connectionID, threadID), nil, nil)
}

func (c *Client) LeaveThread(ctx context.Context, connectionID, threadID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, membershipPath(connectionID, threadID), nil, nil)
}

func membershipPath(connectionID, threadID uuid.UUID) string {
	return "/api/inbox/connections/" + connectionID.String() + "/threads/" + threadID.String()
}

// RegisterPush stores the device token for the viewer and returns the
// server's outcome ("registered" or "skipped_permission_denied").
func (c *Client) RegisterPush(ctx context.Context, token, platform string, granted bool) (string, error) {
	permission := "denied"
	if granted {
		permission = "granted"
	}
	req := map[string]string{"token": token, "platform": platform, "permission": permission}
	var out struct {
		Outcome string `json:"outcome"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/push/tokens", req, &out); err != nil {
		return "", err
	}
	return out.Outcome, nil
}

func (c *Client) UnregisterPush(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodDelete, "/api/push/tokens", map[string]string{"token": token}, nil)
}

// Stream opens the inbox event stream. The caller closes the body.
func (c *Client) Stream(ctx context.Context) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/inbox/stream", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp.Body, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(raw)
	}
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("bad url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	se := &httpx.StatusError{Status: resp.StatusCode, Body: string(raw)}
	var env errorEnvelope
	if json.Unmarshal(raw, &env) == nil {
		se.Code = env.Error.Code
	}
	return se
}
