package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cubewin07/movie-explorer-sub000/internal/types"
)

// DefaultPageSize is the number of messages requested per page.
const DefaultPageSize = 30

// ErrNotFound is returned for unknown conversations.
var ErrNotFound = errors.New("conversation not found")

// APIError represents a non-2xx response from the chat API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" && e.Message != "" {
		return fmt.Sprintf("chat api error: %s (%d): %s", e.Code, e.Status, e.Message)
	}
	if e.Code != "" {
		return fmt.Sprintf("chat api error: %s (%d)", e.Code, e.Status)
	}
	if e.Message != "" {
		return fmt.Sprintf("chat api error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("chat api error (%d)", e.Status)
}

type apiErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Client talks to the chat REST API.
type Client struct {
	baseURL    string
	token      string
	pageSize   int
	httpClient *http.Client
}

// NewClient constructs a chat API client.
func NewClient(baseURL, token string, pageSize int) (*Client, error) {
	normalized, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Client{
		baseURL:  normalized,
		token:    token,
		pageSize: pageSize,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}, nil
}

// NormalizeBaseURL trims a base URL and ensures it has a scheme.
func NormalizeBaseURL(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("backend url cannot be empty")
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("invalid backend url: %w", err)
	}
	if parsed.Scheme == "" {
		return "", fmt.Errorf("backend url must include scheme (https://)")
	}
	return strings.TrimRight(value, "/"), nil
}

// FetchPage returns one page of history, newest first. An empty cursor
// requests the newest page.
func (c *Client) FetchPage(ctx context.Context, conversationID, cursor string) (types.Page, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(c.pageSize))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	var resp pageResponse
	if err := c.doJSON(ctx, http.MethodGet, messagesPath(conversationID), query, nil, &resp); err != nil {
		return types.Page{}, err
	}
	return resp.toPage(conversationID)
}

// SendMessage posts a message. clientID is echoed back on the confirmed
// message by servers that support correlation.
func (c *Client) SendMessage(ctx context.Context, conversationID, text, clientID string) error {
	req := sendRequest{Content: text, ClientID: clientID}
	return c.doJSON(ctx, http.MethodPost, messagesPath(conversationID), nil, req, nil)
}

// Conversations lists the conversations visible to the current user.
func (c *Client) Conversations(ctx context.Context) ([]types.Conversation, error) {
	var resp conversationsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/chats", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.toConversations()
}

func messagesPath(conversationID string) string {
	return "/v1/chats/" + url.PathEscape(conversationID) + "/messages"
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, reqBody any, respBody any) error {
	endpoint, err := c.buildURL(path, query)
	if err != nil {
		return err
	}

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload apiErrorPayload
		if err := json.Unmarshal(respData, &payload); err == nil {
			apiErr.Code = payload.Error
			apiErr.Message = payload.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(respData))
		}
		return apiErr
	}

	if respBody == nil || len(respData) == 0 {
		return nil
	}
	return json.Unmarshal(respData, respBody)
}

func (c *Client) buildURL(path string, query url.Values) (string, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	endpoint := base.ResolveReference(ref)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}
	return endpoint.String(), nil
}
