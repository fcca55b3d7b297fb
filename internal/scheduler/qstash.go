package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultQStashURL = "https://qstash.upstash.io"

// QStashClient publishes delayed messages to Upstash QStash. QStash invokes
// the target URL with the given body after roughly the requested delay,
// with at-least-once semantics.
type QStashClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewQStashClient(baseURL, token string) *QStashClient {
	if baseURL == "" {
		baseURL = DefaultQStashURL
	}
	return &QStashClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
}

type publishResponse struct {
	MessageID string `json:"messageId"`
}

// PublishJSON schedules a one-shot POST of body to url after delay. Returns
// the QStash message ID.
func (c *QStashClient) PublishJSON(ctx context.Context, url string, body any, delay time.Duration) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal publish body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/publish/"+url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Upstash-Delay", fmt.Sprintf("%ds", int(delay.Seconds())))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("qstash publish request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("failed to read qstash response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("qstash publish returned %d: %s", resp.StatusCode, respBody)
	}

	var pr publishResponse
	if err := json.Unmarshal(respBody, &pr); err != nil {
		return "", fmt.Errorf("failed to decode qstash response: %w", err)
	}
	return pr.MessageID, nil
}
