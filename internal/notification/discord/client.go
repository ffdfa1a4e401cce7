package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/assist-by/equilibria/internal/notification"
)

// Client는 Discord 웹훅 클라이언트입니다
type Client struct {
	tradeWebhook string
	errorWebhook string
	infoWebhook  string
	client       *http.Client
}

var _ notification.Notifier = (*Client)(nil)

// ClientOption은 클라이언트 생성 옵션입니다
type ClientOption func(*Client)

// WithTimeout은 HTTP 요청 타임아웃을 설정합니다
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = timeout
	}
}

// WithHTTPClient는 HTTP 클라이언트를 교체합니다
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient는 새로운 Discord 클라이언트를 생성합니다
// 빈 웹훅 URL은 info 웹훅으로 대체합니다
func NewClient(tradeWebhook, errorWebhook, infoWebhook string, opts ...ClientOption) *Client {
	c := &Client{
		tradeWebhook: fallback(tradeWebhook, infoWebhook),
		errorWebhook: fallback(errorWebhook, infoWebhook),
		infoWebhook:  infoWebhook,
		client:       &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func fallback(url, def string) string {
	if url == "" {
		return def
	}
	return url
}

// sendToWebhook은 웹훅으로 메시지를 전송합니다
func (c *Client) sendToWebhook(webhookURL string, message WebhookMessage) error {
	if webhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("메시지 마샬링 실패: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("요청 생성 실패: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("요청 전송 실패: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("웹훅 전송 실패: status=%d, body=%s", resp.StatusCode, string(body))
	}
	return nil
}
