package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const (
	default_address = "http://127.0.0.1:11823"
)

type Client struct {
	client   *http.Client
	Endpoint string
	key      string
}

func NewClient(endpoint, key string) *Client {
	if endpoint == "" {
		endpoint = default_address
	}
	return &Client{
		client:   http.DefaultClient,
		Endpoint: endpoint,
		key:      key,
	}
}

func (c *Client) Chat(ctx context.Context, in ChatRequest) (*ChatResponse, error) {
	var out ChatResponse
	if err := c.do(ctx, http.MethodPost, "v1/chat/completions", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateBot(ctx context.Context, in CreateBotRequest) (*BotView, error) {
	var out BotView
	if err := c.do(ctx, http.MethodPost, "v1/bots", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListBots(ctx context.Context) ([]BotView, error) {
	var out BotListResponse
	if err := c.do(ctx, http.MethodGet, "v1/bots", nil, &out); err != nil {
		return nil, err
	}
	return out.Bots, nil
}

func (c *Client) StopBot(ctx context.Context, name string) error {
	path := fmt.Sprintf("v1/bots/%s", url.PathEscape(name))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) PoolStats(ctx context.Context) (*PoolStats, error) {
	var out PoolStats
	if err := c.do(ctx, http.MethodGet, "v1/pool/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddToken(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "v1/pool/tokens", TokenRequest{Token: token}, nil)
}

func (c *Client) RemoveToken(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodDelete, "v1/pool/tokens", TokenRequest{Token: token}, nil)
}

func (c *Client) Cleanup(ctx context.Context) (int, error) {
	var out CleanupResponse
	if err := c.do(ctx, http.MethodPost, "v1/pool/cleanup", nil, &out); err != nil {
		return 0, err
	}
	return out.Removed, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	urlString := fmt.Sprintf("%s/%s", c.Endpoint, path)

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlString, body)
	if err != nil {
		return fmt.Errorf("client failed create request: %v", err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Authorization", fmt.Sprintf("Bearer %s", c.key))
	req.Header = header

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(b))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}
