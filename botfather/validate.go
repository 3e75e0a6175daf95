package botfather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const defaultAPIEndpoint = "https://api.telegram.org"

// BotInfo is the platform's view of a bot identity.
type BotInfo struct {
	ID                      int64  `json:"id"`
	Username                string `json:"username"`
	FirstName               string `json:"first_name"`
	CanJoinGroups           bool   `json:"can_join_groups"`
	CanReadAllGroupMessages bool   `json:"can_read_all_group_messages"`
	SupportsInlineQueries   bool   `json:"supports_inline_queries"`
}

// Validator checks tokens against the Bot API getMe method. The zero
// value uses http.DefaultClient and the public endpoint.
type Validator struct {
	Client   *http.Client
	Endpoint string
}

// Validate confirms the token authenticates and returns the bot info
// behind it. An unauthorized token is an error, not a transport
// failure.
func (v *Validator) Validate(ctx context.Context, token string) (*BotInfo, error) {
	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}
	endpoint := v.Endpoint
	if endpoint == "" {
		endpoint = defaultAPIEndpoint
	}

	url := fmt.Sprintf("%s/bot%s/getMe", endpoint, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("invalid bot token")
	}

	var out struct {
		OK          bool    `json:"ok"`
		Description string  `json:"description"`
		Result      BotInfo `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed decoding getMe response: %w", err)
	}
	if !out.OK {
		return nil, fmt.Errorf("bot api error: %s", out.Description)
	}
	return &out.Result, nil
}
