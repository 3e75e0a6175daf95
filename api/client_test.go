package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/minimancer/botmother/agent"
	"github.com/minimancer/botmother/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basicRequest() *api.ChatRequest {
	return &api.ChatRequest{
		Content: []*api.Message{
			{
				Role: "user",
				Parts: []*agent.Part{
					api.NewTextPart("text"),
				},
			},
		},
	}
}

func basicResponse() *api.ChatResponse {
	return &api.ChatResponse{
		Text: "text-response",
	}
}

func Test_client_chat(t *testing.T) {
	tTable := []struct {
		name         string
		requestFunc  func() *api.ChatRequest
		responseFunc func() *api.ChatResponse
	}{
		{
			name:         "success",
			requestFunc:  basicRequest,
			responseFunc: basicResponse,
		},
	}

	for _, tc := range tTable {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

				var gotReq api.ChatRequest
				err := json.NewDecoder(r.Body).Decode(&gotReq)
				require.NoError(t, err)

				expectReq := tc.requestFunc()
				assert.Equal(t, expectReq, &gotReq)

				w.Header().Set("Content-Type", "application/json")
				if err := json.NewEncoder(w).Encode(tc.responseFunc()); err != nil {
					t.Fatalf("failed to encode mock response: %v", err)
				}
			}))
			defer ts.Close()

			cli := api.NewClient(ts.URL, "test-key")
			actRes, err := cli.Chat(context.Background(), *tc.requestFunc())
			require.NoError(t, err)
			assert.Equal(t, tc.responseFunc(), actRes)
		})
	}
}

func Test_client_bots(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method + " " + r.URL.Path {
		case "POST /v1/bots":
			var in api.CreateBotRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "HelperBot", in.Name)
			json.NewEncoder(w).Encode(api.BotView{Name: in.Name, Status: "running"})
		case "GET /v1/bots":
			json.NewEncoder(w).Encode(api.BotListResponse{
				Bots: []api.BotView{{Name: "HelperBot", Status: "running"}},
			})
		case "DELETE /v1/bots/HelperBot":
			json.NewEncoder(w).Encode(map[string]bool{"stopped": true})
		case "GET /v1/pool/stats":
			json.NewEncoder(w).Encode(api.PoolStats{TotalTokens: 3, AvailableTokens: 2, AllocatedTokens: 1, ActiveBots: 1})
		case "POST /v1/pool/cleanup":
			json.NewEncoder(w).Encode(api.CleanupResponse{Removed: 2})
		default:
			http.Error(w, "unexpected route: "+r.URL.Path, http.StatusNotFound)
		}
	}))
	defer ts.Close()

	ctx := context.Background()
	cli := api.NewClient(ts.URL, "test-key")

	bot, err := cli.CreateBot(ctx, api.CreateBotRequest{Name: "HelperBot", Kind: "echo"})
	require.NoError(t, err)
	assert.Equal(t, "running", bot.Status)

	bots, err := cli.ListBots(ctx)
	require.NoError(t, err)
	require.Len(t, bots, 1)
	assert.Equal(t, "HelperBot", bots[0].Name)

	require.NoError(t, cli.StopBot(ctx, "HelperBot"))

	stats, err := cli.PoolStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalTokens)
	assert.Equal(t, 1, stats.ActiveBots)

	removed, err := cli.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}

func Test_client_error_status(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"pool exhausted"}`, http.StatusConflict)
	}))
	defer ts.Close()

	cli := api.NewClient(ts.URL, "")
	_, err := cli.CreateBot(context.Background(), api.CreateBotRequest{Name: "X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 409")
}
