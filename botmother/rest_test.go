package botmother_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/minimancer/botmother/agent"
	"github.com/minimancer/botmother/api"
	"github.com/minimancer/botmother/botmother"
	"github.com/minimancer/botmother/pool"
	"github.com/minimancer/botmother/spawner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type mockAgent struct {
	fn func(ctx context.Context, msgs []*agent.Message) (*agent.Message, error)
}

func (m *mockAgent) Completion(ctx context.Context, msgs []*agent.Message) (*agent.Message, error) {
	return m.fn(ctx, msgs)
}

type restFakeBot struct{ username string }

func (f *restFakeBot) Handle(endpoint any, h tele.HandlerFunc, m ...tele.MiddlewareFunc) {}
func (f *restFakeBot) Start()                                                           {}
func (f *restFakeBot) Stop()                                                            {}
func (f *restFakeBot) Username() string                                                 { return f.username }

func newTestServer(t *testing.T, tokens ...string) (*echo.Echo, *botmother.BotMother) {
	t.Helper()
	t.Setenv("BOT_TOKEN_POOL", "")
	t.Setenv("BOT_TOKEN_1", "")

	p := pool.NewManager(filepath.Join(t.TempDir(), "pool.json"), pool.Options{})
	for _, token := range tokens {
		require.True(t, p.AddToken(token))
	}

	sp := spawner.New(p, spawner.WithNewBotFunc(func(token string) (spawner.ChildBot, error) {
		return &restFakeBot{username: "test_bot"}, nil
	}))

	bm := &botmother.BotMother{
		Agent: &mockAgent{fn: func(ctx context.Context, msgs []*agent.Message) (*agent.Message, error) {
			return agent.NewTextMessage(agent.RoleAssistant, "hello from mother"), nil
		}},
		Pool:    p,
		Spawner: sp,
	}

	e := echo.New()
	botmother.RestHandler(context.Background(), bm, e)
	return e, bm
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(b))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func Test_rest_chat(t *testing.T) {
	e, _ := newTestServer(t)

	tTable := []struct {
		name       string
		body       any
		rawBody    string
		noJSONType bool
		wantCode   int
		wantText   string
	}{
		{
			name:     "success",
			body:     api.ChatRequest{Content: []*api.Message{api.NewTextMessage("user", "hi")}},
			wantCode: 200,
			wantText: "hello from mother",
		},
		{
			name:     "empty content",
			body:     api.ChatRequest{},
			wantCode: 400,
		},
		{
			name:     "message without parts",
			body:     api.ChatRequest{Content: []*api.Message{{Role: "user"}}},
			wantCode: 400,
		},
		{
			name:     "bad json",
			rawBody:  "{not-json",
			wantCode: 400,
		},
		{
			name:       "missing content type",
			body:       api.ChatRequest{Content: []*api.Message{api.NewTextMessage("user", "hi")}},
			noJSONType: true,
			wantCode:   400,
		},
	}

	for _, tc := range tTable {
		t.Run(tc.name, func(t *testing.T) {
			var rec *httptest.ResponseRecorder
			if tc.rawBody != "" {
				req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(tc.rawBody))
				req.Header.Set("Content-Type", "application/json")
				rec = httptest.NewRecorder()
				e.ServeHTTP(rec, req)
			} else if tc.noJSONType {
				b, _ := json.Marshal(tc.body)
				req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(string(b)))
				rec = httptest.NewRecorder()
				e.ServeHTTP(rec, req)
			} else {
				rec = doJSON(t, e, http.MethodPost, "/v1/chat/completions", tc.body)
			}

			require.Equal(t, tc.wantCode, rec.Code, rec.Body.String())
			if tc.wantText != "" {
				var res api.ChatResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
				assert.Equal(t, tc.wantText, res.Text)
			}
		})
	}
}

func Test_rest_bot_lifecycle(t *testing.T) {
	e, _ := newTestServer(t, "111111:aaaaa11111")

	// spawn
	rec := doJSON(t, e, http.MethodPost, "/v1/bots", api.CreateBotRequest{Name: "EchoOne", Kind: "echo"})
	require.Equal(t, 201, rec.Code, rec.Body.String())
	var created api.BotView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "EchoOne", created.Name)
	assert.Equal(t, "running", created.Status)
	assert.Equal(t, "https://t.me/test_bot", created.Link)

	// list
	rec = doJSON(t, e, http.MethodGet, "/v1/bots", nil)
	require.Equal(t, 200, rec.Code)
	var list api.BotListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Bots, 1)

	// pool is now exhausted
	rec = doJSON(t, e, http.MethodPost, "/v1/bots", api.CreateBotRequest{Name: "EchoTwo"})
	assert.Equal(t, 409, rec.Code, rec.Body.String())

	// stop
	rec = doJSON(t, e, http.MethodDelete, "/v1/bots/EchoOne", nil)
	require.Equal(t, 200, rec.Code)

	// stop again
	rec = doJSON(t, e, http.MethodDelete, "/v1/bots/EchoOne", nil)
	assert.Equal(t, 404, rec.Code)

	// cleanup reaps the stopped record
	rec = doJSON(t, e, http.MethodPost, "/v1/pool/cleanup", nil)
	require.Equal(t, 200, rec.Code)
	var cleaned api.CleanupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cleaned))
	assert.Equal(t, 1, cleaned.Removed)
}

func Test_rest_pool_endpoints(t *testing.T) {
	e, _ := newTestServer(t)

	// add
	rec := doJSON(t, e, http.MethodPost, "/v1/pool/tokens", api.TokenRequest{Token: "123456:secret123"})
	require.Equal(t, 201, rec.Code, rec.Body.String())

	// reject malformed
	rec = doJSON(t, e, http.MethodPost, "/v1/pool/tokens", api.TokenRequest{Token: "not-a-token"})
	assert.Equal(t, 400, rec.Code)

	// stats
	rec = doJSON(t, e, http.MethodGet, "/v1/pool/stats", nil)
	require.Equal(t, 200, rec.Code)
	var stats api.PoolStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalTokens)
	assert.Equal(t, 1, stats.AvailableTokens)
	assert.Equal(t, 0, stats.ActiveBots)

	// remove
	rec = doJSON(t, e, http.MethodDelete, "/v1/pool/tokens", api.TokenRequest{Token: "123456:secret123"})
	require.Equal(t, 200, rec.Code)

	// remove again
	rec = doJSON(t, e, http.MethodDelete, "/v1/pool/tokens", api.TokenRequest{Token: "123456:secret123"})
	assert.Equal(t, 404, rec.Code)
}

func Test_rest_healthz(t *testing.T) {
	e, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, 200, rec.Code)
}
