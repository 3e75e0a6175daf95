package botops

import (
	"path/filepath"
	"testing"

	"github.com/minimancer/botmother/agent"
	"github.com/minimancer/botmother/pool"
	"github.com/minimancer/botmother/spawner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type nopBot struct{}

func (nopBot) Handle(endpoint any, h tele.HandlerFunc, m ...tele.MiddlewareFunc) {}
func (nopBot) Start()                                                            {}
func (nopBot) Stop()                                                             {}
func (nopBot) Username() string                                                  { return "spawned_bot" }

func newFixture(t *testing.T) (*pool.Manager, []agent.ToolProvider) {
	t.Helper()
	t.Setenv("BOT_TOKEN_POOL", "")
	t.Setenv("BOT_TOKEN_1", "")

	p := pool.NewManager(filepath.Join(t.TempDir(), "pool.json"), pool.Options{})
	require.True(t, p.AddToken("111:aaaaa11111"))

	s := spawner.New(p, spawner.WithNewBotFunc(func(token string) (spawner.ChildBot, error) {
		return nopBot{}, nil
	}))
	return p, Tools(p, s)
}

func toolByName(t *testing.T, tools []agent.ToolProvider, name string) agent.ToolProvider {
	t.Helper()
	for _, tool := range tools {
		if tool.Def().Function.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %s not found", name)
	return nil
}

func TestCreateListStopTools(t *testing.T) {
	_, tools := newFixture(t)

	create := toolByName(t, tools, "create_bot")
	res, err := create.Call(t.Context(), agent.FunctionCall{
		Name:      "create_bot",
		Arguments: `{"name":"EchoA","kind":"echo"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "running", res.Output["status"])
	assert.Equal(t, "https://t.me/spawned_bot", res.Output["link"])

	list := toolByName(t, tools, "list_bots")
	res, err = list.Call(t.Context(), agent.FunctionCall{Name: "list_bots"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Output["count"])

	stop := toolByName(t, tools, "stop_bot")
	res, err = stop.Call(t.Context(), agent.FunctionCall{
		Name:      "stop_bot",
		Arguments: `{"name":"echoa"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, true, res.Output["stopped"])

	res, err = stop.Call(t.Context(), agent.FunctionCall{
		Name:      "stop_bot",
		Arguments: `{"name":"echoa"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, false, res.Output["stopped"], "stopping twice reports false, not an error")
}

func TestCreateBot_Exhausted(t *testing.T) {
	p, tools := newFixture(t)
	create := toolByName(t, tools, "create_bot")

	_, err := create.Call(t.Context(), agent.FunctionCall{
		Name:      "create_bot",
		Arguments: `{"name":"First"}`,
	})
	require.NoError(t, err)

	// pool had a single token
	_, err = create.Call(t.Context(), agent.FunctionCall{
		Name:      "create_bot",
		Arguments: `{"name":"Second"}`,
	})
	assert.ErrorIs(t, err, spawner.ErrPoolExhausted)
	assert.Equal(t, 1, p.Stats().ActiveBots)
}

func TestPoolStatsTool(t *testing.T) {
	_, tools := newFixture(t)
	stats := toolByName(t, tools, "pool_stats")

	res, err := stats.Call(t.Context(), agent.FunctionCall{Name: "pool_stats"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Output["available_tokens"])
	assert.Equal(t, 0, res.Output["active_bots"])
}

func TestCreateBot_BadArguments(t *testing.T) {
	_, tools := newFixture(t)
	create := toolByName(t, tools, "create_bot")

	_, err := create.Call(t.Context(), agent.FunctionCall{
		Name:      "create_bot",
		Arguments: `{"name":`,
	})
	assert.Error(t, err)
}
