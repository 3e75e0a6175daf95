package telebot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minimancer/botmother/api"
	tele "gopkg.in/telebot.v4"
)

// Handle wires the mother control bot. Commands hit the REST API
// directly; free text goes through the conversational agent so the
// model can decide which bot tool to use.
func Handle(ctx context.Context, bot *tele.Bot, mother *api.Client, cache *ChatCache) {
	bot.Handle("/start", func(c tele.Context) error {
		slog.Info("GOT Start")
		return c.Send("hi.. I am BotMother. Tell me what bot you want, or use /newbot, /stopbot, /listbots, /poolstats.")
	})

	bot.Handle("/count", func(c tele.Context) error {
		n := cache.CountMessages(c.Chat().ID)
		return c.Send(fmt.Sprintf("%d", n))
	})

	bot.Handle("/clear", func(c tele.Context) error {
		_ = cache.Clear(c.Chat().ID)
		return c.Send("context clear")
	})

	h := Handler{
		ctx:    ctx,
		mother: mother,
		cache:  cache,
	}

	bot.Handle("/newbot", h.HandleNewBot)
	bot.Handle("/stopbot", h.HandleStopBot)
	bot.Handle("/listbots", h.HandleListBots)
	bot.Handle("/poolstats", h.HandlePoolStats)
	bot.Handle(tele.OnText, h.HandleText)
}

type Handler struct {
	ctx    context.Context
	mother *api.Client
	cache  *ChatCache
}

// HandleNewBot deploys a bot directly: /newbot <name> [personality]
func (h *Handler) HandleNewBot(c tele.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return c.Send("usage: /newbot <name> [personality]")
	}

	req := api.CreateBotRequest{
		Name:   args[0],
		UserID: fmt.Sprintf("%d", c.Sender().ID),
	}
	if len(args) > 1 {
		req.Kind = "personality"
		req.Personality = args[1]
	}

	bot, err := h.mother.CreateBot(h.ctx, req)
	if err != nil {
		slog.Error("failed create bot", "error", err)
		return c.Send(fmt.Sprintf("could not create bot: %v", err))
	}
	if bot.Link != "" {
		return c.Send(fmt.Sprintf("%s is %s: %s", bot.Name, bot.Status, bot.Link))
	}
	return c.Send(fmt.Sprintf("%s is %s", bot.Name, bot.Status))
}

func (h *Handler) HandleStopBot(c tele.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return c.Send("usage: /stopbot <name>")
	}
	if err := h.mother.StopBot(h.ctx, args[0]); err != nil {
		slog.Error("failed stop bot", "error", err)
		return c.Send(fmt.Sprintf("could not stop %s", args[0]))
	}
	return c.Send(fmt.Sprintf("%s stopped", args[0]))
}

func (h *Handler) HandleListBots(c tele.Context) error {
	bots, err := h.mother.ListBots(h.ctx)
	if err != nil {
		slog.Error("failed list bots", "error", err)
		return c.Send("service unavailable")
	}
	if len(bots) == 0 {
		return c.Send("no bots deployed yet")
	}

	var sb strings.Builder
	for _, b := range bots {
		fmt.Fprintf(&sb, "%s (%s)", b.Name, b.Status)
		if b.Link != "" {
			fmt.Fprintf(&sb, " %s", b.Link)
		}
		sb.WriteString("\n")
	}
	return c.Send(sb.String())
}

func (h *Handler) HandlePoolStats(c tele.Context) error {
	stats, err := h.mother.PoolStats(h.ctx)
	if err != nil {
		slog.Error("failed pool stats", "error", err)
		return c.Send("service unavailable")
	}
	return c.Send(fmt.Sprintf(
		"tokens: %d total, %d available, %d allocated\nbots: %d",
		stats.TotalTokens, stats.AvailableTokens, stats.AllocatedTokens, stats.ActiveBots,
	))
}

func (h *Handler) HandleText(c tele.Context) error {
	slog.Info("GOT TEXT")

	res, err := h.do(h.ctx, c.Chat().ID, api.NewTextMessage("user", c.Text()))
	if err != nil {
		slog.Error("failed completion", "error", err)
		return c.Send("service unavailable")
	}
	return c.Send(res.Text)
}

func (h *Handler) do(ctx context.Context, id int64, query *api.Message) (*api.ChatResponse, error) {
	sc := h.cache.Get(id)
	sc.Add(*query)

	resp, err := h.mother.Chat(ctx, api.ChatRequest{
		Content: sc.Messages(),
	})
	if err != nil {
		return nil, err
	}

	resp.Text = ParseThink(resp.Text)
	sc.Add(*api.NewTextMessage("assistant", resp.Text))
	return resp, nil
}

// ParseThink strips a leading reasoning block some models emit.
func ParseThink(msg string) string {
	close := "</think>"
	idx := strings.Index(msg, close)
	if idx != -1 {
		return strings.TrimSpace(msg[idx+len(close):])
	}
	return msg
}
