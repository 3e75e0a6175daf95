package botmother

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/minimancer/botmother/agent"
	"github.com/minimancer/botmother/api"
	"github.com/minimancer/botmother/botmother/observability"
	"github.com/minimancer/botmother/pool"
	"github.com/minimancer/botmother/spawner"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type Server struct {
	e   *echo.Echo
	bm  *BotMother
	cfg Config

	ctx context.Context
}

func NewHttp(ctx context.Context, cfg Config, opts ...Option) (Server, error) {

	// botmother instance
	bm, err := New(ctx, &cfg, opts...)
	if err != nil {
		return Server{}, err
	}

	// http server
	e := echo.New()
	e.HideBanner = true

	// http handler
	RestHandler(ctx, bm, e)

	return Server{e: e, bm: bm, cfg: cfg, ctx: ctx}, nil
}

func (s *Server) Start() error {
	var err error

	// start observability
	shutdown := observability.Init(s.ctx, "botmother-server", observability.Config{
		Enable:          s.cfg.Observe.Enable,
		Exporter:        s.cfg.Observe.Exporter,
		TraceEndpoint:   s.cfg.Observe.TraceEndpoint,
		MetricsEndpoint: s.cfg.Observe.MetricsEndpoint,
		Secure:          s.cfg.Observe.Secure,
	})

	go func() {
		<-s.ctx.Done()

		slog.Info("shutdown child bots...")
		s.bm.Shutdown()

		slog.Info("shutdown observability providers...")
		if xerr := shutdown(context.Background()); xerr != nil {
			err = errors.Join(err, xerr)
		}

		slog.Info("shutdown http server...")
		if xerr := s.e.Shutdown(context.Background()); xerr != nil {
			err = errors.Join(err, xerr)
		}
	}()

	if xerr := s.e.Start(s.cfg.Server.Address); !errors.Is(xerr, http.ErrServerClosed) {
		err = errors.Join(err, xerr)
		return err
	}
	return err
}

func validateChat(cr *api.ChatRequest) error {
	if len(cr.Content) == 0 {
		return fmt.Errorf("messages cannot be nil")
	}
	for _, msg := range cr.Content {
		if len(msg.Parts) == 0 {
			return fmt.Errorf("some message has no parts")
		}
	}
	return nil
}

func RestHandler(ctx context.Context, bm *BotMother, e *echo.Echo) {
	if e == nil {
		panic("got nil parameter")
	}

	meter := otel.Meter("botmother.rest")
	requestCounter, err := meter.Int64Counter(
		"botmother.http.request_total",
		metric.WithDescription("total number of HTTP request"),
	)
	if err != nil {
		panic(err)
	}

	// otel middleware
	e.Use(otelecho.Middleware("botmother-server"))

	// custom middleware to count requests
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			requestCounter.Add(c.Request().Context(), 1)
			return err
		}
	})

	if _, err := updateRAMUsage(); err != nil {
		slog.Error("failed register ram gauge", "error", err)
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(200, echo.Map{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/v1/chat/completions", handleChat(bm.Agent))

	e.GET("/v1/bots", handleListBots(bm.Pool))
	e.POST("/v1/bots", handleCreateBot(bm.Spawner))
	e.DELETE("/v1/bots/:name", handleStopBot(bm.Spawner))

	e.GET("/v1/pool/stats", handlePoolStats(bm.Pool))
	e.POST("/v1/pool/tokens", handleAddToken(bm.Pool))
	e.DELETE("/v1/pool/tokens", handleRemoveToken(bm.Pool))
	e.POST("/v1/pool/cleanup", handleCleanup(bm.Spawner))
}

func handleChat(a Agent) echo.HandlerFunc {
	return func(c echo.Context) error {
		slog.Debug("got request")
		if ok := IsJsonContentType(c.Request()); !ok {
			return c.JSON(400, echo.Map{"error": "expecting json body"})
		}

		var input api.ChatRequest
		if err := c.Bind(&input); err != nil {
			slog.Error("failed binding", "error", err)
			return c.JSON(400, echo.Map{"error": "bad json format"})
		}
		if err := validateChat(&input); err != nil {
			slog.Error("validate error", "error", err)
			return c.JSON(400, echo.Map{"error": err.Error()})
		}

		msgs := make([]*agent.Message, 0, len(input.Content))
		for _, m := range input.Content {
			am := agent.Message(*m)
			msgs = append(msgs, &am)
		}

		output, err := a.Completion(c.Request().Context(), msgs)
		if err != nil {
			slog.Error("failed completion", "error", err)
			return c.JSON(500, echo.Map{"error": "server unavailable"})
		}

		slog.Debug("request finish")
		return c.JSON(200, api.ChatResponse{
			Created: time.Now(),
			Text:    output.Text(),
		})
	}
}

func handleCreateBot(s *spawner.Spawner) echo.HandlerFunc {
	return func(c echo.Context) error {
		if ok := IsJsonContentType(c.Request()); !ok {
			return c.JSON(400, echo.Map{"error": "expecting json body"})
		}

		var input api.CreateBotRequest
		if err := c.Bind(&input); err != nil {
			return c.JSON(400, echo.Map{"error": "bad json format"})
		}

		inst, err := s.Spawn(c.Request().Context(), spawner.SpawnRequest{
			Name:        input.Name,
			Purpose:     input.Purpose,
			Personality: input.Personality,
			Kind:        spawner.Kind(input.Kind),
			UserID:      input.UserID,
		})
		if err != nil {
			if errors.Is(err, spawner.ErrPoolExhausted) {
				return c.JSON(409, echo.Map{"error": err.Error()})
			}
			return c.JSON(400, echo.Map{"error": err.Error()})
		}
		return c.JSON(201, botView(inst))
	}
}

func handleStopBot(s *spawner.Spawner) echo.HandlerFunc {
	return func(c echo.Context) error {
		name := c.Param("name")
		if !s.Stop(name) {
			return c.JSON(404, echo.Map{"error": fmt.Sprintf("no running bot named %s", name)})
		}
		return c.JSON(200, echo.Map{"stopped": true})
	}
}

func handleListBots(p *pool.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		bots := p.ActiveBots()
		out := api.BotListResponse{Bots: make([]api.BotView, 0, len(bots))}
		for _, b := range bots {
			out.Bots = append(out.Bots, botView(b))
		}
		return c.JSON(200, out)
	}
}

func handlePoolStats(p *pool.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		st := p.Stats()
		breakdown := make(map[string]int, len(st.StatusBreakdown))
		for k, v := range st.StatusBreakdown {
			breakdown[string(k)] = v
		}
		return c.JSON(200, api.PoolStats{
			TotalTokens:     st.TotalTokens,
			AvailableTokens: st.AvailableTokens,
			AllocatedTokens: st.AllocatedTokens,
			ActiveBots:      st.ActiveBots,
			StatusBreakdown: breakdown,
		})
	}
}

func handleAddToken(p *pool.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		var input api.TokenRequest
		if err := c.Bind(&input); err != nil {
			return c.JSON(400, echo.Map{"error": "bad json format"})
		}
		if !p.AddToken(input.Token) {
			return c.JSON(400, echo.Map{"error": "token rejected"})
		}
		return c.JSON(201, echo.Map{"added": true})
	}
}

func handleRemoveToken(p *pool.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		var input api.TokenRequest
		if err := c.Bind(&input); err != nil {
			return c.JSON(400, echo.Map{"error": "bad json format"})
		}
		if !p.RemoveToken(input.Token) {
			return c.JSON(404, echo.Map{"error": "token not in pool"})
		}
		return c.JSON(200, echo.Map{"removed": true})
	}
}

func handleCleanup(s *spawner.Spawner) echo.HandlerFunc {
	return func(c echo.Context) error {
		n := s.Reap()
		return c.JSON(200, api.CleanupResponse{Removed: n})
	}
}

func botView(b *pool.BotInstance) api.BotView {
	v := api.BotView{
		Name:        b.Name,
		Username:    b.Username,
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt,
		Personality: b.PersonalityType,
	}
	if b.Username != "" {
		v.Link = "https://t.me/" + b.Username
	}
	return v
}

// Function to update the RAM usage metric
func updateRAMUsage() (metric.Registration, error) {
	meter := otel.Meter("botmother_rest_server_meter")
	ramUsage, err := meter.Int64ObservableGauge(
		"botmother_ram_usage_bytes",
		metric.WithDescription("Ram usage of the app in bytes"),
	)
	if err != nil {
		return nil, err
	}

	return meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		o.ObserveInt64(ramUsage, int64(stats.Sys))
		return nil
	}, ramUsage)
}

func IsJsonContentType(req *http.Request) bool {
	ct := req.Header.Get("Content-Type")
	return ct == "application/json"
}
