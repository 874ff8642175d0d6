package httpserver

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/rcontcode/expense-evolution-ai-sub009/internal/assistant"
	"github.com/rcontcode/expense-evolution-ai-sub009/internal/config"
	"github.com/rcontcode/expense-evolution-ai-sub009/internal/llm"
	"github.com/rcontcode/expense-evolution-ai-sub009/internal/memory"
	"github.com/rcontcode/expense-evolution-ai-sub009/internal/store"
)

// New creates a configured Echo server with the assistant routes.
func New(cfg config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	h := newHandler(cfg)

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/assistant", h.serveWS)
	e.POST("/utterance", h.handleTyped)
	return e
}

// handler owns the shared executor/LLM plus the typed-text session. Each
// websocket connection gets its own pipeline; the typed route shares one.
type handler struct {
	cfg  config.Config
	exec assistant.Executor
	chat assistant.LLM

	mu    sync.Mutex
	typed *assistant.Session
}

func newHandler(cfg config.Config) *handler {
	h := &handler{cfg: cfg}
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		exec, err := store.New(cfg.SupabaseURL, cfg.SupabaseKey, cfg.Language)
		if err != nil {
			log.Printf("httpserver: supabase executor unavailable: %v", err)
		} else {
			h.exec = exec
		}
	}
	if cfg.CerebrasKey != "" {
		h.chat = llm.NewClient(cfg.CerebrasKey, cfg.CerebrasModelID, cfg.Language)
	}
	return h
}

type utteranceRequest struct {
	Text string `json:"text"`
}

type utteranceResponse struct {
	Reply   string `json:"reply"`
	Waiting bool   `json:"waitingConfirmation"`
}

// handleTyped is the typed-text path: no capture, no synthesis, same pipeline.
func (h *handler) handleTyped(c echo.Context) error {
	var req utteranceRequest
	if err := c.Bind(&req); err != nil || req.Text == "" {
		return c.NoContent(http.StatusBadRequest)
	}

	h.mu.Lock()
	if h.typed == nil {
		mem := memory.New(0)
		// The typed session outlives any single request, so its idle expiry
		// sweeps for the lifetime of the server.
		mem.StartSweeper(context.Background())
		h.typed = assistant.New(assistant.Config{
			Lang:     h.cfg.Language,
			Executor: h.exec,
			LLM:      h.chat,
			Memory:   mem,
		})
	}
	sess := h.typed
	h.mu.Unlock()

	reply := sess.HandleUtterance(c.Request().Context(), req.Text)
	return c.JSON(http.StatusOK, utteranceResponse{Reply: reply, Waiting: sess.Waiting()})
}
