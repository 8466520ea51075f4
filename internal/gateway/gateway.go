// Package gateway wires the assistant together: stores, provider,
// orchestrator, turn service, HTTP API, chat channels and cron.
package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tokosegar/tokobot/internal/agent"
	"github.com/tokosegar/tokobot/internal/bus"
	"github.com/tokosegar/tokobot/internal/catalog"
	"github.com/tokosegar/tokobot/internal/channel"
	"github.com/tokosegar/tokobot/internal/config"
	"github.com/tokosegar/tokobot/internal/cron"
	"github.com/tokosegar/tokobot/internal/llm"
	"github.com/tokosegar/tokobot/internal/memory"
	"github.com/tokosegar/tokobot/internal/turn"
)

// ImageProvider is the slice of the model surface the promo-image
// endpoint needs.
type ImageProvider interface {
	GenerateImage(ctx context.Context, prompt, reference string) (*llm.ImageResult, error)
}

// Provider is everything the gateway needs from the model layer.
type Provider interface {
	agent.Provider
	ImageProvider
}

// Options for creating a Gateway
type Options struct {
	Provider   Provider       // injected model provider (for testing)
	SignalChan chan os.Signal // for testing signal handling
}

type Gateway struct {
	cfg      *config.Config
	bus      *bus.MessageBus
	catalog  *catalog.SQLiteStore
	history  *memory.SQLiteStore
	provider Provider
	service  *turn.Service
	channels *channel.ChannelManager
	cron     *cron.Service
	server   *http.Server

	signalChan chan os.Signal // for testing
}

// New creates a Gateway with default options
func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing
func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	g := &Gateway{cfg: cfg}

	g.bus = bus.NewMessageBus(config.DefaultBufSize)

	dbPath := cfg.Store.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(config.ConfigDir(), "data", "tokobot.db")
	}

	store, err := catalog.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog store: %w", err)
	}
	g.catalog = store
	if err := store.Seed(context.Background()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("seed catalog: %w", err)
	}

	ttl, err := time.ParseDuration(cfg.Assistant.HistoryTTL)
	if err != nil {
		log.Printf("[gateway] invalid historyTtl %q, using %s", cfg.Assistant.HistoryTTL, config.DefaultHistoryTTL)
		ttl, _ = time.ParseDuration(config.DefaultHistoryTTL)
	}
	hist, err := memory.NewSQLiteStore(dbPath, cfg.Assistant.HistoryLimit, ttl)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open memory store: %w", err)
	}
	g.history = hist

	g.provider = opts.Provider
	if g.provider == nil {
		g.provider = llm.NewProvider(cfg.Provider, cfg.Assistant.Locale)
	}

	orch := agent.NewOrchestrator(store, g.provider, cfg.Assistant.Temperature, cfg.Assistant.MaxTokens)
	g.service = turn.NewService(orch, hist, store, cfg.Assistant.Locale)

	g.cron = cron.NewService(hist, store)

	chMgr, err := channel.NewChannelManager(cfg.Channels, cfg.Assistant.Locale, g.bus)
	if err != nil {
		return nil, fmt.Errorf("create channel manager: %w", err)
	}
	g.channels = chMgr

	g.signalChan = opts.SignalChan
	return g, nil
}

// Service exposes the turn service for the CLI chat command.
func (g *Gateway) Service() *turn.Service {
	return g.service
}

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go g.bus.DispatchOutbound(ctx)

	if err := g.channels.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	log.Printf("[gateway] channels started: %v", g.channels.EnabledChannels())

	if err := g.cron.Start(ctx); err != nil {
		log.Printf("[gateway] cron start warning: %v", err)
	}

	go g.processLoop(ctx)

	addr := fmt.Sprintf("%s:%d", g.cfg.Gateway.Host, g.cfg.Gateway.Port)
	g.server = &http.Server{Addr: addr, Handler: g.router()}
	go func() {
		log.Printf("[gateway] http api on %s", addr)
		if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[gateway] http server error: %v", err)
		}
	}()

	// Use injected signal channel for testing, or create default
	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	<-sigCh

	log.Printf("[gateway] shutting down...")
	return g.Shutdown()
}

// processLoop feeds channel messages through the turn service.
func (g *Gateway) processLoop(ctx context.Context) {
	for {
		select {
		case msg := <-g.bus.Inbound:
			log.Printf("[gateway] inbound from %s/%s: %s", msg.Channel, msg.SenderID, truncate(msg.Content, 80))

			res := g.service.Handle(ctx, turn.Request{
				Text:      msg.Content,
				Locale:    msg.Locale,
				SessionID: msg.SessionKey(),
				IsVoice:   msg.IsVoice,
				Audio:     msg.Audio,
				AudioMIME: msg.AudioMIME,
			})

			if res.ResponseText != "" {
				g.bus.Outbound <- bus.OutboundMessage{
					Channel: msg.Channel,
					ChatID:  msg.ChatID,
					Content: res.ResponseText,
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (g *Gateway) Shutdown() error {
	if g.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[gateway] http shutdown warning: %v", err)
		}
	}
	g.cron.Stop()
	_ = g.channels.StopAll()
	if g.history != nil {
		if err := g.history.Close(); err != nil {
			log.Printf("[gateway] close memory store warning: %v", err)
		}
	}
	if g.catalog != nil {
		if err := g.catalog.Close(); err != nil {
			log.Printf("[gateway] close catalog store warning: %v", err)
		}
	}
	log.Printf("[gateway] shutdown complete")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
