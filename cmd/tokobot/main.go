package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tokosegar/tokobot/internal/agent"
	"github.com/tokosegar/tokobot/internal/catalog"
	"github.com/tokosegar/tokobot/internal/config"
	"github.com/tokosegar/tokobot/internal/gateway"
	"github.com/tokosegar/tokobot/internal/llm"
	"github.com/tokosegar/tokobot/internal/memory"
	"github.com/tokosegar/tokobot/internal/turn"
)

// ChatOptions for running the chat command with custom dependencies
type ChatOptions struct {
	Service *turn.Service
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

var rootCmd = &cobra.Command{
	Use:   "tokobot",
	Short: "tokobot - Toko Segar shopping assistant",
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant in single message or REPL mode",
	RunE:  runChat,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the full gateway (HTTP API + channels + cron)",
	RunE:  runServe,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config and data directory",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tokobot status",
	RunE:  runStatus,
}

var messageFlag string

func init() {
	chatCmd.Flags().StringVarP(&messageFlag, "message", "m", "", "Single message to send")
	rootCmd.AddCommand(chatCmd, serveCmd, onboardCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLocalService builds the same stack the gateway uses, minus the
// HTTP and channel surfaces, for CLI use.
func newLocalService(cfg *config.Config) (*turn.Service, func(), error) {
	dbPath := cfg.Store.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(config.ConfigDir(), "data", "tokobot.db")
	}

	store, err := catalog.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog store: %w", err)
	}
	if err := store.Seed(context.Background()); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("seed catalog: %w", err)
	}

	ttl, err := time.ParseDuration(cfg.Assistant.HistoryTTL)
	if err != nil {
		ttl, _ = time.ParseDuration(config.DefaultHistoryTTL)
	}
	hist, err := memory.NewSQLiteStore(dbPath, cfg.Assistant.HistoryLimit, ttl)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("open memory store: %w", err)
	}

	provider := llm.NewProvider(cfg.Provider, cfg.Assistant.Locale)
	orch := agent.NewOrchestrator(store, provider, cfg.Assistant.Temperature, cfg.Assistant.MaxTokens)
	svc := turn.NewService(orch, hist, store, cfg.Assistant.Locale)

	cleanup := func() {
		_ = hist.Close()
		_ = store.Close()
	}
	return svc, cleanup, nil
}

// runChat is the command handler that uses default options
func runChat(cmd *cobra.Command, args []string) error {
	return runChatWithOptions(ChatOptions{})
}

// runChatWithOptions runs chat with injectable dependencies for testing
func runChatWithOptions(opts ChatOptions) error {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	svc := opts.Service
	if svc == nil {
		local, cleanup, err := newLocalService(cfg)
		if err != nil {
			return err
		}
		defer cleanup()
		svc = local
	}

	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	ctx := context.Background()
	sessionID := "cli-" + uuid.NewString()

	// Single message mode
	if messageFlag != "" {
		res := svc.Handle(ctx, turn.Request{Text: messageFlag, SessionID: sessionID})
		fmt.Fprintln(stdout, res.ResponseText)
		return nil
	}

	// REPL mode
	fmt.Fprintln(stdout, "tokobot chat (type 'exit' to quit)")
	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		res := svc.Handle(ctx, turn.Request{Text: input, SessionID: sessionID})
		fmt.Fprintf(stdout, "[%s] %s\n", res.Intent, res.ResponseText)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	return gw.Run(context.Background())
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(filepath.Join(cfgDir, "data"), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to set your API keys\n", cfgPath)
	fmt.Println("  2. Or set GEMINI_API_KEY / GROQ_API_KEY environment variables")
	fmt.Println("  3. Run 'tokobot chat -m \"halo\"' to test")

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	dbPath := cfg.Store.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(config.ConfigDir(), "data", "tokobot.db")
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Locale: %s\n", cfg.Assistant.Locale)
	fmt.Printf("Primary model: %s\n", cfg.Provider.Primary.Model)
	fmt.Printf("Primary key: %s\n", maskKey(cfg.Provider.Primary.APIKey))
	fmt.Printf("Fallback model: %s (%s)\n", cfg.Provider.Fallback.Model, cfg.Provider.Fallback.BaseURL)
	fmt.Printf("Fallback key: %s\n", maskKey(cfg.Provider.Fallback.APIKey))
	fmt.Printf("Telegram: enabled=%v\n", cfg.Channels.Telegram.Enabled)
	fmt.Printf("Gateway: %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)

	if _, err := os.Stat(dbPath); err != nil {
		fmt.Printf("Store: %s (not created yet, run 'tokobot onboard')\n", dbPath)
	} else {
		fmt.Printf("Store: %s\n", dbPath)
	}

	return nil
}

func maskKey(key string) string {
	if key == "" {
		return "not set"
	}
	if len(key) <= 8 {
		return "set"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
