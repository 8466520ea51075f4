package channel

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tokosegar/tokobot/internal/bus"
	"github.com/tokosegar/tokobot/internal/config"
)

const telegramName = "telegram"

// Telegram caps a single message at 4096 chars; we split a little below
// that so the HTML tags never straddle a boundary.
const telegramChunkLimit = 4000

// TelegramBot is the slice of the bot API the channel needs. Tests swap
// in a mock through SetBot or a BotFactory.
type TelegramBot interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetSelf() tgbotapi.User
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
}

// BotFactory builds a TelegramBot from a token.
type BotFactory func(token, apiEndpoint string, client *http.Client) (TelegramBot, error)

// botClient adapts tgbotapi.BotAPI to the TelegramBot interface.
type botClient struct {
	api *tgbotapi.BotAPI
}

func (b *botClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return b.api.GetUpdatesChan(cfg)
}

func (b *botClient) StopReceivingUpdates() { b.api.StopReceivingUpdates() }

func (b *botClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) { return b.api.Send(c) }

func (b *botClient) GetSelf() tgbotapi.User { return b.api.Self }

func (b *botClient) GetFile(cfg tgbotapi.FileConfig) (tgbotapi.File, error) {
	return b.api.GetFile(cfg)
}

func newBotAPI(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &botClient{api: api}, nil
}

type TelegramChannel struct {
	BaseChannel
	token      string
	bot        TelegramBot
	proxy      string
	locale     string
	httpClient *http.Client
	cancel     context.CancelFunc
	botFactory BotFactory
}

func NewTelegramChannel(cfg config.TelegramConfig, locale string, b *bus.MessageBus) (*TelegramChannel, error) {
	return NewTelegramChannelWithFactory(cfg, locale, b, newBotAPI)
}

// NewTelegramChannelWithFactory lets tests inject a fake bot constructor.
func NewTelegramChannelWithFactory(cfg config.TelegramConfig, locale string, b *bus.MessageBus, factory BotFactory) (*TelegramChannel, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}

	return &TelegramChannel{
		BaseChannel: NewBaseChannel(telegramName, b, cfg.AllowFrom),
		token:       cfg.Token,
		proxy:       cfg.Proxy,
		locale:      locale,
		httpClient:  http.DefaultClient,
		botFactory:  factory,
	}, nil
}

// SetBot replaces the bot instance (for testing).
func (t *TelegramChannel) SetBot(bot TelegramBot) {
	t.bot = bot
}

func (t *TelegramChannel) connect() error {
	client := http.DefaultClient
	if t.proxy != "" {
		proxyURL, err := url.Parse(t.proxy)
		if err != nil {
			return fmt.Errorf("parse proxy url: %w", err)
		}
		client = &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}
	t.httpClient = client

	bot, err := t.botFactory(t.token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}
	t.bot = bot
	log.Printf("[telegram] authorized as @%s", bot.GetSelf().UserName)
	return nil
}

func (t *TelegramChannel) Start(ctx context.Context) error {
	if err := t.connect(); err != nil {
		return err
	}

	ctx, t.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case update := <-updates:
				if update.Message == nil {
					continue
				}
				t.handleMessage(update.Message)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Printf("[telegram] polling started")
	return nil
}

func (t *TelegramChannel) Stop() error {
	if t.cancel != nil {
		t.cancel()
	}
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
	log.Printf("[telegram] stopped")
	return nil
}

func (t *TelegramChannel) handleMessage(msg *tgbotapi.Message) {
	senderID := strconv.FormatInt(msg.From.ID, 10)
	if !t.IsAllowed(senderID) {
		log.Printf("[telegram] rejected message from %s (%s)", senderID, msg.From.UserName)
		return
	}

	content := msg.Text
	if content == "" && msg.Caption != "" {
		content = msg.Caption
	}

	inbound := bus.InboundMessage{
		Channel:   telegramName,
		SenderID:  senderID,
		ChatID:    strconv.FormatInt(msg.Chat.ID, 10),
		Content:   content,
		Locale:    t.locale,
		Timestamp: time.Unix(int64(msg.Date), 0),
		Metadata: map[string]any{
			"username":   msg.From.UserName,
			"first_name": msg.From.FirstName,
			"message_id": msg.MessageID,
		},
	}
	if code := msg.From.LanguageCode; code == "id" || code == "en" {
		inbound.Locale = code
	}

	// Voice notes become voice-command turns.
	if msg.Voice != nil {
		audio, err := t.fetchVoice(msg.Voice.FileID)
		if err != nil {
			log.Printf("[telegram] download voice %s failed: %v", msg.Voice.FileID, err)
		} else {
			mimeType := msg.Voice.MimeType
			if mimeType == "" {
				mimeType = "audio/ogg"
			}
			inbound.Audio = audio
			inbound.AudioMIME = mimeType
			inbound.IsVoice = true
		}
	}

	if inbound.Content == "" && !inbound.IsVoice {
		return
	}

	t.bus.Inbound <- inbound
}

// fetchVoice resolves the file id through the bot API and downloads the
// audio bytes over the channel's HTTP client.
func (t *TelegramChannel) fetchVoice(fileID string) ([]byte, error) {
	if t.bot == nil {
		return nil, fmt.Errorf("telegram bot not initialized")
	}

	file, err := t.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get telegram file: %w", err)
	}

	client := t.httpClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Get(file.Link(t.token))
	if err != nil {
		return nil, fmt.Errorf("download telegram file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download telegram file: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read telegram file body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("telegram file is empty")
	}
	return data, nil
}

func (t *TelegramChannel) Send(msg bus.OutboundMessage) error {
	if t.bot == nil {
		return fmt.Errorf("telegram bot not initialized")
	}

	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", msg.ChatID, err)
	}

	content := toTelegramHTML(msg.Content)
	for len(content) > 0 {
		var chunk string
		chunk, content = nextChunk(content)

		tgMsg := tgbotapi.NewMessage(chatID, chunk)
		tgMsg.ParseMode = tgbotapi.ModeHTML
		if _, err := t.bot.Send(tgMsg); err != nil {
			// Malformed HTML makes Telegram reject the whole message.
			// Resend the untouched text without a parse mode.
			tgMsg.ParseMode = ""
			tgMsg.Text = msg.Content
			if _, err2 := t.bot.Send(tgMsg); err2 != nil {
				return fmt.Errorf("send telegram message: %w", err2)
			}
			return nil
		}
	}
	return nil
}

// nextChunk cuts at most telegramChunkLimit chars off the front of s,
// preferring to break at the last newline inside the window.
func nextChunk(s string) (chunk, rest string) {
	if len(s) <= telegramChunkLimit {
		return s, ""
	}
	cut := telegramChunkLimit
	if idx := strings.LastIndex(s[:telegramChunkLimit], "\n"); idx > 0 {
		cut = idx
	}
	return s[:cut], s[cut:]
}

// toTelegramHTML converts the assistant's light markdown to Telegram HTML.
func toTelegramHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")

	// Bold first so ** is not eaten by the italic pass.
	s = replaceMarker(s, "**", "<b>", "</b>")
	s = replaceMarker(s, "*", "<i>", "</i>")
	return s
}

// replaceMarker rewrites every balanced marker pair as open/close tags.
// An unpaired trailing marker is left alone.
func replaceMarker(s, marker, openTag, closeTag string) string {
	for {
		start := strings.Index(s, marker)
		if start == -1 {
			return s
		}
		end := strings.Index(s[start+len(marker):], marker)
		if end == -1 {
			return s
		}
		end += start + len(marker)
		s = s[:start] + openTag + s[start+len(marker):end] + closeTag + s[end+len(marker):]
	}
}
