// internal/adapters/telegram/client.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Config struct {
	Token  string
	ChatID string
	// Endpoint overrides the Bot API URL template, e.g. for a local bot server.
	Endpoint string
	Timeout  time.Duration
}

// Client sends HTML messages to a single chat or channel. The bot handshake
// (getMe) happens on the first send and is retried on later sends until it
// succeeds, so Telegram being down at startup is not fatal.
type Client struct {
	cfg      Config
	chatID   int64
	username string

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Token == "" || cfg.ChatID == "" {
		return nil, errors.New("telegram token and chat id must be configured")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &Client{cfg: cfg}
	if id, err := strconv.ParseInt(strings.TrimSpace(cfg.ChatID), 10, 64); err == nil {
		c.chatID = id
	} else {
		c.username = strings.TrimSpace(cfg.ChatID)
	}
	return c, nil
}

// SendPhoto lets Telegram fetch imageURL itself; an unreachable or oversized image fails here.
func (c *Client) SendPhoto(ctx context.Context, imageURL, caption string) error {
	photo := tgbotapi.NewPhoto(c.chatID, tgbotapi.FileURL(imageURL))
	photo.ChannelUsername = c.username
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	return c.send(ctx, photo)
}

func (c *Client) SendText(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ChannelUsername = c.username
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return c.send(ctx, msg)
}

func (c *Client) send(ctx context.Context, chattable tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bot, err := c.connect()
	if err != nil {
		return err
	}
	if _, err := bot.Send(chattable); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}

func (c *Client) connect() (*tgbotapi.BotAPI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bot != nil {
		return c.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(c.cfg.Token, c.cfg.Endpoint, &http.Client{Timeout: c.cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("telegram: connect bot: %w", err)
	}
	c.bot = bot
	return bot, nil
}
