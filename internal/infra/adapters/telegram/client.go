package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sms-relay/internal/config"
	"sms-relay/internal/domain"
	"sms-relay/internal/domain/ports/adapter"
)

var _ adapter.ClientProvider = (*Provider)(nil)

var ErrMissingToken = errors.New("TELEGRAM_BOT_TOKEN must be set")

// Client sends text messages as a Telegram bot.
type Client struct {
	BotName string

	bot *tgbotapi.BotAPI
}

// SendMessage posts text to a numeric chat id or a @channel username.
func (c *Client) SendMessage(chatID, text string) error {
	var msg tgbotapi.MessageConfig
	if strings.HasPrefix(chatID, "@") {
		msg = tgbotapi.NewMessageToChannel(chatID, text)
	} else {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return fmt.Errorf("telegram: chat id %q: %w", chatID, err)
		}
		msg = tgbotapi.NewMessage(id, text)
	}
	if _, err := c.bot.Send(msg); err != nil {
		if unauthorized(err) {
			return fmt.Errorf("%w: %w", domain.ErrSessionRejected, err)
		}
		return err
	}
	return nil
}

// unauthorized reports a revoked or invalid bot token.
func unauthorized(err error) bool {
	var pe *tgbotapi.Error
	if errors.As(err, &pe) {
		return pe.Code == http.StatusUnauthorized
	}
	var ve tgbotapi.Error
	if errors.As(err, &ve) {
		return ve.Code == http.StatusUnauthorized
	}
	return false
}

// Provider builds bot clients; creating one calls getMe to verify the token.
type Provider struct {
	cfg config.TelegramConfig
}

func NewProvider(cfg config.TelegramConfig) *Provider {
	return &Provider{cfg: cfg}
}

func (p *Provider) Name() string { return config.ProviderTelegram }

func (p *Provider) NewClient(ctx context.Context) (any, error) {
	if p.cfg.Token == "" {
		return nil, ErrMissingToken
	}
	endpoint := p.cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(p.cfg.Token, endpoint)
	if err != nil {
		return nil, err
	}
	return &Client{BotName: bot.Self.UserName, bot: bot}, nil
}
