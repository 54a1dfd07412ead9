// Package adapters selects the messaging provider named in config.
package adapters

import (
	"fmt"
	"net/http"
	"time"

	"sms-relay/internal/config"
	"sms-relay/internal/domain"
	"sms-relay/internal/domain/ports/adapter"
	"sms-relay/internal/infra/adapters/telegram"
	"sms-relay/internal/infra/adapters/textnow"
)

func NewProvider(cfg *config.Config, hc *http.Client) (adapter.ClientProvider, error) {
	switch cfg.Provider.Kind {
	case config.ProviderTextNow:
		if hc == nil {
			hc = &http.Client{Timeout: 15 * time.Second}
		}
		return textnow.NewProvider(cfg.TextNow, hc), nil
	case config.ProviderTelegram:
		return telegram.NewProvider(cfg.Telegram), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrConfiguration, cfg.Provider.Kind)
	}
}
