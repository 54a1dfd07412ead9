package textnow

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"sms-relay/internal/config"
	"sms-relay/internal/domain/ports/adapter"
)

var _ adapter.ClientProvider = (*Provider)(nil)

var (
	ErrMissingCredentials = errors.New("TEXTNOW_EMAIL (and TEXTNOW_PASSWORD) or TEXTNOW_SID_COOKIE must be set")
	ErrMissingPassword    = errors.New("TEXTNOW_PASSWORD must be set when using TEXTNOW_EMAIL auth")
)

// Provider builds TextNow sessions from either a session cookie or an
// email/password login. The cookie wins when both are configured.
type Provider struct {
	cfg  config.TextNowConfig
	http *http.Client
}

func NewProvider(cfg config.TextNowConfig, hc *http.Client) *Provider {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Provider{cfg: cfg, http: hc}
}

func (p *Provider) Name() string { return config.ProviderTextNow }

func (p *Provider) NewClient(ctx context.Context) (any, error) {
	if p.cfg.Email == "" && p.cfg.SIDCookie == "" {
		return nil, ErrMissingCredentials
	}
	base := strings.TrimRight(p.cfg.BaseURL, "/")

	sid := p.cfg.SIDCookie
	if sid == "" {
		if p.cfg.Password == "" {
			return nil, ErrMissingPassword
		}
		var err error
		if sid, err = login(ctx, p.http, base, p.cfg.Email, p.cfg.Password); err != nil {
			return nil, err
		}
	}

	c := &Client{baseURL: base, sid: sid, http: p.http, now: time.Now}
	c.Username = p.cfg.Username
	if c.Username == "" {
		c.Username = localPart(p.cfg.Email)
	}
	if c.Username == "" {
		u, err := c.whoami(ctx)
		if err != nil {
			return nil, err
		}
		c.Username = u
	}
	return c, nil
}

func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
