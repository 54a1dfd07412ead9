package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sms-relay/internal/config"
	"sms-relay/internal/domain"
)

func TestNewProvider(t *testing.T) {
	for _, kind := range []string{config.ProviderTextNow, config.ProviderTelegram} {
		p, err := NewProvider(&config.Config{Provider: config.ProviderConfig{Kind: kind}}, nil)
		require.NoError(t, err)
		assert.Equal(t, kind, p.Name())
	}

	_, err := NewProvider(&config.Config{Provider: config.ProviderConfig{Kind: "fax"}}, nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
