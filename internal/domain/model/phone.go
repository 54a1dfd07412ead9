package model

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"sms-relay/internal/domain"
)

const MaxMessageLen = 480

// NormalizePhone turns any input holding exactly ten digits into +1XXXXXXXXXX,
// separators ignored. Other inputs must already start with '+' and are kept
// as given.
func NormalizePhone(raw string) (string, error) {
	p := strings.TrimSpace(raw)
	if d := digits(p); len(d) == 10 {
		return "+1" + d, nil
	}
	if strings.HasPrefix(p, "+") {
		return p, nil
	}
	return "", fmt.Errorf("%w: use 10-digit US or E.164", domain.ErrInvalidPhone)
}

// ValidateMessage checks the body length in characters.
func ValidateMessage(msg string) error {
	n := utf8.RuneCountInString(msg)
	if n < 1 || n > MaxMessageLen {
		return fmt.Errorf("%w: message must be 1..%d characters", domain.ErrInvalidArgument, MaxMessageLen)
	}
	return nil
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeChatID accepts a numeric Telegram chat id or an @channel name.
func NormalizeChatID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(id, "@") && len(id) > 1:
		return id, nil
	case strings.HasPrefix(id, "-") && len(id) > 1 && digits(id[1:]) == id[1:]:
		return id, nil
	case id != "" && digits(id) == id:
		return id, nil
	}
	return "", fmt.Errorf("%w: chat id must be numeric or @channel", domain.ErrInvalidPhone)
}

// DestinationNormalizer picks the destination check for a provider.
func DestinationNormalizer(provider string) func(string) (string, error) {
	if provider == "telegram" {
		return NormalizeChatID
	}
	return NormalizePhone
}
