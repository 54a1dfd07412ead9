// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// SendGuard suppresses identical sends to the same destination within ttl.
// The marker is a SETNX lock that expires on its own; a failed send releases
// it so the caller can retry.
type SendGuard struct {
	client Client
	ttl    time.Duration
}

func NewSendGuard(c Client, ttl time.Duration) *SendGuard {
	return &SendGuard{client: c, ttl: ttl}
}

// Acquire returns ok=false when the same message was sent recently.
func (g *SendGuard) Acquire(ctx context.Context, destination, message string) (token string, ok bool, err error) {
	if g.ttl <= 0 {
		return "", true, nil
	}
	token = uuid.NewString()
	ok, err = g.client.SetNX(ctx, DedupKey(destination, message), token, g.ttl)
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// Release drops the marker if it still carries token.
func (g *SendGuard) Release(ctx context.Context, destination, message, token string) error {
	if token == "" {
		return nil
	}
	_, err := g.client.CompareAndDelete(ctx, DedupKey(destination, message), token)
	return err
}

func DedupKey(destination, message string) string {
	sum := sha256.Sum256([]byte(destination + "\x00" + message))
	return "send:dedup:" + hex.EncodeToString(sum[:])
}
