package model

import (
	"time"

	"sms-relay/internal/domain"

	"github.com/oklog/ulid/v2"
)

type SendStatus string

const (
	SendStatusDelivered SendStatus = "delivered" // a candidate accepted the message
	SendStatusFailed    SendStatus = "failed"    // every candidate failed or none was found
	SendStatusRejected  SendStatus = "rejected"  // stopped before reaching the client (rate limit, dedup)
)

// SendRecord is the audit trail of one send request.
type SendRecord struct {
	ID          string // ULID, sortable by creation time
	Provider    string // e.g. "textnow"
	Destination string // normalized, E.164-ish
	MessageLen  int
	Used        string // capability path that accepted the message
	Tried       int    // candidates invoked, conversation makers included
	Status      SendStatus
	Error       string
	Duration    time.Duration
	CreatedAt   time.Time
}

func NewSendRecord(provider, destination string, messageLen int) (*SendRecord, error) {
	if provider == "" || destination == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &SendRecord{
		ID:          ulid.Make().String(),
		Provider:    provider,
		Destination: destination,
		MessageLen:  messageLen,
		CreatedAt:   time.Now(),
	}, nil
}

// Finish stamps the outcome onto the record.
func (r *SendRecord) Finish(status SendStatus, used string, tried int, err error) {
	r.Status = status
	r.Used = used
	r.Tried = tried
	r.Duration = time.Since(r.CreatedAt)
	if err != nil {
		r.Error = err.Error()
	}
}

// SendResult is what a caller gets back from a successful send.
type SendResult struct {
	ID         string `json:"id"`
	To         string `json:"to"`
	MessageLen int    `json:"message_len"`
	Used       string `json:"used"`
	Tried      int    `json:"tried"`
}
