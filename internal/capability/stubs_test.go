package capability

import "errors"

// Object graphs used across the package tests.

type cycleA struct{ B *cycleB }

type cycleB struct {
	A    *cycleA
	sent int
}

func (b *cycleB) SendText(to, body string) error {
	b.sent++
	return nil
}

type level struct {
	Next *level
	id   int
}

func (l *level) SendMessage(to, msg string) error { return nil }

func chain(n int) *level {
	root := &level{}
	cur := root
	for i := 1; i < n; i++ {
		cur.Next = &level{id: i}
		cur = cur.Next
	}
	return root
}

type smsAPI struct{ calls int }

func (a *smsAPI) SendSMS(to, msg string) error {
	a.calls++
	return nil
}

type innerHelper struct{ n int }

func (h *innerHelper) Send(msg string) error { return nil }

type outerHelper struct{ Inner *innerHelper }

type rankClient struct {
	API    *smsAPI
	Helper *outerHelper
}

type messagesAPI struct{ sent []string }

func (m *messagesAPI) Send(to, body string) error {
	m.sent = append(m.sent, to+":"+body)
	return nil
}

type accessorClient struct {
	msgs  *messagesAPI
	calls int
}

func (c *accessorClient) Messages() *messagesAPI {
	c.calls++
	return c.msgs
}

type panickyClient struct{ Status string }

func (c *panickyClient) Outbox() *messagesAPI { panic("not logged in") }

type hiddenClient struct {
	inner *messagesAPI
	Name  string
}

type conversation struct {
	number string
	sent   []string
}

func (c *conversation) Send(text string) error {
	c.sent = append(c.sent, text)
	return nil
}

type conversationsAPI struct{ opened []*conversation }

func (a *conversationsAPI) Create(number string) *conversation {
	c := &conversation{number: number}
	a.opened = append(a.opened, c)
	return c
}

type conversationClient struct{ Conversations *conversationsAPI }

type lockedConversations struct{ n int }

func (l *lockedConversations) Create(number string) (*conversation, error) {
	l.n++
	return nil, errors.New("account locked")
}

type lockedClient struct{ Conversations *lockedConversations }

type statusAPI struct{ n int }

func (s *statusAPI) Ping() error                       { return nil }
func (s *statusAPI) Lookup(id string) (string, error) { return id, nil }

type silentClient struct{ Status *statusAPI }

type flakyClient struct{ primary, secondary int }

func (c *flakyClient) SendSMS(to, msg string) error {
	c.primary++
	return errors.New("gateway timeout")
}

func (c *flakyClient) SendText(to, msg string) error {
	c.secondary++
	return nil
}

type brokenClient struct{ hits int }

func (c *brokenClient) SendMessage(to, msg string) error {
	c.hits++
	return errors.New("upstream 503")
}

func (c *brokenClient) SendSMS(chatID int64) error { return nil }

type receipt struct{ ID string }

// outbox has zero-argument methods that act on the account when called.
type outbox struct{ flushed, loggedOut, sentNow int }

func (o *outbox) SendQueued() int { o.flushed++; return 0 }
func (o *outbox) Logout() bool    { o.loggedOut++; return true }
func (o *outbox) SendNow() *receipt {
	o.sentNow++
	return &receipt{ID: "r1"}
}

type quotaError struct{ reason string }

func (e *quotaError) Error() string { return "quota: " + e.reason }
