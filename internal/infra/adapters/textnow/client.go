// File: internal/infra/adapters/textnow/client.go
package textnow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"sms-relay/internal/domain"
)

const sessionCookie = "connect.sid"

// Contact types understood by the messages endpoint.
const contactTypePhone = 2

// APIError is a non-2xx answer from TextNow.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("textnow: http %d: %s", e.Status, e.Body)
}

// Is matches domain.ErrSessionRejected for 401 and 403 answers.
func (e *APIError) Is(target error) bool {
	return target == domain.ErrSessionRejected &&
		(e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden)
}

// Client is an authenticated TextNow web session.
type Client struct {
	Username string

	baseURL string
	sid     string
	http    *http.Client
	now     func() time.Time
}

// SendSMS sends message to a phone number in E.164 form.
func (c *Client) SendSMS(ctx context.Context, to, message string) error {
	payload := map[string]any{
		"contact_value":     to,
		"contact_type":      contactTypePhone,
		"message":           message,
		"read":              1,
		"message_direction": 2,
		"message_type":      1,
		"from_name":         c.Username,
		"has_video":         false,
		"new":               true,
		"date":              c.now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(map[string]any{"json": mustJSON(payload)})
	if err != nil {
		return err
	}
	path := "/api/users/" + url.PathEscape(c.Username) + "/messages"
	return c.do(ctx, http.MethodPost, path, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: c.sid})

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Status: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func mustJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// login exchanges email and password for a session cookie.
func login(ctx context.Context, hc *http.Client, baseURL, email, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": email, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/sessions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &APIError{Status: resp.StatusCode, Body: string(b)}
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == sessionCookie && ck.Value != "" {
			return ck.Value, nil
		}
	}
	return "", errors.New("textnow: login returned no session cookie")
}

// whoami resolves the account username for a session.
func (c *Client) whoami(ctx context.Context) (string, error) {
	var out struct {
		Username string `json:"username"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &out); err != nil {
		return "", err
	}
	if out.Username == "" {
		return "", errors.New("textnow: session has no username")
	}
	return out.Username, nil
}
