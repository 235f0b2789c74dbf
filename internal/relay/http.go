package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"woosh/internal/domain"
)

const maxErrorBody = 4 << 10

// Error is a non-2xx answer from the relay. It unwraps to
// domain.ErrRelayUnauthorized for 401/403 and domain.ErrRelayUnavailable for
// 5xx, so callers can use errors.Is.
type Error struct {
	Method string
	Path   string
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("relay %s %s: %d: %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("relay %s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

func (e *Error) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return domain.ErrRelayUnauthorized
	case e.Status >= 500:
		return domain.ErrRelayUnavailable
	}
	return nil
}

// HTTP is a domain.RelayClient speaking JSON over HTTP with a bearer token.
type HTTP struct {
	Base   string
	HTTP   *http.Client
	Tokens domain.TokenStore
}

// NewHTTP returns a client for the relay at base. tokens supplies the bearer
// token for every request; a nil TokenStore sends none.
func NewHTTP(base string, tokens domain.TokenStore, timeout time.Duration) *HTTP {
	return &HTTP{
		Base:   strings.TrimRight(base, "/"),
		HTTP:   &http.Client{Timeout: timeout},
		Tokens: tokens,
	}
}

var _ domain.RelayClient = (*HTTP)(nil)

// InitChat posts our DH public key for a conversation with req.PeerEmail.
func (c *HTTP) InitChat(ctx context.Context, req domain.InitChatRequest) (domain.InitChatResponse, error) {
	var out domain.InitChatResponse
	err := c.do(ctx, http.MethodPost, "/chat/init", req, &out)
	return out, err
}

// FetchMessages returns the chat key and every live message in chat.
func (c *HTTP) FetchMessages(ctx context.Context, chat domain.ChatID) (domain.MessagesResponse, error) {
	var out domain.MessagesResponse
	err := c.do(ctx, http.MethodGet, chatPath(chat, "messages"), nil, &out)
	return out, err
}

// SendMessage posts an encrypted envelope to chat.
func (c *HTTP) SendMessage(ctx context.Context, chat domain.ChatID, envelope string) (domain.SendMessageResponse, error) {
	var out domain.SendMessageResponse
	err := c.do(ctx, http.MethodPost, chatPath(chat, "send"),
		domain.SendMessageRequest{EncryptedMessage: envelope}, &out)
	return out, err
}

// MarkAllRead marks the peer's unread messages read and starts their expiry.
func (c *HTTP) MarkAllRead(ctx context.Context, chat domain.ChatID) (domain.MarkReadResponse, error) {
	var out domain.MarkReadResponse
	err := c.do(ctx, http.MethodPost, chatPath(chat, "mark-all-read"), nil, &out)
	return out, err
}

// ListChats returns the caller's conversations.
func (c *HTTP) ListChats(ctx context.Context) ([]domain.ChatSummary, error) {
	var out domain.ChatList
	if err := c.do(ctx, http.MethodGet, "/chat/list", nil, &out); err != nil {
		return nil, err
	}
	return out.Chats, nil
}

// ChatDetails returns participants and key for chat.
func (c *HTTP) ChatDetails(ctx context.Context, chat domain.ChatID) (domain.ChatDetails, error) {
	var out domain.ChatDetails
	err := c.do(ctx, http.MethodGet, chatPath(chat, ""), nil, &out)
	return out, err
}

func chatPath(chat domain.ChatID, action string) string {
	p := "/chat/" + url.PathEscape(string(chat))
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *HTTP) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return err
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Tokens != nil {
		tok, err := c.Tokens.Token()
		if err != nil {
			return fmt.Errorf("relay: load token: %w", err)
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("relay %s %s: %v: %w", method, path, err, domain.ErrRelayUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return &Error{Method: method, Path: path, Status: resp.StatusCode, Detail: readDetail(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("relay %s %s: decode: %w", method, path, err)
	}
	return nil
}

// readDetail extracts the "detail" (or "error") field from an error body,
// falling back to the trimmed text.
func readDetail(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(b, &payload); err == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(b))
}

// IsUnauthorized reports whether err came from a 401/403 answer.
func IsUnauthorized(err error) bool { return errors.Is(err, domain.ErrRelayUnauthorized) }
