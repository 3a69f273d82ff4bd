// Package client is a Go consumer of the chat REST surface. It carries the
// reconciliation logic browsers need when real-time delivery degrades to
// polling: ordered views, duplicate suppression and optimistic sends.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Message mirrors the server's message payload.
type Message struct {
	Id          string       `json:"id"`
	ChatId      string       `json:"chatId"`
	Sender      *Sender      `json:"sender,omitempty"`
	Content     string       `json:"content"`
	IsAI        bool         `json:"isAI"`
	Timestamp   time.Time    `json:"timestamp"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type Sender struct {
	Id       string `json:"id,omitempty"`
	Username string `json:"username"`
}

type Attachment struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	MimeType string `json:"mimetype"`
}

// ChatSummary mirrors the server's chat list payload.
type ChatSummary struct {
	Id           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int64     `json:"messageCount"`
	LastMessage  *Message  `json:"lastMessage,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// Client talks to one server with one bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var failure envelope[json.RawMessage]
		if jsonErr := json.Unmarshal(raw, &failure); jsonErr == nil && failure.Message != "" {
			return fmt.Errorf("server: %s (status %d)", failure.Message, resp.StatusCode)
		}
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// Login exchanges credentials for a bearer token.
func Login(ctx context.Context, baseURL, email, password string) (string, error) {
	c := New(baseURL, "")

	var resp envelope[struct {
		AccessToken string `json:"accessToken"`
	}]
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return "", err
	}
	return resp.Data.AccessToken, nil
}

// Register creates an account; the caller still logs in afterwards.
func Register(ctx context.Context, baseURL, username, email, password string) error {
	c := New(baseURL, "")
	body := map[string]string{"username": username, "email": email, "password": password}
	return c.do(ctx, http.MethodPost, "/api/auth/register", body, nil)
}

// ListChats returns the caller's chats, newest activity first.
func (c *Client) ListChats(ctx context.Context) ([]ChatSummary, error) {
	var resp envelope[[]ChatSummary]
	if err := c.do(ctx, http.MethodGet, "/api/chat", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CreateChat starts a conversation; an empty title gets the server default.
func (c *Client) CreateChat(ctx context.Context, title string) (*ChatSummary, error) {
	var resp envelope[ChatSummary]
	body := map[string]string{"title": title}
	if err := c.do(ctx, http.MethodPost, "/api/chat", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// SendMessage appends a message over REST.
func (c *Client) SendMessage(ctx context.Context, chatId, content string, attachments []Attachment) (*Message, error) {
	var resp envelope[Message]
	body := map[string]interface{}{"content": content}
	if len(attachments) > 0 {
		body["attachments"] = attachments
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat/"+chatId+"/messages", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// FetchMessages returns messages after the cursor, or all when cursor is empty.
func (c *Client) FetchMessages(ctx context.Context, chatId, lastMessageId string) ([]Message, error) {
	path := "/api/chat/" + chatId + "/messages"
	if lastMessageId != "" {
		path += "?lastMessageId=" + url.QueryEscape(lastMessageId)
	}

	var resp envelope[[]Message]
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
