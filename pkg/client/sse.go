package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// aiStreamFrame is one SSE data payload from the completion endpoint.
type aiStreamFrame struct {
	Content string `json:"content"`
	Error   string `json:"error"`
}

// StreamAI consumes the SSE completion endpoint, invoking onChunk per content
// fragment. It returns the accumulated text once the server sends the [DONE]
// sentinel; a server-reported error arrives as a non-nil return error after
// any fragments already relayed.
func (c *Client) StreamAI(ctx context.Context, chatId, message string, onChunk func(string)) (string, error) {
	endpoint := fmt.Sprintf("%s/api/ai/message?chatId=%s&message=%s&token=%s",
		c.baseURL, url.QueryEscape(chatId), url.QueryEscape(message), url.QueryEscape(c.token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("stream rejected with status %d", resp.StatusCode)
	}

	var full strings.Builder
	var streamErr error

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			break
		}

		var frame aiStreamFrame
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			continue
		}

		if frame.Error != "" {
			streamErr = fmt.Errorf("stream error: %s", frame.Error)
			continue
		}
		if frame.Content != "" {
			full.WriteString(frame.Content)
			if onChunk != nil {
				onChunk(frame.Content)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return full.String(), err
	}
	return full.String(), streamErr
}
