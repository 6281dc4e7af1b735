package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// WebhookNotifier posts the message to an incoming-webhook URL (Slack style).
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

func (n *WebhookNotifier) Notify(ctx context.Context, message string) Notification {
	payload := map[string]string{"text": "New site chat message\n" + message}
	status, _, err := postJSON(ctx, n.Client, n.URL, nil, payload)
	if err != nil {
		return Notification{Status: NotifyFailed, Err: err}
	}
	if status < 200 || status >= 300 {
		return Notification{Status: NotifyFailed, Err: fmt.Errorf("webhook (status=%d)", status)}
	}
	return Notification{Status: NotifyDelivered}
}

// ChatCompleter asks an OpenAI-compatible chat completions endpoint for a reply.
type ChatCompleter struct {
	URL          string
	Key          string
	Model        string
	MaxTokens    int
	Temperature  float64
	SystemPrompt string
	Client       *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *ChatCompleter) Complete(ctx context.Context, message string) Completion {
	req := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: c.SystemPrompt},
			{Role: "user", Content: message},
		},
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}
	headers := map[string]string{"authorization": "Bearer " + c.Key}
	status, body, err := postJSON(ctx, c.Client, c.URL, headers, req)
	if err != nil {
		return Completion{Status: CompletionFailed, Err: err}
	}
	if status < 200 || status >= 300 {
		return Completion{Status: CompletionFailed, Err: fmt.Errorf("completion (status=%d)", status)}
	}
	var res chatResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return Completion{Status: CompletionFailed, Err: fmt.Errorf("completion: %w", err)}
	}
	if len(res.Choices) == 0 || res.Choices[0].Message.Content == nil {
		return Completion{Status: CompletionFailed, Err: errors.New("completion: no reply text")}
	}
	text := strings.TrimSpace(*res.Choices[0].Message.Content)
	if text == "" {
		return Completion{Status: CompletionFailed, Err: errors.New("completion: blank reply")}
	}
	return Completion{Status: CompletionGenerated, Text: text}
}

func postJSON(ctx context.Context, hc *http.Client, rawURL string, headers map[string]string, payload any) (int, []byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(b))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("content-type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	res, err := hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return res.StatusCode, nil, err
	}
	return res.StatusCode, body, nil
}
