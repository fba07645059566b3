// Package completion реализует клиент внешнего сервиса генерации текста
// (Azure OpenAI completions API). Клиент строит промпт из текста поста и
// флагов оформления, выполняет запрос с тайм-аутом и возвращает один
// вариант переписанного текста без начальных и конечных пробелов.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/linkedrite/linkedrite/internal/config"
)

// ErrorKind классифицирует ошибку внешнего сервиса.
type ErrorKind string

const (
	// KindTimeout — запрос не уложился в тайм-аут.
	KindTimeout ErrorKind = "timeout"
	// KindUpstream — сервис ответил ошибкой или недоступен.
	KindUpstream ErrorKind = "upstream_failure"
	// KindInvalidResponse — ответ сервиса не удалось разобрать.
	KindInvalidResponse ErrorKind = "invalid_response"
)

// Error описывает ошибку обращения к сервису генерации.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("completion: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Client выполняет запросы к развёрнутой модели.
type Client struct {
	cfg    config.Completion
	client *http.Client
}

// New создаёт клиент с тайм-аутом запроса из конфигурации.
func New(cfg config.Completion) *Client {
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

const basePrompt = "Consider yourself writing a LinkedIn post now. Rewrite the following text and make it more engaging and attractive. Correct the grammar. It should have a professional tone. The post is public, it should be in indirect speech. It should be clear and precise. Only return the rewritten text."

// BuildPrompt собирает промпт из текста поста и флагов оформления.
// Флаги подмешиваются в инструкцию текстом, после чего добавляется сам пост.
func BuildPrompt(postInput string, emojiNeeded, htagNeeded bool) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	if emojiNeeded {
		b.WriteString(" Add emojis to make it more engaging.")
	}
	if htagNeeded {
		b.WriteString(" Add relevant hashtags at the end of the post.")
	}
	b.WriteString("\nNow rewrite this text: ")
	b.WriteString(postInput)
	return b.String()
}

type completionRequest struct {
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

// Generate отправляет промпт и возвращает сгенерированный текст.
// Ошибки классифицируются через *Error: timeout, upstream_failure
// или invalid_response.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/openai/deployments/%s/completions?api-version=%s",
		strings.TrimRight(c.cfg.Endpoint, "/"), c.cfg.DeploymentName, c.cfg.APIVersion)

	payload, err := json.Marshal(completionRequest{
		Prompt:    prompt,
		MaxTokens: c.cfg.MaxTokens,
	})
	if err != nil {
		return "", &Error{Kind: KindInvalidResponse, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", &Error{Kind: KindUpstream, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return "", &Error{Kind: KindTimeout, Err: err}
		}
		return "", &Error{Kind: KindUpstream, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &Error{Kind: KindUpstream, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var result completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &Error{Kind: KindInvalidResponse, Err: err}
	}
	if len(result.Choices) == 0 {
		return "", &Error{Kind: KindInvalidResponse, Err: errors.New("response contains no choices")}
	}

	return strings.TrimSpace(result.Choices[0].Text), nil
}
