package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kittynXR/mewbot/pkg/memory"
	"github.com/kittynXR/mewbot/pkg/tools"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	URL         string `yaml:"url"`
	AccessToken string `yaml:"access_token"`

	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`

	SystemPrompt string `yaml:"system_prompt"`

	HistorySize     int `yaml:"history_size"`
	UserHistorySize int `yaml:"user_history_size"`
}

// Client talks to an OpenAI-compatible chat completions endpoint and keeps a
// bounded conversation history plus the per-user remainder stash for split
// long responses.
type Client struct {
	httpClient HTTPClient
	cfg        *Config

	history *memory.Memory

	remainders     map[string]string
	remaindersLock sync.Mutex
}

func New(httpClient HTTPClient, cfg *Config) *Client {
	historySz := cfg.HistorySize
	if historySz <= 0 {
		historySz = 20
	}

	userHistorySz := cfg.UserHistorySize
	if userHistorySz <= 0 {
		userHistorySz = 5
	}

	return &Client{
		httpClient: httpClient,
		cfg:        cfg,

		history: memory.New(historySz, userHistorySz),

		remainders: make(map[string]string),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate produces a response for prompt. When useHistory is set, the shared
// conversation window keyed by user is included and the exchange is recorded
// back into it.
func (c *Client) Generate(ctx context.Context, user, prompt string, useHistory bool) (string, error) {
	messages := make([]chatMessage, 0, 16)

	if c.cfg.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: c.cfg.SystemPrompt})
	}

	if useHistory {
		for _, msg := range c.history.GetCombinedMem(user) {
			messages = append(messages, chatMessage{Role: msg.Role, Content: msg.Msg})
		}
	}

	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	answer, err := c.chat(ctx, messages)
	if err != nil {
		return "", err
	}

	if useHistory {
		c.history.Push(user, "user", prompt)
		c.history.Push(user, "assistant", answer)
	}

	return answer, nil
}

func (c *Client) chat(ctx context.Context, messages []chatMessage) (string, error) {
	req := &chatRequest{
		Model:     c.cfg.Model,
		Messages:  messages,
		MaxTokens: c.cfg.MaxTokens,
	}
	if c.cfg.Temperature != 0 {
		req.Temperature = &c.cfg.Temperature
	}

	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request struct: %w", err)
	}

	url := strings.TrimRight(c.cfg.URL, "/") + "/v1/chat/completions"
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create chat http request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")
	if c.cfg.AccessToken != "" {
		request.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	}

	start := time.Now()

	response, err := c.httpClient.Do(request)
	if err != nil {
		llmErrors.WithLabelValues("transport").Inc()
		return "", fmt.Errorf("failed to do chat http request: %w", err)
	}
	defer tools.DrainAndClose(response.Body)

	responseData, err := io.ReadAll(response.Body)
	if err != nil {
		llmErrors.WithLabelValues("500").Inc()
		return "", fmt.Errorf("failed to read chat http response body: %w", err)
	}

	if response.StatusCode != http.StatusOK {
		llmErrors.WithLabelValues(strconv.Itoa(response.StatusCode)).Inc()
		return "", fmt.Errorf("unexpected status code: %d, body: %s", response.StatusCode, string(responseData))
	}

	var resp chatResponse
	if err := json.Unmarshal(responseData, &resp); err != nil {
		llmErrors.WithLabelValues("500").Inc()
		return "", fmt.Errorf("failed to unmarshal chat http response body: %w", err)
	}

	llmQueryTime.Observe(time.Since(start).Seconds())

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// StoreRemainder stashes the unsent part of a split response for user.
// A later stash overwrites the previous one.
func (c *Client) StoreRemainder(userID, text string) {
	c.remaindersLock.Lock()
	defer c.remaindersLock.Unlock()

	if text == "" {
		delete(c.remainders, userID)
		return
	}

	c.remainders[userID] = text
}

// TakeRemainder pops the stashed remainder for user, if any.
func (c *Client) TakeRemainder(userID string) (string, bool) {
	c.remaindersLock.Lock()
	defer c.remaindersLock.Unlock()

	text, ok := c.remainders[userID]
	delete(c.remainders, userID)

	return text, ok
}
