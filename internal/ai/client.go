package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pablasso/crewflow/internal/logging"
)

const (
	// DefaultBaseURL is the OpenAI API root.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"
	// DefaultTimeout bounds a single completion request.
	DefaultTimeout = 2 * time.Minute
	// DefaultTemperature keeps responses close to deterministic.
	DefaultTemperature = 0.2
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a single completion request.
type ChatRequest struct {
	Messages    []Message
	Temperature float64
	// JSON asks the model for a JSON object response.
	JSON bool
}

// ChatClient sends a conversation to a model and returns the reply text.
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// ClientConfig configures an OpenAIClient.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// APIError is a non-2xx response from the completions endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat completion failed: HTTP %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// OpenAIClient speaks the OpenAI-compatible /chat/completions API.
type OpenAIClient struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	logger  logrus.FieldLogger
}

// NewOpenAIClient creates a client. An API key is required.
func NewOpenAIClient(cfg ClientConfig, logger logrus.FieldLogger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("an API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &OpenAIClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logging.OrDiscard(logger),
	}, nil
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string {
	return c.model
}

type completionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete implements ChatClient.
func (c *OpenAIClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	body := completionRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var parsed completionResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	c.logger.WithFields(logrus.Fields{
		"model":             c.model,
		"duration":          time.Since(start).Round(time.Millisecond),
		"prompt_tokens":     parsed.Usage.PromptTokens,
		"completion_tokens": parsed.Usage.CompletionTokens,
	}).Debug("chat completion")

	return parsed.Choices[0].Message.Content, nil
}
