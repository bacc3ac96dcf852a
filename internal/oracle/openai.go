package oracle

import (
	"context"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/vk/flowgridgo/internal/ctxlog"
)

// chatClient is the slice of the OpenAI client the oracle needs. It exists
// so tests can substitute recorded responses.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// ClientConfig configures the OpenAI-backed oracle.
type ClientConfig struct {
	APIKey string
	Model  string
	// MaxTokens bounds the response; decisions are just ids.
	MaxTokens int
	// Temperature defaults to a low value for stable id selection.
	Temperature float32
}

// Client is the production Oracle implementation speaking to the OpenAI
// chat completion API.
type Client struct {
	api         chatClient
	model       string
	maxTokens   int
	temperature float32
}

// NewClient validates the configuration and builds the oracle client. A
// missing API key is a ConfigError: the caller must fail the run before any
// path starts rather than discover the problem mid-traversal.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &ConfigError{Reason: "no API key configured"}
	}
	if cfg.Model == "" {
		return nil, &ConfigError{Reason: "no model configured"}
	}
	c := &Client{
		api:         goopenai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
	if c.maxTokens <= 0 {
		c.maxTokens = 50
	}
	if c.temperature <= 0 {
		c.temperature = 0.1
	}
	return c, nil
}

// Decide implements the Oracle interface.
func (c *Client) Decide(ctx context.Context, req *Request) (*Decision, error) {
	logger := ctxlog.FromContext(ctx).With("node", req.NodeID)
	logger.Debug("Requesting oracle decision.", "candidates", len(req.Candidates))

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: buildTransitionPrompt(req)},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &ProtocolError{Reason: "response contains no choices"}
	}

	raw := resp.Choices[0].Message.Content
	decision := parseDecision(raw, req.Candidates)
	logger.Debug("Oracle decision received.",
		"raw", raw, "chosen", decision.ChosenIDs, "unknown", decision.Unknown)
	return decision, nil
}

// String identifies the client in startup logs without leaking credentials.
func (c *Client) String() string {
	return fmt.Sprintf("openai(model=%s)", c.model)
}
