package openai

import (
	"context"

	"github.com/pkg/errors"
	goopenai "github.com/sashabaranov/go-openai"

	"khaos-quiz-service/internal/domain"
)

const (
	DefaultModel = goopenai.GPT3Dot5Turbo
	// GPT4Model is selected by the openai.gpt4 config flag.
	GPT4Model = goopenai.GPT4
)

// Config configures the chat completion client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Completer sends chat completions to an OpenAI-compatible endpoint.
type Completer struct {
	client *goopenai.Client
	model  string
}

func NewCompleter(cfg Config) *Completer {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Completer{client: goopenai.NewClientWithConfig(clientCfg), model: model}
}

func (c *Completer) Complete(ctx context.Context, messages []domain.Message, maxTokens int) (domain.Message, error) {
	req := goopenai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  make([]goopenai.ChatCompletionMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = goopenai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.Message{}, errors.Wrapf(err, "chat completion (%s)", c.model)
	}
	if len(resp.Choices) == 0 {
		return domain.Message{}, errors.Errorf("chat completion (%s) returned no choices", c.model)
	}
	reply := resp.Choices[0].Message
	return domain.Message{Role: domain.Role(reply.Role), Content: reply.Content}, nil
}
