package capability

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"aura-assistant-backend/internal/config"
	"aura-assistant-backend/internal/identity"
)

const chatTimeout = 30 * time.Second

var errEmptyCompletion = errors.New("chat completion returned no content")

// systemPrompt keeps the model from claiming a different origin.
var systemPrompt = "You are " + identity.SystemName + ", a friendly assistant for music and media. " +
	"Keep answers short and conversational. " + identity.Statement +
	" Never say you were created by anyone other than " + identity.Creator + "."

type ChatReply struct {
	Reply string `json:"reply"`
	Model string `json:"model"`
}

type ChatClient struct {
	client *openai.Client
	model  string
	guard  *guard
}

func newOpenAIClient(cfg config.Config) *openai.Client {
	if cfg.OpenAIAPIKey == "" {
		return nil
	}
	oc := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.OpenAIBaseURL, "/")
	}
	return openai.NewClientWithConfig(oc)
}

func NewChatClient(cfg config.Config, logger *zap.Logger, rec Recorder) *ChatClient {
	return &ChatClient{
		client: newOpenAIClient(cfg),
		model:  cfg.Model,
		guard:  newGuard("chat", chatTimeout, logger, rec),
	}
}

func (c *ChatClient) Enabled() bool { return c.client != nil }

func (c *ChatClient) Status() Status {
	return Status{Name: "chat", Configured: c.Enabled(), Provider: "openai", Breaker: c.guard.state()}
}

// Complete answers one user message with no conversation history.
func (c *ChatClient) Complete(ctx context.Context, text string) Result[ChatReply] {
	if !c.Enabled() {
		return skip[ChatReply](c.guard)
	}
	return run(ctx, c.guard, "The assistant is unavailable right now.", func(ctx context.Context) (ChatReply, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: text},
			},
		})
		if err != nil {
			return ChatReply{}, err
		}
		if len(resp.Choices) == 0 {
			return ChatReply{}, errEmptyCompletion
		}
		reply := strings.TrimSpace(resp.Choices[0].Message.Content)
		if reply == "" {
			return ChatReply{}, errEmptyCompletion
		}
		return ChatReply{Reply: reply, Model: resp.Model}, nil
	})
}
