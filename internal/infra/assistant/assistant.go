// Package assistant answers support chat messages through OpenAI chat completions.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const SystemPrompt = `You are the TierTrainer24 support assistant. You help pet owners with
training questions, pet care basics and questions about the TierTrainer24 app
(subscriptions, trials, pet profiles, community). Answer in the user's language,
keep answers short and practical, and recommend a veterinarian for anything
medical. Never invent account details; point users to a support ticket instead.`

const (
	DefaultModel = "gpt-4o-mini"
	maxHistory   = 20
)

var (
	ErrDisabled     = errors.New("assistant is not configured")
	ErrEmptyMessage = errors.New("no user message")
	ErrEmptyReply   = errors.New("assistant returned no reply")
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompleter is the subset of the OpenAI client used here.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Assistant struct {
	client ChatCompleter
	model  string
}

// New returns nil when apiKey is empty so callers can report the feature as disabled.
func New(apiKey, model string) *Assistant {
	if apiKey == "" {
		return nil
	}
	return NewWithClient(openai.NewClient(apiKey), model)
}

func NewWithClient(client ChatCompleter, model string) *Assistant {
	if model == "" {
		model = DefaultModel
	}
	return &Assistant{client: client, model: model}
}

func (a *Assistant) Model() string {
	if a == nil {
		return ""
	}
	return a.model
}

// Reply sends the conversation (oldest first) and returns the assistant's answer.
// Only user and assistant turns from the caller are forwarded.
func (a *Assistant) Reply(ctx context.Context, history []Message) (string, error) {
	if a == nil {
		return "", ErrDisabled
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt})

	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	hasUser := false
	for _, m := range history {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		switch m.Role {
		case openai.ChatMessageRoleUser:
			hasUser = true
		case openai.ChatMessageRoleAssistant:
		default:
			continue
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: content})
	}
	if !hasUser {
		return "", ErrEmptyMessage
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    msgs,
		Temperature: 0.4,
		MaxTokens:   600,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyReply
	}
	return resp.Choices[0].Message.Content, nil
}

// Ping lists models to confirm the API key works.
func Ping(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return ErrDisabled
	}
	_, err := openai.NewClient(apiKey).ListModels(ctx)
	return err
}
