// Package ai generates email summaries and reply drafts through Groq's
// OpenAI-compatible chat completion API.
package ai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// TextService produces generated text from an email body.
type TextService interface {
	Summarize(ctx context.Context, body string) (string, error)
	DraftReply(ctx context.Context, body string) (string, error)
}

// Assistant implements TextService against Groq.
type Assistant struct {
	client *openai.Client
	model  string
}

var _ TextService = (*Assistant)(nil)

// NewAssistant creates an assistant using the given Groq API key and model.
func NewAssistant(apiKey, model string) *Assistant {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = groqBaseURL

	return &Assistant{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Summarize returns a short bullet-point summary of an email body.
func (a *Assistant) Summarize(ctx context.Context, body string) (string, error) {
	prompt := fmt.Sprintf("Summarize this email concisely in 3 bullet points: %s", body)
	return a.complete(ctx, prompt)
}

// DraftReply returns a generated reply to an email body.
func (a *Assistant) DraftReply(ctx context.Context, body string) (string, error) {
	prompt := fmt.Sprintf("Draft a professional and concise reply to this email: %s", body)
	return a.complete(ctx, prompt)
}

func (a *Assistant) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
