package ai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// chatClient abstracts the OpenAI chat completions API for testability.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// OpenAIClient is an alternate inference backend used when only an OpenAI
// key is configured. The routed model id passes straight through as the
// chat model.
type OpenAIClient struct {
	client chatClient
	tracer trace.Tracer
}

func NewOpenAIClient(tracer trace.Tracer, apiKey string) *OpenAIClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClient{client: &openaiClient{client: client}, tracer: tracer}
}

func (c *OpenAIClient) Generate(ctx context.Context, model, prompt string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "openai.generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", model))

	completion, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion")
	}
	reply := completion.Choices[0].Message.Content
	if reply == "" {
		return "", fmt.Errorf("empty completion")
	}
	return reply, nil
}

type openaiClient struct {
	client openai.Client
}

func (c *openaiClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
