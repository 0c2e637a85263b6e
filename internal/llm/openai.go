// Package llm talks to an OpenAI-compatible chat completions endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kdduha/caption-generator/internal/config"
	"github.com/kdduha/caption-generator/internal/imageproc"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// APIError is returned when the provider answered with an error status.
type APIError struct {
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("model API error (status %d): %v", e.StatusCode, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Delta is a piece of streamed output. A non-nil Err ends the stream.
type Delta struct {
	Text string
	Err  error
}

type OpenAIModel struct {
	client      openai.Client
	modelName   string
	jpegQuality int
}

func NewOpenAIModel(client openai.Client, cfg config.ModelConfig, jpegQuality int) *OpenAIModel {
	return &OpenAIModel{
		client:      client,
		modelName:   cfg.Model,
		jpegQuality: jpegQuality,
	}
}

// NewClient builds the SDK client from config.
func NewClient(cfg config.ModelConfig) openai.Client {
	return openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithRequestTimeout(cfg.RequestTimeout),
	)
}

func (m *OpenAIModel) GenerateFromImage(ctx context.Context, prompt string, img *imageproc.Image) (string, error) {
	imageData, err := img.DataURL(m.jpegQuality)
	if err != nil {
		return "", err
	}

	return m.complete(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(prompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: imageData,
			}),
		}),
	})
}

func (m *OpenAIModel) Generate(ctx context.Context, prompt string) (string, error) {
	return m.complete(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
	})
}

func (m *OpenAIModel) GenerateStream(ctx context.Context, prompt string) (<-chan Delta, error) {
	stream := m.client.Chat.Completions.NewStreaming(ctx, m.params([]openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
	}))

	ch := make(chan Delta)
	go func() {
		defer close(ch)
		defer stream.Close()

		send := func(d Delta) bool {
			select {
			case ch <- d:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}

			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !send(Delta{Text: delta}) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			send(Delta{Err: wrapError(err)})
		}
	}()

	return ch, nil
}

func (m *OpenAIModel) params(messages []openai.ChatCompletionMessageParamUnion) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(m.modelName),
		Messages: messages,
	}
}

// complete returns the trimmed text of the first choice. An answer without
// choices is reported as empty text, not as an error.
func (m *OpenAIModel) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := m.client.Chat.Completions.New(ctx, m.params(messages))
	if err != nil {
		return "", wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.StatusCode, Err: err}
	}
	return err
}
