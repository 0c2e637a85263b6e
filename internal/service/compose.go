package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kdduha/caption-generator/internal/metrics"
	"github.com/kdduha/caption-generator/internal/models"
)

func buildCaptionPrompt(description string, opts models.CaptionOptions) string {
	return fmt.Sprintf(captionPromptTemplate,
		description,
		opts.Style,
		opts.Length,
		opts.EmojisInstruction(),
		opts.HashtagsInstruction(),
	)
}

// ComposeCaption turns a description into a styled caption with a single
// model call. Failures are returned as is, there is no retry here.
func (s *CaptionService) ComposeCaption(ctx context.Context, description string, opts models.CaptionOptions) (string, error) {
	if s.model == nil {
		return "", ErrClientNotInitialized
	}

	start := time.Now()
	text, err := s.model.Generate(ctx, buildCaptionPrompt(description, opts))
	if err != nil {
		metrics.ModelCall(StepCaption, "error", time.Since(start))
		return "", fmt.Errorf("caption request failed: %w", err)
	}

	if text = strings.TrimSpace(text); text == "" {
		metrics.ModelCall(StepCaption, "empty", time.Since(start))
		return "", &GenerationError{Step: StepCaption, Attempts: 1}
	}

	metrics.ModelCall(StepCaption, "ok", time.Since(start))
	return text, nil
}

// ComposeCaptionStream is ComposeCaption with incremental output. The last
// chunk is either an error or the whole trimmed caption with Done set.
// Models without streaming support produce a single delta.
func (s *CaptionService) ComposeCaptionStream(
	ctx context.Context,
	description string,
	opts models.CaptionOptions,
) (<-chan models.StreamChunk, error) {
	if s.model == nil {
		return nil, ErrClientNotInitialized
	}

	ch := make(chan models.StreamChunk, 1)

	streamer, ok := s.model.(StreamingModel)
	if !ok {
		caption, err := s.ComposeCaption(ctx, description, opts)
		if err != nil {
			return nil, err
		}
		go func() {
			defer close(ch)
			if sendOrStop(ctx, ch, models.StreamChunk{Delta: caption}) {
				sendOrStop(ctx, ch, models.StreamChunk{Caption: caption, Done: true})
			}
		}()
		return ch, nil
	}

	start := time.Now()
	deltas, err := streamer.GenerateStream(ctx, buildCaptionPrompt(description, opts))
	if err != nil {
		metrics.ModelCall(StepCaption, "error", time.Since(start))
		return nil, fmt.Errorf("caption request failed: %w", err)
	}

	go func() {
		defer close(ch)

		var builder strings.Builder
		for d := range deltas {
			if d.Err != nil {
				metrics.ModelCall(StepCaption, "error", time.Since(start))
				sendOrStop(ctx, ch, models.StreamChunk{Err: fmt.Errorf("caption request failed: %w", d.Err)})
				return
			}

			builder.WriteString(d.Text)
			if !sendOrStop(ctx, ch, models.StreamChunk{Delta: d.Text}) {
				return
			}
		}

		if err := ctx.Err(); err != nil {
			return
		}

		caption := strings.TrimSpace(builder.String())
		if caption == "" {
			metrics.ModelCall(StepCaption, "empty", time.Since(start))
			sendOrStop(ctx, ch, models.StreamChunk{Err: &GenerationError{Step: StepCaption, Attempts: 1}})
			return
		}

		metrics.ModelCall(StepCaption, "ok", time.Since(start))
		sendOrStop(ctx, ch, models.StreamChunk{Caption: caption, Done: true})
	}()

	return ch, nil
}

func sendOrStop(ctx context.Context, ch chan<- models.StreamChunk, msg models.StreamChunk) bool {
	select {
	case ch <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}
