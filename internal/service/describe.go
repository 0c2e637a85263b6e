package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kdduha/caption-generator/internal/imageproc"
	"github.com/kdduha/caption-generator/internal/llm"
	"github.com/kdduha/caption-generator/internal/metrics"
)

// DescribeImage asks the model for an objective description of img.
// Empty answers and failed calls are retried up to maxAttempts times
// in a row, without delay.
func (s *CaptionService) DescribeImage(ctx context.Context, img *imageproc.Image) (string, error) {
	if s.model == nil {
		return "", ErrClientNotInitialized
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("image description interrupted: %w", err)
		}

		s.logger.Printf("image read attempt %d/%d\n", attempt, s.maxAttempts)
		start := time.Now()

		text, err := s.model.GenerateFromImage(ctx, describePrompt, img)
		if err != nil {
			var apiErr *llm.APIError
			if errors.As(err, &apiErr) {
				s.logger.Printf("model API error on attempt %d: %v\n", attempt, err)
			} else {
				s.logger.Printf("unexpected error on attempt %d: %v\n", attempt, err)
			}
			metrics.ModelCall(StepDescription, "error", time.Since(start))
			lastErr = err
			continue
		}

		if text = strings.TrimSpace(text); text != "" {
			metrics.ModelCall(StepDescription, "ok", time.Since(start))
			metrics.DescribeAttempts(attempt)
			return text, nil
		}

		metrics.ModelCall(StepDescription, "empty", time.Since(start))
		s.logger.Printf("empty description on attempt %d\n", attempt)
	}

	return "", &GenerationError{Step: StepDescription, Attempts: s.maxAttempts, Err: lastErr}
}
