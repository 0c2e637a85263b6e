package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"

	"github.com/kdduha/caption-generator/internal/config"
	"github.com/kdduha/caption-generator/internal/imageproc"
	"github.com/kdduha/caption-generator/internal/llm"
	"github.com/kdduha/caption-generator/internal/metrics"
	"github.com/kdduha/caption-generator/internal/models"
)

// Model is the external text generation capability.
// Both methods return the model's text; emptiness is judged by the caller.
type Model interface {
	GenerateFromImage(ctx context.Context, prompt string, img *imageproc.Image) (string, error)
	Generate(ctx context.Context, prompt string) (string, error)
}

type StreamingModel interface {
	Model
	GenerateStream(ctx context.Context, prompt string) (<-chan llm.Delta, error)
}

type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
}

type CaptionService struct {
	logger       *log.Logger
	model        Model
	modelName    string
	maxAttempts  int
	maxDimension int
	cache        Cache
}

// NewCaptionService wires the pipeline. model may be nil when no credentials
// are configured; every generation then fails with ErrClientNotInitialized.
func NewCaptionService(logger *log.Logger, model Model, modelCfg config.ModelConfig, imageCfg config.ImageConfig) *CaptionService {
	maxAttempts := modelCfg.DescribeAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &CaptionService{
		logger:       logger,
		model:        model,
		modelName:    modelCfg.Model,
		maxAttempts:  maxAttempts,
		maxDimension: imageCfg.MaxDimension,
	}
}

func (s *CaptionService) SetCacheClient(cache Cache) {
	s.cache = cache
}

func (s *CaptionService) ModelConfigured() bool {
	return s.model != nil
}

// Generate runs preprocess, describe and compose in order.
func (s *CaptionService) Generate(ctx context.Context, image []byte, opts models.CaptionOptions) (*models.CaptionResponse, error) {
	key := getCacheKey(s.modelName, image, opts)
	if cached, found := s.lookup(ctx, key); found {
		return &models.CaptionResponse{Caption: cached}, nil
	}

	description, err := s.describe(ctx, image)
	if err != nil {
		return nil, err
	}

	caption, err := s.ComposeCaption(ctx, description, opts)
	if err != nil {
		return nil, err
	}

	s.store(ctx, key, caption)
	return &models.CaptionResponse{Caption: caption}, nil
}

func (s *CaptionService) GenerateStream(
	ctx context.Context,
	image []byte,
	opts models.CaptionOptions,
) (<-chan models.StreamChunk, error) {
	key := getCacheKey(s.modelName, image, opts)
	if cached, found := s.lookup(ctx, key); found {
		ch := make(chan models.StreamChunk, 1)
		ch <- models.StreamChunk{Caption: cached, Done: true}
		close(ch)
		return ch, nil
	}

	description, err := s.describe(ctx, image)
	if err != nil {
		return nil, err
	}

	chunks, err := s.ComposeCaptionStream(ctx, description, opts)
	if err != nil {
		return nil, err
	}
	if s.cache == nil {
		return chunks, nil
	}

	out := make(chan models.StreamChunk, 1)
	go func() {
		defer close(out)
		for chunk := range chunks {
			if chunk.Done && chunk.Err == nil {
				s.store(ctx, key, chunk.Caption)
			}
			if !sendOrStop(ctx, out, chunk) {
				return
			}
		}
	}()
	return out, nil
}

func (s *CaptionService) describe(ctx context.Context, image []byte) (string, error) {
	s.logger.Printf("start preprocessing image: %d bytes\n", len(image))
	img, err := imageproc.Normalize(image, s.maxDimension)
	if err != nil {
		return "", err
	}
	s.logger.Printf("finish preprocessing image: %s %dx%d\n", img.Format, img.Width(), img.Height())

	return s.DescribeImage(ctx, img)
}

func (s *CaptionService) lookup(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}

	cached, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Printf("cache get error: %v\n", err)
		metrics.CacheLookup("error")
		return "", false
	}
	if !found {
		metrics.CacheLookup("miss")
		return "", false
	}

	s.logger.Println("served from cache")
	metrics.CacheLookup("hit")
	return cached, true
}

func (s *CaptionService) store(ctx context.Context, key, caption string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, caption); err != nil {
		s.logger.Printf("failed to set cache: %v\n", err)
	}
}

// getCacheKey fingerprints everything that changes the prompt. Flags are
// reduced to their instructions so "True" and "false" share an entry.
func getCacheKey(modelName string, image []byte, opts models.CaptionOptions) string {
	h := sha256.New()
	h.Write(image)
	for _, part := range []string{
		modelName,
		opts.Style,
		opts.Length,
		opts.EmojisInstruction(),
		opts.HashtagsInstruction(),
	} {
		h.Write([]byte{0})
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}
