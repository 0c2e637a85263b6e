package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/kdduha/caption-generator/internal/models"
)

const (
	imageField = "image_file"

	msgNoImageFile  = "No image file provided."
	msgNoSelected   = "No selected file."
	msgFileTooLarge = "Image file too large."
)

type captionService interface {
	Generate(ctx context.Context, image []byte, opts models.CaptionOptions) (*models.CaptionResponse, error)
	GenerateStream(ctx context.Context, image []byte, opts models.CaptionOptions) (<-chan models.StreamChunk, error)
	ModelConfigured() bool
}

type CaptionHandler struct {
	service        captionService
	logger         *log.Logger
	maxUploadBytes int64
}

func NewCaptionHandler(logger *log.Logger, service captionService, maxUploadBytes int64) *CaptionHandler {
	return &CaptionHandler{
		service:        service,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// GenerateCaption godoc
// @Summary Generate caption for an image
// @Description Describes the uploaded image with the vision model, then writes a social media caption in the requested style.
// @Tags caption
// @Accept multipart/form-data
// @Produce json
// @Param image_file formData file true "Image to caption"
// @Param style formData string false "Caption style" default(creative)
// @Param length formData string false "Caption length" default(medium)
// @Param emojis formData string false "Include emojis when exactly true" default(false)
// @Param hashtags formData string false "Include hashtags when exactly true" default(false)
// @Success 200 {object} models.CaptionResponse
// @Failure 400 {object} models.CaptionResponse
// @Failure 413 {object} models.CaptionResponse
// @Failure 500 {object} models.CaptionResponse
// @Router /generate-caption [post]
func (h *CaptionHandler) GenerateCaption(w http.ResponseWriter, r *http.Request) {
	image, opts, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Generate(r.Context(), image, opts)
	if err != nil {
		h.logger.Printf("caption generation failed: %v\n", err)
		h.writeCaption(w, http.StatusInternalServerError, fmt.Sprintf("Error generating caption: %v", err))
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GenerateCaptionStream godoc
// @Summary Stream caption for an image
// @Description Same input as /generate-caption. Caption tokens are sent as SSE message events, followed by the full caption and a done event.
// @Tags caption
// @Accept multipart/form-data
// @Produce text/event-stream
// @Param image_file formData file true "Image to caption"
// @Param style formData string false "Caption style" default(creative)
// @Param length formData string false "Caption length" default(medium)
// @Param emojis formData string false "Include emojis when exactly true" default(false)
// @Param hashtags formData string false "Include hashtags when exactly true" default(false)
// @Success 200 {object} models.StreamChunk "Stream of tokens (SSE)"
// @Failure 400 {object} models.CaptionResponse
// @Failure 413 {object} models.CaptionResponse
// @Failure 500 {object} models.CaptionResponse
// @Router /generate-caption/stream [post]
func (h *CaptionHandler) GenerateCaptionStream(w http.ResponseWriter, r *http.Request) {
	image, opts, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	stream, err := h.service.GenerateStream(r.Context(), image, opts)
	if err != nil {
		h.logger.Printf("caption generation failed: %v\n", err)
		h.writeCaption(w, http.StatusInternalServerError, fmt.Sprintf("Error generating caption: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher := http.NewResponseController(w)

	for chunk := range stream {
		if chunk.Err != nil {
			h.logger.Printf("caption stream failed: %v\n", chunk.Err)
			h.writeEvent(w, "error", models.CaptionResponse{
				Caption: fmt.Sprintf("Error generating caption: %v", chunk.Err),
			})
			flusher.Flush()
			return
		}

		if !h.writeEvent(w, "message", chunk) {
			flusher.Flush()
			return
		}
		flusher.Flush()

		if chunk.Done {
			fmt.Fprintf(w, "event: done\ndata: {}\n\n")
			flusher.Flush()
			return
		}
	}
}

// writeEvent sends v as a single-line JSON SSE event. It reports false when
// v could not be marshalled and an error event was sent instead.
func (h *CaptionHandler) writeEvent(w io.Writer, event string, v any) bool {
	data, err := sonic.Marshal(v)
	if err != nil {
		h.logger.Printf("failed to marshal %s event: %v\n", event, err)
		fmt.Fprintf(w, "event: error\ndata: {\"caption\":\"marshal error\"}\n\n")
		return false
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return true
}

// Health godoc
// @Summary Liveness probe
// @Tags service
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /healthz [get]
func (h *CaptionHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:          "ok",
		ModelConfigured: h.service.ModelConfigured(),
	})
}

// readUpload validates the multipart form and returns the image bytes and
// options. When ok is false the error response has already been written.
func (h *CaptionHandler) readUpload(w http.ResponseWriter, r *http.Request) (image []byte, opts models.CaptionOptions, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	form, err := parseUpload(r)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			h.writeCaption(w, http.StatusRequestEntityTooLarge, msgFileTooLarge)
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			h.writeCaption(w, http.StatusBadRequest, msgNoImageFile)
		default:
			h.logger.Printf("failed to read upload: %v\n", err)
			h.writeCaption(w, http.StatusInternalServerError, fmt.Sprintf("Error reading image file: %v", err))
		}
		return nil, opts, false
	}

	if !form.hasFile {
		h.writeCaption(w, http.StatusBadRequest, msgNoImageFile)
		return nil, opts, false
	}
	if form.filename == "" {
		h.writeCaption(w, http.StatusBadRequest, msgNoSelected)
		return nil, opts, false
	}

	opts = models.CaptionOptions{
		Style:    form.value("style", models.DefaultStyle),
		Length:   form.value("length", models.DefaultLength),
		Emojis:   form.value("emojis", models.DefaultEmojis),
		Hashtags: form.value("hashtags", models.DefaultHashtags),
	}
	return form.image, opts, true
}

// uploadForm is the parsed caption request. A part counts as a file only
// when its Content-Disposition carries a filename parameter, even an empty
// one; anything else is a plain field.
type uploadForm struct {
	image    []byte
	filename string
	hasFile  bool
	values   map[string]string
}

func parseUpload(r *http.Request) (*uploadForm, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}

	form := &uploadForm{values: make(map[string]string)}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			return nil, err
		}

		if err := form.add(part); err != nil {
			part.Close()
			return nil, err
		}
		part.Close()
	}
}

func (f *uploadForm) add(part *multipart.Part) error {
	name := part.FormName()
	if name == "" {
		return nil
	}

	filename, isFile := partFilename(part)
	if isFile {
		if name != imageField || f.hasFile {
			return nil
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return err
		}
		f.image, f.filename, f.hasFile = data, filename, true
		return nil
	}

	if _, seen := f.values[name]; seen {
		return nil
	}
	data, err := io.ReadAll(part)
	if err != nil {
		return err
	}
	f.values[name] = string(data)
	return nil
}

// value falls back to def only when the field is absent.
func (f *uploadForm) value(key, def string) string {
	if v, ok := f.values[key]; ok {
		return v
	}
	return def
}

func partFilename(part *multipart.Part) (string, bool) {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return "", false
	}
	if _, ok := params["filename"]; !ok {
		return "", false
	}
	return part.FileName(), true
}

func (h *CaptionHandler) writeCaption(w http.ResponseWriter, status int, caption string) {
	h.writeJSON(w, status, models.CaptionResponse{Caption: caption})
}

func (h *CaptionHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := sonic.ConfigDefault.NewEncoder(w).Encode(v); err != nil {
		h.logger.Printf("failed to encode response: %v\n", err)
	}
}
