package handler

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/kdduha/caption-generator/internal/config"
	"github.com/kdduha/caption-generator/internal/imageproc"
	"github.com/kdduha/caption-generator/internal/models"
	"github.com/kdduha/caption-generator/internal/service"
)

var discard = log.New(io.Discard, "", 0)

type fakeService struct {
	resp      *models.CaptionResponse
	err       error
	chunks    []models.StreamChunk
	gotImage  []byte
	gotOpts   models.CaptionOptions
	calls     int
	modelDone bool
}

func (f *fakeService) Generate(_ context.Context, image []byte, opts models.CaptionOptions) (*models.CaptionResponse, error) {
	f.calls++
	f.gotImage = image
	f.gotOpts = opts
	return f.resp, f.err
}

func (f *fakeService) GenerateStream(_ context.Context, image []byte, opts models.CaptionOptions) (<-chan models.StreamChunk, error) {
	f.calls++
	f.gotOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan models.StreamChunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func (f *fakeService) ModelConfigured() bool {
	return f.modelDone
}

// stubModel answers every description and caption request with fixed text.
type stubModel struct {
	description string
	caption     string
}

func (m stubModel) GenerateFromImage(context.Context, string, *imageproc.Image) (string, error) {
	return m.description, nil
}

func (m stubModel) Generate(context.Context, string) (string, error) {
	return m.caption, nil
}

type upload struct {
	filename    string
	contentType string
	data        []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, file *upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}

	if file != nil {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="image_file"; filename="`+file.filename+`"`)
		if file.contentType != "" {
			h.Set("Content-Type", file.contentType)
		}
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		part.Write(file.data)
	}

	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func pngUpload(t *testing.T) *upload {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 64, 32))); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return &upload{filename: "cat.png", contentType: "image/png", data: buf.Bytes()}
}

func decodeCaption(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var resp models.CaptionResponse
	if err := sonic.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return resp.Caption
}

func TestGenerateCaptionValidation(t *testing.T) {
	tests := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		wantStatus int
		wantBody   string
	}{
		{
			name: "no image field",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/generate-caption", map[string]string{"style": "funny"}, nil)
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "No image file provided.",
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/generate-caption", strings.NewReader(`{"image":"x"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "No image file provided.",
		},
		{
			name: "empty filename",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/generate-caption", nil, &upload{contentType: "application/octet-stream"})
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "No selected file.",
		},
		{
			name: "image field sent as plain text",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/generate-caption", map[string]string{"image_file": "cat.png"}, nil)
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "No image file provided.",
		},
		{
			name: "empty filename without content type",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/generate-caption", nil, &upload{})
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "No selected file.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{resp: &models.CaptionResponse{Caption: "unused"}}
			h := NewCaptionHandler(discard, svc, 1<<20)
			rr := httptest.NewRecorder()

			h.GenerateCaption(rr, tt.req(t))

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if got := decodeCaption(t, rr); got != tt.wantBody {
				t.Errorf("caption = %q, want %q", got, tt.wantBody)
			}
			if svc.calls != 0 {
				t.Error("service must not be called for invalid uploads")
			}
		})
	}
}

func TestGenerateCaptionTooLarge(t *testing.T) {
	svc := &fakeService{}
	h := NewCaptionHandler(discard, svc, 1024)
	rr := httptest.NewRecorder()

	big := &upload{filename: "big.png", contentType: "image/png", data: bytes.Repeat([]byte{1}, 4096)}
	h.GenerateCaption(rr, multipartRequest(t, "/generate-caption", nil, big))

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rr.Code)
	}
	if got := decodeCaption(t, rr); got != "Image file too large." {
		t.Errorf("caption = %q", got)
	}
}

func TestGenerateCaptionOptions(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		want   models.CaptionOptions
	}{
		{
			name:   "defaults",
			fields: nil,
			want:   models.CaptionOptions{Style: "creative", Length: "medium", Emojis: "false", Hashtags: "false"},
		},
		{
			name:   "explicit",
			fields: map[string]string{"style": "funny", "length": "short", "emojis": "true", "hashtags": "true"},
			want:   models.CaptionOptions{Style: "funny", Length: "short", Emojis: "true", Hashtags: "true"},
		},
		{
			name:   "present but empty keeps empty",
			fields: map[string]string{"style": ""},
			want:   models.CaptionOptions{Style: "", Length: "medium", Emojis: "false", Hashtags: "false"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{resp: &models.CaptionResponse{Caption: "ok"}}
			h := NewCaptionHandler(discard, svc, 1<<20)
			rr := httptest.NewRecorder()
			file := pngUpload(t)

			h.GenerateCaption(rr, multipartRequest(t, "/generate-caption", tt.fields, file))

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
			}
			if svc.gotOpts != tt.want {
				t.Errorf("options = %+v, want %+v", svc.gotOpts, tt.want)
			}
			if !bytes.Equal(svc.gotImage, file.data) {
				t.Error("service received different image bytes")
			}
		})
	}
}

func TestGenerateCaptionServiceError(t *testing.T) {
	svc := &fakeService{err: service.ErrClientNotInitialized}
	h := NewCaptionHandler(discard, svc, 1<<20)
	rr := httptest.NewRecorder()

	h.GenerateCaption(rr, multipartRequest(t, "/generate-caption", nil, pngUpload(t)))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
	if got := decodeCaption(t, rr); got != "Error generating caption: model client not initialized" {
		t.Errorf("caption = %q", got)
	}
}

func newPipelineHandler(model service.Model) *CaptionHandler {
	svc := service.NewCaptionService(discard, model,
		config.ModelConfig{Model: "test-model", DescribeAttempts: 3},
		config.ImageConfig{MaxDimension: 1024},
	)
	return NewCaptionHandler(discard, svc, 1<<20)
}

func TestGenerateCaptionEndToEnd(t *testing.T) {
	h := newPipelineHandler(stubModel{description: "A cat sleeping on a red couch", caption: "Lazy cat vibes 😸"})
	file := pngUpload(t)

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		h.GenerateCaption(rr, multipartRequest(t, "/generate-caption", map[string]string{"emojis": "true"}, file))

		if rr.Code != http.StatusOK {
			t.Fatalf("run %d: status = %d, body %s", i, rr.Code, rr.Body.String())
		}
		if got := decodeCaption(t, rr); got != "Lazy cat vibes 😸" {
			t.Errorf("run %d: caption = %q", i, got)
		}
	}
}

func TestGenerateCaptionPipelineFailures(t *testing.T) {
	tests := []struct {
		name       string
		model      service.Model
		file       *upload
		wantPrefix string
	}{
		{
			name:       "undecodable image",
			model:      stubModel{description: "d", caption: "c"},
			file:       &upload{filename: "notes.txt", contentType: "text/plain", data: []byte("hello")},
			wantPrefix: "Error generating caption: failed to decode image",
		},
		{
			name:       "no client",
			model:      nil,
			file:       nil,
			wantPrefix: "Error generating caption: model client not initialized",
		},
		{
			name:       "empty description",
			model:      stubModel{description: " ", caption: "c"},
			wantPrefix: "Error generating caption: failed to generate image description after 3 attempts",
		},
		{
			name:       "empty caption",
			model:      stubModel{description: "d", caption: ""},
			wantPrefix: "Error generating caption: model returned an empty caption",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newPipelineHandler(tt.model)
			file := tt.file
			if file == nil {
				file = pngUpload(t)
			}
			rr := httptest.NewRecorder()

			h.GenerateCaption(rr, multipartRequest(t, "/generate-caption", nil, file))

			if rr.Code != http.StatusInternalServerError {
				t.Errorf("status = %d, want 500", rr.Code)
			}
			if got := decodeCaption(t, rr); !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("caption = %q, want prefix %q", got, tt.wantPrefix)
			}
		})
	}
}

func TestGenerateCaptionStream(t *testing.T) {
	svc := &fakeService{chunks: []models.StreamChunk{
		{Delta: "Lazy "},
		{Delta: "cat"},
		{Caption: "Lazy cat", Done: true},
	}}
	h := NewCaptionHandler(discard, svc, 1<<20)
	rr := httptest.NewRecorder()

	h.GenerateCaptionStream(rr, multipartRequest(t, "/generate-caption/stream", nil, pngUpload(t)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	body := rr.Body.String()
	for _, want := range []string{
		`data: {"delta":"Lazy "}`,
		`data: {"caption":"Lazy cat"}`,
		"event: done",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("stream is missing %q:\n%s", want, body)
		}
	}
}

func TestGenerateCaptionStreamErrors(t *testing.T) {
	t.Run("chunk error", func(t *testing.T) {
		svc := &fakeService{chunks: []models.StreamChunk{{Delta: "Half"}, {Err: errors.New("connection lost")}}}
		h := NewCaptionHandler(discard, svc, 1<<20)
		rr := httptest.NewRecorder()

		h.GenerateCaptionStream(rr, multipartRequest(t, "/generate-caption/stream", nil, pngUpload(t)))

		body := rr.Body.String()
		if !strings.Contains(body, "event: error\ndata: {\"caption\":\"Error generating caption: connection lost\"}\n\n") {
			t.Errorf("unexpected stream:\n%s", body)
		}
		if strings.Contains(body, "event: done") {
			t.Error("failed stream must not report done")
		}
	})

	t.Run("multiline error stays in one event", func(t *testing.T) {
		svc := &fakeService{chunks: []models.StreamChunk{{Err: errors.New("upstream said:\n\nevent: done")}}}
		h := NewCaptionHandler(discard, svc, 1<<20)
		rr := httptest.NewRecorder()

		h.GenerateCaptionStream(rr, multipartRequest(t, "/generate-caption/stream", nil, pngUpload(t)))

		events := strings.Split(strings.TrimSuffix(rr.Body.String(), "\n\n"), "\n\n")
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1:\n%s", len(events), rr.Body.String())
		}
		data, found := strings.CutPrefix(events[0], "event: error\ndata: ")
		if !found {
			t.Fatalf("unexpected event %q", events[0])
		}
		var resp models.CaptionResponse
		if err := sonic.UnmarshalString(data, &resp); err != nil {
			t.Fatalf("decode %q: %v", data, err)
		}
		if resp.Caption != "Error generating caption: upstream said:\n\nevent: done" {
			t.Errorf("caption = %q", resp.Caption)
		}
	})

	t.Run("setup error", func(t *testing.T) {
		svc := &fakeService{err: errors.New("boom")}
		h := NewCaptionHandler(discard, svc, 1<<20)
		rr := httptest.NewRecorder()

		h.GenerateCaptionStream(rr, multipartRequest(t, "/generate-caption/stream", nil, pngUpload(t)))

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rr.Code)
		}
		if got := decodeCaption(t, rr); got != "Error generating caption: boom" {
			t.Errorf("caption = %q", got)
		}
	})

	t.Run("validation", func(t *testing.T) {
		h := NewCaptionHandler(discard, &fakeService{}, 1<<20)
		rr := httptest.NewRecorder()

		h.GenerateCaptionStream(rr, multipartRequest(t, "/generate-caption/stream", nil, nil))

		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})
}

func TestHealth(t *testing.T) {
	h := NewCaptionHandler(discard, &fakeService{modelDone: true}, 1<<20)
	rr := httptest.NewRecorder()

	h.Health(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var resp models.HealthResponse
	if err := sonic.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || !resp.ModelConfigured {
		t.Errorf("unexpected health %+v", resp)
	}
}

func TestIndexAndStatic(t *testing.T) {
	rr := httptest.NewRecorder()
	Index(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `name="image_file"`) {
		t.Errorf("index page looks wrong: %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	Static().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/main.js", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "/generate-caption") {
		t.Errorf("static script not served: %d", rr.Code)
	}
}
