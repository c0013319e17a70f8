package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/bdougie/genvideo/internal/jobs"
	"github.com/bdougie/genvideo/internal/models"
)

type fakeQueue struct {
	jobs    map[string]models.Job
	prompts []string
	err     error
}

func (f *fakeQueue) Enqueue(ctx context.Context, prompt string) (models.Job, error) {
	if f.err != nil {
		return models.Job{}, f.err
	}
	f.prompts = append(f.prompts, prompt)
	job := models.Job{ID: "job-1", Prompt: prompt, Status: models.JobPending}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeQueue) Status(ctx context.Context, id string) (models.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return models.Job{}, jobs.ErrJobNotFound
	}
	return job, nil
}

type fakeText struct {
	topic string
	err   error
}

func (f *fakeText) GeneratePost(ctx context.Context, topic string) (string, error) {
	f.topic = topic
	return "Coffee first, then everything else.", f.err
}

type fakeImages struct {
	prompt string
	err    error
}

func (f *fakeImages) GenerateImage(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return "aGVsbG8=", f.err
}

func newTestServer(t *testing.T, text TextGenerator, opts ...Option) (*Server, *fakeQueue, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	q := &fakeQueue{jobs: map[string]models.Job{}}
	if text != nil {
		opts = append(opts, WithText(text))
	}
	return New(q, dir, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...), q, dir
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t, nil)
	w := do(s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || decode(t, w)["status"] != "healthy" {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestGenerateVideo(t *testing.T) {
	s, q, _ := newTestServer(t, nil)

	w := do(s, http.MethodPost, "/api/generate-video", `{"prompt":"a glass city at night"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["job_id"] != "job-1" || body["status"] != "pending" {
		t.Fatalf("body = %v", body)
	}
	if len(q.prompts) != 1 || q.prompts[0] != "a glass city at night" {
		t.Fatalf("queued prompts = %v", q.prompts)
	}
}

func TestGenerateVideoRejectsEmptyPrompt(t *testing.T) {
	s, q, _ := newTestServer(t, nil)

	for _, body := range []string{`{"prompt":""}`, `{"prompt":"   "}`, `{}`, `not json`} {
		w := do(s, http.MethodPost, "/api/generate-video", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d", body, w.Code)
		}
		if _, ok := decode(t, w)["error"]; !ok {
			t.Fatalf("body %q: response has no error field", body)
		}
	}
	if len(q.prompts) != 0 {
		t.Fatal("nothing should be queued")
	}
}

func TestGenerateVideoQueueFailure(t *testing.T) {
	s, q, _ := newTestServer(t, nil)
	q.err = errors.New("redis: connection refused")

	w := do(s, http.MethodPost, "/api/generate-video", `{"prompt":"x"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestJobStatus(t *testing.T) {
	s, q, _ := newTestServer(t, nil)
	q.jobs["done"] = models.Job{ID: "done", Status: models.JobCompleted, VideoURL: "/videos/done.mp4"}

	w := do(s, http.MethodGet, "/api/jobs/done", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	if body["status"] != "completed" || body["video_url"] != "/videos/done.mp4" {
		t.Fatalf("body = %v", body)
	}

	if w := do(s, http.MethodGet, "/api/jobs/missing", ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing job status = %d", w.Code)
	}
}

func TestGenerateText(t *testing.T) {
	text := &fakeText{}
	s, _, _ := newTestServer(t, text)

	w := do(s, http.MethodPost, "/api/generate-text", `{"topic":"coffee"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if decode(t, w)["text"] != "Coffee first, then everything else." {
		t.Fatalf("body = %s", w.Body.String())
	}
	if text.topic != "coffee" {
		t.Fatalf("topic = %q", text.topic)
	}

	if w := do(s, http.MethodPost, "/api/generate-text", `{"topic":" "}`); w.Code != http.StatusBadRequest {
		t.Fatalf("empty topic status = %d", w.Code)
	}
}

func TestGenerateTextErrors(t *testing.T) {
	s, _, _ := newTestServer(t, nil)
	if w := do(s, http.MethodPost, "/api/generate-text", `{"topic":"coffee"}`); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("unconfigured status = %d", w.Code)
	}

	s, _, _ = newTestServer(t, &fakeText{err: errors.New("OpenAI API error")})
	if w := do(s, http.MethodPost, "/api/generate-text", `{"topic":"coffee"}`); w.Code != http.StatusInternalServerError {
		t.Fatalf("upstream failure status = %d", w.Code)
	}
}

func TestGenerateImage(t *testing.T) {
	images := &fakeImages{}
	s, _, _ := newTestServer(t, nil, WithImages(images))

	w := do(s, http.MethodPost, "/api/generate-image", `{"prompt":"a lighthouse at dusk"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if decode(t, w)["image"] != "aGVsbG8=" {
		t.Fatalf("body = %s", w.Body.String())
	}
	if images.prompt != "a lighthouse at dusk" {
		t.Fatalf("prompt = %q", images.prompt)
	}

	for _, body := range []string{`{"prompt":""}`, `{"prompt":"  "}`, `{}`} {
		w := do(s, http.MethodPost, "/api/generate-image", body)
		if w.Code != http.StatusBadRequest || decode(t, w)["error"] != "Prompt is required" {
			t.Fatalf("body %q: got %d %s", body, w.Code, w.Body.String())
		}
	}
}

func TestGenerateImageErrors(t *testing.T) {
	s, _, _ := newTestServer(t, nil)
	if w := do(s, http.MethodPost, "/api/generate-image", `{"prompt":"fog"}`); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("unconfigured status = %d", w.Code)
	}

	s, _, _ = newTestServer(t, nil, WithImages(&fakeImages{err: errors.New("OpenAI API error")}))
	w := do(s, http.MethodPost, "/api/generate-image", `{"prompt":"fog"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("upstream failure status = %d", w.Code)
	}
	if decode(t, w)["error"] != "Failed to generate image" {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestServesVideos(t *testing.T) {
	s, _, dir := newTestServer(t, nil)
	if err := os.WriteFile(filepath.Join(dir, "job-1.mp4"), []byte("mp4 bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	w := do(s, http.MethodGet, "/videos/job-1.mp4", "")
	if w.Code != http.StatusOK || w.Body.String() != "mp4 bytes" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
}
