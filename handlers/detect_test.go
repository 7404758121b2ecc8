package handlers

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/sleuth/services"
)

type stubDetector struct {
	response map[string]any
	err      error
	gotURL   string
}

func (s *stubDetector) Detect(ctx context.Context, imageURL string) (map[string]any, error) {
	s.gotURL = imageURL
	return s.response, s.err
}

func pngHeader(width, height uint32) []byte {
	buf := make([]byte, 32)
	copy(buf, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	binary.BigEndian.PutUint32(buf[16:], width)
	binary.BigEndian.PutUint32(buf[20:], height)
	return buf
}

func multipartImage(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func newTestApp(t *testing.T, detector Detector, mutate func(*services.Config)) (*fiber.App, string) {
	t.Helper()
	config := services.DefaultConfig()
	config.Staging.Dir = t.TempDir()
	if mutate != nil {
		mutate(config)
	}
	storage := services.NewLocalStorage(config.Staging.Dir, config.Storage.PublicBaseURL)
	handler := NewDetectHandler(storage, detector, *config)

	app := fiber.New()
	app.Post("/api/detect", handler.Detect)
	return app, config.Staging.Dir
}

func doDetect(t *testing.T, app *fiber.App, filename string, data []byte) (*http.Response, map[string]any) {
	t.Helper()
	body, contentType := multipartImage(t, filename, data)
	req := httptest.NewRequest(http.MethodPost, "/api/detect", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestDetectHappyPath(t *testing.T) {
	detector := &stubDetector{response: map[string]any{"ai_probability": 0.92}}
	app, stagingDir := newTestApp(t, detector, nil)

	resp, body := doDetect(t, app, "photo.png", pngHeader(800, 600))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 0.92, body["ai_score"], 1e-9)
	assert.Equal(t, "ai", body["label"])

	image := body["image"].(map[string]any)
	assert.Equal(t, "png", image["format"])
	assert.Equal(t, float64(800), image["width"])
	assert.Equal(t, float64(600), image["height"])

	// The provider was handed the staged file's public URL.
	assert.Equal(t, body["image_url"], detector.gotURL)
	assert.Contains(t, detector.gotURL, "/uploads/")

	// Raw provider payload is echoed for the frontend.
	echoed := body["provider_response"].(map[string]any)
	assert.InDelta(t, 0.92, echoed["ai_probability"], 1e-9)

	// Staged file is cleaned up after the provider call.
	entries, err := os.ReadDir(stagingDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDetectRetainKeepsStagedFile(t *testing.T) {
	detector := &stubDetector{response: map[string]any{"score": 10}}
	app, stagingDir := newTestApp(t, detector, func(c *services.Config) {
		c.Staging.Retain = true
	})

	resp, body := doDetect(t, app, "photo.png", pngHeader(800, 600))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 0.1, body["ai_score"], 1e-9)
	assert.Equal(t, "human", body["label"])

	entries, err := os.ReadDir(stagingDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDetectRejectsUnknownFormat(t *testing.T) {
	detector := &stubDetector{}
	app, _ := newTestApp(t, detector, nil)

	resp, body := doDetect(t, app, "notes.txt", []byte("definitely not an image payload"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "Invalid image format")
	// Rejected uploads never reach the provider.
	assert.Empty(t, detector.gotURL)
}

func TestDetectRejectsTooSmallImage(t *testing.T) {
	app, _ := newTestApp(t, &stubDetector{}, nil)

	resp, body := doDetect(t, app, "tiny.png", pngHeader(100, 100))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "Image too small")
}

// WEBP carries no sniffable dimensions, so the minimum-size gate cannot
// apply and the upload goes through on format alone.
func TestDetectWEBPPassesWithoutDimensions(t *testing.T) {
	webp := append([]byte("RIFF"), 0x24, 0x00, 0x00, 0x00)
	webp = append(webp, []byte("WEBPVP8 ")...)

	detector := &stubDetector{response: map[string]any{"ai_probability": 0.5}}
	app, _ := newTestApp(t, detector, nil)

	resp, body := doDetect(t, app, "pic.webp", webp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "mixed", body["label"])
	image := body["image"].(map[string]any)
	assert.Equal(t, "webp", image["format"])
	assert.NotContains(t, image, "width")
}

func TestDetectMissingFile(t *testing.T) {
	app, _ := newTestApp(t, &stubDetector{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/detect", bytes.NewReader(nil))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDetectProviderFailure(t *testing.T) {
	detector := &stubDetector{err: errors.New("connection refused")}
	app, stagingDir := newTestApp(t, detector, nil)

	resp, body := doDetect(t, app, "photo.png", pngHeader(800, 600))
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body["error"], "provider")

	// Cleanup happens even when the provider call fails.
	entries, err := os.ReadDir(stagingDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// A provider response with no recognizable score anywhere falls open to
// the neutral sentinel.
func TestDetectAbsentScoreFallsBackToNeutral(t *testing.T) {
	detector := &stubDetector{response: map[string]any{"status": "processed"}}
	app, _ := newTestApp(t, detector, nil)

	resp, body := doDetect(t, app, "photo.png", pngHeader(800, 600))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 0.5, body["ai_score"], 1e-9)
	assert.Equal(t, "unknown", body["label"])
}

func TestDetectNestedProviderResponse(t *testing.T) {
	detector := &stubDetector{response: map[string]any{
		"result": map[string]any{"output": map[string]any{"human_probability": "80%"}},
	}}
	app, _ := newTestApp(t, detector, nil)

	resp, body := doDetect(t, app, "photo.jpg", []byte{
		0xFF, 0xD8, 0xFF, 0xC0, 0x00, 0x11, 0x08, 0x02, 0x58, 0x03, 0x20, 0x03, 0x01,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 0.2, body["ai_score"], 1e-9)
	assert.Equal(t, "human", body["label"])

	image := body["image"].(map[string]any)
	assert.Equal(t, "jpeg", image["format"])
	assert.Equal(t, float64(800), image["width"])
	assert.Equal(t, float64(600), image["height"])
}
