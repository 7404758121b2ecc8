package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/yourusername/sleuth/services"
)

// Detector is the outbound provider call; satisfied by
// services.DetectionProvider.
type Detector interface {
	Detect(ctx context.Context, imageURL string) (map[string]any, error)
}

type DetectHandler struct {
	storage  services.Storage
	provider Detector
	config   services.Config
}

func NewDetectHandler(storage services.Storage, provider Detector, config services.Config) *DetectHandler {
	return &DetectHandler{
		storage:  storage,
		provider: provider,
		config:   config,
	}
}

// ImageInfo echoes what the sniffer learned about the upload.
type ImageInfo struct {
	Format services.ImageFormat `json:"format"`
	Width  int                  `json:"width,omitempty"`
	Height int                  `json:"height,omitempty"`
}

// DetectResponse is the body returned to the frontend. AIScore and Label
// are the normalized contract; the rest is context and debug metadata.
type DetectResponse struct {
	services.DetectionResult
	ImageURL         string                   `json:"image_url"`
	Image            ImageInfo                `json:"image"`
	Provenance       *services.ProvenanceHint `json:"provenance,omitempty"`
	ProviderResponse map[string]any           `json:"provider_response"`
}

// Detect accepts a multipart image upload, stages it at a public URL,
// forwards that URL to the detection provider, and normalizes the
// provider's response into a score and label.
func (h *DetectHandler) Detect(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No image file provided"})
	}

	maxSize := int64(h.config.Server.BodyLimitMB) * 1024 * 1024
	if file.Size > maxSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("File too large. Maximum size: %dMB", h.config.Server.BodyLimitMB),
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open uploaded file"})
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read uploaded file"})
	}

	probe := services.Sniff(data)
	if probe.Format == services.FormatUnknown {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid image format. Supported: JPEG, PNG, WebP"})
	}
	if probe.HasDimensions() &&
		(probe.Width < h.config.Validation.MinWidth || probe.Height < h.config.Validation.MinHeight) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Image too small. Minimum dimensions: %dx%d",
				h.config.Validation.MinWidth, h.config.Validation.MinHeight),
		})
	}

	key := uuid.New().String() + probe.Format.Ext()
	imageURL, err := h.storage.Save(c.UserContext(), key, bytes.NewReader(data), probe.Format.ContentType())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to stage image"})
	}
	if !h.config.Staging.Retain {
		// Staging is transient: the object only needs to outlive the
		// provider's fetch. Cleanup uses a fresh context since the
		// request's may already be done.
		defer func() {
			if err := h.storage.Delete(context.Background(), key); err != nil {
				log.Printf("Failed to delete staged image %s: %v", key, err)
			}
		}()
	}

	hint, hasHint := services.ScanProvenance(data, h.config.ProvenanceSignatures)

	raw, err := h.provider.Detect(c.UserContext(), imageURL)
	if err != nil {
		log.Printf("Provider call failed for %s: %v", key, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Detection provider unavailable"})
	}

	// Absent score fails open with a visibly neutral signal rather than an
	// error: the provider's response shape is not under our control.
	result := services.DetectionResult{AIScore: 0.5, Label: services.LabelUnknown}
	if score, ok := services.ExtractAIScore(raw); ok {
		result = services.DetectionResult{AIScore: score, Label: services.Classify(score)}
	}

	resp := DetectResponse{
		DetectionResult:  result,
		ImageURL:         imageURL,
		Image:            ImageInfo{Format: probe.Format, Width: probe.Width, Height: probe.Height},
		ProviderResponse: raw,
	}
	if hasHint {
		resp.Provenance = &hint
	}
	return c.JSON(resp)
}
