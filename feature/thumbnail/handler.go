package thumbnail

import (
	"errors"
	"net/url"
	"os"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"picture-manager/core/logger"
)

// Handler serves generated thumbnails and original assets.
type Handler struct {
	gen    *Generator
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(gen *Generator, logger *zap.Logger) *Handler {
	return &Handler{gen: gen, logger: logger}
}

// RegisterRoutes registers the image routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Get("/server-images-thumb/:source/*", h.HandleThumbnail)
	app.Get("/server-images/:source/*", h.HandleOriginal)
}

// HandleThumbnail returns thumbnail bytes at the nearest tier.
// @Summary Get Thumbnail
// @Description Get a generated thumbnail, quantizing the requested width to one of the fixed tiers.
// @Tags images
// @Produce image/jpeg
// @Param source path string true "Source name"
// @Param width query int false "Effective pixel width (already multiplied by device pixel ratio)"
// @Success 200 {file} binary "Thumbnail bytes"
// @Failure 403 {object} map[string]string "Path outside source root"
// @Failure 404 {object} map[string]string "Source file missing"
// @Router /server-images-thumb/{source}/{path} [get]
func (h *Handler) HandleThumbnail(c *fiber.Ctx) error {
	source := c.Params("source")
	relPath, err := relParam(c)
	if err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	width := c.QueryInt("width", Tiers[0])

	path, err := h.gen.Thumbnail(c.Context(), source, relPath, width)
	if err != nil {
		return h.imageError(c, "thumbnail", source, relPath, err)
	}
	return c.SendFile(path)
}

// HandleOriginal streams the original asset.
// @Summary Get Original Image
// @Description Stream the original asset from its mounted source root.
// @Tags images
// @Produce octet-stream
// @Param source path string true "Source name"
// @Success 200 {file} binary "Original bytes"
// @Failure 403 {object} map[string]string "Path outside source root"
// @Failure 404 {object} map[string]string "File missing"
// @Router /server-images/{source}/{path} [get]
func (h *Handler) HandleOriginal(c *fiber.Ctx) error {
	source := c.Params("source")
	relPath, err := relParam(c)
	if err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	abs, err := h.gen.ResolveOriginal(source, relPath)
	if err != nil {
		return h.imageError(c, "original", source, relPath, err)
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return c.SendStatus(fiber.StatusNotFound)
		}
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	return c.SendFile(abs)
}

// imageError maps the error taxonomy onto HTTP status codes.
func (h *Handler) imageError(c *fiber.Ctx, op, source, relPath string, err error) error {
	switch {
	case errors.Is(err, ErrPathTraversal):
		return c.SendStatus(fiber.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		return c.SendStatus(fiber.StatusNotFound)
	case errors.Is(err, ErrInvalidImage):
		return c.SendStatus(fiber.StatusUnsupportedMediaType)
	default:
		l := logger.WithRayID(h.logger, c)
		l.Error("image request failed",
			zap.String("op", op),
			zap.String("source", source),
			zap.String("item", relPath),
			zap.Error(err),
		)
		return c.SendStatus(fiber.StatusInternalServerError)
	}
}

// relParam extracts and decodes the wildcard path segment.
func relParam(c *fiber.Ctx) (string, error) {
	raw := c.Params("*")
	if raw == "" {
		return "", errors.New("missing path")
	}
	return url.PathUnescape(raw)
}
