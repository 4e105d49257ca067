package inventory

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"picture-manager/core/logger"
)

// Handler handles HTTP requests for the picture inventory.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the inventory routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Get("/server-pictures", h.HandleListPictures)
}

// defaultPageSize bounds unpaginated requests.
const defaultPageSize = 100

// HandleListPictures returns paginated, recency-sorted picture metadata.
// @Summary List Pictures
// @Description Get one page of picture metadata, newest first.
// @Tags inventory
// @Produce json
// @Param sourceIds query string false "Comma-separated source ids"
// @Param offset query int false "Page offset"
// @Param limit query int false "Page size"
// @Param searchTerm query string false "Name filter"
// @Success 200 {object} map[string]any "Picture page"
// @Router /server-pictures [get]
func (h *Handler) HandleListPictures(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	sourceIDs, err := parseSourceIDs(c.Query("sourceIds"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid sourceIds",
		})
	}
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", defaultPageSize)
	if limit <= 0 || limit > 1000 {
		limit = defaultPageSize
	}

	pics, total, err := h.service.ListPictures(c.Context(), sourceIDs, offset, limit, c.Query("searchTerm"))
	if err != nil {
		l.Error("picture listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"pictures": pics,
		"total":    total,
		"offset":   offset,
		"limit":    limit,
	})
}

// parseSourceIDs parses the sourceIds CSV query parameter.
func parseSourceIDs(raw string) ([]uint, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]uint, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, err
		}
		out = append(out, uint(id))
	}
	return out, nil
}
