// Package api exposes a read-only audit surface over the metadata store
// and the content-addressed payload archive.
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mxm-platform/dataio/store"
)

// Handler handles HTTP requests.
type Handler struct {
	store *store.Store
	log   zerolog.Logger
}

// NewHandler creates a new handler.
func NewHandler(st *store.Store, logger zerolog.Logger) *Handler {
	return &Handler{
		store: st,
		log:   logger.With().Str("component", "api").Logger(),
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/sessions", h.ListSessions)
	e.GET("/v1/sessions/latest", h.LatestSession)
	e.GET("/v1/responses/:checksum", h.GetPayload)
	e.GET("/v1/responses/:checksum/meta", h.GetSidecar)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// ListSessions lists recorded sessions, newest first.
// GET /v1/sessions
func (h *Handler) ListSessions(c echo.Context) error {
	ctx := c.Request().Context()

	sessions, err := h.store.ListSessions(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("listing sessions")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list sessions"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessions": sessions,
	})
}

// LatestSession returns the id of the most recent session for a source.
// GET /v1/sessions/latest?source=...
func (h *Handler) LatestSession(c echo.Context) error {
	ctx := c.Request().Context()
	source := c.QueryParam("source")
	if source == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "source is required"})
	}

	id, err := h.store.LatestSessionID(ctx, source)
	if err != nil {
		h.log.Error().Err(err).Str("source", source).Msg("looking up latest session")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to look up latest session"})
	}
	if id == "" {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no sessions for source"})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"source":     source,
		"session_id": id,
	})
}

// GetPayload streams the archived payload for a checksum.
// GET /v1/responses/:checksum
func (h *Handler) GetPayload(c echo.Context) error {
	checksum := c.Param("checksum")

	data, err := h.store.ReadPayload(checksum)
	if err != nil {
		if errors.Is(err, store.ErrPayloadNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "payload not found"})
		}
		var integrity *store.IntegrityError
		if errors.As(err, &integrity) {
			h.log.Error().Err(err).Str("checksum", checksum).Msg("payload integrity check failed")
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "payload failed integrity verification"})
		}
		h.log.Error().Err(err).Str("checksum", checksum).Msg("reading payload")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to read payload"})
	}

	return c.Blob(http.StatusOK, echo.MIMEOctetStream, data)
}

// GetSidecar returns the sidecar metadata for a checksum.
// GET /v1/responses/:checksum/meta
func (h *Handler) GetSidecar(c echo.Context) error {
	checksum := c.Param("checksum")

	meta, err := h.store.ReadSidecar(checksum)
	if err != nil {
		if errors.Is(err, store.ErrSidecarNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "sidecar not found"})
		}
		h.log.Error().Err(err).Str("checksum", checksum).Msg("reading sidecar")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to read sidecar"})
	}

	return c.JSON(http.StatusOK, meta)
}
