package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chemviz-backend/internal/parse"
	"chemviz-backend/internal/service"
	"chemviz-backend/internal/store"
)

// writeError maps pipeline errors onto HTTP responses.
func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		missing  *parse.MissingColumnsError
		rowErr   *parse.RowParseError
		storeErr *store.StorageError
	)
	switch {
	case errors.As(err, &missing):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":           err.Error(),
			"missing_columns": missing.Missing,
		})
	case errors.As(err, &rowErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  err.Error(),
			"row":    rowErr.Row,
			"column": rowErr.Column,
		})
	case errors.Is(err, service.ErrEmptyRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &storeErr):
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("storage failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
