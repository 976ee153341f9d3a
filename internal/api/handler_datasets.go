package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"chemviz-backend/internal/report"
	"chemviz-backend/internal/service"
	"chemviz-backend/internal/store"
)

// Upload handles POST /api/upload with the CSV in multipart field "file".
func (h *Handler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		if c.Request.ContentLength > h.maxUploadBytes {
			h.tooLarge(c)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	file, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			h.tooLarge(c)
		case errors.Is(err, http.ErrMissingFile):
			h.writeError(c, service.ErrEmptyRequest)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart request"})
		}
		return
	}
	if file.Size == 0 {
		h.writeError(c, service.ErrEmptyRequest)
		return
	}

	f, err := file.Open()
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer func(f multipart.File) {
		if err := f.Close(); err != nil {
			h.log.Warn().Err(err).Msg("close upload")
		}
	}(f)

	ds, err := h.svc.Ingest(c.Request.Context(), file.Filename, f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newDatasetDetailResponse(ds))
}

func (h *Handler) tooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{
		"error": fmt.Sprintf("upload exceeds %d bytes", h.maxUploadBytes),
	})
}

// GetSummary handles GET /api/summary.
func (h *Handler) GetSummary(c *gin.Context) {
	sum, err := h.svc.Summary(c.Request.Context())
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data available"})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSummaryResponse(sum))
}

// GetHistory handles GET /api/history.
func (h *Handler) GetHistory(c *gin.Context) {
	datasets, err := h.svc.History(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	responses := make([]datasetResponse, 0, len(datasets))
	for i := range datasets {
		responses = append(responses, newDatasetResponse(&datasets[i]))
	}
	c.JSON(http.StatusOK, responses)
}

// GetDataset handles GET /api/history/:id.
func (h *Handler) GetDataset(c *gin.Context) {
	ds, err := h.svc.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDatasetDetailResponse(ds))
}

// GetReport handles GET /api/report/:id.
func (h *Handler) GetReport(c *gin.Context) {
	rep, err := h.svc.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.Name))
	c.Data(http.StatusOK, report.ContentType, rep.Content)
}
