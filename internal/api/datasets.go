package api

import (
	"net/http"

	"github.com/alejandroruanova/automl-service/internal/core/services/datasets"
	"github.com/alejandroruanova/automl-service/internal/core/services/refinery"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
	"github.com/gin-gonic/gin"
)

type cleanRequest struct {
	Column  string `json:"column" binding:"required"`
	Version string `json:"version"`
}

// UploadDataset stores a multipart "file" upload.
// POST /api/v1/datasets
func (h *Handler) UploadDataset(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		h.respondError(c, apperrors.BadRequest("multipart field 'file' is required"))
		return
	}

	if limit := h.deps.MaxUploadSizeMB; limit > 0 && fh.Size > limit*1024*1024 {
		h.respondError(c, apperrors.FileTooLarge(limit))
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.respondError(c, apperrors.InvalidFile("failed to read upload"))
		return
	}
	defer f.Close()

	result, err := h.deps.Datasets.Upload(c.Request.Context(), fh.Filename, f)
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// ListDatasets returns all datasets.
// GET /api/v1/datasets
func (h *Handler) ListDatasets(c *gin.Context) {
	list, err := h.deps.Datasets.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"datasets": list,
		"count":    len(list),
	})
}

// GetDataset returns one dataset by filename.
// GET /api/v1/datasets/:name
func (h *Handler) GetDataset(c *gin.Context) {
	dataset, err := h.deps.Datasets.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dataset)
}

// ProfileDataset returns the EDA profile of a dataset.
// GET /api/v1/datasets/:name/eda
func (h *Handler) ProfileDataset(c *gin.Context) {
	profile, err := h.deps.Datasets.Profile(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// TrainDataset trains a model on a dataset.
// POST /api/v1/datasets/:name/train
func (h *Handler) TrainDataset(c *gin.Context) {
	artifact, err := h.deps.Datasets.Train(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, artifact)
}

// CleanDataset cleans one text column of a dataset.
// POST /api/v1/datasets/:name/clean
func (h *Handler) CleanDataset(c *gin.Context) {
	var req cleanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.BadRequest(err.Error()))
		return
	}

	result, err := h.deps.Datasets.Clean(c.Request.Context(), c.Param("name"), req.Column, req.Version)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListCleaners returns the registered text cleaners and their steps.
// GET /api/v1/cleaners
func (h *Handler) ListCleaners(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"cleaners": refinery.Describe(),
		"default":  datasets.DefaultCleaner,
	})
}
