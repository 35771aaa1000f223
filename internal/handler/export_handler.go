package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/courselab-api/internal/service"
	"github.com/noah-isme/courselab-api/pkg/response"
)

type exportDownloader interface {
	Download(token string) (*service.ExportFile, error)
}

// ExportHandler serves published exports by signed token.
type ExportHandler struct {
	exports exportDownloader
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports exportDownloader) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Download godoc
// @Summary Download a published export
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, err := h.exports.Download(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Name, file.ContentType, file.Data)
}
