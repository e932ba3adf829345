package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/librarian-be/service"
	"github.com/tieubaoca/librarian-be/types"
)

type UploadHandler struct {
	fileService *service.FileService
}

func NewUploadHandler(fileService *service.FileService) *UploadHandler {
	return &UploadHandler{
		fileService: fileService,
	}
}

type uploadResult struct {
	report *types.IngestReport
	err    error
}

func (h *UploadHandler) UploadDocumentHandler(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid file",
		})
		return
	}
	defer file.Close()

	var req types.UploadRequest
	if metadata := c.Request.FormValue("metadata"); metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &req); err != nil {
			c.JSON(http.StatusBadRequest, types.DataResponse{
				Status:  false,
				Message: "Invalid metadata",
			})
			return
		}
	}

	const maxSize = 50 << 20
	if header.Size > maxSize {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "File too large",
		})
		return
	}

	statusChan := make(chan types.ProcessingDocumentStatus)
	resultChan := make(chan uploadResult, 1)
	go func() {
		report, err := h.fileService.UploadFile(c.Request.Context(), req, header, statusChan)
		close(statusChan)
		resultChan <- uploadResult{report: report, err: err}
	}()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			return // Client disconnected
		case status, ok := <-statusChan:
			if !ok {
				statusChan = nil
				continue
			}
			jsonStatus, err := json.Marshal(status)
			if err != nil {
				continue
			}
			c.SSEvent("message", string(jsonStatus))
			c.Writer.Flush()
		case result := <-resultChan:
			if result.err != nil {
				c.JSON(http.StatusInternalServerError, types.DataResponse{
					Status:  false,
					Message: result.err.Error(),
					Data:    types.UploadResponse{Report: result.report},
				})
			} else {
				c.JSON(http.StatusOK, types.DataResponse{
					Status: true,
					Data:   types.UploadResponse{Report: result.report},
				})
			}
			return
		}
	}
}
