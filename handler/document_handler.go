package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/librarian-be/database"
	"github.com/tieubaoca/librarian-be/types"
)

// DocumentHandler exposes corpus maintenance: listing and deleting ingested
// documents. Deleting removes both the metadata record and the document's
// chunks from the vector index.
type DocumentHandler struct {
	docStore database.DocumentStore
	vectorDB database.VectorDatabase
}

func NewDocumentHandler(docStore database.DocumentStore, vectorDB database.VectorDatabase) *DocumentHandler {
	return &DocumentHandler{
		docStore: docStore,
		vectorDB: vectorDB,
	}
}

func (h *DocumentHandler) HandleListDocuments(c *gin.Context) {
	req := types.ListDocumentsRequest{Page: 1, Limit: 20}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid pagination parameters",
		})
		return
	}

	docs, err := h.docStore.ListDocuments(c.Request.Context(), req.Page, req.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data:   docs,
	})
}

func (h *DocumentHandler) HandleGetDocument(c *gin.Context) {
	id := c.Param("id")
	doc, err := h.docStore.GetDocument(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, types.DataResponse{
			Status:  false,
			Message: "Document not found",
		})
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data:   doc,
	})
}

func (h *DocumentHandler) HandleDeleteDocument(c *gin.Context) {
	id := c.Param("id")
	if err := h.vectorDB.DeleteDocument(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}
	if err := h.docStore.DeleteDocument(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status:  true,
		Message: "Document deleted",
	})
}
