package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/librarian-be/service"
	"github.com/tieubaoca/librarian-be/types"
)

type QueryHandler struct {
	answers *service.AnswerService
}

func NewQueryHandler(answers *service.AnswerService) *QueryHandler {
	return &QueryHandler{
		answers: answers,
	}
}

func (h *QueryHandler) HandleQuery(c *gin.Context) {
	var req types.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid request body",
		})
		return
	}
	if req.Question == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Question is required",
		})
		return
	}

	session, err := h.answers.Ask(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, types.ErrUnsupportedFormat) {
			status = http.StatusBadRequest
		}
		c.JSON(status, types.DataResponse{
			Status:  false,
			Message: err.Error(),
			Data: gin.H{
				"session_id": session.ID,
				"state":      session.State,
			},
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data: types.QueryResponse{
			SessionID:    session.ID,
			Answer:       session.Answer,
			References:   session.References,
			Verification: session.Verification,
		},
	})
}
