package handlers

import (
	"context"

	"hsk-exam-service/internal/apperr"
	"hsk-exam-service/internal/middleware"
	"hsk-exam-service/internal/response"
	"hsk-exam-service/internal/service"

	"github.com/gin-gonic/gin"
)

type GradingHandler struct {
	Service *service.GradingService
}

func NewGradingHandler(s *service.GradingService) *GradingHandler {
	return &GradingHandler{Service: s}
}

func (h *GradingHandler) GradeWriting(c *gin.Context) {
	var in service.GradeWritingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, apperr.BadRequest("Invalid request body"))
		return
	}
	result, err := h.Service.GradeWriting(context.Background(), middleware.UserID(c), c.Param("resultId"), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Writing section graded successfully", result)
}

func (h *GradingHandler) PendingGrading(c *gin.Context) {
	page, limit := paging(c)
	results, total, err := h.Service.PendingGrading(context.Background(), middleware.UserID(c), c.Param("examId"), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, "Pending results retrieved successfully", results, response.NewPagination(page, limit, total))
}
