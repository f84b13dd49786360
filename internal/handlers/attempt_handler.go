package handlers

import (
	"context"

	"hsk-exam-service/internal/apperr"
	"hsk-exam-service/internal/middleware"
	"hsk-exam-service/internal/response"
	"hsk-exam-service/internal/service"

	"github.com/gin-gonic/gin"
)

type AttemptHandler struct {
	Service *service.AttemptService
}

func NewAttemptHandler(s *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{Service: s}
}

func (h *AttemptHandler) StartExam(c *gin.Context) {
	resp, err := h.Service.StartExam(context.Background(), middleware.UserID(c), c.Param("examId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Exam started successfully", resp)
}

func (h *AttemptHandler) TakeExam(c *gin.Context) {
	resp, err := h.Service.TakeExam(context.Background(), middleware.UserID(c), c.Param("examId"), c.Query("attemptId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Exam retrieved successfully", resp)
}

func (h *AttemptHandler) SubmitExam(c *gin.Context) {
	var in service.SubmitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, apperr.BadRequest("Invalid request body"))
		return
	}
	result, err := h.Service.SubmitExam(context.Background(), middleware.UserID(c), c.Param("resultId"), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Exam submitted successfully", result)
}

func (h *AttemptHandler) GetMyResults(c *gin.Context) {
	page, limit := paging(c)
	results, total, err := h.Service.GetMyResults(context.Background(), middleware.UserID(c), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, "Results retrieved successfully", results, response.NewPagination(page, limit, total))
}

func (h *AttemptHandler) GetResultDetail(c *gin.Context) {
	result, err := h.Service.GetResultDetail(context.Background(), middleware.UserID(c), middleware.Role(c), c.Param("resultId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Result retrieved successfully", result)
}

func (h *AttemptHandler) GetMyExamHistory(c *gin.Context) {
	history, err := h.Service.GetMyExamHistory(context.Background(), middleware.UserID(c), c.Param("examId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Exam history retrieved successfully", history)
}
