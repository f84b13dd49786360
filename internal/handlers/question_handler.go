package handlers

import (
	"context"

	"hsk-exam-service/internal/apperr"
	"hsk-exam-service/internal/middleware"
	"hsk-exam-service/internal/response"
	"hsk-exam-service/internal/service"

	"github.com/gin-gonic/gin"
)

type QuestionHandler struct {
	Service *service.QuestionService
}

func NewQuestionHandler(s *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{Service: s}
}

// ImportQuestions is the bulk upload endpoint for a fixed-template bank.
func (h *QuestionHandler) ImportQuestions(c *gin.Context) {
	var req service.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.BadRequest("Invalid request body"))
		return
	}
	result, err := h.Service.ImportQuestions(context.Background(), middleware.UserID(c), c.Param("examId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Exam questions imported successfully", result)
}

// EditQuestions replaces the bank with a free-form question set.
func (h *QuestionHandler) EditQuestions(c *gin.Context) {
	var req service.EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.BadRequest("Invalid request body"))
		return
	}
	result, err := h.Service.EditQuestions(context.Background(), middleware.UserID(c), c.Param("examId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Exam questions updated successfully", result)
}

func (h *QuestionHandler) UpdateSingleQuestion(c *gin.Context) {
	var payload service.ParentQuestionInput
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, apperr.BadRequest("Invalid request body"))
		return
	}
	question, sections, err := h.Service.UpdateSingleQuestion(context.Background(), middleware.UserID(c), c.Param("examId"), c.Param("questionId"), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Exam question updated successfully", gin.H{
		"question": question,
		"sections": sections,
	})
}

func (h *QuestionHandler) GetQuestions(c *gin.Context) {
	bank, err := h.Service.GetQuestions(context.Background(), middleware.UserID(c), c.Param("examId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Exam questions retrieved successfully", bank)
}
