package handlers

import (
	"context"
	"strconv"

	"hsk-exam-service/internal/middleware"
	"hsk-exam-service/internal/response"
	"hsk-exam-service/internal/service"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	Service *service.StatsService
}

func NewStatsHandler(s *service.StatsService) *StatsHandler {
	return &StatsHandler{Service: s}
}

func (h *StatsHandler) GetTeacherExamStats(c *gin.Context) {
	stats, err := h.Service.GetTeacherExamStats(context.Background(), middleware.UserID(c), c.Param("examId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Exam statistics retrieved successfully", stats)
}

func (h *StatsHandler) GetCourseExamResults(c *gin.Context) {
	page, limit := paging(c)
	results, total, err := h.Service.GetCourseExamResults(context.Background(), middleware.UserID(c), c.Param("courseId"), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, "Course exam results retrieved successfully", results, response.NewPagination(page, limit, total))
}

func (h *StatsHandler) GetStudentsJoinedExam(c *gin.Context) {
	students, err := h.Service.GetStudentsJoinedExam(context.Background(), middleware.UserID(c), c.Param("examId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Students retrieved successfully", students)
}

func (h *StatsHandler) GetStudentResult(c *gin.Context) {
	detail, err := h.Service.GetStudentResult(context.Background(), middleware.UserID(c), c.Param("examId"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Student result retrieved successfully", detail)
}

func (h *StatsHandler) GetLeaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	entries, err := h.Service.Leaderboard(context.Background(), c.Param("examId"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Leaderboard retrieved successfully", entries)
}
