package handlers

import (
	"context"
	"strconv"

	"hsk-exam-service/internal/apperr"
	"hsk-exam-service/internal/middleware"
	"hsk-exam-service/internal/response"
	"hsk-exam-service/internal/service"

	"github.com/gin-gonic/gin"
)

type ExamHandler struct {
	Service *service.ExamService
}

func NewExamHandler(s *service.ExamService) *ExamHandler {
	return &ExamHandler{Service: s}
}

// paging reads ?page= and ?limit= with the listing defaults.
func paging(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}

func listFilter(c *gin.Context) service.MyExamsFilter {
	page, limit := paging(c)
	return service.MyExamsFilter{
		Level:    c.Query("level"),
		Status:   c.Query("status"),
		CourseID: c.Query("courseId"),
		Page:     page,
		Limit:    limit,
	}
}

func (h *ExamHandler) CreateExam(c *gin.Context) {
	var in service.CreateExamInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, apperr.BadRequest("Invalid request body"))
		return
	}
	exam, err := h.Service.CreateExam(context.Background(), middleware.UserID(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Exam created successfully", exam)
}

func (h *ExamHandler) UpdateExam(c *gin.Context) {
	var in service.UpdateExamInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, apperr.BadRequest("Invalid request body"))
		return
	}
	exam, err := h.Service.UpdateExam(context.Background(), middleware.UserID(c), c.Param("examId"), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Exam updated successfully", exam)
}

func (h *ExamHandler) DeleteExam(c *gin.Context) {
	if err := h.Service.DeleteExam(context.Background(), middleware.UserID(c), c.Param("examId")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Exam deleted successfully", nil)
}

func (h *ExamHandler) GetExam(c *gin.Context) {
	exam, err := h.Service.GetExamByID(context.Background(), middleware.UserID(c), middleware.Role(c), c.Param("examId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Exam retrieved successfully", exam)
}

func (h *ExamHandler) GetExamInfo(c *gin.Context) {
	info, err := h.Service.GetExamInfo(context.Background(), middleware.UserID(c), middleware.Role(c), c.Param("examId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Exam info retrieved successfully", info)
}

func (h *ExamHandler) GetMyExams(c *gin.Context) {
	f := listFilter(c)
	exams, total, err := h.Service.GetMyExams(context.Background(), middleware.UserID(c), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, "Exams retrieved successfully", exams, response.NewPagination(f.Page, f.Limit, total))
}

func (h *ExamHandler) GetExamsByCourse(c *gin.Context) {
	f := listFilter(c)
	exams, total, err := h.Service.GetExamsByCourse(context.Background(), middleware.UserID(c), middleware.Role(c), c.Param("courseId"), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, "Exams retrieved successfully", exams, response.NewPagination(f.Page, f.Limit, total))
}

func (h *ExamHandler) GetAvailableExams(c *gin.Context) {
	f := listFilter(c)
	exams, err := h.Service.GetAvailableExams(context.Background(), middleware.UserID(c), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Available exams retrieved successfully", exams)
}

func (h *ExamHandler) PublishExam(c *gin.Context) {
	exam, err := h.Service.PublishExam(context.Background(), middleware.UserID(c), c.Param("examId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Exam published successfully", exam)
}

func (h *ExamHandler) UpdateSchedule(c *gin.Context) {
	var body struct {
		StartAt  string `json:"startAt"`
		EndAt    string `json:"endAt"`
		Timezone string `json:"timezone"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperr.BadRequest("Invalid request body"))
		return
	}
	exam, err := h.Service.UpdateSchedule(context.Background(), middleware.UserID(c), c.Param("examId"), body.StartAt, body.EndAt, body.Timezone)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Exam schedule updated successfully", exam)
}

func (h *ExamHandler) AttachListeningAudios(c *gin.Context) {
	var body struct {
		Audios []service.AudioInput `json:"audios"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperr.BadRequest("Invalid request body"))
		return
	}
	audios, err := h.Service.AttachListeningAudios(context.Background(), middleware.UserID(c), c.Param("examId"), body.Audios)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Listening audios attached successfully", audios)
}

func (h *ExamHandler) RemoveListeningAudio(c *gin.Context) {
	var body struct {
		URL string `json:"url"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperr.BadRequest("Invalid request body"))
		return
	}
	audios, err := h.Service.RemoveListeningAudio(context.Background(), middleware.UserID(c), c.Param("examId"), body.URL)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Listening audio removed successfully", audios)
}
