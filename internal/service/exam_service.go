package service

import (
	"context"
	"time"

	"hsk-exam-service/internal/apperr"
	"hsk-exam-service/internal/models"
	"hsk-exam-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// IsExamOpen is the single availability gate: listing, starting and resuming
// an attempt all go through it, with identical semantics. A schedule set on
// both ends is a closed interval; unset means open forever.
func IsExamOpen(exam *models.Exam, now time.Time) bool {
	if exam.Status != models.ExamStatusPublished {
		return false
	}
	if exam.ScheduleStartAt == nil || exam.ScheduleEndAt == nil {
		return true
	}
	return !now.Before(*exam.ScheduleStartAt) && !now.After(*exam.ScheduleEndAt)
}

// ParseObjectID converts a path/query id, mapping garbage to a 400.
func ParseObjectID(id, label string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.BadRequest("Invalid " + label)
	}
	return oid, nil
}

type ExamService struct {
	Exams     *repository.ExamRepository
	Questions *repository.ExamQuestionRepository
	Results   *repository.ResultRepository
	Courses   *repository.CourseRepository
}

func NewExamService(exams *repository.ExamRepository, questions *repository.ExamQuestionRepository, results *repository.ResultRepository, courses *repository.CourseRepository) *ExamService {
	return &ExamService{Exams: exams, Questions: questions, Results: results, Courses: courses}
}

// CreateExamInput carries the teacher-supplied exam definition. Sections may
// be provided directly or populated later through question import.
type CreateExamInput struct {
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	Level            string                `json:"level"`
	Skills           []string              `json:"skills"`
	Sections         []models.SkillSection `json:"sections"`
	TimeLimitMinutes int                   `json:"timeLimitMinutes"`
	PassingScore     float64               `json:"passingScore"`
	CourseID         string                `json:"courseId"`
}

func (s *ExamService) CreateExam(ctx context.Context, teacherID string, in CreateExamInput) (*models.Exam, error) {
	if in.CourseID == "" {
		return nil, apperr.BadRequest("courseId is required")
	}
	if in.Title == "" {
		return nil, apperr.BadRequest("title is required")
	}
	if !models.IsValidLevel(in.Level) {
		return nil, apperr.BadRequest("level must be one of HSK1..HSK6")
	}
	if in.TimeLimitMinutes < 1 {
		return nil, apperr.BadRequest("timeLimitMinutes must be at least 1")
	}

	courseID, err := ParseObjectID(in.CourseID, "course id")
	if err != nil {
		return nil, err
	}
	teacherOID, err := ParseObjectID(teacherID, "user id")
	if err != nil {
		return nil, err
	}

	course, err := s.Courses.FindCourse(ctx, courseID)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFound("Course not found")
	}
	if err != nil {
		return nil, err
	}
	if course.AssignedTeacher != teacherOID {
		return nil, apperr.Forbidden("You are not the teacher of this course")
	}

	sections, err := normalizeSections(in.Sections)
	if err != nil {
		return nil, err
	}

	passingScore := in.PassingScore
	if passingScore == 0 {
		passingScore = 60
	}
	if passingScore < 0 || passingScore > 100 {
		return nil, apperr.BadRequest("passingScore must be between 0 and 100")
	}

	exam := &models.Exam{
		Title:            in.Title,
		Description:      in.Description,
		Level:            in.Level,
		Skills:           in.Skills,
		Sections:         sections,
		TimeLimitMinutes: in.TimeLimitMinutes,
		PassingScore:     passingScore,
		ScheduleTimezone: "Asia/Ho_Chi_Minh",
		Course:           courseID,
		CreatedBy:        teacherOID,
		Status:           models.ExamStatusPublished,
	}
	exam.RecalcTotalPoints()

	if err := s.Exams.Create(ctx, exam); err != nil {
		return nil, err
	}
	return exam, nil
}

// UpdateExamInput uses pointers so absent fields are left untouched.
type UpdateExamInput struct {
	Title            *string                `json:"title"`
	Description      *string                `json:"description"`
	Level            *string                `json:"level"`
	Sections         *[]models.SkillSection `json:"sections"`
	TimeLimitMinutes *int                   `json:"timeLimitMinutes"`
	PassingScore     *float64               `json:"passingScore"`
	Status           *string                `json:"status"`
	CourseID         *string                `json:"courseId"`
}

func (s *ExamService) UpdateExam(ctx context.Context, teacherID, examID string, in UpdateExamInput) (*models.Exam, error) {
	exam, err := s.ownedExam(ctx, teacherID, examID)
	if err != nil {
		return nil, err
	}

	if in.CourseID != nil && *in.CourseID != exam.Course.Hex() {
		courseID, err := ParseObjectID(*in.CourseID, "course id")
		if err != nil {
			return nil, err
		}
		course, err := s.Courses.FindCourse(ctx, courseID)
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("Course not found")
		}
		if err != nil {
			return nil, err
		}
		if course.AssignedTeacher.Hex() != teacherID {
			return nil, apperr.Forbidden("You are not the teacher of this course")
		}
		exam.Course = courseID
	}

	if in.Title != nil {
		exam.Title = *in.Title
	}
	if in.Description != nil {
		exam.Description = *in.Description
	}
	if in.Level != nil {
		if !models.IsValidLevel(*in.Level) {
			return nil, apperr.BadRequest("level must be one of HSK1..HSK6")
		}
		exam.Level = *in.Level
	}
	if in.TimeLimitMinutes != nil {
		if *in.TimeLimitMinutes < 1 {
			return nil, apperr.BadRequest("timeLimitMinutes must be at least 1")
		}
		exam.TimeLimitMinutes = *in.TimeLimitMinutes
	}
	if in.PassingScore != nil {
		if *in.PassingScore < 0 || *in.PassingScore > 100 {
			return nil, apperr.BadRequest("passingScore must be between 0 and 100")
		}
		exam.PassingScore = *in.PassingScore
	}
	if in.Status != nil {
		switch *in.Status {
		case models.ExamStatusDraft, models.ExamStatusPublished, models.ExamStatusArchived:
			exam.Status = *in.Status
		default:
			return nil, apperr.BadRequest("status must be draft, published or archived")
		}
	}
	if in.Sections != nil {
		sections, err := normalizeSections(*in.Sections)
		if err != nil {
			return nil, err
		}
		exam.Sections = sections
		exam.RecalcTotalPoints()
	}

	if err := s.Exams.Replace(ctx, exam); err != nil {
		return nil, err
	}
	return exam, nil
}

// DeleteExam removes the exam and cascades deletion of its detached bank.
func (s *ExamService) DeleteExam(ctx context.Context, teacherID, examID string) error {
	exam, err := s.ownedExam(ctx, teacherID, examID)
	if err != nil {
		return err
	}
	if err := s.Questions.DeleteByExam(ctx, exam.ID); err != nil {
		return err
	}
	return s.Exams.Delete(ctx, exam.ID)
}

// ExamWithBank is the owner view: the exam plus its detached question bank.
type ExamWithBank struct {
	models.Exam
	Questions []models.ExamQuestion `json:"questions"`
}

// GetExamByID is the owner view and carries every correctAnswer, so the route
// is restricted to teacher and admin; students get /take and /info instead.
func (s *ExamService) GetExamByID(ctx context.Context, userID, role, examID string) (*ExamWithBank, error) {
	oid, err := ParseObjectID(examID, "exam id")
	if err != nil {
		return nil, err
	}
	exam, err := s.Exams.FindByID(ctx, oid)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFound("Exam not found")
	}
	if err != nil {
		return nil, err
	}
	if role == "teacher" && exam.CreatedBy.Hex() != userID {
		return nil, apperr.Forbidden("You are not the owner of this exam")
	}

	questions, err := s.Questions.FindByExam(ctx, exam.ID)
	if err != nil {
		return nil, err
	}
	return &ExamWithBank{Exam: *exam, Questions: questions}, nil
}

// MyExamsFilter scopes the teacher's exam listing.
type MyExamsFilter struct {
	Level    string
	Status   string
	CourseID string
	Page     int
	Limit    int
}

func (s *ExamService) GetMyExams(ctx context.Context, teacherID string, f MyExamsFilter) ([]models.Exam, int64, error) {
	teacherOID, err := ParseObjectID(teacherID, "user id")
	if err != nil {
		return nil, 0, err
	}

	query := bson.M{"createdBy": teacherOID}
	if f.Level != "" {
		query["level"] = f.Level
	}
	if f.Status != "" {
		query["status"] = f.Status
	}
	if f.CourseID != "" {
		courseID, err := ParseObjectID(f.CourseID, "course id")
		if err != nil {
			return nil, 0, err
		}
		query["course"] = courseID
	}

	return s.Exams.Find(ctx, query, f.Page, f.Limit)
}

func (s *ExamService) PublishExam(ctx context.Context, teacherID, examID string) (*models.Exam, error) {
	exam, err := s.ownedExam(ctx, teacherID, examID)
	if err != nil {
		return nil, err
	}
	exam.Status = models.ExamStatusPublished
	if err := s.Exams.Update(ctx, exam.ID, bson.M{"status": models.ExamStatusPublished}); err != nil {
		return nil, err
	}
	return exam, nil
}

// UpdateSchedule sets or clears the open window. Both bounds absent clears
// the schedule; exactly one present is rejected; both present must parse and
// satisfy endAt > startAt strictly.
func (s *ExamService) UpdateSchedule(ctx context.Context, teacherID, examID, startAt, endAt, timezone string) (*models.Exam, error) {
	exam, err := s.ownedExam(ctx, teacherID, examID)
	if err != nil {
		return nil, err
	}

	if startAt == "" && endAt == "" {
		exam.ScheduleStartAt = nil
		exam.ScheduleEndAt = nil
		if timezone != "" {
			exam.ScheduleTimezone = timezone
		}
		if err := s.Exams.Replace(ctx, exam); err != nil {
			return nil, err
		}
		return exam, nil
	}

	if startAt == "" || endAt == "" {
		return nil, apperr.BadRequest("startAt and endAt are required together")
	}

	startDate, err1 := time.Parse(time.RFC3339, startAt)
	endDate, err2 := time.Parse(time.RFC3339, endAt)
	if err1 != nil || err2 != nil {
		return nil, apperr.BadRequest("startAt/endAt must be valid datetime")
	}
	if !endDate.After(startDate) {
		return nil, apperr.BadRequest("endAt must be greater than startAt")
	}

	exam.ScheduleStartAt = &startDate
	exam.ScheduleEndAt = &endDate
	if timezone != "" {
		exam.ScheduleTimezone = timezone
	}
	if err := s.Exams.Replace(ctx, exam); err != nil {
		return nil, err
	}
	return exam, nil
}

// AudioInput is one uploaded listening audio reference.
type AudioInput struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

func (s *ExamService) AttachListeningAudios(ctx context.Context, teacherID, examID string, audios []AudioInput) ([]models.ListeningAudio, error) {
	if len(audios) == 0 {
		return nil, apperr.BadRequest("audios must be a non-empty array")
	}

	exam, err := s.ownedExam(ctx, teacherID, examID)
	if err != nil {
		return nil, err
	}

	var normalized []models.ListeningAudio
	for _, a := range audios {
		if a.URL == "" {
			continue
		}
		name := a.Name
		if name == "" {
			name = a.URL
		}
		normalized = append(normalized, models.ListeningAudio{
			URL:       a.URL,
			Name:      name,
			Provider:  "firebase",
			CreatedAt: time.Now(),
		})
	}
	if len(normalized) == 0 {
		return nil, apperr.BadRequest("audios array must contain at least one valid url")
	}

	exam.ListeningAudios = append(exam.ListeningAudios, normalized...)
	if err := s.Exams.Update(ctx, exam.ID, bson.M{"listeningAudios": exam.ListeningAudios}); err != nil {
		return nil, err
	}
	return exam.ListeningAudios, nil
}

func (s *ExamService) RemoveListeningAudio(ctx context.Context, teacherID, examID, url string) ([]models.ListeningAudio, error) {
	if url == "" {
		return nil, apperr.BadRequest("url is required")
	}

	exam, err := s.ownedExam(ctx, teacherID, examID)
	if err != nil {
		return nil, err
	}

	kept := exam.ListeningAudios[:0]
	for _, a := range exam.ListeningAudios {
		if a.URL != url {
			kept = append(kept, a)
		}
	}
	exam.ListeningAudios = kept
	if err := s.Exams.Update(ctx, exam.ID, bson.M{"listeningAudios": exam.ListeningAudios}); err != nil {
		return nil, err
	}
	return exam.ListeningAudios, nil
}

// AttemptSummary is the student's own attempt state attached to listings.
type AttemptSummary struct {
	Attempted       bool       `json:"attempted"`
	AttemptCount    int64      `json:"attemptCount"`
	Passed          bool       `json:"passed,omitempty"`
	Status          string     `json:"status,omitempty"`
	LatestAttemptAt *time.Time `json:"latestAttemptAt,omitempty"`
}

// ExamInfo is the lightweight metadata view of an exam.
type ExamInfo struct {
	models.Exam
	QuestionCount int64          `json:"questionCount"`
	HasQuestions  bool           `json:"hasQuestions"`
	IsOpenNow     bool           `json:"isOpenNow"`
	MyAttempt     AttemptSummary `json:"myAttempt"`
}

// examInfoAccess is the role rule for the metadata view: teachers see their
// own exams in any status, admins see any exam, students only published ones.
// Student enrollment is checked separately against the course store.
func examInfoAccess(exam *models.Exam, userID, role string) error {
	switch role {
	case "teacher":
		if exam.CreatedBy.Hex() != userID {
			return apperr.Forbidden("You cannot view this exam")
		}
	case "admin":
	default:
		if exam.Status != models.ExamStatusPublished {
			return apperr.Forbidden("Exam is not available")
		}
	}
	return nil
}

func (s *ExamService) GetExamInfo(ctx context.Context, userID, role, examID string) (*ExamInfo, error) {
	oid, err := ParseObjectID(examID, "exam id")
	if err != nil {
		return nil, err
	}
	exam, err := s.Exams.FindByID(ctx, oid)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFound("Exam not found")
	}
	if err != nil {
		return nil, err
	}

	userOID, err := ParseObjectID(userID, "user id")
	if err != nil {
		return nil, err
	}

	if err := examInfoAccess(exam, userID, role); err != nil {
		return nil, err
	}
	if role == "student" {
		enrolled, err := s.Courses.IsEnrolled(ctx, userOID, exam.Course)
		if err != nil {
			return nil, err
		}
		if !enrolled {
			return nil, apperr.Forbidden("You are not enrolled in this course")
		}
	}

	// Metadata view never exposes answers.
	stripCorrectAnswers(exam)

	questionCount, err := s.Questions.CountByExam(ctx, exam.ID)
	if err != nil {
		return nil, err
	}

	info := &ExamInfo{
		Exam:          *exam,
		QuestionCount: questionCount,
		HasQuestions:  questionCount > 0,
		IsOpenNow:     IsExamOpen(exam, time.Now()),
		MyAttempt:     AttemptSummary{},
	}

	if role == "student" {
		summary, err := s.attemptSummary(ctx, exam.ID, userOID)
		if err != nil {
			return nil, err
		}
		info.MyAttempt = summary
	}
	return info, nil
}

// ExamWithAttempt pairs an exam listing row with the student's own attempts.
type ExamWithAttempt struct {
	models.Exam
	MyAttempt *AttemptSummary `json:"myAttempt,omitempty"`
}

// GetExamsByCourse lists a course's exams: the owning teacher sees every
// status, enrolled students only published ones plus their attempt summary.
func (s *ExamService) GetExamsByCourse(ctx context.Context, userID, role, courseID string, f MyExamsFilter) ([]ExamWithAttempt, int64, error) {
	courseOID, err := ParseObjectID(courseID, "course id")
	if err != nil {
		return nil, 0, err
	}
	userOID, err := ParseObjectID(userID, "user id")
	if err != nil {
		return nil, 0, err
	}

	course, err := s.Courses.FindCourse(ctx, courseOID)
	if err == mongo.ErrNoDocuments {
		return nil, 0, apperr.NotFound("Course not found")
	}
	if err != nil {
		return nil, 0, err
	}

	query := bson.M{"course": courseOID}
	if role == "teacher" {
		if course.AssignedTeacher != userOID {
			return nil, 0, apperr.Forbidden("You are not the teacher of this course")
		}
		if f.Status != "" {
			query["status"] = f.Status
		}
	} else {
		enrolled, err := s.Courses.IsEnrolled(ctx, userOID, courseOID)
		if err != nil {
			return nil, 0, err
		}
		if !enrolled {
			return nil, 0, apperr.Forbidden("You are not enrolled in this course")
		}
		query["status"] = models.ExamStatusPublished
	}
	if f.Level != "" {
		query["level"] = f.Level
	}

	exams, total, err := s.Exams.Find(ctx, query, f.Page, f.Limit)
	if err != nil {
		return nil, 0, err
	}

	rows := make([]ExamWithAttempt, 0, len(exams))
	for i := range exams {
		exam := exams[i]
		row := ExamWithAttempt{Exam: exam}
		if role == "student" {
			stripCorrectAnswers(&row.Exam)
			summary, err := s.attemptSummary(ctx, exam.ID, userOID)
			if err != nil {
				return nil, 0, err
			}
			row.MyAttempt = &summary
		}
		rows = append(rows, row)
	}
	return rows, total, nil
}

// GetAvailableExams lists open, published exams in the student's enrolled
// courses, answers stripped.
func (s *ExamService) GetAvailableExams(ctx context.Context, studentID string, f MyExamsFilter) ([]models.Exam, error) {
	studentOID, err := ParseObjectID(studentID, "user id")
	if err != nil {
		return nil, err
	}

	courseIDs, err := s.Courses.EnrolledCourseIDs(ctx, studentOID)
	if err != nil {
		return nil, err
	}
	if len(courseIDs) == 0 {
		return []models.Exam{}, nil
	}

	query := bson.M{"status": models.ExamStatusPublished}
	if f.Level != "" {
		query["level"] = f.Level
	}
	if f.CourseID != "" {
		courseOID, err := ParseObjectID(f.CourseID, "course id")
		if err != nil {
			return nil, err
		}
		inMine := false
		for _, id := range courseIDs {
			if id == courseOID {
				inMine = true
				break
			}
		}
		if !inMine {
			return nil, apperr.Forbidden("You are not enrolled in this course")
		}
		query["course"] = courseOID
	} else {
		query["course"] = bson.M{"$in": courseIDs}
	}

	exams, _, err := s.Exams.Find(ctx, query, f.Page, f.Limit)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	open := make([]models.Exam, 0, len(exams))
	for i := range exams {
		if IsExamOpen(&exams[i], now) {
			stripCorrectAnswers(&exams[i])
			open = append(open, exams[i])
		}
	}
	return open, nil
}

func (s *ExamService) attemptSummary(ctx context.Context, examID, studentID primitive.ObjectID) (AttemptSummary, error) {
	total, err := s.Results.CountAttempts(ctx, examID, studentID)
	if err != nil {
		return AttemptSummary{}, err
	}
	if total == 0 {
		return AttemptSummary{Attempted: false, AttemptCount: 0}, nil
	}

	latest, err := s.Results.FindOne(ctx, bson.M{"exam": examID, "student": studentID})
	if err != nil {
		return AttemptSummary{}, err
	}

	at := latest.SubmittedAt
	if at == nil {
		at = &latest.StartedAt
	}
	return AttemptSummary{
		Attempted:       true,
		AttemptCount:    total,
		Passed:          latest.Score.Passed,
		Status:          latest.Status,
		LatestAttemptAt: at,
	}, nil
}

// ownedExam loads an exam and enforces that the caller created it.
func (s *ExamService) ownedExam(ctx context.Context, teacherID, examID string) (*models.Exam, error) {
	oid, err := ParseObjectID(examID, "exam id")
	if err != nil {
		return nil, err
	}
	exam, err := s.Exams.FindByID(ctx, oid)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFound("Exam not found")
	}
	if err != nil {
		return nil, err
	}
	if exam.CreatedBy.Hex() != teacherID {
		return nil, apperr.Forbidden("You are not the owner of this exam")
	}
	return exam, nil
}

// stripCorrectAnswers removes answer keys before an exam reaches a student.
func stripCorrectAnswers(exam *models.Exam) {
	for i := range exam.Sections {
		for j := range exam.Sections[i].Questions {
			exam.Sections[i].Questions[j].CorrectAnswer = ""
		}
	}
}

// normalizeSections assigns ids, applies the default point value and
// validates skills for caller-supplied sections.
func normalizeSections(sections []models.SkillSection) ([]models.SkillSection, error) {
	for i := range sections {
		if !models.IsValidSkill(sections[i].Skill) {
			return nil, apperr.BadRequest("section skill must be listening, reading or writing")
		}
		if sections[i].ID.IsZero() {
			sections[i].ID = primitive.NewObjectID()
		}
		for j := range sections[i].Questions {
			q := &sections[i].Questions[j]
			if q.ID.IsZero() {
				q.ID = primitive.NewObjectID()
			}
			if q.Points == 0 {
				q.Points = 1
			}
			if q.Points < 0.5 {
				return nil, apperr.BadRequest("question points must be at least 0.5")
			}
		}
	}
	return sections, nil
}
