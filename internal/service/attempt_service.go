package service

import (
	"context"
	"math"
	"strings"
	"time"

	"hsk-exam-service/internal/apperr"
	"hsk-exam-service/internal/event"
	"hsk-exam-service/internal/models"
	"hsk-exam-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AttemptService drives the attempt state machine:
// in_progress -> submitted -> graded, with submitted skipped when the exam
// has no writing section.
type AttemptService struct {
	Exams     *repository.ExamRepository
	Results   *repository.ResultRepository
	Courses   *repository.CourseRepository
	Stats     *StatsService
	Publisher *event.EventPublisher
}

func NewAttemptService(exams *repository.ExamRepository, results *repository.ResultRepository, courses *repository.CourseRepository, stats *StatsService, publisher *event.EventPublisher) *AttemptService {
	return &AttemptService{Exams: exams, Results: results, Courses: courses, Stats: stats, Publisher: publisher}
}

// StartExamResponse seeds the client's attempt screen.
type StartExamResponse struct {
	ResultID         string       `json:"resultId"`
	AttemptCount     int          `json:"attemptCount"`
	Exam             *models.Exam `json:"exam"`
	TimeLimitMinutes int          `json:"timeLimitMinutes"`
	StartedAt        time.Time    `json:"startedAt"`
}

// StartExam opens a new attempt. The exam's sections are snapshotted into
// the result so later exam edits cannot change a running attempt's shape.
func (s *AttemptService) StartExam(ctx context.Context, studentID, examID string) (*StartExamResponse, error) {
	examOID, err := ParseObjectID(examID, "exam id")
	if err != nil {
		return nil, err
	}
	studentOID, err := ParseObjectID(studentID, "student id")
	if err != nil {
		return nil, err
	}

	exam, err := s.Exams.FindByID(ctx, examOID)
	if err != nil {
		return nil, apperr.NotFound("Exam not found")
	}
	if err := examAvailability(exam, time.Now()); err != nil {
		return nil, err
	}
	if err := s.requireEnrollment(ctx, studentOID, exam); err != nil {
		return nil, err
	}

	attempts, err := s.Results.CountAttempts(ctx, examOID, studentOID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	result := &models.ExamResult{
		Exam:           examOID,
		Student:        studentOID,
		Course:         exam.Course,
		AttemptCount:   int(attempts) + 1,
		SectionResults: seedSectionResults(exam),
		Score:          models.Score{MaxPoints: exam.TotalPoints},
		StartedAt:      now,
		Status:         models.ResultStatusInProgress,
	}
	if err := s.Results.Create(ctx, result); err != nil {
		return nil, err
	}

	s.Publisher.Publish(event.AttemptStarted, map[string]interface{}{
		"resultId":  result.ID.Hex(),
		"examId":    examOID.Hex(),
		"studentId": studentOID.Hex(),
		"attempt":   result.AttemptCount,
	})

	stripCorrectAnswers(exam)
	return &StartExamResponse{
		ResultID:         result.ID.Hex(),
		AttemptCount:     result.AttemptCount,
		Exam:             exam,
		TimeLimitMinutes: exam.TimeLimitMinutes,
		StartedAt:        now,
	}, nil
}

// examAvailability is the attempt gate: starting and resuming apply the same
// checks, so an exam that closes mid-attempt cannot be resumed either.
func examAvailability(exam *models.Exam, now time.Time) error {
	if exam.Status != models.ExamStatusPublished {
		return apperr.BadRequest("Exam is not available")
	}
	if !IsExamOpen(exam, now) {
		return apperr.BadRequest("Exam is not open at this time")
	}
	if len(exam.Sections) == 0 {
		return apperr.BadRequest("Exam has no questions yet")
	}
	return nil
}

func (s *AttemptService) requireEnrollment(ctx context.Context, studentOID primitive.ObjectID, exam *models.Exam) error {
	if exam.Course.IsZero() {
		return nil
	}
	enrolled, err := s.Courses.IsEnrolled(ctx, studentOID, exam.Course)
	if err != nil {
		return err
	}
	if !enrolled {
		return apperr.Forbidden("You are not enrolled in this course")
	}
	return nil
}

// seedSectionResults snapshots the exam's sections with empty answers, one
// slot per question.
func seedSectionResults(exam *models.Exam) []models.SectionResult {
	sections := make([]models.SectionResult, 0, len(exam.Sections))
	for _, section := range exam.Sections {
		answers := make([]models.Answer, 0, len(section.Questions))
		var maxScore float64
		for _, q := range section.Questions {
			points := q.Points
			if points <= 0 {
				points = 1
			}
			maxScore += points
			wrong := false
			answers = append(answers, models.Answer{
				QuestionID: q.ID,
				Answer:     "",
				IsCorrect:  &wrong,
			})
		}
		sections = append(sections, models.SectionResult{
			SectionID: section.ID,
			Skill:     section.Skill,
			Answers:   answers,
			MaxScore:  maxScore,
		})
	}
	return sections
}

// TakeExamResponse is the resumed attempt screen.
type TakeExamResponse struct {
	Exam   *models.Exam       `json:"exam"`
	Result *models.ExamResult `json:"result"`
}

// TakeExam resumes an in-progress attempt. attemptId is mandatory: resuming
// without one would silently fork the attempt, so it is rejected outright.
// The availability and enrollment gates apply on resume exactly as on start.
func (s *AttemptService) TakeExam(ctx context.Context, studentID, examID, attemptID string) (*TakeExamResponse, error) {
	if attemptID == "" {
		return nil, apperr.BadRequest("attemptId is required (please start exam first)")
	}
	examOID, err := ParseObjectID(examID, "exam id")
	if err != nil {
		return nil, err
	}
	studentOID, err := ParseObjectID(studentID, "student id")
	if err != nil {
		return nil, err
	}
	resultOID, err := ParseObjectID(attemptID, "attempt id")
	if err != nil {
		return nil, err
	}

	result, err := s.Results.FindByID(ctx, resultOID)
	if err != nil {
		return nil, apperr.NotFound("Attempt not found")
	}
	if result.Student.Hex() != studentID {
		return nil, apperr.Forbidden("This is not your exam")
	}
	if result.Exam != examOID {
		return nil, apperr.BadRequest("Attempt does not belong to this exam")
	}
	if result.Status != models.ResultStatusInProgress {
		return nil, apperr.BadRequest("Exam already submitted")
	}

	exam, err := s.Exams.FindByID(ctx, examOID)
	if err != nil {
		return nil, apperr.NotFound("Exam not found")
	}
	if err := examAvailability(exam, time.Now()); err != nil {
		return nil, err
	}
	if err := s.requireEnrollment(ctx, studentOID, exam); err != nil {
		return nil, err
	}
	stripCorrectAnswers(exam)
	return &TakeExamResponse{Exam: exam, Result: result}, nil
}

// SubmittedAnswer is one answer in the submit body. Answers are matched to
// the snapshot by question id.
type SubmittedAnswer struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

type SubmitInput struct {
	Answers []SubmittedAnswer `json:"answers"`
}

// questionKey carries what scoring needs from one embedded question.
type questionKey struct {
	correctAnswer string
	points        float64
}

// SubmitExam grades every auto-gradable answer and closes the attempt.
// Objective answers compare case-insensitively after trimming; full points
// on an exact match, zero otherwise. Writing answers are left ungraded
// (isCorrect nil) and hold the attempt in submitted until a teacher grades
// them; attempts with no writing go straight to graded.
func (s *AttemptService) SubmitExam(ctx context.Context, studentID, resultID string, in SubmitInput) (*models.ExamResult, error) {
	resultOID, err := ParseObjectID(resultID, "result id")
	if err != nil {
		return nil, err
	}
	result, err := s.Results.FindByID(ctx, resultOID)
	if err != nil {
		return nil, apperr.NotFound("Exam result not found")
	}
	if result.Student.Hex() != studentID {
		return nil, apperr.Forbidden("This is not your exam")
	}
	if result.Status != models.ResultStatusInProgress {
		return nil, apperr.BadRequest("Exam already submitted")
	}

	exam, err := s.Exams.FindByID(ctx, result.Exam)
	if err != nil {
		return nil, apperr.NotFound("Exam not found")
	}

	hasWriting := scoreAttempt(result, exam, in.Answers)

	now := time.Now()
	result.SubmittedAt = &now
	result.TimeSpentMinutes = int(math.Round(now.Sub(result.StartedAt).Minutes()))

	if hasWriting {
		result.Status = models.ResultStatusSubmitted
	} else {
		result.Status = models.ResultStatusGraded
		result.GradedAt = &now
	}

	if err := s.Results.Replace(ctx, result); err != nil {
		return nil, err
	}

	s.Publisher.Publish(event.AttemptSubmitted, map[string]interface{}{
		"resultId":  result.ID.Hex(),
		"examId":    result.Exam.Hex(),
		"studentId": result.Student.Hex(),
		"status":    result.Status,
	})

	if result.Status == models.ResultStatusGraded {
		s.Stats.RecordGraded(ctx, exam, result)
	}
	return result, nil
}

// scoreAttempt applies submitted answers to the snapshot and grades every
// non-writing answer: full points on an exact normalized match, zero
// otherwise. Writing answers get isCorrect nil and wait for manual grading.
// Returns whether the attempt contains any writing answer.
func scoreAttempt(result *models.ExamResult, exam *models.Exam, answers []SubmittedAnswer) bool {
	keys := make(map[primitive.ObjectID]questionKey)
	for _, section := range exam.Sections {
		for _, q := range section.Questions {
			points := q.Points
			if points <= 0 {
				points = 1
			}
			keys[q.ID] = questionKey{
				correctAnswer: normalizeAnswer(q.CorrectAnswer),
				points:        points,
			}
		}
	}

	submitted := make(map[string]string, len(answers))
	for _, a := range answers {
		submitted[a.QuestionID] = a.Answer
	}

	hasWriting := false
	var total float64
	var skills models.SkillScores
	for si := range result.SectionResults {
		section := &result.SectionResults[si]
		section.Score = 0
		for ai := range section.Answers {
			ans := &section.Answers[ai]
			if raw, ok := submitted[ans.QuestionID.Hex()]; ok {
				ans.Answer = raw
			}

			if section.Skill == models.SkillWriting {
				hasWriting = true
				ans.IsCorrect = nil
				ans.PointsEarned = 0
				continue
			}

			key, known := keys[ans.QuestionID]
			if !known {
				// Question removed from the exam after the snapshot; the
				// seeded zero stands.
				continue
			}

			correct := key.correctAnswer != "" && normalizeAnswer(ans.Answer) == key.correctAnswer
			ans.IsCorrect = &correct
			if correct {
				ans.PointsEarned = key.points
			} else {
				ans.PointsEarned = 0
			}
			section.Score += ans.PointsEarned
		}

		switch section.Skill {
		case models.SkillListening:
			skills.Listening = section.Score
		case models.SkillReading:
			skills.Reading = section.Score
		case models.SkillWriting:
			skills.Writing = section.Score
		}
		total += section.Score
	}

	// MaxPoints was snapshotted when the attempt started; exam edits made
	// mid-attempt must not change the denominator.
	result.Score.TotalPoints = total
	result.Score.Percentage = percentage(total, result.Score.MaxPoints)
	result.Score.Passed = result.Score.Percentage >= exam.PassingScore
	result.SkillScores = skills
	return hasWriting
}

func normalizeAnswer(a string) string {
	return strings.ToLower(strings.TrimSpace(a))
}

func percentage(total, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return math.Round(total / max * 100)
}

// GetMyResults lists the student's finished attempts, most recent first.
// In-progress attempts are not results yet and are excluded.
func (s *AttemptService) GetMyResults(ctx context.Context, studentID string, page, limit int) ([]models.ExamResult, int64, error) {
	studentOID, err := ParseObjectID(studentID, "student id")
	if err != nil {
		return nil, 0, err
	}
	filter := bson.M{
		"student": studentOID,
		"status":  bson.M{"$in": []string{models.ResultStatusSubmitted, models.ResultStatusGraded}},
	}
	return s.Results.Find(ctx, filter, page, limit)
}

// GetResultDetail returns one attempt. Students see only their own; teachers
// and admins see any.
func (s *AttemptService) GetResultDetail(ctx context.Context, userID, role, resultID string) (*models.ExamResult, error) {
	resultOID, err := ParseObjectID(resultID, "result id")
	if err != nil {
		return nil, err
	}
	result, err := s.Results.FindByID(ctx, resultOID)
	if err != nil {
		return nil, apperr.NotFound("Exam result not found")
	}
	if role == "student" && result.Student.Hex() != userID {
		return nil, apperr.Forbidden("This is not your exam")
	}
	return result, nil
}

// ExamHistory summarizes a student's attempts on one exam.
type ExamHistory struct {
	Attempts       []models.ExamResult `json:"attempts"`
	TotalAttempts  int                 `json:"totalAttempts"`
	BestPercentage float64             `json:"bestPercentage"`
	AveragePercent float64             `json:"averagePercent"`
}

func (s *AttemptService) GetMyExamHistory(ctx context.Context, studentID, examID string) (*ExamHistory, error) {
	examOID, err := ParseObjectID(examID, "exam id")
	if err != nil {
		return nil, err
	}
	studentOID, err := ParseObjectID(studentID, "student id")
	if err != nil {
		return nil, err
	}

	attempts, err := s.Results.FindAll(ctx, bson.M{
		"exam":    examOID,
		"student": studentOID,
		"status":  models.ResultStatusGraded,
	})
	if err != nil {
		return nil, err
	}

	history := &ExamHistory{Attempts: attempts, TotalAttempts: len(attempts)}
	if len(attempts) == 0 {
		return history, nil
	}
	var sum float64
	for _, a := range attempts {
		sum += a.Score.Percentage
		if a.Score.Percentage > history.BestPercentage {
			history.BestPercentage = a.Score.Percentage
		}
	}
	history.AveragePercent = math.Round(sum/float64(len(attempts))*100) / 100
	return history, nil
}
