package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"hsk-exam-service/internal/apperr"
	"hsk-exam-service/internal/models"
	"hsk-exam-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
)

// GradingService applies teacher grades to writing answers and closes out
// attempts held in submitted.
type GradingService struct {
	Exams         *repository.ExamRepository
	Results       *repository.ResultRepository
	Stats         *StatsService
	Notifications *NotificationService
}

func NewGradingService(exams *repository.ExamRepository, results *repository.ResultRepository, stats *StatsService, notifications *NotificationService) *GradingService {
	return &GradingService{Exams: exams, Results: results, Stats: stats, Notifications: notifications}
}

// WritingGrade is one graded writing answer in the request body.
type WritingGrade struct {
	QuestionID string  `json:"questionId"`
	Points     float64 `json:"points"`
	Feedback   string  `json:"feedback"`
}

type GradeWritingInput struct {
	Grades []WritingGrade `json:"grades"`
}

// GradeWriting records writing grades on a not-yet-graded attempt and moves
// it to graded. Points clamp to [0, question points]; an answer is marked correct
// only on full points. All sections are re-totaled from the stored answers
// so the auto-graded part cannot drift.
func (s *GradingService) GradeWriting(ctx context.Context, teacherID, resultID string, in GradeWritingInput) (*models.ExamResult, error) {
	if len(in.Grades) == 0 {
		return nil, apperr.BadRequest("grades must be a non-empty array")
	}

	resultOID, err := ParseObjectID(resultID, "result id")
	if err != nil {
		return nil, err
	}
	result, err := s.Results.FindByID(ctx, resultOID)
	if err != nil {
		return nil, apperr.NotFound("Exam result not found")
	}
	if err := gradableStatus(result.Status); err != nil {
		return nil, err
	}

	exam, err := s.Exams.FindByID(ctx, result.Exam)
	if err != nil {
		return nil, apperr.NotFound("Exam not found")
	}
	if exam.CreatedBy.Hex() != teacherID {
		return nil, apperr.Forbidden("You are not the owner of this exam")
	}

	maxPoints := map[string]float64{}
	for _, section := range exam.Sections {
		if section.Skill != models.SkillWriting {
			continue
		}
		for _, q := range section.Questions {
			points := q.Points
			if points <= 0 {
				points = 1
			}
			maxPoints[q.ID.Hex()] = points
		}
	}

	grades := map[string]WritingGrade{}
	for _, g := range in.Grades {
		grades[g.QuestionID] = g
	}

	graded := 0
	for si := range result.SectionResults {
		section := &result.SectionResults[si]
		if section.Skill != models.SkillWriting {
			continue
		}
		for ai := range section.Answers {
			ans := &section.Answers[ai]
			grade, ok := grades[ans.QuestionID.Hex()]
			if !ok {
				continue
			}

			max, known := maxPoints[ans.QuestionID.Hex()]
			if !known {
				max = 1
			}
			points := clampPoints(grade.Points, max)

			correct := points == max
			ans.IsCorrect = &correct
			ans.PointsEarned = points
			ans.Feedback = grade.Feedback
			graded++
		}
	}
	if graded == 0 {
		return nil, apperr.BadRequest("No writing answers matched the given question ids")
	}

	recomputeTotals(result, exam.PassingScore)

	now := time.Now()
	teacherOID, err := ParseObjectID(teacherID, "teacher id")
	if err != nil {
		return nil, err
	}
	result.Status = models.ResultStatusGraded
	result.GradedAt = &now
	result.GradedBy = &teacherOID

	if err := s.Results.Replace(ctx, result); err != nil {
		return nil, err
	}

	s.Stats.RecordGraded(ctx, exam, result)

	if err := s.Notifications.NotifyGraded(ctx, teacherOID, result.Student, exam, result); err != nil {
		log.Printf("[GRADING] notification failed for result %s: %v", result.ID.Hex(), err)
	}

	return result, nil
}

// gradableStatus is the only state precondition for writing grades: graded is
// terminal, everything else (submitted or still in progress) may be graded.
func gradableStatus(status string) error {
	if status == models.ResultStatusGraded {
		return apperr.BadRequest("This exam has already been fully graded")
	}
	return nil
}

// clampPoints keeps a grade inside [0, max].
func clampPoints(points, max float64) float64 {
	if points < 0 {
		return 0
	}
	if points > max {
		return max
	}
	return points
}

// recomputeTotals re-derives every section score, the skill totals and the
// overall score from the stored answers, so the auto-graded part cannot
// drift from what was persisted at submit time.
func recomputeTotals(result *models.ExamResult, passingScore float64) {
	var total float64
	var skills models.SkillScores
	for si := range result.SectionResults {
		section := &result.SectionResults[si]
		section.Score = 0
		for _, ans := range section.Answers {
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

	result.Score.TotalPoints = total
	result.Score.Percentage = percentage(total, result.Score.MaxPoints)
	result.Score.Passed = result.Score.Percentage >= passingScore
	result.SkillScores = skills
}

// PendingGrading lists a teacher's submitted attempts waiting on a writing
// grade, for one exam.
func (s *GradingService) PendingGrading(ctx context.Context, teacherID, examID string, page, limit int) ([]models.ExamResult, int64, error) {
	exam, err := s.ownedExam(ctx, teacherID, examID)
	if err != nil {
		return nil, 0, err
	}
	filter := bson.M{
		"exam":   exam.ID,
		"status": models.ResultStatusSubmitted,
	}
	return s.Results.Find(ctx, filter, page, limit)
}

func (s *GradingService) ownedExam(ctx context.Context, teacherID, examID string) (*models.Exam, error) {
	oid, err := ParseObjectID(examID, "exam id")
	if err != nil {
		return nil, err
	}
	exam, err := s.Exams.FindByID(ctx, oid)
	if err != nil {
		return nil, apperr.NotFound(fmt.Sprintf("Exam %s not found", examID))
	}
	if exam.CreatedBy.Hex() != teacherID {
		return nil, apperr.Forbidden("You are not the owner of this exam")
	}
	return exam, nil
}
