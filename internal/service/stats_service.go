package service

import (
	"context"
	"log"
	"math"
	"sort"
	"strings"

	"hsk-exam-service/internal/apperr"
	"hsk-exam-service/internal/cache"
	"hsk-exam-service/internal/event"
	"hsk-exam-service/internal/models"
	"hsk-exam-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
)

// StatsService aggregates graded attempts into teacher- and course-facing
// views, and owns the finalization step that runs whenever an attempt
// reaches graded.
type StatsService struct {
	Exams     *repository.ExamRepository
	Results   *repository.ResultRepository
	Courses   *repository.CourseRepository
	Ranking   cache.RankingCache
	Publisher *event.EventPublisher
}

func NewStatsService(exams *repository.ExamRepository, results *repository.ResultRepository, courses *repository.CourseRepository, ranking cache.RankingCache, publisher *event.EventPublisher) *StatsService {
	return &StatsService{Exams: exams, Results: results, Courses: courses, Ranking: ranking, Publisher: publisher}
}

// RecordGraded runs after an attempt reaches graded, on both the auto-grade
// and the manual-grade path. The exam's stats block is re-derived from a
// query over graded attempts, never incremented in place. Ranking-cache and
// broker failures are logged and swallowed; the grade itself is already
// persisted.
func (s *StatsService) RecordGraded(ctx context.Context, exam *models.Exam, result *models.ExamResult) {
	count, avg, err := s.Results.GradedStats(ctx, exam.ID)
	if err != nil {
		log.Printf("[STATS] refresh failed for exam %s: %v", exam.ID.Hex(), err)
	} else {
		update := bson.M{"stats": models.ExamStats{
			AttemptCount: int(count),
			AverageScore: round2(avg),
		}}
		if err := s.Exams.Update(ctx, exam.ID, update); err != nil {
			log.Printf("[STATS] update failed for exam %s: %v", exam.ID.Hex(), err)
		}
	}

	if s.Ranking != nil {
		if err := s.Ranking.UpdateScore(ctx, exam.ID.Hex(), result.Student.Hex(), result.Score.Percentage); err != nil {
			log.Printf("[STATS] ranking update failed for exam %s: %v", exam.ID.Hex(), err)
		}
	}

	s.Publisher.Publish(event.AttemptGraded, map[string]interface{}{
		"resultId":   result.ID.Hex(),
		"examId":     exam.ID.Hex(),
		"studentId":  result.Student.Hex(),
		"percentage": result.Score.Percentage,
		"passed":     result.Score.Passed,
	})
}

// ScoreBands buckets graded percentages for the teacher dashboard chart.
type ScoreBands struct {
	UpTo50  int `json:"upTo50"`
	To70    int `json:"to70"`
	To85    int `json:"to85"`
	Above85 int `json:"above85"`
}

type SkillBreakdown struct {
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
}

type RankedResult struct {
	Rank       int     `json:"rank"`
	StudentID  string  `json:"studentId"`
	ResultID   string  `json:"resultId"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
	Attempt    int     `json:"attempt"`
}

// TeacherExamStats is the per-exam teacher dashboard.
type TeacherExamStats struct {
	ExamID          string                    `json:"examId"`
	Title           string                    `json:"title"`
	GradedCount     int                       `json:"gradedCount"`
	SubmittedCount  int                       `json:"submittedCount"`
	InProgressCount int                       `json:"inProgressCount"`
	AverageScore    float64                   `json:"averageScore"`
	HighestScore    float64                   `json:"highestScore"`
	LowestScore     float64                   `json:"lowestScore"`
	PassRate        float64                   `json:"passRate"`
	Bands           ScoreBands                `json:"bands"`
	Skills          map[string]SkillBreakdown `json:"skills"`
	Ranking         []RankedResult            `json:"ranking"`
}

// GetTeacherExamStats computes the dashboard for one exam from all of its
// attempts. Only graded attempts enter the score figures; submitted and
// in-progress ones are counted separately.
func (s *StatsService) GetTeacherExamStats(ctx context.Context, teacherID, examID string) (*TeacherExamStats, error) {
	exam, err := s.ownedExam(ctx, teacherID, examID)
	if err != nil {
		return nil, err
	}

	results, err := s.Results.FindAll(ctx, bson.M{"exam": exam.ID})
	if err != nil {
		return nil, err
	}

	stats := &TeacherExamStats{
		ExamID: exam.ID.Hex(),
		Title:  exam.Title,
		Skills: map[string]SkillBreakdown{},
	}

	var graded []models.ExamResult
	for _, r := range results {
		switch r.Status {
		case models.ResultStatusGraded:
			graded = append(graded, r)
		case models.ResultStatusSubmitted:
			stats.SubmittedCount++
		case models.ResultStatusInProgress:
			stats.InProgressCount++
		}
	}
	stats.GradedCount = len(graded)
	if len(graded) == 0 {
		return stats, nil
	}

	var sum float64
	passed := 0
	stats.LowestScore = graded[0].Score.Percentage
	skillSums := map[string]float64{}
	skillMaxes := map[string]float64{}
	for _, r := range graded {
		p := r.Score.Percentage
		sum += p
		if p > stats.HighestScore {
			stats.HighestScore = p
		}
		if p < stats.LowestScore {
			stats.LowestScore = p
		}
		if r.Score.Passed {
			passed++
		}

		switch {
		case p <= 50:
			stats.Bands.UpTo50++
		case p <= 70:
			stats.Bands.To70++
		case p <= 85:
			stats.Bands.To85++
		default:
			stats.Bands.Above85++
		}

		for skill, score := range map[string]float64{
			models.SkillListening: r.SkillScores.Listening,
			models.SkillReading:   r.SkillScores.Reading,
			models.SkillWriting:   r.SkillScores.Writing,
		} {
			skillSums[skill] += score
			if score > skillMaxes[skill] {
				skillMaxes[skill] = score
			}
		}
	}

	n := float64(len(graded))
	stats.AverageScore = round2(sum / n)
	stats.PassRate = round2(float64(passed) / n * 100)
	for _, skill := range []string{models.SkillListening, models.SkillReading, models.SkillWriting} {
		stats.Skills[skill] = SkillBreakdown{
			Average: round2(skillSums[skill] / n),
			Max:     skillMaxes[skill],
		}
	}

	sort.SliceStable(graded, func(i, j int) bool {
		return graded[i].Score.Percentage > graded[j].Score.Percentage
	})
	for i, r := range graded {
		stats.Ranking = append(stats.Ranking, RankedResult{
			Rank:       i + 1,
			StudentID:  r.Student.Hex(),
			ResultID:   r.ID.Hex(),
			Percentage: r.Score.Percentage,
			Passed:     r.Score.Passed,
			Attempt:    r.AttemptCount,
		})
	}
	return stats, nil
}

// CourseExamResults is the course-wide results listing for a teacher.
type CourseExamResults struct {
	CourseID string                  `json:"courseId"`
	Results  []models.ExamResult     `json:"results"`
	Stats    *repository.CourseStats `json:"stats"`
}

func (s *StatsService) GetCourseExamResults(ctx context.Context, teacherID, courseID string, page, limit int) (*CourseExamResults, int64, error) {
	courseOID, err := ParseObjectID(courseID, "course id")
	if err != nil {
		return nil, 0, err
	}
	course, err := s.Courses.FindCourse(ctx, courseOID)
	if err != nil {
		return nil, 0, apperr.NotFound("Course not found")
	}
	if course.AssignedTeacher.Hex() != teacherID {
		return nil, 0, apperr.Forbidden("You are not the teacher of this course")
	}

	results, total, err := s.Results.Find(ctx, bson.M{"course": courseOID}, page, limit)
	if err != nil {
		return nil, 0, err
	}
	courseStats, err := s.Results.AggregateCourseStats(ctx, courseOID)
	if err != nil {
		return nil, 0, err
	}
	courseStats.AverageScore = round2(courseStats.AverageScore)

	return &CourseExamResults{
		CourseID: courseID,
		Results:  results,
		Stats:    courseStats,
	}, total, nil
}

// JoinedStudent is one student's participation line on an exam.
type JoinedStudent struct {
	StudentID    string  `json:"studentId"`
	Attempts     int     `json:"attempts"`
	BestPercent  float64 `json:"bestPercent"`
	LastStatus   string  `json:"lastStatus"`
	LastResultID string  `json:"lastResultId"`
}

// GetStudentsJoinedExam lists every student with at least one attempt,
// collapsed to one line each.
func (s *StatsService) GetStudentsJoinedExam(ctx context.Context, teacherID, examID string) ([]JoinedStudent, error) {
	exam, err := s.ownedExam(ctx, teacherID, examID)
	if err != nil {
		return nil, err
	}

	results, err := s.Results.FindAll(ctx, bson.M{"exam": exam.ID})
	if err != nil {
		return nil, err
	}

	byStudent := map[string]*JoinedStudent{}
	var order []string
	for _, r := range results {
		id := r.Student.Hex()
		entry, ok := byStudent[id]
		if !ok {
			entry = &JoinedStudent{StudentID: id}
			byStudent[id] = entry
			order = append(order, id)
		}
		entry.Attempts++
		if r.Status == models.ResultStatusGraded && r.Score.Percentage > entry.BestPercent {
			entry.BestPercent = r.Score.Percentage
		}
		// Results come back newest first; the first row per student is the
		// latest attempt.
		if entry.LastResultID == "" {
			entry.LastStatus = r.Status
			entry.LastResultID = r.ID.Hex()
		}
	}

	students := make([]JoinedStudent, 0, len(order))
	for _, id := range order {
		students = append(students, *byStudent[id])
	}
	return students, nil
}

// AnsweredQuestion pairs a student's answer with the question it answered,
// matched by question id against the exam's embedded sections.
type AnsweredQuestion struct {
	QuestionID    string          `json:"questionId"`
	Content       string          `json:"content"`
	Options       []models.Option `json:"options"`
	CorrectAnswer string          `json:"correctAnswer"`
	StudentAnswer string          `json:"studentAnswer"`
	IsCorrect     *bool           `json:"isCorrect"`
	PointsEarned  float64         `json:"pointsEarned"`
	Points        float64         `json:"points"`
	Feedback      string          `json:"feedback,omitempty"`
}

type SectionDetail struct {
	Skill     string             `json:"skill"`
	Score     float64            `json:"score"`
	MaxScore  float64            `json:"maxScore"`
	Questions []AnsweredQuestion `json:"questions"`
}

// StudentResultDetail is the teacher's per-student review screen.
type StudentResultDetail struct {
	Result   *models.ExamResult `json:"result"`
	Sections []SectionDetail    `json:"sections"`
}

// GetStudentResult returns a student's latest attempt on an exam with each
// answer joined to its question by id. Questions the exam no longer carries
// appear with empty content rather than shifting later answers.
func (s *StatsService) GetStudentResult(ctx context.Context, teacherID, examID, studentID string) (*StudentResultDetail, error) {
	exam, err := s.ownedExam(ctx, teacherID, examID)
	if err != nil {
		return nil, err
	}
	studentOID, err := ParseObjectID(studentID, "student id")
	if err != nil {
		return nil, err
	}

	result, err := s.Results.FindOne(ctx, bson.M{"exam": exam.ID, "student": studentOID})
	if err != nil {
		return nil, apperr.NotFound("No attempt found for this student")
	}

	questions := map[string]models.EmbeddedQuestion{}
	for _, section := range exam.Sections {
		for _, q := range section.Questions {
			questions[q.ID.Hex()] = q
		}
	}

	detail := &StudentResultDetail{Result: result}
	for _, section := range result.SectionResults {
		sec := SectionDetail{
			Skill:    section.Skill,
			Score:    section.Score,
			MaxScore: section.MaxScore,
		}
		for _, ans := range section.Answers {
			item := AnsweredQuestion{
				QuestionID:    ans.QuestionID.Hex(),
				StudentAnswer: ans.Answer,
				IsCorrect:     ans.IsCorrect,
				PointsEarned:  ans.PointsEarned,
				Feedback:      ans.Feedback,
			}
			if q, ok := questions[item.QuestionID]; ok {
				item.Content = q.Content
				item.CorrectAnswer = q.CorrectAnswer
				item.Options = parseOptions(q.Options)
				item.Points = q.Points
				if item.Points <= 0 {
					item.Points = 1
				}
			}
			sec.Questions = append(sec.Questions, item)
		}
		detail.Sections = append(detail.Sections, sec)
	}
	return detail, nil
}

// parseOptions splits flattened "a. text" option strings back into pairs.
// Strings without the "id. " prefix become text-only options.
func parseOptions(flat []string) []models.Option {
	options := make([]models.Option, 0, len(flat))
	for _, o := range flat {
		id, text, found := strings.Cut(o, ". ")
		if !found || id == "" || len(id) > 2 {
			options = append(options, models.Option{Text: o})
			continue
		}
		options = append(options, models.Option{ID: strings.ToLower(id), Text: text})
	}
	return options
}

// Leaderboard serves the exam leaderboard from the ranking cache, falling
// back on a Mongo scan when the cache is not configured.
func (s *StatsService) Leaderboard(ctx context.Context, examID string, limit int) ([]cache.RankingEntry, error) {
	examOID, err := ParseObjectID(examID, "exam id")
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	if s.Ranking != nil {
		entries, err := s.Ranking.GetTop(ctx, examID, limit)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err != nil {
			log.Printf("[STATS] leaderboard cache read failed for exam %s: %v", examID, err)
		}
	}

	results, err := s.Results.FindAll(ctx, bson.M{"exam": examOID, "status": models.ResultStatusGraded})
	if err != nil {
		return nil, err
	}

	best := map[string]float64{}
	for _, r := range results {
		id := r.Student.Hex()
		if current, seen := best[id]; !seen || r.Score.Percentage > current {
			best[id] = r.Score.Percentage
		}
	}

	entries := make([]cache.RankingEntry, 0, len(best))
	for id, p := range best {
		entries = append(entries, cache.RankingEntry{StudentID: id, Percentage: p})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Percentage > entries[j].Percentage })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (s *StatsService) ownedExam(ctx context.Context, teacherID, examID string) (*models.Exam, error) {
	oid, err := ParseObjectID(examID, "exam id")
	if err != nil {
		return nil, err
	}
	exam, err := s.Exams.FindByID(ctx, oid)
	if err != nil {
		return nil, apperr.NotFound("Exam not found")
	}
	if exam.CreatedBy.Hex() != teacherID {
		return nil, apperr.Forbidden("You are not the owner of this exam")
	}
	return exam, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
