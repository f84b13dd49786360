package service

import (
	"testing"
	"time"

	"hsk-exam-service/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestExamAvailability(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	dayBefore := now.Add(-48 * time.Hour)
	dayAfter := now.Add(24 * time.Hour)
	closedYesterday := now.Add(-24 * time.Hour)

	questions := []models.SkillSection{
		{
			ID:    primitive.NewObjectID(),
			Skill: models.SkillReading,
			Questions: []models.EmbeddedQuestion{
				{ID: primitive.NewObjectID(), CorrectAnswer: "a", Points: 1},
			},
		},
	}

	testCases := []struct {
		name        string
		exam        *models.Exam
		expectedErr string
	}{
		{
			name:        "draft exam is not available",
			exam:        &models.Exam{Status: models.ExamStatusDraft, Sections: questions},
			expectedErr: "Exam is not available",
		},
		{
			name: "window closed a day ago",
			exam: &models.Exam{
				Status:          models.ExamStatusPublished,
				Sections:        questions,
				ScheduleStartAt: &dayBefore,
				ScheduleEndAt:   &closedYesterday,
			},
			expectedErr: "Exam is not open at this time",
		},
		{
			name:        "published without questions",
			exam:        &models.Exam{Status: models.ExamStatusPublished},
			expectedErr: "Exam has no questions yet",
		},
		{
			name: "open window with questions",
			exam: &models.Exam{
				Status:          models.ExamStatusPublished,
				Sections:        questions,
				ScheduleStartAt: &dayBefore,
				ScheduleEndAt:   &dayAfter,
			},
		},
		{
			name: "no schedule means always open",
			exam: &models.Exam{Status: models.ExamStatusPublished, Sections: questions},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := examAvailability(tc.exam, now)
			if tc.expectedErr == "" {
				if err != nil {
					t.Fatalf("Expected exam to be available, got %v", err)
				}
				return
			}
			if err == nil || err.Error() != tc.expectedErr {
				t.Errorf("Expected error %q, got %v", tc.expectedErr, err)
			}
		})
	}
}

func TestSeedSectionResults(t *testing.T) {
	exam := &models.Exam{
		Sections: []models.SkillSection{
			{
				ID:    primitive.NewObjectID(),
				Skill: models.SkillListening,
				Questions: []models.EmbeddedQuestion{
					{ID: primitive.NewObjectID(), Points: 2},
					{ID: primitive.NewObjectID(), Points: 0},
				},
			},
			{
				ID:    primitive.NewObjectID(),
				Skill: models.SkillWriting,
				Questions: []models.EmbeddedQuestion{
					{ID: primitive.NewObjectID(), Points: 10},
				},
			},
		},
	}

	sections := seedSectionResults(exam)
	if len(sections) != 2 {
		t.Fatalf("Expected 2 section snapshots, got %d", len(sections))
	}

	listening := sections[0]
	if listening.SectionID != exam.Sections[0].ID || listening.Skill != models.SkillListening {
		t.Errorf("Unexpected section snapshot %+v", listening)
	}
	if listening.MaxScore != 3 {
		t.Errorf("Expected maxScore 3 (2 + default 1), got %v", listening.MaxScore)
	}
	if len(listening.Answers) != 2 {
		t.Fatalf("Expected one answer slot per question, got %d", len(listening.Answers))
	}
	for _, ans := range listening.Answers {
		if ans.Answer != "" || ans.PointsEarned != 0 {
			t.Errorf("Expected empty seeded answer, got %+v", ans)
		}
		if ans.IsCorrect == nil || *ans.IsCorrect {
			t.Errorf("Expected seeded answer marked incorrect, got %+v", ans.IsCorrect)
		}
	}

	if sections[1].MaxScore != 10 {
		t.Errorf("Expected writing maxScore 10, got %v", sections[1].MaxScore)
	}
}

func scoringFixture() (*models.Exam, *models.ExamResult) {
	l1 := primitive.NewObjectID()
	l2 := primitive.NewObjectID()
	r1 := primitive.NewObjectID()
	w1 := primitive.NewObjectID()

	exam := &models.Exam{
		PassingScore: 60,
		Sections: []models.SkillSection{
			{
				ID:    primitive.NewObjectID(),
				Skill: models.SkillListening,
				Questions: []models.EmbeddedQuestion{
					{ID: l1, CorrectAnswer: "A", Points: 1},
					{ID: l2, CorrectAnswer: "b", Points: 2},
				},
			},
			{
				ID:    primitive.NewObjectID(),
				Skill: models.SkillReading,
				Questions: []models.EmbeddedQuestion{
					{ID: r1, CorrectAnswer: "c", Points: 1},
				},
			},
			{
				ID:    primitive.NewObjectID(),
				Skill: models.SkillWriting,
				Questions: []models.EmbeddedQuestion{
					{ID: w1, Points: 6},
				},
			},
		},
	}
	exam.RecalcTotalPoints()

	result := &models.ExamResult{
		SectionResults: seedSectionResults(exam),
		Score:          models.Score{MaxPoints: exam.TotalPoints},
	}
	return exam, result
}

func TestScoreAttempt(t *testing.T) {
	exam, result := scoringFixture()
	l1 := exam.Sections[0].Questions[0].ID
	l2 := exam.Sections[0].Questions[1].ID
	r1 := exam.Sections[1].Questions[0].ID
	w1 := exam.Sections[2].Questions[0].ID

	hasWriting := scoreAttempt(result, exam, []SubmittedAnswer{
		{QuestionID: l1.Hex(), Answer: " a "}, // normalized match
		{QuestionID: l2.Hex(), Answer: "B"},   // case-insensitive match
		{QuestionID: r1.Hex(), Answer: "d"},   // wrong
		{QuestionID: w1.Hex(), Answer: "我喜欢学习中文。"},
	})

	if !hasWriting {
		t.Fatal("Expected writing section to be detected")
	}

	listening := result.SectionResults[0]
	if listening.Score != 3 {
		t.Errorf("Expected listening score 3, got %v", listening.Score)
	}
	if listening.Answers[0].IsCorrect == nil || !*listening.Answers[0].IsCorrect {
		t.Error("Expected normalized answer to be correct")
	}

	reading := result.SectionResults[1]
	if reading.Score != 0 {
		t.Errorf("Expected reading score 0, got %v", reading.Score)
	}
	if reading.Answers[0].IsCorrect == nil || *reading.Answers[0].IsCorrect {
		t.Error("Expected wrong answer marked incorrect")
	}

	writing := result.SectionResults[2]
	if writing.Answers[0].IsCorrect != nil {
		t.Error("Expected writing answer to await manual grading")
	}
	if writing.Answers[0].Answer != "我喜欢学习中文。" {
		t.Errorf("Expected writing answer stored, got %q", writing.Answers[0].Answer)
	}

	if result.Score.TotalPoints != 3 {
		t.Errorf("Expected total 3, got %v", result.Score.TotalPoints)
	}
	if result.Score.MaxPoints != 10 {
		t.Errorf("Expected max 10, got %v", result.Score.MaxPoints)
	}
	if result.Score.Percentage != 30 {
		t.Errorf("Expected percentage 30, got %v", result.Score.Percentage)
	}
	if result.Score.Passed {
		t.Error("Expected 30 percent not to pass at threshold 60")
	}
	if result.SkillScores.Listening != 3 || result.SkillScores.Reading != 0 || result.SkillScores.Writing != 0 {
		t.Errorf("Unexpected skill scores %+v", result.SkillScores)
	}
}

func TestScoreAttemptNoWriting(t *testing.T) {
	q1 := primitive.NewObjectID()
	exam := &models.Exam{
		PassingScore: 60,
		Sections: []models.SkillSection{
			{
				ID:    primitive.NewObjectID(),
				Skill: models.SkillReading,
				Questions: []models.EmbeddedQuestion{
					{ID: q1, CorrectAnswer: "a", Points: 1},
				},
			},
		},
	}
	exam.RecalcTotalPoints()
	result := &models.ExamResult{
		SectionResults: seedSectionResults(exam),
		Score:          models.Score{MaxPoints: exam.TotalPoints},
	}

	hasWriting := scoreAttempt(result, exam, []SubmittedAnswer{{QuestionID: q1.Hex(), Answer: "a"}})
	if hasWriting {
		t.Error("Expected no writing section")
	}
	if result.Score.Percentage != 100 || !result.Score.Passed {
		t.Errorf("Expected a full-marks pass, got %+v", result.Score)
	}
}

func TestScoreAttemptUsesSnapshotMaxPoints(t *testing.T) {
	exam, result := scoringFixture()
	l1 := exam.Sections[0].Questions[0].ID
	l2 := exam.Sections[0].Questions[1].ID
	r1 := exam.Sections[1].Questions[0].ID

	// Questions added after the attempt started grow the live total, but the
	// attempt keeps the denominator it was seeded with.
	exam.TotalPoints = 20

	scoreAttempt(result, exam, []SubmittedAnswer{
		{QuestionID: l1.Hex(), Answer: "a"},
		{QuestionID: l2.Hex(), Answer: "b"},
		{QuestionID: r1.Hex(), Answer: "c"},
	})

	if result.Score.MaxPoints != 10 {
		t.Errorf("Expected snapshot max 10, got %v", result.Score.MaxPoints)
	}
	if result.Score.Percentage != 40 {
		t.Errorf("Expected percentage 40 of the snapshot max, got %v", result.Score.Percentage)
	}
}

func TestScoreAttemptEmptyCorrectAnswerNeverMatches(t *testing.T) {
	q1 := primitive.NewObjectID()
	exam := &models.Exam{
		Sections: []models.SkillSection{
			{
				ID:    primitive.NewObjectID(),
				Skill: models.SkillReading,
				Questions: []models.EmbeddedQuestion{
					{ID: q1, CorrectAnswer: "", Points: 1},
				},
			},
		},
	}
	exam.RecalcTotalPoints()
	result := &models.ExamResult{
		SectionResults: seedSectionResults(exam),
		Score:          models.Score{MaxPoints: exam.TotalPoints},
	}

	scoreAttempt(result, exam, []SubmittedAnswer{{QuestionID: q1.Hex(), Answer: ""}})
	if result.SectionResults[0].Score != 0 {
		t.Errorf("Expected empty key never to award points, got %v", result.SectionResults[0].Score)
	}
}

func TestNormalizeAnswer(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{" A ", "a"},
		{"B", "b"},
		{"  对 ", "对"},
		{"", ""},
	}
	for _, tc := range testCases {
		if got := normalizeAnswer(tc.in); got != tc.expected {
			t.Errorf("normalizeAnswer(%q) expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}

func TestPercentage(t *testing.T) {
	testCases := []struct {
		name     string
		total    float64
		max      float64
		expected float64
	}{
		{"zero max guards division", 10, 0, 0},
		{"full marks", 80, 80, 100},
		{"rounds to nearest integer", 41, 80, 51},
		{"rounds half up", 1, 8, 13},
		{"zero score", 0, 80, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := percentage(tc.total, tc.max); got != tc.expected {
				t.Errorf("percentage(%v, %v) expected %v, got %v", tc.total, tc.max, tc.expected, got)
			}
		})
	}
}
