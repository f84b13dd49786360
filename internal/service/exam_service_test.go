package service

import (
	"testing"
	"time"

	"hsk-exam-service/internal/apperr"
	"hsk-exam-service/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestExamInfoAccess(t *testing.T) {
	owner := primitive.NewObjectID()
	published := &models.Exam{CreatedBy: owner, Status: models.ExamStatusPublished}
	draft := &models.Exam{CreatedBy: owner, Status: models.ExamStatusDraft}

	testCases := []struct {
		name        string
		exam        *models.Exam
		userID      string
		role        string
		expectedErr string
	}{
		{"owning teacher sees draft", draft, owner.Hex(), "teacher", ""},
		{"other teacher rejected", published, primitive.NewObjectID().Hex(), "teacher", "You cannot view this exam"},
		{"admin sees any exam", draft, primitive.NewObjectID().Hex(), "admin", ""},
		{"student sees published", published, primitive.NewObjectID().Hex(), "student", ""},
		{"student cannot see draft", draft, primitive.NewObjectID().Hex(), "student", "Exam is not available"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := examInfoAccess(tc.exam, tc.userID, tc.role)
			if tc.expectedErr == "" {
				if err != nil {
					t.Fatalf("Expected access, got %v", err)
				}
				return
			}
			if err == nil || err.Error() != tc.expectedErr {
				t.Errorf("Expected error %q, got %v", tc.expectedErr, err)
			}
		})
	}
}

func TestIsExamOpen(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	testCases := []struct {
		name     string
		status   string
		startAt  *time.Time
		endAt    *time.Time
		expected bool
	}{
		{"draft never open", models.ExamStatusDraft, nil, nil, false},
		{"archived never open", models.ExamStatusArchived, nil, nil, false},
		{"published without schedule", models.ExamStatusPublished, nil, nil, true},
		{"inside window", models.ExamStatusPublished, &before, &after, true},
		{"window starts exactly now", models.ExamStatusPublished, &now, &after, true},
		{"window ends exactly now", models.ExamStatusPublished, &before, &now, true},
		{"before window", models.ExamStatusPublished, &after, &after, false},
		{"after window", models.ExamStatusPublished, &before, &before, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			exam := &models.Exam{
				Status:          tc.status,
				ScheduleStartAt: tc.startAt,
				ScheduleEndAt:   tc.endAt,
			}
			if got := IsExamOpen(exam, now); got != tc.expected {
				t.Errorf("Expected open=%v, got %v", tc.expected, got)
			}
		})
	}
}

func TestParseObjectID(t *testing.T) {
	if _, err := ParseObjectID("507f1f77bcf86cd799439011", "exam id"); err != nil {
		t.Errorf("Expected valid hex to parse, got %v", err)
	}

	_, err := ParseObjectID("not-an-id", "exam id")
	appErr, ok := apperr.As(err)
	if !ok {
		t.Fatalf("Expected an AppError, got %v", err)
	}
	if appErr.StatusCode != 400 {
		t.Errorf("Expected status 400, got %d", appErr.StatusCode)
	}
	if appErr.Message != "Invalid exam id" {
		t.Errorf("Unexpected message %q", appErr.Message)
	}
}

func TestNormalizeSections(t *testing.T) {
	sections, err := normalizeSections([]models.SkillSection{
		{Skill: models.SkillListening, Questions: []models.EmbeddedQuestion{
			{Content: "q1"},
			{Content: "q2", Points: 2},
		}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sections[0].ID.IsZero() {
		t.Error("Expected section to receive an id")
	}
	if sections[0].Questions[0].Points != 1 {
		t.Errorf("Expected default point value 1, got %v", sections[0].Questions[0].Points)
	}
	if sections[0].Questions[1].Points != 2 {
		t.Errorf("Expected explicit points kept, got %v", sections[0].Questions[1].Points)
	}

	_, err = normalizeSections([]models.SkillSection{{Skill: "speaking"}})
	if err == nil {
		t.Error("Expected invalid skill to be rejected")
	}

	_, err = normalizeSections([]models.SkillSection{
		{Skill: models.SkillReading, Questions: []models.EmbeddedQuestion{{Points: 0.25}}},
	})
	if err == nil {
		t.Error("Expected points below 0.5 to be rejected")
	}
}

func TestStripCorrectAnswers(t *testing.T) {
	exam := &models.Exam{
		Sections: []models.SkillSection{
			{Questions: []models.EmbeddedQuestion{{Content: "q", CorrectAnswer: "a"}}},
		},
	}
	stripCorrectAnswers(exam)
	if exam.Sections[0].Questions[0].CorrectAnswer != "" {
		t.Error("Expected correctAnswer to be stripped")
	}
	if exam.Sections[0].Questions[0].Content != "q" {
		t.Error("Expected question content untouched")
	}
}
