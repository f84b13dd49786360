package service

import (
	"testing"

	"hsk-exam-service/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestGradableStatus(t *testing.T) {
	testCases := []struct {
		name        string
		status      string
		expectedErr string
	}{
		{"graded is terminal", models.ResultStatusGraded, "This exam has already been fully graded"},
		{"submitted may be graded", models.ResultStatusSubmitted, ""},
		{"in progress may be graded early", models.ResultStatusInProgress, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := gradableStatus(tc.status)
			if tc.expectedErr == "" {
				if err != nil {
					t.Fatalf("Expected status %q to be gradable, got %v", tc.status, err)
				}
				return
			}
			if err == nil || err.Error() != tc.expectedErr {
				t.Errorf("Expected error %q, got %v", tc.expectedErr, err)
			}
		})
	}
}

func TestClampPoints(t *testing.T) {
	testCases := []struct {
		name     string
		points   float64
		max      float64
		expected float64
	}{
		{"negative clamps to zero", -3, 10, 0},
		{"above max clamps to max", 12, 10, 10},
		{"inside range kept", 7.5, 10, 7.5},
		{"exactly max", 10, 10, 10},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := clampPoints(tc.points, tc.max); got != tc.expected {
				t.Errorf("clampPoints(%v, %v) expected %v, got %v", tc.points, tc.max, tc.expected, got)
			}
		})
	}
}

func TestRecomputeTotals(t *testing.T) {
	correct := true
	result := &models.ExamResult{
		Score: models.Score{MaxPoints: 10},
		SectionResults: []models.SectionResult{
			{
				Skill:    models.SkillListening,
				MaxScore: 3,
				Answers: []models.Answer{
					{QuestionID: primitive.NewObjectID(), IsCorrect: &correct, PointsEarned: 3},
				},
			},
			{
				Skill:    models.SkillWriting,
				MaxScore: 7,
				Answers: []models.Answer{
					{QuestionID: primitive.NewObjectID(), IsCorrect: &correct, PointsEarned: 5},
				},
			},
		},
	}

	recomputeTotals(result, 60)

	if result.SectionResults[0].Score != 3 || result.SectionResults[1].Score != 5 {
		t.Errorf("Unexpected section scores %v / %v", result.SectionResults[0].Score, result.SectionResults[1].Score)
	}
	if result.Score.TotalPoints != 8 {
		t.Errorf("Expected total 8, got %v", result.Score.TotalPoints)
	}
	if result.Score.Percentage != 80 {
		t.Errorf("Expected percentage 80, got %v", result.Score.Percentage)
	}
	if !result.Score.Passed {
		t.Error("Expected 80 percent to pass at threshold 60")
	}
	if result.SkillScores.Listening != 3 || result.SkillScores.Writing != 5 {
		t.Errorf("Unexpected skill scores %+v", result.SkillScores)
	}
}
