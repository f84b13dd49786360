package models

import (
	"testing"
)

func TestRecalcTotalPoints(t *testing.T) {
	testCases := []struct {
		name     string
		sections []SkillSection
		expected float64
	}{
		{
			name:     "no sections",
			sections: nil,
			expected: 0,
		},
		{
			name: "explicit points summed",
			sections: []SkillSection{
				{Skill: SkillListening, Questions: []EmbeddedQuestion{{Points: 2}, {Points: 1.5}}},
				{Skill: SkillReading, Questions: []EmbeddedQuestion{{Points: 1}}},
			},
			expected: 4.5,
		},
		{
			name: "zero points default to one",
			sections: []SkillSection{
				{Skill: SkillWriting, Questions: []EmbeddedQuestion{{Points: 0}, {Points: 0}, {Points: 3}}},
			},
			expected: 5,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			exam := &Exam{Sections: tc.sections}
			exam.RecalcTotalPoints()
			if exam.TotalPoints != tc.expected {
				t.Errorf("Expected totalPoints %v, got %v", tc.expected, exam.TotalPoints)
			}
		})
	}
}

func TestIsValidLevel(t *testing.T) {
	for _, level := range ValidLevels {
		if !IsValidLevel(level) {
			t.Errorf("Expected %s to be valid", level)
		}
	}
	for _, level := range []string{"", "HSK7", "hsk2", "HSK 2"} {
		if IsValidLevel(level) {
			t.Errorf("Expected %q to be invalid", level)
		}
	}
}
