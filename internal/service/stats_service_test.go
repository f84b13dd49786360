package service

import (
	"testing"

	"hsk-exam-service/internal/models"
)

func TestParseOptions(t *testing.T) {
	options := parseOptions([]string{"a. 对", "B. 错", "free text without prefix", "abc. too long id"})

	if len(options) != 4 {
		t.Fatalf("Expected 4 options, got %d", len(options))
	}
	if options[0] != (models.Option{ID: "a", Text: "对"}) {
		t.Errorf("Unexpected first option %+v", options[0])
	}
	if options[1] != (models.Option{ID: "b", Text: "错"}) {
		t.Errorf("Expected id lowercased, got %+v", options[1])
	}
	if options[2].ID != "" || options[2].Text != "free text without prefix" {
		t.Errorf("Expected unprefixed string kept as text, got %+v", options[2])
	}
	if options[3].ID != "" {
		t.Errorf("Expected long prefix treated as text, got %+v", options[3])
	}
}

func TestRound2(t *testing.T) {
	testCases := []struct {
		in       float64
		expected float64
	}{
		{66.666666, 66.67},
		{50, 50},
		{0.005, 0.01},
		{0, 0},
	}
	for _, tc := range testCases {
		if got := round2(tc.in); got != tc.expected {
			t.Errorf("round2(%v) expected %v, got %v", tc.in, tc.expected, got)
		}
	}
}
