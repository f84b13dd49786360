package hsk

import (
	"testing"
)

func TestTemplateForLevel(t *testing.T) {
	tpl, ok := TemplateForLevel("HSK2")
	if !ok {
		t.Fatal("Expected HSK2 to have a fixed template")
	}
	if tpl.Total != 80 {
		t.Errorf("Expected 80 total slots, got %d", tpl.Total)
	}
	if tpl.ListeningEnd != 35 || tpl.ReadingEnd != 70 {
		t.Errorf("Expected sections at 35/70, got %d/%d", tpl.ListeningEnd, tpl.ReadingEnd)
	}

	if _, ok := TemplateForLevel("HSK5"); ok {
		t.Error("Expected HSK5 to have no fixed template")
	}
}

func TestSectionTypeFor(t *testing.T) {
	tpl, _ := TemplateForLevel("HSK2")

	testCases := []struct {
		orderNo  int
		expected string
	}{
		{1, "listening"},
		{35, "listening"},
		{36, "reading"},
		{70, "reading"},
		{71, "writing"},
		{80, "writing"},
	}

	for _, tc := range testCases {
		if got := tpl.SectionTypeFor(tc.orderNo); got != tc.expected {
			t.Errorf("SectionTypeFor(%d) expected %s, got %s", tc.orderNo, tc.expected, got)
		}
	}
}

func TestPlaceholderLabel(t *testing.T) {
	tpl, _ := TemplateForLevel("HSK2")

	testCases := []struct {
		orderNo  int
		expected string
	}{
		{12, "HSK 2 - 听力 - Câu 12"},
		{40, "HSK 2 - 阅读 - Câu 40"},
		{75, "HSK 2 - 写作 - Câu 75"},
	}

	for _, tc := range testCases {
		if got := tpl.PlaceholderLabel(tc.orderNo); got != tc.expected {
			t.Errorf("PlaceholderLabel(%d) expected %q, got %q", tc.orderNo, tc.expected, got)
		}
	}
}
