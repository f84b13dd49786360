package service

import (
	"encoding/json"
	"testing"

	"hsk-exam-service/internal/hsk"
	"hsk-exam-service/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDetectOrderNo(t *testing.T) {
	testCases := []struct {
		name     string
		parent   ParentQuestionInput
		fallback int
		expected int
	}{
		{"explicit orderNo wins", ParentQuestionInput{OrderNo: 7, ParentQuestion: "Câu 3"}, 1, 7},
		{"label marker", ParentQuestionInput{ParentQuestion: "HSK 2 - 听力 - Câu 12"}, 1, 12},
		{"case insensitive marker", ParentQuestionInput{ParentQuestion: "câu 5"}, 1, 5},
		{"marker without space", ParentQuestionInput{ParentQuestion: "Câu80"}, 1, 80},
		{"positional fallback", ParentQuestionInput{ParentQuestion: "no marker here"}, 9, 9},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectOrderNo(tc.parent, tc.fallback); got != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestSanitizeChild(t *testing.T) {
	child := sanitizeChild(ChildQuestionInput{
		Content:       "  你好吗？ ",
		CorrectAnswer: " B ",
		Options: []OptionInput{
			{ID: " A ", Text: " yes "},
			{ID: "b", Text: "no"},
			{ID: "", Text: "orphan text"},
			{ID: "c", Text: ""},
		},
	}, 3)

	if child.Content != "你好吗？" {
		t.Errorf("Expected trimmed content, got %q", child.Content)
	}
	if child.Type != models.QuestionTypeMultipleChoice {
		t.Errorf("Expected default type, got %q", child.Type)
	}
	if child.CorrectAnswer != "b" {
		t.Errorf("Expected lowercased trimmed answer, got %q", child.CorrectAnswer)
	}
	if len(child.Options) != 2 {
		t.Fatalf("Expected malformed options dropped, got %d", len(child.Options))
	}
	if child.Options[0].ID != "a" || child.Options[0].Text != "yes" {
		t.Errorf("Unexpected first option %+v", child.Options[0])
	}

	empty := sanitizeChild(ChildQuestionInput{Content: "   "}, 15)
	if empty.Content != "[EMPTY CONTENT 15]" {
		t.Errorf("Expected placeholder content, got %q", empty.Content)
	}
}

func TestBuildFixedBank(t *testing.T) {
	tpl, _ := hsk.TemplateForLevel("HSK2")
	examID := primitive.NewObjectID()

	parents := []ParentQuestionInput{
		{ParentQuestion: "HSK 2 - 听力 - Câu 1", ChildQuestions: []ChildQuestionInput{{Content: "c1", CorrectAnswer: "A"}}},
		{ParentQuestion: "HSK 2 - 阅读 - Câu 40", ChildQuestions: []ChildQuestionInput{{Content: "c40"}}},
	}

	bank := buildFixedBank(examID, tpl, parents)
	if len(bank) != 80 {
		t.Fatalf("Expected 80 slots, got %d", len(bank))
	}

	if bank[0].OrderNo != 1 || bank[0].ChildQuestions[0].Content != "c1" {
		t.Errorf("Expected supplied question at slot 1, got %+v", bank[0])
	}
	if bank[0].SectionType != models.SkillListening {
		t.Errorf("Expected listening at slot 1, got %s", bank[0].SectionType)
	}
	if bank[0].ChildQuestions[0].CorrectAnswer != "a" {
		t.Errorf("Expected normalized answer, got %q", bank[0].ChildQuestions[0].CorrectAnswer)
	}

	if bank[39].OrderNo != 40 || bank[39].SectionType != models.SkillReading {
		t.Errorf("Expected reading at slot 40, got %+v", bank[39])
	}

	// Missing slots are synthesized placeholders.
	if bank[74].ParentQuestion != "HSK 2 - 写作 - Câu 75" {
		t.Errorf("Unexpected placeholder label %q", bank[74].ParentQuestion)
	}
	if bank[74].ChildQuestions[0].Content != "[EMPTY CONTENT 75]" {
		t.Errorf("Unexpected placeholder content %q", bank[74].ChildQuestions[0].Content)
	}
	if bank[74].SectionType != models.SkillWriting {
		t.Errorf("Expected writing at slot 75, got %s", bank[74].SectionType)
	}

	for i, doc := range bank {
		if doc.Exam != examID {
			t.Fatalf("Slot %d not bound to exam", i+1)
		}
		if doc.OrderNo != i+1 {
			t.Fatalf("Expected orderNo %d, got %d", i+1, doc.OrderNo)
		}
	}
}

func TestBuildFixedBankOutOfRangeSlotIgnored(t *testing.T) {
	tpl, _ := hsk.TemplateForLevel("HSK2")
	bank := buildFixedBank(primitive.NewObjectID(), tpl, []ParentQuestionInput{
		{OrderNo: 81, ChildQuestions: []ChildQuestionInput{{Content: "overflow"}}},
	})
	if len(bank) != 80 {
		t.Fatalf("Expected 80 slots, got %d", len(bank))
	}
	for _, doc := range bank {
		for _, c := range doc.ChildQuestions {
			if c.Content == "overflow" {
				t.Fatal("Out-of-range slot should not enter the bank")
			}
		}
	}
}

func TestProjectSections(t *testing.T) {
	examID := primitive.NewObjectID()
	bank := []models.ExamQuestion{
		{
			Exam:        examID,
			OrderNo:     1,
			SectionType: models.SkillListening,
			AudioURL:    "audio1.mp3",
			ChildQuestions: []models.ChildQuestion{
				{Content: "l1", CorrectAnswer: "a", Options: []models.Option{{ID: "a", Text: "对"}, {ID: "b", Text: "错"}}},
				{Content: "l2", CorrectAnswer: "b"},
			},
		},
		{
			Exam:        examID,
			OrderNo:     36,
			SectionType: models.SkillReading,
			ChildQuestions: []models.ChildQuestion{
				{Content: "r1", CorrectAnswer: "c"},
			},
		},
	}

	sections := projectSections(bank)
	if len(sections) != 2 {
		t.Fatalf("Expected 2 non-empty sections, got %d", len(sections))
	}
	if sections[0].Skill != models.SkillListening || sections[0].Title != hsk.MarkerListening {
		t.Errorf("Unexpected first section %+v", sections[0])
	}
	if len(sections[0].Questions) != 2 {
		t.Fatalf("Expected 2 listening questions, got %d", len(sections[0].Questions))
	}

	q := sections[0].Questions[0]
	if q.ID.IsZero() {
		t.Error("Expected projected question to receive an id")
	}
	if q.Points != 1 {
		t.Errorf("Expected projected point value 1, got %v", q.Points)
	}
	if q.AudioURL != "audio1.mp3" {
		t.Errorf("Expected parent audio carried onto children, got %q", q.AudioURL)
	}
	if len(q.Options) != 2 || q.Options[0] != "a. 对" {
		t.Errorf("Expected flattened options, got %v", q.Options)
	}

	if sections[1].Skill != models.SkillReading {
		t.Errorf("Expected reading second, got %s", sections[1].Skill)
	}
}

func TestUnwrapImport(t *testing.T) {
	t.Run("plain array", func(t *testing.T) {
		req := ImportRequest{NewQuestions: json.RawMessage(`[{"orderNo":1}]`)}
		parents, err := unwrapImport(&req)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(parents) != 1 || parents[0].OrderNo != 1 {
			t.Errorf("Unexpected parents %+v", parents)
		}
	})

	t.Run("double wrapped", func(t *testing.T) {
		req := ImportRequest{NewQuestions: json.RawMessage(`{"newQuestions":[{"orderNo":2}],"reading1Images":["x.png"]}`)}
		parents, err := unwrapImport(&req)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(parents) != 1 || parents[0].OrderNo != 2 {
			t.Errorf("Unexpected parents %+v", parents)
		}
		if len(req.Reading1Images) != 1 || req.Reading1Images[0] != "x.png" {
			t.Errorf("Expected wrapped banks hoisted, got %v", req.Reading1Images)
		}
	})

	t.Run("outer bank wins", func(t *testing.T) {
		req := ImportRequest{
			NewQuestions:   json.RawMessage(`{"newQuestions":[],"reading1Images":["inner.png"]}`),
			Reading1Images: []string{"outer.png"},
		}
		if _, err := unwrapImport(&req); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if req.Reading1Images[0] != "outer.png" {
			t.Errorf("Expected outer bank kept, got %v", req.Reading1Images)
		}
	})

	t.Run("garbage rejected", func(t *testing.T) {
		req := ImportRequest{NewQuestions: json.RawMessage(`"nope"`)}
		if _, err := unwrapImport(&req); err == nil {
			t.Error("Expected error for non-array payload")
		}
	})

	t.Run("empty rejected", func(t *testing.T) {
		req := ImportRequest{}
		if _, err := unwrapImport(&req); err == nil {
			t.Error("Expected error for missing newQuestions")
		}
	})
}

func TestNormalizeImages(t *testing.T) {
	testCases := []struct {
		name        string
		imgURL      string
		imgURLs     []string
		expectFirst string
		expectLen   int
	}{
		{"legacy only", "a.png", nil, "a.png", 1},
		{"list only", "", []string{"x.png", "y.png"}, "x.png", 2},
		{"legacy already in list", "x.png", []string{"x.png", "y.png"}, "x.png", 2},
		{"legacy prepended", "a.png", []string{"x.png"}, "a.png", 2},
		{"empty entries dropped", "", []string{"", "x.png"}, "x.png", 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			legacy, urls := normalizeImages(tc.imgURL, tc.imgURLs)
			if len(urls) != tc.expectLen {
				t.Fatalf("Expected %d urls, got %v", tc.expectLen, urls)
			}
			if tc.expectLen > 0 && (legacy != tc.expectFirst || urls[0] != tc.expectFirst) {
				t.Errorf("Expected first url %q, got legacy=%q urls=%v", tc.expectFirst, legacy, urls)
			}
		})
	}
}
