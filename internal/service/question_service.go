package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"hsk-exam-service/internal/apperr"
	"hsk-exam-service/internal/event"
	"hsk-exam-service/internal/hsk"
	"hsk-exam-service/internal/models"
	"hsk-exam-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type QuestionService struct {
	Exams     *repository.ExamRepository
	Questions *repository.ExamQuestionRepository
	Publisher *event.EventPublisher
}

func NewQuestionService(exams *repository.ExamRepository, questions *repository.ExamQuestionRepository, publisher *event.EventPublisher) *QuestionService {
	return &QuestionService{Exams: exams, Questions: questions, Publisher: publisher}
}

type OptionInput struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type ChildQuestionInput struct {
	Content       string        `json:"content"`
	Type          string        `json:"type"`
	CorrectAnswer string        `json:"correctAnswer"`
	Options       []OptionInput `json:"options"`
}

// ParentQuestionInput is one uploaded parent question with its children.
type ParentQuestionInput struct {
	OrderNo        int                  `json:"orderNo"`
	ParentQuestion string               `json:"parentQuestion"`
	Paragraph      string               `json:"paragraph"`
	ImgURL         string               `json:"imgUrl"`
	ImgURLs        []string             `json:"imgUrls"`
	AudioURL       string               `json:"audioUrl"`
	ChildQuestions []ChildQuestionInput `json:"childQuestions"`
	SectionType    string               `json:"sectionType"`
}

// ImportRequest is the bulk-upload body. newQuestions is raw because some
// clients double-wrap it as {newQuestions: {newQuestions: [...], ...banks}}.
type ImportRequest struct {
	NewQuestions       json.RawMessage `json:"newQuestions"`
	Reading1Images     []string        `json:"reading1Images"`
	Reading2WordBank   []interface{}   `json:"reading2WordBank"`
	Reading4BankFirst  []interface{}   `json:"reading4BankFirst"`
	Reading4BankSecond []interface{}   `json:"reading4BankSecond"`
}

// unwrapImport flattens the double-wrapped payload shape. Outer bank fields
// win over wrapped ones when both are present.
func unwrapImport(req *ImportRequest) ([]ParentQuestionInput, error) {
	if len(req.NewQuestions) == 0 {
		return nil, apperr.BadRequest("newQuestions must be a non-empty array")
	}

	var parents []ParentQuestionInput
	if err := json.Unmarshal(req.NewQuestions, &parents); err == nil {
		return parents, nil
	}

	var wrapper struct {
		NewQuestions       []ParentQuestionInput `json:"newQuestions"`
		Reading1Images     []string              `json:"reading1Images"`
		Reading2WordBank   []interface{}         `json:"reading2WordBank"`
		Reading4BankFirst  []interface{}         `json:"reading4BankFirst"`
		Reading4BankSecond []interface{}         `json:"reading4BankSecond"`
	}
	if err := json.Unmarshal(req.NewQuestions, &wrapper); err != nil || wrapper.NewQuestions == nil {
		return nil, apperr.BadRequest("newQuestions must be a non-empty array")
	}

	if req.Reading1Images == nil {
		req.Reading1Images = wrapper.Reading1Images
	}
	if req.Reading2WordBank == nil {
		req.Reading2WordBank = wrapper.Reading2WordBank
	}
	if req.Reading4BankFirst == nil {
		req.Reading4BankFirst = wrapper.Reading4BankFirst
	}
	if req.Reading4BankSecond == nil {
		req.Reading4BankSecond = wrapper.Reading4BankSecond
	}
	return wrapper.NewQuestions, nil
}

var orderNoPattern = regexp.MustCompile(`(?i)Câu\s*(\d{1,2})`)

// detectOrderNo resolves the slot number of an uploaded parent question: an
// explicit orderNo wins, then a "Câu N" marker in the label, then fallback.
func detectOrderNo(parent ParentQuestionInput, fallback int) int {
	if parent.OrderNo > 0 {
		return parent.OrderNo
	}
	if m := orderNoPattern.FindStringSubmatch(parent.ParentQuestion); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return fallback
}

func placeholderContent(slotNo int) string {
	return fmt.Sprintf("[EMPTY CONTENT %d]", slotNo)
}

// sanitizeChild coerces a child question into a well-formed record instead
// of rejecting it: blank content becomes a slot-tagged placeholder, and only
// fully formed {id,text} options survive, ids lower-cased and trimmed.
func sanitizeChild(c ChildQuestionInput, slotNo int) models.ChildQuestion {
	content := strings.TrimSpace(c.Content)
	if content == "" {
		content = placeholderContent(slotNo)
	}

	qType := c.Type
	if qType == "" {
		qType = models.QuestionTypeMultipleChoice
	}

	var options []models.Option
	for _, o := range c.Options {
		id := strings.TrimSpace(o.ID)
		text := strings.TrimSpace(o.Text)
		if id == "" || text == "" {
			continue
		}
		options = append(options, models.Option{ID: strings.ToLower(id), Text: text})
	}

	return models.ChildQuestion{
		Content:       content,
		Type:          qType,
		CorrectAnswer: strings.ToLower(strings.TrimSpace(c.CorrectAnswer)),
		Options:       options,
	}
}

// inferSectionType classifies a parent question: an explicit marker in the
// label takes priority, otherwise the slot number partition decides.
func inferSectionType(label string, orderNo int, tpl hsk.Template) string {
	if sectionType := sectionTypeFromLabel(label); sectionType != "" {
		return sectionType
	}
	return tpl.SectionTypeFor(orderNo)
}

func sectionTypeFromLabel(label string) string {
	sectionType := ""
	if strings.Contains(label, hsk.MarkerListening) {
		sectionType = models.SkillListening
	}
	if strings.Contains(label, hsk.MarkerReading) {
		sectionType = models.SkillReading
	}
	if strings.Contains(label, hsk.MarkerWriting) {
		sectionType = models.SkillWriting
	}
	return sectionType
}

// normalizeImages merges the legacy single-image field with the image list.
func normalizeImages(imgURL string, imgURLs []string) (string, []string) {
	var urls []string
	for _, u := range imgURLs {
		if u != "" {
			urls = append(urls, u)
		}
	}
	if imgURL != "" {
		found := false
		for _, u := range urls {
			if u == imgURL {
				found = true
				break
			}
		}
		if !found {
			urls = append([]string{imgURL}, urls...)
		}
	}
	legacy := imgURL
	if len(urls) > 0 {
		legacy = urls[0]
	}
	return legacy, urls
}

// buildFixedBank lays the uploaded parents onto the template's fixed slots,
// synthesizing a placeholder parent for every slot the upload missed, so the
// bank always holds exactly tpl.Total entries.
func buildFixedBank(examID primitive.ObjectID, tpl hsk.Template, parents []ParentQuestionInput) []models.ExamQuestion {
	parentByNo := make(map[int]ParentQuestionInput)
	for i, parent := range parents {
		no := detectOrderNo(parent, i+1)
		if no < 1 || no > tpl.Total {
			continue
		}
		parentByNo[no] = parent
	}

	bank := make([]models.ExamQuestion, 0, tpl.Total)
	for no := 1; no <= tpl.Total; no++ {
		parent, supplied := parentByNo[no]
		if !supplied {
			parent = ParentQuestionInput{
				ParentQuestion: tpl.PlaceholderLabel(no),
				ChildQuestions: []ChildQuestionInput{{Content: placeholderContent(no)}},
			}
		}

		children := make([]models.ChildQuestion, 0, len(parent.ChildQuestions))
		for _, c := range parent.ChildQuestions {
			children = append(children, sanitizeChild(c, no))
		}
		if len(children) == 0 {
			children = append(children, sanitizeChild(ChildQuestionInput{Content: placeholderContent(no)}, no))
		}

		legacyImg, imgURLs := normalizeImages(parent.ImgURL, parent.ImgURLs)

		bank = append(bank, models.ExamQuestion{
			Exam:           examID,
			ParentQuestion: parent.ParentQuestion,
			Paragraph:      parent.Paragraph,
			ImgURL:         legacyImg,
			ImgURLs:        imgURLs,
			AudioURL:       parent.AudioURL,
			ChildQuestions: children,
			OrderNo:        no,
			SectionType:    inferSectionType(parent.ParentQuestion, no, tpl),
		})
	}
	return bank
}

// projectSections rebuilds the embedded section projection from the bank.
// The bank is the single source of truth; this is the only code that writes
// Exam.Sections. Empty sections are skipped.
func projectSections(bank []models.ExamQuestion) []models.SkillSection {
	titles := map[string]string{
		models.SkillListening: hsk.MarkerListening,
		models.SkillReading:   hsk.MarkerReading,
		models.SkillWriting:   hsk.MarkerWriting,
	}

	grouped := map[string][]models.EmbeddedQuestion{}
	for _, doc := range bank {
		sectionType := doc.SectionType
		if sectionType == "" {
			sectionType = sectionTypeFromLabel(doc.ParentQuestion)
		}
		if !models.IsValidSkill(sectionType) {
			continue
		}

		legacyImg, imgURLs := normalizeImages(doc.ImgURL, doc.ImgURLs)
		for _, cq := range doc.ChildQuestions {
			options := make([]string, 0, len(cq.Options))
			for _, o := range cq.Options {
				options = append(options, o.ID+". "+o.Text)
			}
			grouped[sectionType] = append(grouped[sectionType], models.EmbeddedQuestion{
				ID:            primitive.NewObjectID(),
				Content:       cq.Content,
				Options:       options,
				CorrectAnswer: cq.CorrectAnswer,
				AudioURL:      doc.AudioURL,
				ImageURL:      legacyImg,
				ImageURLs:     imgURLs,
				Points:        1,
			})
		}
	}

	var sections []models.SkillSection
	for _, skill := range []string{models.SkillListening, models.SkillReading, models.SkillWriting} {
		questions := grouped[skill]
		if len(questions) == 0 {
			continue
		}
		sections = append(sections, models.SkillSection{
			ID:        primitive.NewObjectID(),
			Skill:     skill,
			Title:     titles[skill],
			Questions: questions,
		})
	}
	return sections
}

func skillsOf(sections []models.SkillSection) []string {
	skills := make([]string, 0, len(sections))
	for _, s := range sections {
		skills = append(skills, s.Skill)
	}
	return skills
}

// ImportResult reports what an import or edit pass produced.
type ImportResult struct {
	Inserted           int                   `json:"inserted"`
	Sections           []models.SkillSection `json:"sections"`
	TotalPoints        float64               `json:"totalPoints"`
	Reading1Images     []string              `json:"reading1Images"`
	Reading2WordBank   []interface{}         `json:"reading2WordBank"`
	Reading4BankFirst  []interface{}         `json:"reading4BankFirst"`
	Reading4BankSecond []interface{}         `json:"reading4BankSecond"`
}

// ImportQuestions runs the fixed-template bulk upload: replace the whole
// bank, then rebuild the exam's section projection from it.
func (s *QuestionService) ImportQuestions(ctx context.Context, teacherID, examID string, req ImportRequest) (*ImportResult, error) {
	parents, err := unwrapImport(&req)
	if err != nil {
		return nil, err
	}
	if len(parents) == 0 {
		return nil, apperr.BadRequest("newQuestions must be a non-empty array")
	}

	exam, err := s.ownedExam(ctx, teacherID, examID)
	if err != nil {
		return nil, err
	}

	tpl, ok := hsk.TemplateForLevel(exam.Level)
	if !ok {
		return nil, apperr.BadRequest("no fixed question template for level " + exam.Level)
	}

	bank := buildFixedBank(exam.ID, tpl, parents)
	if len(bank) != tpl.Total {
		return nil, apperr.BadRequest(fmt.Sprintf("%s must have exactly %d questions, got %d", tpl.Level, tpl.Total, len(bank)))
	}

	if err := s.replaceBankAndProject(ctx, exam, bank, &req); err != nil {
		return nil, err
	}

	s.Publisher.Publish(event.QuestionsImported, map[string]interface{}{
		"examId":   exam.ID.Hex(),
		"inserted": len(bank),
	})

	return s.importResult(exam, len(bank)), nil
}

// EditRequest is the free-form edit body: an arbitrary question set with
// caller-supplied order numbers, no fixed total.
type EditRequest struct {
	Questions          []ParentQuestionInput `json:"questions"`
	Reading1Images     []string              `json:"reading1Images"`
	Reading2WordBank   []interface{}         `json:"reading2WordBank"`
	Reading4BankFirst  []interface{}         `json:"reading4BankFirst"`
	Reading4BankSecond []interface{}         `json:"reading4BankSecond"`
}

// EditQuestions replaces the bank with an arbitrary question set. Order
// numbers come from the caller, falling back on list position.
func (s *QuestionService) EditQuestions(ctx context.Context, teacherID, examID string, req EditRequest) (*ImportResult, error) {
	if len(req.Questions) == 0 {
		return nil, apperr.BadRequest("questions must be a non-empty array")
	}

	exam, err := s.ownedExam(ctx, teacherID, examID)
	if err != nil {
		return nil, err
	}

	// Edits outside a registered template still need a range fallback for
	// unlabeled questions; derive one from the set size.
	tpl, ok := hsk.TemplateForLevel(exam.Level)
	if !ok {
		total := len(req.Questions)
		tpl = hsk.Template{Level: exam.Level, Total: total, ListeningEnd: total / 3, ReadingEnd: total * 2 / 3}
	}

	sorted := make([]ParentQuestionInput, len(req.Questions))
	copy(sorted, req.Questions)
	for i := range sorted {
		if sorted[i].OrderNo <= 0 {
			sorted[i].OrderNo = i + 1
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].OrderNo < sorted[j].OrderNo })

	bank := make([]models.ExamQuestion, 0, len(sorted))
	for _, parent := range sorted {
		children := make([]models.ChildQuestion, 0, len(parent.ChildQuestions))
		for _, c := range parent.ChildQuestions {
			children = append(children, sanitizeChild(c, parent.OrderNo))
		}
		if len(children) == 0 {
			children = append(children, sanitizeChild(ChildQuestionInput{Content: placeholderContent(parent.OrderNo)}, parent.OrderNo))
		}

		sectionType := parent.SectionType
		if !models.IsValidSkill(sectionType) {
			sectionType = inferSectionType(parent.ParentQuestion, parent.OrderNo, tpl)
		}

		legacyImg, imgURLs := normalizeImages(parent.ImgURL, parent.ImgURLs)
		bank = append(bank, models.ExamQuestion{
			Exam:           exam.ID,
			ParentQuestion: parent.ParentQuestion,
			Paragraph:      parent.Paragraph,
			ImgURL:         legacyImg,
			ImgURLs:        imgURLs,
			AudioURL:       parent.AudioURL,
			ChildQuestions: children,
			OrderNo:        parent.OrderNo,
			SectionType:    sectionType,
		})
	}

	req2 := ImportRequest{
		Reading1Images:     req.Reading1Images,
		Reading2WordBank:   req.Reading2WordBank,
		Reading4BankFirst:  req.Reading4BankFirst,
		Reading4BankSecond: req.Reading4BankSecond,
	}
	if err := s.replaceBankAndProject(ctx, exam, bank, &req2); err != nil {
		return nil, err
	}
	return s.importResult(exam, len(bank)), nil
}

// UpdateSingleQuestion mutates one bank document in place, then rebuilds the
// projection from the entire bank so the embedded copy stays consistent.
func (s *QuestionService) UpdateSingleQuestion(ctx context.Context, teacherID, examID, questionID string, payload ParentQuestionInput) (*models.ExamQuestion, []models.SkillSection, error) {
	exam, err := s.ownedExam(ctx, teacherID, examID)
	if err != nil {
		return nil, nil, err
	}

	qID, err := ParseObjectID(questionID, "question id")
	if err != nil {
		return nil, nil, err
	}
	doc, err := s.Questions.FindOne(ctx, qID, exam.ID)
	if err != nil {
		return nil, nil, apperr.NotFound("Exam question not found")
	}

	if payload.ParentQuestion != "" {
		doc.ParentQuestion = payload.ParentQuestion
	}
	if payload.Paragraph != "" {
		doc.Paragraph = payload.Paragraph
	}
	if payload.AudioURL != "" {
		doc.AudioURL = payload.AudioURL
	}

	imgURL := doc.ImgURL
	imgURLs := doc.ImgURLs
	if payload.ImgURL != "" {
		imgURL = payload.ImgURL
	}
	if payload.ImgURLs != nil {
		imgURLs = payload.ImgURLs
	}
	doc.ImgURL, doc.ImgURLs = normalizeImages(imgURL, imgURLs)

	if payload.ChildQuestions != nil {
		children := make([]models.ChildQuestion, 0, len(payload.ChildQuestions))
		for _, c := range payload.ChildQuestions {
			children = append(children, sanitizeChild(c, doc.OrderNo))
		}
		doc.ChildQuestions = children
	}
	if models.IsValidSkill(payload.SectionType) {
		doc.SectionType = payload.SectionType
	}

	if err := s.Questions.Replace(ctx, doc); err != nil {
		return nil, nil, err
	}

	// Rebuild from the whole bank, not just the edited document.
	allDocs, err := s.Questions.FindByExam(ctx, exam.ID)
	if err != nil {
		return nil, nil, err
	}
	sections := projectSections(allDocs)
	exam.Sections = sections
	exam.Skills = skillsOf(sections)
	exam.RecalcTotalPoints()
	if err := s.Exams.Replace(ctx, exam); err != nil {
		return nil, nil, err
	}

	return doc, sections, nil
}

// QuestionBankView is what the edit screen loads.
type QuestionBankView struct {
	ExamID             string                `json:"examId"`
	Questions          []models.ExamQuestion `json:"questions"`
	Reading1Images     []string              `json:"reading1Images"`
	Reading2WordBank   []interface{}         `json:"reading2WordBank"`
	Reading4BankFirst  []interface{}         `json:"reading4BankFirst"`
	Reading4BankSecond []interface{}         `json:"reading4BankSecond"`
}

func (s *QuestionService) GetQuestions(ctx context.Context, teacherID, examID string) (*QuestionBankView, error) {
	exam, err := s.ownedExam(ctx, teacherID, examID)
	if err != nil {
		return nil, err
	}
	questions, err := s.Questions.FindByExam(ctx, exam.ID)
	if err != nil {
		return nil, err
	}
	return &QuestionBankView{
		ExamID:             exam.ID.Hex(),
		Questions:          questions,
		Reading1Images:     exam.Reading1Images,
		Reading2WordBank:   exam.Reading2WordBank,
		Reading4BankFirst:  exam.Reading4BankFirst,
		Reading4BankSecond: exam.Reading4BankSecond,
	}, nil
}

// replaceBankAndProject is the atomic-replace step shared by import and
// edit: delete-all, ordered bulk-insert, rebuild and persist the projection.
func (s *QuestionService) replaceBankAndProject(ctx context.Context, exam *models.Exam, bank []models.ExamQuestion, req *ImportRequest) error {
	if err := s.Questions.DeleteByExam(ctx, exam.ID); err != nil {
		return err
	}

	inserted, err := s.Questions.InsertMany(ctx, bank)
	if err != nil {
		// Surface the store's validation message; the ordered insert has
		// already aborted the batch.
		return apperr.BadRequest(err.Error())
	}

	sections := projectSections(inserted)
	exam.Sections = sections
	exam.Skills = skillsOf(sections)

	if req.Reading1Images != nil {
		exam.Reading1Images = req.Reading1Images
	}
	if req.Reading2WordBank != nil {
		exam.Reading2WordBank = req.Reading2WordBank
	}
	if req.Reading4BankFirst != nil {
		exam.Reading4BankFirst = req.Reading4BankFirst
	}
	if req.Reading4BankSecond != nil {
		exam.Reading4BankSecond = req.Reading4BankSecond
	}

	exam.RecalcTotalPoints()
	return s.Exams.Replace(ctx, exam)
}

func (s *QuestionService) importResult(exam *models.Exam, inserted int) *ImportResult {
	return &ImportResult{
		Inserted:           inserted,
		Sections:           exam.Sections,
		TotalPoints:        exam.TotalPoints,
		Reading1Images:     exam.Reading1Images,
		Reading2WordBank:   exam.Reading2WordBank,
		Reading4BankFirst:  exam.Reading4BankFirst,
		Reading4BankSecond: exam.Reading4BankSecond,
	}
}

func (s *QuestionService) ownedExam(ctx context.Context, teacherID, examID string) (*models.Exam, error) {
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
