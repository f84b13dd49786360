package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Option struct {
	ID   string `bson:"id" json:"id"`
	Text string `bson:"text" json:"text"`
}

// ChildQuestion is a gradable sub-question of a parent exam question.
// correctAnswer may be empty for writing questions.
type ChildQuestion struct {
	Content       string   `bson:"content" json:"content"`
	Type          string   `bson:"type" json:"type"`
	CorrectAnswer string   `bson:"correctAnswer" json:"correctAnswer"`
	Options       []Option `bson:"options" json:"options"`
}

// ExamQuestion is one parent question in the detached question bank: a
// shared stimulus (paragraph/image/audio) with one or more child questions.
// The bank is the source of truth for an exam's content; Exam.Sections is a
// projection rebuilt from it on every write.
type ExamQuestion struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Exam primitive.ObjectID `bson:"exam" json:"exam"`

	ParentQuestion string `bson:"parentQuestion" json:"parentQuestion"`
	Paragraph      string `bson:"paragraph" json:"paragraph"`

	ImgURL  string   `bson:"imgUrl" json:"imgUrl"`
	ImgURLs []string `bson:"imgUrls" json:"imgUrls"`

	AudioURL string `bson:"audioUrl" json:"audioUrl"`

	ChildQuestions []ChildQuestion `bson:"childQuestions" json:"childQuestions"`

	OrderNo     int    `bson:"orderNo" json:"orderNo"`
	SectionType string `bson:"sectionType" json:"sectionType"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

const QuestionTypeMultipleChoice = "multiple_choice"
