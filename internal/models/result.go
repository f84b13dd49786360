package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Attempt states. graded is terminal.
const (
	ResultStatusInProgress = "in_progress"
	ResultStatusSubmitted  = "submitted"
	ResultStatusGraded     = "graded"
)

// Answer records one question's answer inside an attempt. IsCorrect is nil
// for writing answers awaiting manual grading.
type Answer struct {
	QuestionID   primitive.ObjectID `bson:"questionId" json:"questionId"`
	Answer       string             `bson:"answer" json:"answer"`
	IsCorrect    *bool              `bson:"isCorrect" json:"isCorrect"`
	PointsEarned float64            `bson:"pointsEarned" json:"pointsEarned"`
	Feedback     string             `bson:"feedback,omitempty" json:"feedback,omitempty"`
}

// SectionResult snapshots one exam section at attempt-start time. Exam edits
// after an attempt starts do not change the attempt's shape.
type SectionResult struct {
	SectionID primitive.ObjectID `bson:"sectionId" json:"sectionId"`
	Skill     string             `bson:"skill" json:"skill"`
	Answers   []Answer           `bson:"answers" json:"answers"`
	Score     float64            `bson:"score" json:"score"`
	MaxScore  float64            `bson:"maxScore" json:"maxScore"`
}

type Score struct {
	TotalPoints float64 `bson:"totalPoints" json:"totalPoints"`
	MaxPoints   float64 `bson:"maxPoints" json:"maxPoints"`
	Percentage  float64 `bson:"percentage" json:"percentage"`
	Passed      bool    `bson:"passed" json:"passed"`
}

type SkillScores struct {
	Listening float64 `bson:"listening" json:"listening"`
	Reading   float64 `bson:"reading" json:"reading"`
	Writing   float64 `bson:"writing" json:"writing"`
}

// ExamResult is one student's attempt at an exam. Multiple attempts per
// (student, exam) pair are allowed; AttemptCount is the 1-based ordinal.
type ExamResult struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Exam    primitive.ObjectID `bson:"exam" json:"exam"`
	Student primitive.ObjectID `bson:"student" json:"student"`
	Course  primitive.ObjectID `bson:"course,omitempty" json:"course,omitempty"`

	AttemptCount int `bson:"attemptCount" json:"attemptCount"`

	SectionResults []SectionResult `bson:"sectionResults" json:"sectionResults"`
	Score          Score           `bson:"score" json:"score"`
	SkillScores    SkillScores     `bson:"skillScores" json:"skillScores"`

	StartedAt        time.Time  `bson:"startedAt" json:"startedAt"`
	SubmittedAt      *time.Time `bson:"submittedAt" json:"submittedAt"`
	TimeSpentMinutes int        `bson:"timeSpentMinutes" json:"timeSpentMinutes"`

	GradedAt *time.Time          `bson:"gradedAt" json:"gradedAt"`
	GradedBy *primitive.ObjectID `bson:"gradedBy,omitempty" json:"gradedBy,omitempty"`

	Status string `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
