package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Exam levels and lifecycle states. These values are wire-visible and must
// not change without a data migration.
const (
	LevelHSK1 = "HSK1"
	LevelHSK2 = "HSK2"
	LevelHSK3 = "HSK3"
	LevelHSK4 = "HSK4"
	LevelHSK5 = "HSK5"
	LevelHSK6 = "HSK6"

	ExamStatusDraft     = "draft"
	ExamStatusPublished = "published"
	ExamStatusArchived  = "archived"

	SkillListening = "listening"
	SkillReading   = "reading"
	SkillWriting   = "writing"
)

// ValidLevels lists the accepted HSK levels in order.
var ValidLevels = []string{LevelHSK1, LevelHSK2, LevelHSK3, LevelHSK4, LevelHSK5, LevelHSK6}

func IsValidLevel(level string) bool {
	for _, l := range ValidLevels {
		if l == level {
			return true
		}
	}
	return false
}

func IsValidSkill(skill string) bool {
	return skill == SkillListening || skill == SkillReading || skill == SkillWriting
}

// EmbeddedQuestion is a question copy embedded in an exam section. The
// detached question bank (ExamQuestion) is the source of truth; these copies
// exist for fast attempt-time reads.
type EmbeddedQuestion struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Content       string             `bson:"content" json:"content"`
	Options       []string           `bson:"options" json:"options"`
	CorrectAnswer string             `bson:"correctAnswer,omitempty" json:"correctAnswer,omitempty"`
	AudioURL      string             `bson:"audioUrl" json:"audioUrl"`
	ImageURL      string             `bson:"imageUrl" json:"imageUrl"`
	ImageURLs     []string           `bson:"imageUrls" json:"imageUrls"`
	Points        float64            `bson:"points" json:"points"`
}

// SkillSection groups questions of one skill inside an exam.
type SkillSection struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Skill        string             `bson:"skill" json:"skill"`
	Title        string             `bson:"title" json:"title"`
	Instructions string             `bson:"instructions" json:"instructions"`
	AudioURL     string             `bson:"audioUrl" json:"audioUrl"`
	Questions    []EmbeddedQuestion `bson:"questions" json:"questions"`
}

// ListeningAudio is an audio file attached to an exam by the teacher.
type ListeningAudio struct {
	URL       string    `bson:"url" json:"url"`
	Name      string    `bson:"name" json:"name"`
	Provider  string    `bson:"provider" json:"provider"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// ExamStats is the running aggregate over graded attempts. It is derived
// from ExamResult documents, never accumulated in place.
type ExamStats struct {
	AttemptCount int     `bson:"attemptCount" json:"attemptCount"`
	AverageScore float64 `bson:"averageScore" json:"averageScore"`
}

type Exam struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Level       string             `bson:"level" json:"level"`
	Skills      []string           `bson:"skills" json:"skills"`
	Sections    []SkillSection     `bson:"sections" json:"sections"`

	// Side-channel banks uploaded with HSK question sets. Stored opaque.
	Reading1Images     []string      `bson:"reading1Images" json:"reading1Images"`
	Reading2WordBank   []interface{} `bson:"reading2WordBank" json:"reading2WordBank"`
	Reading4BankFirst  []interface{} `bson:"reading4BankFirst" json:"reading4BankFirst"`
	Reading4BankSecond []interface{} `bson:"reading4BankSecond" json:"reading4BankSecond"`

	ListeningAudios []ListeningAudio `bson:"listeningAudios" json:"listeningAudios"`

	TimeLimitMinutes int        `bson:"timeLimitMinutes" json:"timeLimitMinutes"`
	ScheduleStartAt  *time.Time `bson:"scheduleStartAt" json:"scheduleStartAt"`
	ScheduleEndAt    *time.Time `bson:"scheduleEndAt" json:"scheduleEndAt"`
	ScheduleTimezone string     `bson:"scheduleTimezone" json:"scheduleTimezone"`
	TotalPoints      float64    `bson:"totalPoints" json:"totalPoints"`
	PassingScore     float64    `bson:"passingScore" json:"passingScore"`

	Course    primitive.ObjectID `bson:"course" json:"course"`
	CreatedBy primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	Status    string             `bson:"status" json:"status"`
	Stats     ExamStats          `bson:"stats" json:"stats"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// RecalcTotalPoints re-derives totalPoints from the embedded sections.
// Must be called whenever Sections changes; totalPoints is never set by hand.
func (e *Exam) RecalcTotalPoints() {
	var total float64
	for _, section := range e.Sections {
		for _, q := range section.Questions {
			if q.Points > 0 {
				total += q.Points
			} else {
				total += 1
			}
		}
	}
	e.TotalPoints = total
}
