package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	NotificationTypeExam     = "exam"
	NotificationTypeCourse   = "course"
	NotificationTypeSystem   = "system"
	NotificationTypePersonal = "personal"

	NotificationScopeIndividual = "individual"
	NotificationScopeCourse     = "course"
)

// Notification is a message delivered to a user, e.g. "your writing section
// has been graded".
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title     string             `bson:"title" json:"title"`
	Message   string             `bson:"message" json:"message"`
	Type      string             `bson:"type" json:"type"`
	CreatedBy primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	Scope     string             `bson:"scope" json:"scope"`

	TargetCourse *primitive.ObjectID `bson:"targetCourse,omitempty" json:"targetCourse,omitempty"`
	TargetUser   *primitive.ObjectID `bson:"targetUser,omitempty" json:"targetUser,omitempty"`

	Read      bool      `bson:"read" json:"read"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
