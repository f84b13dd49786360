package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Course and Enrollment are owned by the wider platform. This service only
// reads them to gate exam creation (teacher must own the course) and attempt
// access (student must be enrolled).
type Course struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title           string             `bson:"title" json:"title"`
	TargetLevel     string             `bson:"targetLevel" json:"targetLevel"`
	Status          string             `bson:"status" json:"status"`
	AssignedTeacher primitive.ObjectID `bson:"assignedTeacher" json:"assignedTeacher"`
}

type Enrollment struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	User       primitive.ObjectID `bson:"user" json:"user"`
	Course     primitive.ObjectID `bson:"course" json:"course"`
	EnrolledAt time.Time          `bson:"enrolledAt" json:"enrolledAt"`
}
