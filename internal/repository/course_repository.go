package repository

import (
	"context"

	"hsk-exam-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// CourseRepository reads the course and enrollment collections owned by the
// wider platform. This service never writes them.
type CourseRepository struct {
	Courses     *mongo.Collection
	Enrollments *mongo.Collection
}

func NewCourseRepository(db *mongo.Database) *CourseRepository {
	return &CourseRepository{
		Courses:     db.Collection("courses"),
		Enrollments: db.Collection("enrollments"),
	}
}

func (r *CourseRepository) FindCourse(ctx context.Context, id primitive.ObjectID) (*models.Course, error) {
	var course models.Course
	err := r.Courses.FindOne(ctx, bson.M{"_id": id}).Decode(&course)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// IsEnrolled reports whether a user has an enrollment in a course.
func (r *CourseRepository) IsEnrolled(ctx context.Context, userID, courseID primitive.ObjectID) (bool, error) {
	err := r.Enrollments.FindOne(ctx, bson.M{"user": userID, "course": courseID}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// EnrolledCourseIDs lists the courses a user is enrolled in.
func (r *CourseRepository) EnrolledCourseIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := r.Enrollments.Find(ctx, bson.M{"user": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var e models.Enrollment
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		ids = append(ids, e.Course)
	}
	return ids, cur.Err()
}
