package repository

import (
	"context"
	"time"

	"hsk-exam-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ResultRepository struct {
	Col *mongo.Collection
}

func NewResultRepository(db *mongo.Database) *ResultRepository {
	return &ResultRepository{Col: db.Collection("ExamResults")}
}

func (r *ResultRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ExamResult, error) {
	var result models.ExamResult
	err := r.Col.FindOne(ctx, bson.M{"_id": id}).Decode(&result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ResultRepository) Create(ctx context.Context, result *models.ExamResult) error {
	now := time.Now()
	result.CreatedAt = now
	result.UpdatedAt = now
	res, err := r.Col.InsertOne(ctx, result)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		result.ID = oid
	}
	return nil
}

func (r *ResultRepository) Replace(ctx context.Context, result *models.ExamResult) error {
	result.UpdatedAt = time.Now()
	_, err := r.Col.ReplaceOne(ctx, bson.M{"_id": result.ID}, result)
	return err
}

// CountAttempts counts a student's prior attempts on an exam, used to assign
// the next attempt ordinal.
func (r *ResultRepository) CountAttempts(ctx context.Context, examID, studentID primitive.ObjectID) (int64, error) {
	return r.Col.CountDocuments(ctx, bson.M{"exam": examID, "student": studentID})
}

// Find returns a page of results plus the unpaged total, newest first.
func (r *ResultRepository) Find(ctx context.Context, filter bson.M, page, limit int) ([]models.ExamResult, int64, error) {
	total, err := r.Col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "submittedAt", Value: -1}, {Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cur, err := r.Col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var results []models.ExamResult
	for cur.Next(ctx) {
		var res models.ExamResult
		if err := cur.Decode(&res); err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}
	return results, total, cur.Err()
}

// FindAll returns every result matching the filter, newest first.
func (r *ResultRepository) FindAll(ctx context.Context, filter bson.M) ([]models.ExamResult, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}, {Key: "createdAt", Value: -1}})
	cur, err := r.Col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var results []models.ExamResult
	for cur.Next(ctx) {
		var res models.ExamResult
		if err := cur.Decode(&res); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, cur.Err()
}

func (r *ResultRepository) FindOne(ctx context.Context, filter bson.M) (*models.ExamResult, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "startedAt", Value: -1}, {Key: "createdAt", Value: -1}})
	var result models.ExamResult
	err := r.Col.FindOne(ctx, filter, opts).Decode(&result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GradedStats derives an exam's running aggregate from its graded attempts.
// Deriving instead of accumulating avoids the read-modify-write race between
// concurrent finalizations.
func (r *ResultRepository) GradedStats(ctx context.Context, examID primitive.ObjectID) (int64, float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"exam": examID, "status": models.ResultStatusGraded}}},
		{{Key: "$group", Value: bson.M{
			"_id":          nil,
			"attemptCount": bson.M{"$sum": 1},
			"averageScore": bson.M{"$avg": "$score.percentage"},
		}}},
	}

	cur, err := r.Col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, err
	}
	defer cur.Close(ctx)

	var row struct {
		AttemptCount int64   `bson:"attemptCount"`
		AverageScore float64 `bson:"averageScore"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&row); err != nil {
			return 0, 0, err
		}
	}
	return row.AttemptCount, row.AverageScore, cur.Err()
}

// CourseStats aggregates attempt outcomes across every exam in a course.
type CourseStats struct {
	TotalAttempts   int64   `bson:"totalAttempts"`
	AverageScore    float64 `bson:"averageScore"`
	PassedCount     int64   `bson:"passedCount"`
	SubmittedCount  int64   `bson:"submittedCount"`
	InProgressCount int64   `bson:"inProgressCount"`
}

func (r *ResultRepository) AggregateCourseStats(ctx context.Context, courseID primitive.ObjectID) (*CourseStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"course": courseID}}},
		{{Key: "$group", Value: bson.M{
			"_id":           nil,
			"totalAttempts": bson.M{"$sum": 1},
			"averageScore":  bson.M{"$avg": "$score.percentage"},
			"passedCount":   bson.M{"$sum": bson.M{"$cond": bson.A{"$score.passed", 1, 0}}},
			"submittedCount": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$status", models.ResultStatusSubmitted}}, 1, 0}}},
			"inProgressCount": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$status", models.ResultStatusInProgress}}, 1, 0}}},
		}}},
	}

	cur, err := r.Col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	stats := &CourseStats{}
	if cur.Next(ctx) {
		if err := cur.Decode(stats); err != nil {
			return nil, err
		}
	}
	return stats, cur.Err()
}
