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

type ExamRepository struct {
	Col *mongo.Collection
}

func NewExamRepository(db *mongo.Database) *ExamRepository {
	return &ExamRepository{Col: db.Collection("Exams")}
}

func (r *ExamRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Exam, error) {
	var exam models.Exam
	err := r.Col.FindOne(ctx, bson.M{"_id": id}).Decode(&exam)
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	now := time.Now()
	exam.CreatedAt = now
	exam.UpdatedAt = now
	res, err := r.Col.InsertOne(ctx, exam)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		exam.ID = oid
	}
	return nil
}

func (r *ExamRepository) Update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	update["updatedAt"] = time.Now()
	_, err := r.Col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	return err
}

// Replace persists a full exam document, e.g. after a sections rebuild.
func (r *ExamRepository) Replace(ctx context.Context, exam *models.Exam) error {
	exam.UpdatedAt = time.Now()
	_, err := r.Col.ReplaceOne(ctx, bson.M{"_id": exam.ID}, exam)
	return err
}

func (r *ExamRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.Col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Find returns a page of exams plus the unpaged total.
func (r *ExamRepository) Find(ctx context.Context, filter bson.M, page, limit int) ([]models.Exam, int64, error) {
	total, err := r.Col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cur, err := r.Col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var exams []models.Exam
	for cur.Next(ctx) {
		var e models.Exam
		if err := cur.Decode(&e); err != nil {
			return nil, 0, err
		}
		exams = append(exams, e)
	}
	return exams, total, cur.Err()
}
