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

type ExamQuestionRepository struct {
	Col *mongo.Collection
}

func NewExamQuestionRepository(db *mongo.Database) *ExamQuestionRepository {
	return &ExamQuestionRepository{Col: db.Collection("examquestions")}
}

func (r *ExamQuestionRepository) DeleteByExam(ctx context.Context, examID primitive.ObjectID) error {
	_, err := r.Col.DeleteMany(ctx, bson.M{"exam": examID})
	return err
}

// InsertMany writes the bank in order. Ordered insert: the first invalid
// document aborts the whole batch.
func (r *ExamQuestionRepository) InsertMany(ctx context.Context, questions []models.ExamQuestion) ([]models.ExamQuestion, error) {
	now := time.Now()
	docs := make([]interface{}, len(questions))
	for i := range questions {
		if questions[i].ID.IsZero() {
			questions[i].ID = primitive.NewObjectID()
		}
		questions[i].CreatedAt = now
		questions[i].UpdatedAt = now
		docs[i] = questions[i]
	}

	_, err := r.Col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *ExamQuestionRepository) FindByExam(ctx context.Context, examID primitive.ObjectID) ([]models.ExamQuestion, error) {
	opts := options.Find().SetSort(bson.D{{Key: "orderNo", Value: 1}})
	cur, err := r.Col.Find(ctx, bson.M{"exam": examID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var questions []models.ExamQuestion
	for cur.Next(ctx) {
		var q models.ExamQuestion
		if err := cur.Decode(&q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, cur.Err()
}

func (r *ExamQuestionRepository) FindOne(ctx context.Context, id, examID primitive.ObjectID) (*models.ExamQuestion, error) {
	var q models.ExamQuestion
	err := r.Col.FindOne(ctx, bson.M{"_id": id, "exam": examID}).Decode(&q)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *ExamQuestionRepository) Replace(ctx context.Context, q *models.ExamQuestion) error {
	q.UpdatedAt = time.Now()
	_, err := r.Col.ReplaceOne(ctx, bson.M{"_id": q.ID}, q)
	return err
}

func (r *ExamQuestionRepository) CountByExam(ctx context.Context, examID primitive.ObjectID) (int64, error) {
	return r.Col.CountDocuments(ctx, bson.M{"exam": examID})
}
