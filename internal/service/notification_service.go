package service

import (
	"context"
	"fmt"

	"hsk-exam-service/internal/apperr"
	"hsk-exam-service/internal/models"
	"hsk-exam-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationService struct {
	Notifications *repository.NotificationRepository
}

func NewNotificationService(notifications *repository.NotificationRepository) *NotificationService {
	return &NotificationService{Notifications: notifications}
}

// NotifyGraded tells a student their writing section was graded.
func (s *NotificationService) NotifyGraded(ctx context.Context, teacherID, studentID primitive.ObjectID, exam *models.Exam, result *models.ExamResult) error {
	n := &models.Notification{
		Title: fmt.Sprintf("Exam graded: %s", exam.Title),
		Message: fmt.Sprintf("Your writing section has been graded. Final score: %.0f/%.0f (%.0f%%).",
			result.Score.TotalPoints, result.Score.MaxPoints, result.Score.Percentage),
		Type:       models.NotificationTypeExam,
		CreatedBy:  teacherID,
		Scope:      models.NotificationScopeIndividual,
		TargetUser: &studentID,
	}
	return s.Notifications.Create(ctx, n)
}

func (s *NotificationService) GetMyNotifications(ctx context.Context, userID string, page, limit int) ([]models.Notification, int64, error) {
	userOID, err := ParseObjectID(userID, "user id")
	if err != nil {
		return nil, 0, err
	}
	return s.Notifications.FindByUser(ctx, userOID, page, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	userOID, err := ParseObjectID(userID, "user id")
	if err != nil {
		return err
	}
	notifOID, err := ParseObjectID(notificationID, "notification id")
	if err != nil {
		return err
	}
	matched, err := s.Notifications.MarkRead(ctx, notifOID, userOID)
	if err != nil {
		return err
	}
	if matched == 0 {
		return apperr.NotFound("Notification not found")
	}
	return nil
}
