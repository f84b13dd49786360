package main

import (
	"log"
	"os"
	"time"

	"hsk-exam-service/internal/cache"
	"hsk-exam-service/internal/db"
	"hsk-exam-service/internal/event"
	"hsk-exam-service/internal/handlers"
	"hsk-exam-service/internal/middleware"
	"hsk-exam-service/internal/repository"
	"hsk-exam-service/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		log.Fatal("MONGO_URI is required")
	}
	db.InitMongo(mongoURI)

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "hsk_exam_service"
	}
	database := db.Client.Database(dbName)

	// RabbitMQ event publisher
	rabbitURL := os.Getenv("RABBITMQ_URI")
	eventExchange := os.Getenv("RABBITMQ_EXCHANGE")
	var publisher *event.EventPublisher
	if rabbitURL != "" && eventExchange != "" {
		var err error
		publisher, err = event.NewEventPublisher(rabbitURL, eventExchange)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
	} else {
		log.Println("RabbitMQ not configured, exam events will not be published")
	}

	// Redis leaderboard cache
	var ranking cache.RankingCache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		ranking = cache.NewRankingCache(client)
	} else {
		log.Println("Redis not configured, leaderboard falls back on MongoDB")
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "https://hsk.daokhanhngoc.vn"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "X-CSRF-Token", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RequestID())

	// Repositories
	examRepo := repository.NewExamRepository(database)
	questionRepo := repository.NewExamQuestionRepository(database)
	resultRepo := repository.NewResultRepository(database)
	courseRepo := repository.NewCourseRepository(database)
	notificationRepo := repository.NewNotificationRepository(database)

	// Services
	examService := service.NewExamService(examRepo, questionRepo, resultRepo, courseRepo)
	questionService := service.NewQuestionService(examRepo, questionRepo, publisher)
	statsService := service.NewStatsService(examRepo, resultRepo, courseRepo, ranking, publisher)
	attemptService := service.NewAttemptService(examRepo, resultRepo, courseRepo, statsService, publisher)
	notificationService := service.NewNotificationService(notificationRepo)
	gradingService := service.NewGradingService(examRepo, resultRepo, statsService, notificationService)

	// Handlers
	examHandler := handlers.NewExamHandler(examService)
	questionHandler := handlers.NewQuestionHandler(questionService)
	attemptHandler := handlers.NewAttemptHandler(attemptService)
	gradingHandler := handlers.NewGradingHandler(gradingService)
	statsHandler := handlers.NewStatsHandler(statsService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	teacher := middleware.Auth(middleware.RoleTeacher, middleware.RoleAdmin)
	student := middleware.Auth(middleware.RoleStudent)
	anyUser := middleware.Auth(middleware.RoleStudent, middleware.RoleTeacher, middleware.RoleAdmin)

	exams := r.Group("/api/exams")
	{
		// Exam definitions (teacher)
		exams.POST("/create-exam", teacher, examHandler.CreateExam)
		exams.PUT("/update-exam/:examId", teacher, examHandler.UpdateExam)
		exams.DELETE("/delete-exam/:examId", teacher, examHandler.DeleteExam)
		exams.PUT("/publish/:examId", teacher, func(c *gin.Context) {
			examHandler.PublishExam(c)
			if c.Writer.Status() < 400 {
				publisher.Publish(event.ExamPublished, gin.H{"examId": c.Param("examId")})
			}
		})
		exams.PUT("/schedule/:examId", teacher, examHandler.UpdateSchedule)
		exams.POST("/audios/:examId", teacher, examHandler.AttachListeningAudios)
		exams.DELETE("/audios/:examId", teacher, examHandler.RemoveListeningAudio)
		exams.GET("/my/list", teacher, examHandler.GetMyExams)

		// Question bank (teacher)
		exams.POST("/:examId/questions", teacher, questionHandler.ImportQuestions)
		exams.PUT("/:examId/questions", teacher, questionHandler.EditQuestions)
		exams.PUT("/:examId/questions/:questionId", teacher, questionHandler.UpdateSingleQuestion)
		exams.GET("/:examId/questions", teacher, questionHandler.GetQuestions)

		// Stats and review (teacher)
		exams.GET("/:examId/teacher-stats", teacher, statsHandler.GetTeacherExamStats)
		exams.GET("/:examId/students", teacher, statsHandler.GetStudentsJoinedExam)
		exams.GET("/:examId/students/:studentId/result", teacher, statsHandler.GetStudentResult)
		exams.GET("/:examId/pending-grading", teacher, gradingHandler.PendingGrading)
		exams.GET("/course/:courseId/results", teacher, statsHandler.GetCourseExamResults)

		// Listings and detail (both roles)
		exams.GET("/get-exam/:examId", teacher, examHandler.GetExam)
		exams.GET("/info/:examId", anyUser, examHandler.GetExamInfo)
		exams.GET("/course/:courseId", anyUser, examHandler.GetExamsByCourse)
		exams.GET("/:examId/leaderboard", anyUser, statsHandler.GetLeaderboard)

		// Attempts (student)
		exams.GET("/available/list", student, examHandler.GetAvailableExams)
		exams.POST("/start-exam/:examId", student, attemptHandler.StartExam)
		exams.GET("/take/:examId", student, attemptHandler.TakeExam)
		exams.POST("/result/:resultId/submit", student, attemptHandler.SubmitExam)
		exams.GET("/my/results", student, attemptHandler.GetMyResults)
		exams.GET("/:examId/my-history", student, attemptHandler.GetMyExamHistory)
		exams.GET("/result/:resultId", anyUser, attemptHandler.GetResultDetail)

		// Manual grading (teacher)
		exams.PUT("/result/:resultId/grade-writing", teacher, gradingHandler.GradeWriting)
	}

	notifications := r.Group("/api/notifications", anyUser)
	{
		notifications.GET("/my", notificationHandler.GetMyNotifications)
		notifications.PUT("/:notificationId/read", notificationHandler.MarkRead)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8086"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
