// Package response renders the API envelope {success, message, statusCode,
// data?, meta?} shared with existing clients. The triple {success, data,
// meta} is a fixed external contract.
package response

import (
	"log"
	"net/http"

	"hsk-exam-service/internal/apperr"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data,omitempty"`
	Meta       interface{} `json:"meta,omitempty"`
}

// Pagination is the meta shape used by list endpoints.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

func NewPagination(page, limit int, total int64) Pagination {
	totalPages := int64(0)
	if limit > 0 {
		totalPages = (total + int64(limit) - 1) / int64(limit)
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Envelope{
		Success:    true,
		Message:    message,
		StatusCode: http.StatusOK,
		Data:       data,
	})
}

func SuccessWithMeta(c *gin.Context, message string, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, Envelope{
		Success:    true,
		Message:    message,
		StatusCode: http.StatusOK,
		Data:       data,
		Meta:       meta,
	})
}

func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{
		Success:    true,
		Message:    message,
		StatusCode: http.StatusCreated,
		Data:       data,
	})
}

// Error translates an error into the envelope. Operational errors keep their
// status and message; anything else is logged and returned as a generic 500.
func Error(c *gin.Context, err error) {
	if appErr, ok := apperr.As(err); ok {
		c.JSON(appErr.StatusCode, Envelope{
			Success:    false,
			Message:    appErr.Message,
			StatusCode: appErr.StatusCode,
		})
		return
	}

	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, Envelope{
			Success:    false,
			Message:    "Resource not found",
			StatusCode: http.StatusNotFound,
		})
		return
	}

	log.Printf("[ERROR] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, Envelope{
		Success:    false,
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	})
}
