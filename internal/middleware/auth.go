package middleware

import (
	"net/http"
	"os"
	"strings"

	"hsk-exam-service/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"

	ContextUserID = "userID"
	ContextRole   = "role"
)

// Claims carried by the platform's access tokens. This service trusts them
// without re-verifying against the user store.
type Claims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func accessSecret() []byte {
	return []byte(os.Getenv("JWT_ACCESS_SECRET"))
}

// Auth validates the bearer token and, when roles are given, enforces that
// the caller holds one of them.
func Auth(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "No token provided")
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return accessSecret(), nil
		})
		if err != nil || !token.Valid || claims.UserID == "" {
			abortUnauthorized(c, "Invalid/expired access token")
			return
		}

		if len(roles) > 0 && !containsRole(roles, claims.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Envelope{
				Success:    false,
				Message:    "Forbidden: insufficient rights",
				StatusCode: http.StatusForbidden,
			})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, response.Envelope{
		Success:    false,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	})
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// UserID returns the authenticated caller's id set by Auth.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// Role returns the authenticated caller's role set by Auth.
func Role(c *gin.Context) string {
	return c.GetString(ContextRole)
}
