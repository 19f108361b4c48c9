package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/moogar0880/problems"
)

// Role IDs carried in the role_id claim.
const (
	RoleApplicant = 1
	RoleInspector = 2
	RoleOfficer   = 3
)

// ProblemContentType is the media type of error bodies.
const ProblemContentType = "application/problem+json"

const (
	ContextUserID = "userID"
	ContextEmail  = "email"
	ContextRoleID = "roleID"
)

type Claims struct {
	UserID int    `json:"user_id"`
	Email  string `json:"email"`
	RoleID int    `json:"role_id"`
	jwt.RegisteredClaims
}

func abortProblem(c *gin.Context, status int, kind, detail string) {
	problem := problems.NewStatusProblem(status).
		WithInstance(c.Request.URL.Path).
		WithType(kind).
		WithDetail(detail)
	c.Header("Content-Type", ProblemContentType)
	c.AbortWithStatusJSON(status, problem)
}

// AuthMiddleware validates the bearer token signed with secret
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortProblem(c, http.StatusUnauthorized, "unauthorized", "Authorization header is required")
			return
		}

		// Check Bearer prefix
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			abortProblem(c, http.StatusUnauthorized, "unauthorized", "Invalid authorization header format")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			abortProblem(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
			return
		}
		if claims.UserID <= 0 {
			abortProblem(c, http.StatusUnauthorized, "unauthorized", "Invalid token claims")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRoleID, claims.RoleID)

		c.Next()
	}
}

// RequireRole checks if user has specific role
func RequireRole(roleIDs ...int) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := RoleID(c)
		if !exists {
			abortProblem(c, http.StatusForbidden, "forbidden", "Role not found")
			return
		}

		for _, roleID := range roleIDs {
			if userRole == roleID {
				c.Next()
				return
			}
		}
		abortProblem(c, http.StatusForbidden, "forbidden", "Insufficient permissions")
	}
}

// UserID returns the authenticated user id.
func UserID(c *gin.Context) (int, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok
}

func RoleID(c *gin.Context) (int, bool) {
	v, ok := c.Get(ContextRoleID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok
}
