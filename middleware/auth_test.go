package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func newAuthRouter(roles ...int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{AuthMiddleware(testSecret)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		id, _ := UserID(c)
		role, _ := RoleID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id, "role_id": role})
	})
	r.GET("/secure", handlers...)
	return r
}

func request(r http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func validClaims(userID, roleID int) Claims {
	return Claims{
		UserID: userID,
		RoleID: roleID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestAuthMiddleware(t *testing.T) {
	r := newAuthRouter()

	w := request(r, "Bearer "+signToken(t, jwt.SigningMethodHS256, testSecret, validClaims(7, RoleApplicant)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"role_id":1}`, w.Body.String())

	expired := validClaims(7, RoleApplicant)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	cases := map[string]string{
		"missing header": "",
		"no bearer":      signToken(t, jwt.SigningMethodHS256, testSecret, validClaims(7, RoleApplicant)),
		"wrong secret":   "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), validClaims(7, RoleApplicant)),
		"expired":        "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, expired),
		"no user":        "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, validClaims(0, RoleOfficer)),
		"none algorithm": "Bearer " + signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims(7, RoleOfficer)),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			w := request(r, header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, ProblemContentType, w.Header().Get("Content-Type"))
		})
	}
}

func TestRequireRole(t *testing.T) {
	r := newAuthRouter(RoleInspector, RoleOfficer)

	w := request(r, "Bearer "+signToken(t, jwt.SigningMethodHS256, testSecret, validClaims(3, RoleInspector)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(r, "Bearer "+signToken(t, jwt.SigningMethodHS256, testSecret, validClaims(4, RoleApplicant)))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Insufficient permissions")
}
