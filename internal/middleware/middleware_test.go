package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SergeiKhy/linkboard/internal/middleware"
)

var testSecret = []byte("test-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthedRouter(limiter *middleware.RateLimiter) *gin.Engine {
	router := gin.New()
	group := router.Group("/", middleware.RequireSession(testSecret))
	if limiter != nil {
		group.Use(limiter.Middleware())
	}
	group.GET("/ping", func(c *gin.Context) {
		userID, _ := middleware.CurrentUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	return router
}

func doRequest(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestRequireSession_ValidToken проверяет прохождение с валидным токеном
// и попадание identity в контекст
func TestRequireSession_ValidToken(t *testing.T) {
	token, err := middleware.GenerateSessionToken(testSecret, "user-42")
	require.NoError(t, err)

	w := doRequest(newAuthedRouter(nil), token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-42")
}

// TestRequireSession_MissingToken проверяет 401 без заголовка Authorization
func TestRequireSession_MissingToken(t *testing.T) {
	w := doRequest(newAuthedRouter(nil), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing_token")
}

// TestRequireSession_InvalidToken проверяет 401 для мусорного токена
// и токена с чужим секретом
func TestRequireSession_InvalidToken(t *testing.T) {
	w := doRequest(newAuthedRouter(nil), "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_token")

	foreign, err := middleware.GenerateSessionToken([]byte("other-secret"), "user-42")
	require.NoError(t, err)
	w = doRequest(newAuthedRouter(nil), foreign)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestRequireSession_ExpiredToken проверяет отдельный код для истёкшего токена
func TestRequireSession_ExpiredToken(t *testing.T) {
	claims := &middleware.SessionClaims{
		UserID: "user-42",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	w := doRequest(newAuthedRouter(nil), expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "expired_token")
}

// TestValidateSessionToken_EmptyUserID проверяет отказ токену без identity
func TestValidateSessionToken_EmptyUserID(t *testing.T) {
	claims := &middleware.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = middleware.ValidateSessionToken(testSecret, token)
	assert.ErrorIs(t, err, middleware.ErrInvalidToken)
}

// TestRateLimiter_Burst проверяет, что burst пропускается, следующий запрос режется
func TestRateLimiter_Burst(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: 1,
		BurstSize:         3,
	})
	router := newAuthedRouter(limiter)

	token, err := middleware.GenerateSessionToken(testSecret, "user-1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		w := doRequest(router, token)
		assert.Equal(t, http.StatusOK, w.Code, "запрос %d в пределах burst", i+1)
	}

	w := doRequest(router, token)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}

// TestRateLimiter_PerUserKeys проверяет, что лимиты считаются на пользователя:
// исчерпание квоты одной сессии не задевает другую
func TestRateLimiter_PerUserKeys(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: 1,
		BurstSize:         1,
	})
	router := newAuthedRouter(limiter)

	tokenA, err := middleware.GenerateSessionToken(testSecret, "user-a")
	require.NoError(t, err)
	tokenB, err := middleware.GenerateSessionToken(testSecret, "user-b")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, doRequest(router, tokenA).Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, tokenA).Code)
	assert.Equal(t, http.StatusOK, doRequest(router, tokenB).Code)
}

// TestRequestID проверяет проставление заголовка X-Request-ID
func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.GET("/ping", func(c *gin.Context) {
		assert.NotEmpty(t, middleware.GetRequestID(c))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
