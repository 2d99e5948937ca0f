package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpiredToken = errors.New("session token expired")
)

const (
	ctxKeyUserID = "user_id"

	sessionIssuer   = "linkboard"
	sessionDuration = 24 * time.Hour
)

// SessionClaims JWT-клеймы сессии дашборда
type SessionClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// GenerateSessionToken выписывает токен сессии для пользователя
func GenerateSessionToken(secret []byte, userID string) (string, error) {
	claims := &SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    sessionIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateSessionToken разбирает и проверяет токен сессии
func ValidateSessionToken(secret []byte, tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RequireSession middleware аутентификации по токену сессии.
// Identity пользователя кладётся в контекст: ею скоупится список ссылок
// и guard первой загрузки.
func RequireSession(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_token",
				"message": "Требуется токен сессии в заголовке Authorization: Bearer",
			})
			c.Abort()
			return
		}

		claims, err := ValidateSessionToken(secret, tokenString)
		if err != nil {
			status := "invalid_token"
			if errors.Is(err, ErrExpiredToken) {
				status = "expired_token"
			}
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   status,
				"message": "Невалидный или истёкший токен сессии",
			})
			c.Abort()
			return
		}

		c.Set(ctxKeyUserID, claims.UserID)
		c.Next()
	}
}

// CurrentUserID возвращает identity аутентифицированного пользователя
func CurrentUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ctxKeyUserID)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
