package api

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/resortbooking/internal/domain"
	"github.com/Domenick1991/resortbooking/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"
	userIDKey    = "user_id"
)

// RequestID reuses an incoming X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func Logger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if userID, ok := c.Get(userIDKey); ok {
			attrs = append(attrs, "user_id", userID)
		}
		if len(c.Errors) > 0 {
			log.ErrorContext(c.Request.Context(), "request failed", append(attrs, "error", c.Errors.String())...)
			return
		}
		log.InfoContext(c.Request.Context(), "request", attrs...)
	}
}

func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// RequireUser authenticates an HS256 bearer token and stores its subject as
// the caller's user id. Requests without a valid token never reach the handler.
func RequireUser(secret []byte) gin.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (interface{}, error) { return secret, nil }

	return func(c *gin.Context) {
		userID, err := authenticate(parser, keyFunc, c.GetHeader("Authorization"))
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func authenticate(parser *jwt.Parser, keyFunc jwt.Keyfunc, header string) (int64, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, domain.ErrAuthRequired
	}

	var claims jwt.RegisteredClaims
	if _, err := parser.ParseWithClaims(strings.TrimSpace(raw), &claims, keyFunc); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrAuthRequired, err)
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, domain.ErrAuthRequired
	}
	return userID, nil
}

// UserID returns the id stored by RequireUser, or 0 for anonymous requests.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
