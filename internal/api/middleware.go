package api

import (
	"fmt"
	"net/http"
	"time"

	"deye-status/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDKey = "request_id"

// CORS allows the dashboard to call the API from any origin and answers
// preflight requests with an empty 204.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Logger tags every request with a UUID and logs method, path, status and
// duration on completion.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Set(requestIDKey, requestID)

		start := time.Now()
		c.Next()

		logger.WriteLog("INFO", requestID, "HTTP", fmt.Sprintf("%s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start)))
	}
}

// RequestID returns the request's UUID, or an empty string outside the
// Logger middleware.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
