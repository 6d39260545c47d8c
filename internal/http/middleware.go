package http

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"greentea/internal/metrics"
)

const (
	actionKey     = "greentea.action"
	unknownAction = "unknown"
)

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// recoveryMiddleware turns panics into the API's 500 envelope without
// leaking the panic value to the client.
func recoveryMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.WithFields(logrus.Fields{
			"path":  c.Request.URL.Path,
			"panic": recovered,
		}).Error("panic while serving request")
		writeMessage(c, http.StatusInternalServerError, "Internal server error")
		c.Abort()
	})
}

func requestLogger(logger *logrus.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		action := c.GetString(actionKey)
		if action == "" {
			action = unknownAction
		}
		status := c.Writer.Status()

		if m != nil && strings.HasSuffix(c.Request.URL.Path, "/api.php") {
			m.Requests.WithLabelValues(action, strconv.Itoa(status)).Observe(latency.Seconds())
		}

		logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"action":  action,
			"status":  status,
			"latency": latency,
		}).Debug("request served")
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
