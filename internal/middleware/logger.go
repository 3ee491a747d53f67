package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// quietSuffixes are long-lived or polled routes that would flood the log
var quietSuffixes = []string{"/stream", "/health"}

// Logger returns a middleware that logs requests using logrus
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Start timer
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		// Process request
		c.Next()

		for _, suffix := range quietSuffixes {
			if strings.HasSuffix(path, suffix) {
				return
			}
		}

		// Format the path with query parameters if present
		if raw != "" {
			path = path + "?" + raw
		}

		fields := logrus.Fields{
			"status":    c.Writer.Status(),
			"latency":   time.Since(start),
			"client_ip": c.ClientIP(),
			"method":    c.Request.Method,
			"path":      path,
		}
		if id := c.Param("id"); id != "" && strings.Contains(c.FullPath(), "/campaigns/:id") {
			fields["campaign_id"] = id
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}
		entry := logrus.WithFields(fields)

		statusCode := c.Writer.Status()
		switch {
		case statusCode >= 500:
			entry.Error("Server error")
		case statusCode == 409:
			entry.Info("Lifecycle conflict")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Debug("Request handled")
		}
	}
}
