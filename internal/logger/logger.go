// Package logger provides the process-wide structured logger, grounded on
// user-service/internal/logger/logger.go.
package logger

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var log *logrus.Logger

// Init configures the global logger. level is one of
// debug|info|warn|error; format is "json" or "text".
func Init(level, format string) {
	log = logrus.New()

	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}

	log.SetOutput(os.Stdout)
}

// GetLogger returns the global logger, initializing a sane default (json,
// info) if Init was never called - useful from tests and library code.
func GetLogger() *logrus.Logger {
	if log == nil {
		Init("info", "json")
	}
	return log
}

// WithRequestID returns a logger entry tagged with the request's id, set by
// the request-id gin middleware.
func WithRequestID(c *gin.Context) *logrus.Entry {
	entry := GetLogger().WithFields(logrus.Fields{})
	if id, ok := c.Get("request_id"); ok {
		entry = entry.WithField("request_id", id)
	}
	return entry
}

// GinMiddleware logs one line per request at the level appropriate to its
// outcome.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		entry := WithRequestID(c).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Error("request completed with errors")
			return
		}
		if c.Writer.Status() >= 500 {
			entry.Error("request completed")
		} else {
			entry.Info("request completed")
		}
	}
}
