package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	infralog "github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
)

// Logger 请求日志，复用系统统一日志接口
func Logger(logger infralog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)

		if zl := logger.GetZapLogger(); zl != nil {
			fields := []zap.Field{
				zap.String("request_id", GetRequestID(c)),
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Int("status", status),
				zap.Duration("latency", latency),
				zap.String("client_ip", c.ClientIP()),
			}
			if len(c.Errors) > 0 {
				fields = append(fields, zap.String("errors", c.Errors.String()))
			}
			switch {
			case status >= 500:
				zl.Error("HTTP request", fields...)
			case status >= 400:
				zl.Warn("HTTP request", fields...)
			default:
				zl.Debug("HTTP request", fields...)
			}
			return
		}

		if status >= 500 {
			logger.Errorf("HTTP request: %s %s status=%d latency=%s", c.Request.Method, c.Request.URL.Path, status, latency)
		} else {
			logger.Debugf("HTTP request: %s %s status=%d latency=%s", c.Request.Method, c.Request.URL.Path, status, latency)
		}
	}
}
