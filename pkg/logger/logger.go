package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/noah-isme/ams-api/pkg/config"
	"github.com/noah-isme/ams-api/pkg/middleware/requestid"
)

// New builds the process logger. Production starts from zap's production
// preset, anything else from the development one; LOG_FORMAT and LOG_LEVEL
// override either.
func New(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.Env == config.EnvProduction {
		zc = zap.NewProductionConfig()
	}

	zc.Encoding = "json"
	if cfg.Log.Format == "console" {
		zc.Encoding = "console"
	}
	if level, err := zapcore.ParseLevel(cfg.Log.Level); err == nil && cfg.Log.Level != "" {
		zc.Level = zap.NewAtomicLevelAt(level)
	}

	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.AppName != "" {
		zc.InitialFields = map[string]interface{}{"app": cfg.AppName, "env": cfg.Env}
	}
	return zc.Build()
}

// GinMiddleware emits one "http_request" entry per request, levelled by
// status. Successful hits on quiet paths, typically probes and the scrape
// endpoint, drop to debug.
func GinMiddleware(l *zap.Logger, quiet ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(quiet))
	for _, p := range quiet {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if id := requestid.Value(c); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			fields = append(fields, zap.Strings("errors", errs.Errors()))
		}

		level := zapcore.InfoLevel
		switch _, muted := skip[c.Request.URL.Path]; {
		case status >= 500:
			level = zapcore.ErrorLevel
		case status >= 400:
			level = zapcore.WarnLevel
		case muted:
			level = zapcore.DebugLevel
		}
		if ce := l.Check(level, "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}
