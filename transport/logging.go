package transport

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LoggingConfig holds configuration for the logging middleware.
type LoggingConfig struct {
	Logger      *zap.Logger
	LogStart    bool
	ExtraFields map[string]interface{}
}

// LoggingOption is a functional option for logging configuration.
type LoggingOption func(*LoggingConfig)

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) LoggingOption {
	return func(c *LoggingConfig) {
		c.Logger = logger
	}
}

// WithStartLog also logs when a request is issued, not only when it
// completes.
func WithStartLog() LoggingOption {
	return func(c *LoggingConfig) {
		c.LogStart = true
	}
}

// WithExtraFields adds extra fields to all log entries.
func WithExtraFields(fields map[string]interface{}) LoggingOption {
	return func(c *LoggingConfig) {
		c.ExtraFields = fields
	}
}

// Logging creates a middleware that logs every outbound request with
// its endpoint, status and duration. URLs are logged with the api_key
// parameter redacted.
func Logging(opts ...LoggingOption) Middleware {
	config := &LoggingConfig{
		Logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(config)
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			endpoint := Endpoint(req)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("endpoint", endpoint),
				zap.String("url", RedactURL(req.URL)),
			}
			for k, v := range config.ExtraFields {
				fields = append(fields, zap.Any(k, v))
			}

			if config.LogStart {
				config.Logger.Debug("api request started", fields...)
			}

			resp, err := next.RoundTrip(req)
			duration := time.Since(start)

			fields = append(fields,
				zap.Duration("duration", duration),
				zap.Int64("duration_ms", duration.Milliseconds()),
			)

			if err != nil {
				fields = append(fields, zap.Error(err))
				config.Logger.Error("api request failed", fields...)
				return nil, err
			}

			fields = append(fields, zap.Int("status", resp.StatusCode))

			switch {
			case resp.StatusCode >= http.StatusInternalServerError:
				config.Logger.Error("api request failed", fields...)
			case resp.StatusCode == http.StatusTooManyRequests:
				config.Logger.Warn("api request throttled", fields...)
			case resp.StatusCode >= http.StatusBadRequest:
				config.Logger.Warn("api request rejected", fields...)
			default:
				config.Logger.Info("api request completed", fields...)
			}

			return resp, nil
		})
	}
}
