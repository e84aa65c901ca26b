package middleware

import (
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/PixieStack/indulge/pkg/context"
)

// Logger emits one structured line per request. The Context middleware runs
// first, so the request id is read from the request context rather than
// re-derived from headers; the authenticated user id is attached when the
// auth middleware resolved one.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()
			res := c.Response()
			start := time.Now()
			if err = next(c); err != nil {
				c.Error(err)
			}

			ctx := c.Request().Context()
			fields := map[string]any{
				"request_id": context.GetRequestID(ctx),
				"method":     req.Method,
				"uri":        req.RequestURI,
				"route":      c.Path(),
				"status":     res.Status,
				"remote_ip":  c.RealIP(),
				"user_agent": req.UserAgent(),
				"latency_ms": time.Since(start).Milliseconds(),
				"bytes_out":  res.Size,
			}
			if userID := context.GetUserID(ctx); userID != "" {
				fields["user_id"] = userID
			}

			logger.WithContext(ctx).WithFields(fields).Info("Request")

			return nil
		}
	}
}
