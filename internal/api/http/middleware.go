package httpapi

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/weather-tracker/internal/cache"
	"github.com/i474232898/weather-tracker/internal/metrics"
)

// CachedResponse is a stored copy of a successful rendered response.
type CachedResponse struct {
	ContentType string
	Body        []byte
}

// timed logs how long the rest of the chain took and records it per route.
// It also tags the request with an X-Request-ID.
func timed(route string, logger *zap.Logger, m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		reqID := c.Get(fiber.HeaderXRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, reqID)

		err := c.Next()

		elapsed := time.Since(start)
		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		m.ObserveRequest(route, status, elapsed)
		logger.Info("request timed",
			zap.String("route", route),
			zap.Duration("took", elapsed),
			zap.Int("status", status),
			zap.String("request_id", reqID),
			zap.String("ip", c.IP()))

		return err
	}
}

// responseCache serves a stored copy of a 200 response keyed by path until the
// entry expires. Writes elsewhere do not invalidate it.
func responseCache(route string, store *cache.TTL[CachedResponse], m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Path()

		if cached, ok := store.Get(key); ok {
			m.CacheLookup(route, true)
			c.Set(fiber.HeaderContentType, cached.ContentType)
			return c.Status(fiber.StatusOK).Send(cached.Body)
		}
		m.CacheLookup(route, false)

		if err := c.Next(); err != nil {
			return err
		}

		if c.Response().StatusCode() == fiber.StatusOK {
			store.Set(key, CachedResponse{
				ContentType: string(c.Response().Header.ContentType()),
				Body:        append([]byte(nil), c.Response().Body()...),
			})
		}
		return nil
	}
}
