package proxy

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"

const (
	corsAllowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	corsAllowHeaders = "Content-Type, Authorization"
)

// cors sets the CORS headers on every /api response.
func (p *Proxy) cors(c *fiber.Ctx) error {
	c.Set(fiber.HeaderAccessControlAllowOrigin, p.config.AllowedOrigin)
	c.Set(fiber.HeaderAccessControlAllowMethods, corsAllowMethods)
	c.Set(fiber.HeaderAccessControlAllowHeaders, corsAllowHeaders)
	return c.Next()
}

// handlePreflight answers OPTIONS with 200; the headers come from cors.
func (p *Proxy) handlePreflight(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}

// logRequests logs request start and completion with timing.
func (p *Proxy) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	requestID := requestID(c)

	p.logger.Debug("request started",
		zap.String("request_id", requestID),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
	)

	err := c.Next()

	p.logger.Info("request completed",
		zap.String("request_id", requestID),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("latency", time.Since(start)),
	)

	return err
}

// handleError turns errors that escape a handler, including recovered panics,
// into a JSON body.
func (p *Proxy) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	title := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		title = fe.Message
	}

	if code >= fiber.StatusInternalServerError {
		p.logger.Error("request failed",
			zap.String("request_id", requestID(c)),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:     title,
		Details:   err.Error(),
		Timestamp: p.timestamp(),
	})
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}
