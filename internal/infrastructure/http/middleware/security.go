// Package middleware holds the webhook security gateway: every check an
// inbound webhook must pass before a handler sees it.
package middleware

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	apperrors "github.com/chainsync-ai/alertbridge/errors"
	"github.com/chainsync-ai/alertbridge/internal/domain/entities"
	"github.com/chainsync-ai/alertbridge/internal/domain/repositories"
	"github.com/chainsync-ai/alertbridge/internal/infrastructure/ratelimit"
	"github.com/chainsync-ai/alertbridge/pkg/config"
	"github.com/chainsync-ai/alertbridge/pkg/signature"
)

// Request headers the gateway reads.
const (
	HeaderAPIKey    = "X-API-Key"
	HeaderSignature = "X-Webhook-Signature"
	HeaderTimestamp = "X-Webhook-Timestamp"
)

// redactedHeaders never land in the audit log verbatim.
var redactedHeaders = map[string]bool{
	"x-api-key":           true,
	"x-webhook-signature": true,
	"authorization":       true,
	"cookie":              true,
}

type errorBody struct {
	Code    interface{} `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Info    string      `json:"info,omitempty"`
}

// SecurityGateway verifies API key, body size, HMAC signature, timestamp
// freshness, and rate limit, in that order. The size ceiling is enforced
// before signature verification because the signature covers the full
// body. Every request, admitted or rejected, gets an audit row; audit
// write failures are logged and swallowed so they can never turn away a
// valid webhook.
type SecurityGateway struct {
	cfg     *config.SecurityConfig
	limiter ratelimit.Store
	logs    repositories.WebhookLogRepository
	logger  *zap.Logger
}

// NewSecurityGateway wires the gateway.
func NewSecurityGateway(cfg *config.SecurityConfig, limiter ratelimit.Store, logs repositories.WebhookLogRepository, logger *zap.Logger) *SecurityGateway {
	return &SecurityGateway{cfg: cfg, limiter: limiter, logs: logs, logger: logger}
}

// Middleware returns the echo middleware enforcing all gateway checks.
func (g *SecurityGateway) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			body, appErr := g.admit(c)
			if appErr != nil {
				g.audit(c, body, start, entities.OutcomeRejected, *appErr)
				return g.reject(c, *appErr)
			}

			// Handlers bind from a replayable reader.
			c.Request().Body = io.NopCloser(bytes.NewReader(body))

			err := next(c)
			g.audit(c, body, start, entities.OutcomeAdmitted, apperrors.AppError{})
			return err
		}
	}
}

// admit runs the checks in order and returns the body read so far.
func (g *SecurityGateway) admit(c echo.Context) ([]byte, *apperrors.AppError) {
	// 1. API key. A server without a configured key is misconfigured,
	// which is not the caller's fault.
	if g.cfg.APIKey == "" {
		err := apperrors.ErrServiceMisconfigured("WEBHOOK_API_KEY")
		return nil, &err
	}
	presented := c.Request().Header.Get(HeaderAPIKey)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(g.cfg.APIKey)) != 1 {
		err := apperrors.ErrUnauthorized("Invalid or missing API key")
		return nil, &err
	}

	// 2. Body size, read through a hard ceiling.
	limited := io.LimitReader(c.Request().Body, g.cfg.MaxBodyBytes+1)
	body, readErr := io.ReadAll(limited)
	if readErr != nil {
		err := apperrors.ErrValidation("Failed to read request body")
		return body, &err
	}
	if int64(len(body)) > g.cfg.MaxBodyBytes {
		err := apperrors.ErrPayloadTooLarge(g.cfg.MaxBodyBytes)
		return body, &err
	}

	// 3+4. Signature and freshness, only when a secret is configured.
	if g.cfg.SignatureEnabled() {
		ts := c.Request().Header.Get(HeaderTimestamp)
		sig := c.Request().Header.Get(HeaderSignature)
		if !signature.Verify(g.cfg.SecretKey, ts, body, sig) {
			err := apperrors.ErrInvalidSignature()
			return body, &err
		}
		window := time.Duration(g.cfg.TimestampWindow) * time.Second
		if !signature.FreshWithin(ts, window, time.Now()) {
			err := apperrors.ErrStaleRequest()
			return body, &err
		}
	}

	// 5. Rate limit, keyed by client IP.
	res, limitErr := g.limiter.Allow(c.Request().Context(), c.RealIP(), g.cfg.RateLimit,
		time.Duration(g.cfg.RateWindowSeconds)*time.Second)
	if limitErr != nil {
		// Limiter backends fail open.
		g.logger.Warn("rate limit check failed, admitting request", zap.Error(limitErr))
		return body, nil
	}
	if !res.Allowed {
		retryAfter := int(res.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		err := apperrors.ErrRateLimited(retryAfter)
		return body, &err
	}

	return body, nil
}

// reject writes the error envelope, including Retry-After for 429s.
func (g *SecurityGateway) reject(c echo.Context, appErr apperrors.AppError) error {
	g.logger.Warn("webhook rejected",
		zap.String("path", c.Path()),
		zap.String("code", appErr.Code.String()),
		zap.String("ip", c.RealIP()),
	)
	if appErr.Code == apperrors.ErrorCode_RATE_LIMITED {
		c.Response().Header().Set("Retry-After", appErr.Details["retry_after"])
	}
	return c.JSON(appErr.HTTPCode, errorBody{
		Code:    appErr.Code,
		Message: appErr.Message,
	})
}

// audit records the request in webhook_logs.
func (g *SecurityGateway) audit(c echo.Context, body []byte, start time.Time, outcome entities.WebhookOutcome, appErr apperrors.AppError) {
	if g.logs == nil {
		return
	}

	status := c.Response().Status
	rejection := ""
	var errText *string
	if outcome == entities.OutcomeRejected {
		status = appErr.HTTPCode
		rejection = appErr.Code.String()
		msg := appErr.Message
		errText = &msg
	}

	sum := sha256.Sum256(body)
	entry := &entities.WebhookLog{
		Endpoint:       c.Path(),
		Method:         c.Request().Method,
		BodyHash:       hex.EncodeToString(sum[:]),
		Headers:        redactHeaders(c.Request().Header),
		Outcome:        outcome,
		RejectionCode:  rejection,
		ResponseStatus: status,
		Error:          errText,
		LatencyMs:      float64(time.Since(start).Microseconds()) / 1000.0,
		IPAddress:      c.RealIP(),
	}
	if err := g.logs.Create(c.Request().Context(), entry); err != nil {
		g.logger.Error("webhook audit write failed", zap.Error(err))
	}
}

// redactHeaders serializes request headers with secret values masked.
func redactHeaders(h http.Header) datatypes.JSON {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if redactedHeaders[strings.ToLower(name)] {
			out[name] = "[REDACTED]"
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	b, err := json.Marshal(out)
	if err != nil {
		return datatypes.JSON(fmt.Sprintf(`{"error":%q}`, err.Error()))
	}
	return datatypes.JSON(b)
}
