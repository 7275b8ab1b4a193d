// This file implements RedactingLogger, the access logger used in front of
// the contract API. Contract requests routinely carry names, addresses, and
// RUTs in query strings and headers, so the logger scrubs obvious personal
// identifiers from request metadata before anything reaches the log stream.
//
// Design goals:
//   - Default-safe: never logs request or response bodies
//   - Redacts RUT-shaped tokens, email addresses, and UUID identifiers
//   - Masks sensitive headers (Authorization, Cookie, Set-Cookie, plus custom)
//   - Produces structured JSON logs via zerolog
//
// Usage:
//
//	r := gin.New()
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{"X-User-ID"},
//	}))
//
// Scrubbing reduces but does not eliminate leak risk; clients should still
// avoid transmitting personal data in query strings where possible.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders lists extra HTTP header names whose values are fully replaced
// with "[REDACTED]". Matching is case-insensitive and merged with the
// built-in sensitive headers ("Authorization", "Cookie", "Set-Cookie").
type RedactOptions struct {
	MaskHeaders []string
}

// RedactingLogger returns a Gin middleware that logs HTTP requests with
// personal identifiers scrubbed.
//
// Behavior:
//   - Logs method, path, query string, status, response size, latency, and
//     request headers (scrubbed).
//   - Applies regex substitution to query strings and header values: UUIDs,
//     email addresses, and RUT-shaped tokens (dotted or bare body plus a
//     dash and check digit, e.g. "12.345.678-5" or "20347878-K").
//   - Fully masks the built-in sensitive headers and any extra headers from
//     opts.MaskHeaders.
//   - INFO for 2xx/3xx, WARN for 4xx, ERROR for 5xx.
//
// NOTE: UUIDs are redacted before RUTs so the RUT pattern never matches the
// digit/hyphen segments inside a UUID.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	uuidRE := regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE := regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// 7-8 digit body, optional thousands dots, mandatory dash + check digit.
	rutRE := regexp.MustCompile(`\b\d{1,2}\.?\d{3}\.?\d{3}-[0-9Kk]\b`)

	redact := func(s string) string {
		if s == "" {
			return s
		}
		out := s
		// Order matters: UUIDs first, then email, then the RUT shape.
		out = uuidRE.ReplaceAllString(out, "[REDACTED:id]")
		out = emailRE.ReplaceAllString(out, "[REDACTED:email]")
		out = rutRE.ReplaceAllString(out, "[REDACTED:rut]")
		return out
	}

	// Header mask set (case-insensitive).
	maskHeaders := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		// Route pattern when matched, raw path otherwise.
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		safeQuery := redact(c.Request.URL.RawQuery)

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			val := strings.Join(vv, ", ")
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = redact(val)
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		size := c.Writer.Size()

		reqID := c.Writer.Header().Get("X-Request-ID")
		if reqID == "" {
			reqID = c.GetHeader("X-Request-ID")
		}

		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}

		ev.
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", safeQuery).
			Int("status", status).
			Int("bytes", size).
			Dur("latency", latency).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
