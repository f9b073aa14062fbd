package logging

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// secretPatterns covers the common credential shapes a script's output or
// environment might leak, grounded on internal/redact/redact.go from the
// sibling security-researcher-ca-AI-Agentic-Shield example.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(aws_access_key_id|aws_secret_access_key|aws_session_token)\s*[=:]\s*['"]?[A-Za-z0-9/+=]{20,}['"]?`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`(?i)(github_token|gh_token|github_pat)\s*[=:]\s*['"]?[A-Za-z0-9_-]{30,}['"]?`),
	regexp.MustCompile(`gh[ps]_[A-Za-z0-9]{36}`),
	regexp.MustCompile(`(?i)(api_key|apikey|secret_key|access_token|auth_token)\s*[=:]\s*['"]?[A-Za-z0-9_-]{16,}['"]?`),
	regexp.MustCompile(`-----BEGIN (RSA |EC |OPENSSH |PGP )?PRIVATE KEY-----`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_-]{20,}`),
	regexp.MustCompile(`https?://[^:]+:[^@]+@`),
	regexp.MustCompile(`(?i)(password|passwd|secret)\s*[=:]\s*['"]?[^\s'"]{8,}['"]?`),
}

const redactedPlaceholder = "[REDACTED]"

// Redact scrubs any secret-shaped substring of s. Builtin stderr lines,
// resource-limit messages, and panic messages are all passed through this
// before they reach a logger or ExecResult.
func Redact(s string) string {
	for _, pat := range secretPatterns {
		s = pat.ReplaceAllString(s, redactedPlaceholder)
	}
	return s
}

// sensitiveEnvNames is a substring denylist applied independent of the
// regexp table, since env var values carrying secrets rarely have a shape
// of their own (a bare token with no surrounding "key=" text).
var sensitiveEnvNames = []string{
	"KEY", "SECRET", "TOKEN", "PASSWORD", "PASSWD", "CREDENTIAL", "PRIVATE",
}

// RedactEnv scrubs values of env vars whose name looks sensitive.
func RedactEnv(env map[string]string) map[string]string {
	out := make(map[string]string, len(env))
	for k, v := range env {
		upper := strings.ToUpper(k)
		sensitive := false
		for _, name := range sensitiveEnvNames {
			if strings.Contains(upper, name) {
				sensitive = true
				break
			}
		}
		if sensitive {
			out[k] = redactedPlaceholder
		} else {
			out[k] = v
		}
	}
	return out
}

// redactHandler wraps a slog.Handler, redacting the message and every
// string-valued attribute before passing the record on.
type redactHandler struct {
	next slog.Handler
}

func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *redactHandler) Handle(ctx context.Context, r slog.Record) error {
	nr := slog.NewRecord(r.Time, r.Level, Redact(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		nr.AddAttrs(redactAttr(a))
		return true
	})
	return h.next.Handle(ctx, nr)
}

func redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, Redact(a.Value.String()))
	}
	return a
}

func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = redactAttr(a)
	}
	return &redactHandler{next: h.next.WithAttrs(redacted)}
}

func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{next: h.next.WithGroup(name)}
}
