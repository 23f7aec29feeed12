package logger

import (
	"io"
	"regexp"
)

// defaultSecretPatterns matches the credentials this deployment handles:
// model provider API keys, Slack tokens, OAuth refresh tokens, and the
// usual key=value style password and secret fields.
var defaultSecretPatterns = []string{
	`sk-ant-[a-zA-Z0-9_-]{20,}`,       // Anthropic
	`sk-[a-zA-Z0-9_-]{20,}`,           // OpenAI
	`AIza[a-zA-Z0-9_-]{30,}`,          // Gemini
	`xox[baprs]-[a-zA-Z0-9-]{10,}`,    // Slack bot/app tokens
	`1//[a-zA-Z0-9_-]{20,}`,           // Google OAuth refresh tokens
	`Bearer\s+[a-zA-Z0-9._-]+`,        // Authorization headers
	`password["\s:=]+[^\s"]+`,
	`pwd["\s:=]+[^\s"]+`,
	`token["\s:=]+[a-zA-Z0-9._-]{20,}`,
	`secret["\s:=]+[^\s"]+`,
}

const redactedPlaceholder = "[REDACTED]"

// Redactor scrubs credential-shaped substrings from log output.
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor creates a redactor with the default pattern set.
func NewRedactor() *Redactor {
	r := &Redactor{}
	for _, p := range defaultSecretPatterns {
		r.patterns = append(r.patterns, regexp.MustCompile(p))
	}
	return r
}

// AddPattern registers an additional redaction pattern.
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.patterns = append(r.patterns, re)
	return nil
}

// Redact replaces every pattern match in s with a placeholder.
func (r *Redactor) Redact(s string) string {
	for _, re := range r.patterns {
		s = re.ReplaceAllString(s, redactedPlaceholder)
	}
	return s
}

// Wrap returns a writer that redacts everything written through it.
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{out: w, redactor: r}
}

type redactingWriter struct {
	out      io.Writer
	redactor *Redactor
}

// Write reports the original length so zerolog never sees a short write
// when redaction shrinks the line.
func (w *redactingWriter) Write(p []byte) (int, error) {
	if _, err := w.out.Write([]byte(w.redactor.Redact(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
