// This file implements parsing of ledger query parameters and of the
// submission body, which may arrive as JSON or form-encoded.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/GillJordan/Home-expense/internal/core"
)

// maxBodyBytes bounds a submission body.
const maxBodyBytes = 64 << 10

// ParseYear resolves the partition year of a request: an explicit ?year=
// wins, then the year of fallbackDate, then the current year.
func ParseYear(query url.Values, fallbackDate string, now time.Time) (int, error) {
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || !core.IsPartitionName(v) {
			return 0, core.Validation("year must be a 4-digit year")
		}
		return y, nil
	}
	if strings.TrimSpace(fallbackDate) != "" {
		if d, err := core.ParseDate(fallbackDate); err == nil {
			return d.Year(), nil
		}
	}
	return now.Year(), nil
}

// isTrue accepts the flag spellings the browser client sends.
func isTrue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// RequestBodyParser reads a request body once and decodes it as JSON or
// as form data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	err         error
}

// NewRequestBodyParser reads at most maxBodyBytes of r's body.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

// IsJSON reports whether the body should be decoded as JSON.
func (p *RequestBodyParser) IsJSON() bool {
	if strings.Contains(p.contentType, "application/json") {
		return true
	}
	trimmed := strings.TrimSpace(string(p.body))
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

// Submission decodes the body into a submission. An empty body decodes to
// the zero submission.
func (p *RequestBodyParser) Submission() (core.Submission, error) {
	if p.err != nil {
		return core.Submission{}, core.Parse("read request body", p.err)
	}
	var sub core.Submission
	if len(strings.TrimSpace(string(p.body))) == 0 {
		return sub, nil
	}
	if p.IsJSON() {
		if err := json.Unmarshal(p.body, &sub); err != nil {
			return core.Submission{}, core.Parse("invalid JSON body", err)
		}
	} else {
		form, err := url.ParseQuery(string(p.body))
		if err != nil {
			return core.Submission{}, core.Parse("invalid form body", err)
		}
		sub = core.Submission{
			Date:     form.Get("date"),
			Debit:    form.Get("debit"),
			Product:  form.Get("product"),
			For:      form.Get("for"),
			Quantity: form.Get("quantity"),
			By:       form.Get("by"),
			From:     form.Get("from"),
		}
	}
	return sanitizeSubmission(sub), nil
}

func sanitizeSubmission(s core.Submission) core.Submission {
	return core.Submission{
		Date:     sanitizeInput(s.Date),
		Debit:    sanitizeInput(s.Debit),
		Product:  sanitizeInput(s.Product),
		For:      sanitizeInput(s.For),
		Quantity: sanitizeInput(s.Quantity),
		By:       sanitizeInput(s.By),
		From:     sanitizeInput(s.From),
	}
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
