package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/GillJordan/Home-expense/internal/core"
)

func TestParseYear(t *testing.T) {
	now := time.Date(2025, 9, 4, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		query    url.Values
		fallback string
		want     int
		wantErr  bool
	}{
		{name: "explicit year", query: url.Values{"year": {"2023"}}, fallback: "2024-01-01", want: 2023},
		{name: "year of fallback date", query: url.Values{}, fallback: "2024-12-31", want: 2024},
		{name: "unparseable fallback uses now", query: url.Values{}, fallback: "soon", want: 2025},
		{name: "nothing uses now", query: url.Values{}, want: 2025},
		{name: "invalid year", query: url.Values{"year": {"20x5"}}, wantErr: true},
		{name: "out of range year", query: url.Values{"year": {"0999"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseYear(tt.query, tt.fallback, now)
			if tt.wantErr {
				if !errors.Is(err, core.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("year = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsTrue(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes "} {
		if !isTrue(v) {
			t.Errorf("isTrue(%q) = false", v)
		}
	}
	for _, v := range []string{"", "0", "false", "no"} {
		if isTrue(v) {
			t.Errorf("isTrue(%q) = true", v)
		}
	}
}

func TestRequestBodyParser_Submission(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        core.Submission
		wantErr     error
	}{
		{
			name:        "json with numbers",
			contentType: "application/json",
			body:        `{"date":"2025-09-04","debit":12.5,"product":" Milk ","quantity":2}`,
			want:        core.Submission{Date: "2025-09-04", Debit: "12.5", Product: "Milk", Quantity: "2"},
		},
		{
			name:        "form encoded",
			contentType: "application/x-www-form-urlencoded",
			body:        "date=2025-09-04&product=Bread&by=Ann",
			want:        core.Submission{Date: "2025-09-04", Product: "Bread", By: "Ann"},
		},
		{
			name: "json sniffed without content type",
			body: `{"date":"2025-01-02","for":"Home"}`,
			want: core.Submission{Date: "2025-01-02", For: "Home"},
		},
		{
			name: "empty body",
			body: "",
			want: core.Submission{},
		},
		{
			name:        "control characters stripped",
			contentType: "application/json",
			body:        `{"date":"2025-09-04","product":"Mi\u0000lk"}`,
			want:        core.Submission{Date: "2025-09-04", Product: "Milk"},
		},
		{
			name:        "malformed json",
			contentType: "application/json",
			body:        `{"date":`,
			wantErr:     core.ErrParse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/ledger", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			got, err := NewRequestBodyParser(req).Submission()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("submission = %+v, want %+v", got, tt.want)
			}
		})
	}
}
