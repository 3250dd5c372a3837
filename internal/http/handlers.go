package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/GillJordan/Home-expense/internal/core"
	"github.com/GillJordan/Home-expense/internal/log"
)

type (
	healthResponse struct {
		OK     bool   `json:"ok"`
		Msg    string `json:"msg"`
		Method string `json:"method"`
	}

	diagResponse struct {
		OK      bool     `json:"ok"`
		SheetID string   `json:"sheetId"`
		Tabs    []string `json:"tabs"`
	}

	rowsResponse struct {
		Data []core.Row `json:"data"`
	}

	searchResponse struct {
		Data       []core.Row  `json:"data"`
		TotalDebit json.Number `json:"totalDebit"`
	}

	suggestionsResponse struct {
		Data core.Suggestions `json:"data"`
	}

	appendResponse struct {
		Message string   `json:"message"`
		Row     core.Row `json:"row"`
	}
)

// handleLedger dispatches on query parameters in a fixed precedence:
// health, diag, all, daily, search, suggestions, then POST append.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch {
	case q.Get("health") == "1":
		OK(healthResponse{OK: true, Msg: "function alive", Method: r.Method}).Write(w)
	case q.Get("diag") == "1":
		s.handleDiag(w, r)
	case isTrue(q.Get("all")):
		s.handleAll(w, r)
	case isTrue(q.Get("daily")):
		s.handleDaily(w, r)
	case q.Has("search"):
		s.handleSearch(w, r)
	case isTrue(q.Get("suggestions")):
		s.handleSuggestions(w, r)
	case r.Method == http.MethodPost:
		s.handleAppend(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleDiag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := s.ledger.Diagnostics(ctx)
	if err != nil {
		s.logFailure(r, "Diagnostics failed", log.OpDiag, err)
		InternalServerError("Auth/Sheet error: " + err.Error()).Write(w)
		return
	}
	tabs := d.Partitions
	if tabs == nil {
		tabs = []string{}
	}
	OK(diagResponse{OK: true, SheetID: d.StoreID, Tabs: tabs}).Write(w)
}

func (s *Server) handleAll(w http.ResponseWriter, r *http.Request) {
	year, err := ParseYear(r.URL.Query(), "", s.now())
	if err != nil {
		FromError(err).Write(w)
		return
	}
	rows, err := s.ledger.ListAll(r.Context(), year)
	if err != nil {
		s.logFailure(r, "List all failed", log.OpList, err)
		FromError(err).Write(w)
		return
	}
	OK(rowsResponse{Data: rows}).Write(w)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := strings.TrimSpace(q.Get("date"))
	if date == "" {
		BadRequestError("daily=true needs ?date=YYYY-MM-DD").Write(w)
		return
	}
	year, err := ParseYear(q, date, s.now())
	if err != nil {
		FromError(err).Write(w)
		return
	}
	rows, err := s.ledger.ListByDay(r.Context(), year, date)
	if err != nil {
		s.logFailure(r, "List by day failed", log.OpListDay, err)
		FromError(err).Write(w)
		return
	}
	OK(rowsResponse{Data: rows}).Write(w)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query, err := core.NewQuery(q.Get("search"), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		FromError(err).Write(w)
		return
	}
	year, err := ParseYear(q, q.Get("startDate"), s.now())
	if err != nil {
		FromError(err).Write(w)
		return
	}
	res, err := s.ledger.Search(r.Context(), year, query)
	if err != nil {
		s.logFailure(r, "Search failed", log.OpSearch, err)
		FromError(err).Write(w)
		return
	}
	OK(searchResponse{Data: res.Rows, TotalDebit: json.Number(res.TotalDebit.String())}).Write(w)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	sug, err := s.ledger.Suggestions(r.Context())
	if err != nil {
		s.logFailure(r, "Suggestions failed", log.OpSuggest, err)
		FromError(err).Write(w)
		return
	}
	OK(suggestionsResponse{Data: sug}).Write(w)
}

func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	sub, err := NewRequestBodyParser(r).Submission()
	if err != nil {
		FromError(err).Write(w)
		return
	}
	if sub.Date == "" {
		BadRequestError("Body must include at least { date }").Write(w)
		return
	}
	row, err := s.ledger.Append(r.Context(), sub)
	if err != nil {
		s.logFailure(r, "Append failed", log.OpAppend, err)
		FromError(err).Write(w)
		return
	}
	OK(appendResponse{Message: "Row added", Row: row}).Write(w)
}

func (s *Server) logFailure(r *http.Request, msg, op string, err error) {
	fields := log.NewFields().WithOperation(op).WithError(err)
	l := log.FromContext(r.Context())
	if core.IsClientError(err) {
		l.WarnContext(r.Context(), msg, fields.ToSlice()...)
		return
	}
	l.ErrorContext(r.Context(), msg, fields.ToSlice()...)
}
