// Package client talks to the ledger gateway over its HTTP endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GillJordan/Home-expense/internal/core"
	"github.com/GillJordan/Home-expense/internal/log"
)

const maxResponseBytes = 8 << 20

// Client is safe for concurrent use.
type Client struct {
	endpoint *url.URL
	http     *http.Client
	logger   *log.Logger
}

// New builds a client for the gateway endpoint, e.g.
// http://localhost:8081/api/ledger.
func New(endpoint string, timeout time.Duration, logger *log.Logger) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return nil, core.Validation(fmt.Sprintf("invalid gateway URL %q", endpoint))
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: u,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger.WithComponent(log.ComponentAgent),
	}, nil
}

// Endpoint returns the gateway URL the client calls.
func (c *Client) Endpoint() string { return c.endpoint.String() }

type (
	healthResponse struct {
		OK bool `json:"ok"`
	}
	rowsResponse struct {
		Data []core.Row `json:"data"`
	}
	appendResponse struct {
		Message string   `json:"message"`
		Row     core.Row `json:"row"`
	}
	searchResponse struct {
		Data       []core.Row      `json:"data"`
		TotalDebit decimal.Decimal `json:"totalDebit"`
	}
	suggestionsResponse struct {
		Data core.Suggestions `json:"data"`
	}
	errorResponse struct {
		Error string `json:"error"`
	}
)

// Health succeeds when the gateway answers its liveness probe.
func (c *Client) Health(ctx context.Context) error {
	var out healthResponse
	if err := c.do(ctx, http.MethodGet, url.Values{"health": {"1"}}, nil, &out); err != nil {
		return err
	}
	if !out.OK {
		return core.Store("gateway reported not ok", nil)
	}
	return nil
}

func (c *Client) Append(ctx context.Context, sub core.Submission) (core.Row, error) {
	var out appendResponse
	if err := c.do(ctx, http.MethodPost, nil, sub, &out); err != nil {
		return nil, err
	}
	return out.Row, nil
}

// ListAll returns every row of the year's partition, header included. A
// zero year lets the gateway pick the current one.
func (c *Client) ListAll(ctx context.Context, year int) ([]core.Row, error) {
	q := url.Values{"all": {"true"}}
	if year > 0 {
		q.Set("year", strconv.Itoa(year))
	}
	var out rowsResponse
	if err := c.do(ctx, http.MethodGet, q, nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Data), nil
}

func (c *Client) ListByDay(ctx context.Context, date time.Time) ([]core.Row, error) {
	q := url.Values{"daily": {"true"}, "date": {date.Format(core.InputDateLayout)}}
	var out rowsResponse
	if err := c.do(ctx, http.MethodGet, q, nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Data), nil
}

func (c *Client) Search(ctx context.Context, query core.Query) (core.SearchResult, error) {
	q := url.Values{"search": {query.Text}}
	if !query.Start.IsZero() {
		q.Set("startDate", query.Start.Format(core.InputDateLayout))
	}
	if !query.End.IsZero() {
		q.Set("endDate", query.End.Format(core.InputDateLayout))
	}
	var out searchResponse
	if err := c.do(ctx, http.MethodGet, q, nil, &out); err != nil {
		return core.SearchResult{}, err
	}
	return core.SearchResult{Rows: nonNil(out.Data), TotalDebit: out.TotalDebit}, nil
}

func (c *Client) Suggestions(ctx context.Context) (core.Suggestions, error) {
	var out suggestionsResponse
	if err := c.do(ctx, http.MethodGet, url.Values{"suggestions": {"true"}}, nil, &out); err != nil {
		return core.Suggestions{}, err
	}
	return out.Data, nil
}

func (c *Client) do(ctx context.Context, method string, query url.Values, body, out any) error {
	u := *c.endpoint
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return core.Parse("encode request body", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return core.Store("build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return core.Store("gateway unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return core.Store("read gateway response", err)
	}

	c.logger.DebugContext(ctx, "Gateway call",
		log.FieldRequestID, requestID,
		log.FieldMethod, method,
		log.FieldQuery, u.RawQuery,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return core.Store("decode gateway response", err)
	}
	return nil
}

// statusError maps an error reply onto the ledger error kinds: caller
// mistakes become validation errors, everything else a store error.
func statusError(status int, raw []byte) error {
	var e errorResponse
	msg := ""
	if json.Unmarshal(raw, &e) == nil {
		msg = e.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch {
	case status == http.StatusBadRequest, status == http.StatusMethodNotAllowed:
		return core.Validation(msg)
	default:
		return core.Store(fmt.Sprintf("gateway returned %d", status), errors.New(msg))
	}
}

func nonNil(rows []core.Row) []core.Row {
	if rows == nil {
		return []core.Row{}
	}
	return rows
}
