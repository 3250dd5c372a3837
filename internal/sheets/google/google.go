package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/GillJordan/Home-expense/internal/cache"
	"github.com/GillJordan/Home-expense/internal/core"
	ports "github.com/GillJordan/Home-expense/internal/sheets"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	// DefaultValueInputOption lets the spreadsheet interpret appended cells.
	DefaultValueInputOption = "USER_ENTERED"

	headerInputOption = "RAW"
	partitionTTL      = 10 * time.Minute
)

// Client stores ledger partitions as tabs of one spreadsheet.
type Client struct {
	svc              *gsheet.Service
	spreadsheetID    string
	valueInputOption string
	known            *cache.LRU[bool]
}

var (
	_ ports.LedgerStore = (*Client)(nil)
	_ ports.Describer   = (*Client)(nil)
)

// Options configures New.
type Options struct {
	SpreadsheetID string
	// ServiceKey is the service account JSON, raw or base64 encoded.
	ServiceKey       string
	ValueInputOption string
	// ClientOptions are passed to the Sheets service after the credentials.
	ClientOptions []goption.ClientOption
}

// New builds a Sheets-backed store authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, core.Validation("missing spreadsheet id")
	}
	keyJSON, err := ParseServiceKey(opts.ServiceKey)
	if err != nil {
		return nil, core.Auth("parse service key", err)
	}
	creds, err := googleoauth.CredentialsFromJSON(ctx, keyJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, core.Auth("load service account credentials", err)
	}

	base := newHTTPClientWithPooling()
	authed := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), creds.TokenSource)
	authed.Timeout = base.Timeout

	clientOpts := append([]goption.ClientOption{goption.WithHTTPClient(authed)}, opts.ClientOptions...)
	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, core.Store("create sheets service", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", opts.SpreadsheetID)
	return NewWithService(svc, opts.SpreadsheetID, opts.ValueInputOption), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, valueInputOption string) *Client {
	if strings.TrimSpace(valueInputOption) == "" {
		valueInputOption = DefaultValueInputOption
	}
	return &Client{
		svc:              svc,
		spreadsheetID:    spreadsheetID,
		valueInputOption: valueInputOption,
		known:            cache.NewLRU[bool](64, partitionTTL),
	}
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API
// with connection pooling and keep-alive.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

func (c *Client) StoreID() string { return c.spreadsheetID }

// ListPartitions returns every tab title in spreadsheet order.
func (c *Client) ListPartitions(ctx context.Context) ([]string, error) {
	resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, classify("list partitions", err)
	}
	titles := make([]string, 0, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh == nil || sh.Properties == nil {
			continue
		}
		titles = append(titles, sh.Properties.Title)
		c.known.Set(sh.Properties.Title, true)
	}
	return titles, nil
}

// EnsurePartition creates the tab and writes header when it does not exist.
func (c *Client) EnsurePartition(ctx context.Context, name string, header core.Row) (bool, error) {
	if c.known.Has(name) {
		return false, nil
	}
	titles, err := c.ListPartitions(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range titles {
		if t == name {
			return false, nil
		}
	}

	add := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: name}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, add).Context(ctx).Do(); err != nil {
		return false, classify(fmt.Sprintf("create partition %s", name), err)
	}

	rng := headerRange(name, len(header))
	vr := &gsheet.ValueRange{Values: [][]any{toCells(header)}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption(headerInputOption).Context(ctx).Do(); err != nil {
		return false, classify(fmt.Sprintf("write header %s", rng), err)
	}
	c.known.Set(name, true)
	slog.InfoContext(ctx, "Created ledger partition", "partition", name, "columns", len(header))
	return true, nil
}

func (c *Client) AppendRow(ctx context.Context, partition string, row core.Row) error {
	rng := columnsRange(partition, len(row))
	vr := &gsheet.ValueRange{Values: [][]any{toCells(row)}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption(c.valueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return classify(fmt.Sprintf("append %s", rng), err)
	}
	return nil
}

// ReadRange reads every row of the partition, header first.
func (c *Client) ReadRange(ctx context.Context, partition string) ([]core.Row, error) {
	rng := columnsRange(partition, core.SchemaV1.Width())
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, classify(fmt.Sprintf("read %s", rng), err)
	}
	rows := make([]core.Row, 0, len(resp.Values))
	for _, v := range resp.Values {
		rows = append(rows, toStrings(v))
	}
	return rows, nil
}

// classify maps API failures onto the ledger error kinds.
func classify(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) &&
		(apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
		return core.Auth(op, err)
	}
	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) {
		return core.Auth(op, err)
	}
	return core.Store(op, err)
}

func toCells(row core.Row) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

func toStrings(in []any) core.Row {
	out := make(core.Row, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}
