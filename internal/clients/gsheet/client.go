// Package gsheet provides the spreadsheet-backed table client. Reads use
// the Google Sheets gviz CSV export; the history write goes through an
// Apps Script webhook that replaces the sheet contents in one call.
package gsheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/jkoh/wealthtower/internal/cache"
	"github.com/jkoh/wealthtower/internal/common"
	"github.com/jkoh/wealthtower/internal/interfaces"
	"github.com/jkoh/wealthtower/internal/models"
)

const (
	DefaultBaseURL   = "https://docs.google.com/spreadsheets/d"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 2 // requests per second
)

// Table is one fetched table with the flags raised while fetching it.
// It is the cache value type, so a cached degraded fetch reports the same
// flags as the original attempt.
type Table struct {
	Rows  []models.Row
	Flags []models.Flag
}

// Client implements the TableClient interface
type Client struct {
	baseURL       string
	sheetID       string
	webhookURL    string
	holdingsSheet string
	historySheet  string
	httpClient    *http.Client
	logger        *common.Logger
	limiter       *rate.Limiter
	tables        *cache.Cache[string, Table]
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithWebhookURL sets the Apps Script webhook used for the history write
func WithWebhookURL(webhookURL string) ClientOption {
	return func(c *Client) {
		c.webhookURL = webhookURL
	}
}

// WithSheets sets the holdings and history sheet names
func WithSheets(holdings, history string) ClientOption {
	return func(c *Client) {
		c.holdingsSheet = holdings
		c.historySheet = history
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithCache sets the injected table cache. Without one, every fetch goes
// to the network.
func WithCache(tables *cache.Cache[string, Table]) ClientOption {
	return func(c *Client) {
		c.tables = tables
	}
}

// NewClient creates a new sheet client for the given spreadsheet ID
func NewClient(sheetID string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       DefaultBaseURL,
		sheetID:       sheetID,
		holdingsSheet: "assets",
		historySheet:  "history",
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:  common.NewSilentLogger(),
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchTable retrieves a sheet as normalized rows. Any transport or parse
// failure yields an empty table plus a SourceUnavailable flag; callers
// treat empty as "no data yet", not as an error.
func (c *Client) FetchTable(ctx context.Context, sheet string) ([]models.Row, []models.Flag) {
	if c.tables == nil {
		t := c.fetchTable(ctx, sheet)
		return t.Rows, t.Flags
	}

	t, cached := c.tables.GetOrFetch(sheet, func() Table {
		return c.fetchTable(ctx, sheet)
	})
	if cached {
		c.logger.Trace().Str("sheet", sheet).Int("rows", len(t.Rows)).Msg("Table served from cache")
	}
	return t.Rows, t.Flags
}

func (c *Client) fetchTable(ctx context.Context, sheet string) Table {
	if err := c.limiter.Wait(ctx); err != nil {
		return c.unavailable(sheet, err)
	}

	u := fmt.Sprintf("%s/%s/gviz/tq?tqx=out:csv&sheet=%s", c.baseURL, c.sheetID, url.QueryEscape(sheet))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return c.unavailable(sheet, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.unavailable(sheet, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.unavailable(sheet, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return c.unavailable(sheet, err)
	}

	if len(records) == 0 {
		return Table{}
	}

	cols := ResolveColumns(records[0], c.schemaFor(sheet))

	rows := make([]models.Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := normalizeRow(record, cols)
		if row.Empty() {
			continue
		}
		rows = append(rows, row)
	}

	c.logger.Debug().Str("sheet", sheet).Int("rows", len(rows)).Msg("Table fetched")
	return Table{Rows: rows}
}

// schemaFor picks the column schema by sheet name. Unknown sheets get the
// holdings schema, which has no positional fallback.
func (c *Client) schemaFor(sheet string) Schema {
	if sheet == c.historySheet {
		return HistorySchema
	}
	return HoldingsSchema
}

func (c *Client) unavailable(sheet string, err error) Table {
	c.logger.Warn().Err(err).Str("sheet", sheet).Msg("Table fetch failed, proceeding with empty table")
	return Table{
		Flags: []models.Flag{models.NewFlag(models.FlagSourceUnavailable, sheet, "table fetch failed: %v", err)},
	}
}

// webhookRequest is the write payload for the Apps Script endpoint.
type webhookRequest struct {
	Action string     `json:"action"`
	Sheet  string     `json:"sheet"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

type webhookResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ReplaceHistory writes the full reconciled history table in one call.
// Attempted once; the caller owns the fallback path on failure.
func (c *Client) ReplaceHistory(ctx context.Context, records []models.HistoryRecord) error {
	if c.webhookURL == "" {
		return fmt.Errorf("no webhook URL configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	payload := webhookRequest{
		Action: "replace",
		Sheet:  c.historySheet,
		Header: models.HistoryFieldOrder,
		Rows:   make([][]string, 0, len(records)),
	}
	for _, rec := range records {
		row := []string{string(rec.Date), strconv.FormatInt(rec.NetWorth, 10)}
		for _, amount := range rec.Expenses.Amounts() {
			row = append(row, strconv.FormatInt(amount, 10))
		}
		payload.Rows = append(payload.Rows, row)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode history payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("history write failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("history write returned status %d: %s", resp.StatusCode, string(data))
	}

	var result webhookResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode webhook response: %w", err)
	}
	if result.Status != "ok" {
		return fmt.Errorf("webhook rejected write: %s", result.Error)
	}

	c.logger.Info().Int("rows", len(records)).Msg("History table written")
	return nil
}

// InvalidateTables drops the table cache so the next read observes remote
// state. Called after a successful history write and on force refresh.
func (c *Client) InvalidateTables() {
	if c.tables != nil {
		c.tables.InvalidateAll()
	}
}

// Ensure Client implements TableClient
var _ interfaces.TableClient = (*Client)(nil)
