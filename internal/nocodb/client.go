// Package nocodb is a generic client for the NocoDB v2 tabular REST API.
// One Client serves one table; entity-specific behaviour (page size, whether
// list requests paginate to exhaustion) is fixed at construction time.
package nocodb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dkurup/bujo-bot/internal/logger"
)

// Record is a single row: a mapping from field name to value. Once persisted
// the store assigns an "Id" field.
type Record map[string]any

// ID returns the store-assigned identifier as a string, or "" if the record
// has not been persisted. NocoDB returns numeric ids.
func (r Record) ID() string {
	switch v := r["Id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// String returns the named field as a string, or "" when absent or not a string.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Bool returns the named field as a bool. NocoDB checkbox columns come back
// as bools or 0/1 numbers depending on the column flavour.
func (r Record) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return false
	}
}

// StatusError reports a non-2xx response from the store. The response body is
// carried verbatim for logging; callers branch on the error, not the body.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("nocodb: %s failed: status %d: %s", e.Op, e.Status, e.Body)
}

// Options configures a table Client.
type Options struct {
	// HTTPClient to use; http.DefaultClient when nil.
	HTTPClient *http.Client
	// Logger for request failures; a default logger when nil.
	Logger *zerolog.Logger
	// PageSize is the per-request limit for List. Defaults to 25.
	PageSize int
	// Exhaustive makes List follow PageInfo.isLastPage with an advancing
	// offset until the full matching set has been fetched. When false a
	// single page is returned.
	Exhaustive bool
}

// Client talks to one NocoDB table.
type Client struct {
	baseURL    string
	apiToken   string
	tableID    string
	hc         *http.Client
	log        zerolog.Logger
	pageSize   int
	exhaustive bool
}

// New creates a Client for the given table.
func New(baseURL, apiToken, tableID string, opts Options) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiToken:   apiToken,
		tableID:    tableID,
		hc:         opts.HTTPClient,
		pageSize:   opts.PageSize,
		exhaustive: opts.Exhaustive,
	}
	if c.hc == nil {
		c.hc = http.DefaultClient
	}
	if opts.Logger != nil {
		c.log = *opts.Logger
	} else {
		c.log = logger.New()
	}
	if c.pageSize <= 0 {
		c.pageSize = 25
	}
	return c
}

func (c *Client) recordsURL(path string) string {
	return fmt.Sprintf("%s/api/v2/tables/%s/records%s", c.baseURL, c.tableID, path)
}

// do issues one request with auth headers and returns the status and body.
func (c *Client) do(ctx context.Context, method, rawURL string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("nocodb: encoding request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return 0, nil, fmt.Errorf("nocodb: building request: %w", err)
	}
	req.Header.Set("xc-token", c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("nocodb: %s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("nocodb: reading response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func ok(status int) bool { return status >= 200 && status < 300 }

// Create inserts a new record and returns it with the store-assigned Id.
func (c *Client) Create(ctx context.Context, fields Record) (Record, error) {
	status, body, err := c.do(ctx, http.MethodPost, c.recordsURL(""), fields)
	if err != nil {
		return nil, err
	}
	if !ok(status) {
		c.log.Error().Int("status", status).Str("body", string(body)).Str("table", c.tableID).Msg("create failed")
		return nil, &StatusError{Op: "create", Status: status, Body: string(body)}
	}
	var created Record
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("nocodb: decoding create response: %w", err)
	}
	return created, nil
}

// Read fetches one record by id. A missing record is (nil, nil), not an error.
func (c *Client) Read(ctx context.Context, id string) (Record, error) {
	status, body, err := c.do(ctx, http.MethodGet, c.recordsURL("/"+id), nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if !ok(status) {
		c.log.Error().Int("status", status).Str("body", string(body)).Str("table", c.tableID).Msg("read failed")
		return nil, &StatusError{Op: "read", Status: status, Body: string(body)}
	}
	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("nocodb: decoding read response: %w", err)
	}
	return rec, nil
}

// Update patches the record's fields. Keys present in fields overwrite the
// stored values; other columns are untouched.
func (c *Client) Update(ctx context.Context, id string, fields Record) (Record, error) {
	status, body, err := c.do(ctx, http.MethodPatch, c.recordsURL("/"+id), fields)
	if err != nil {
		return nil, err
	}
	if !ok(status) {
		c.log.Error().Int("status", status).Str("body", string(body)).Str("table", c.tableID).Msg("update failed")
		return nil, &StatusError{Op: "update", Status: status, Body: string(body)}
	}
	var updated Record
	if err := json.Unmarshal(body, &updated); err != nil {
		return nil, fmt.Errorf("nocodb: decoding update response: %w", err)
	}
	return updated, nil
}

// Delete removes a record, reporting success as a flag. Failures are logged,
// never raised.
func (c *Client) Delete(ctx context.Context, id string) bool {
	status, body, err := c.do(ctx, http.MethodDelete, c.recordsURL("/"+id), nil)
	if err != nil {
		c.log.Error().Err(err).Str("table", c.tableID).Msg("delete failed")
		return false
	}
	if !ok(status) {
		c.log.Error().Int("status", status).Str("body", string(body)).Str("table", c.tableID).Msg("delete failed")
		return false
	}
	return true
}

type listResponse struct {
	List     []Record `json:"list"`
	PageInfo struct {
		IsLastPage bool `json:"isLastPage"`
	} `json:"PageInfo"`
}

// List returns the records matching the filter. rawWhere is a filter
// expression as produced by the oracle: either empty, or a JSON object
// {"filters": [...]} possibly wrapped in markdown code fences. The expression
// is decoded and forwarded verbatim; predicates are never interpreted here.
//
// For an exhaustive client the request is repeated with an advancing offset
// until the store reports the last page, so the caller always sees the
// complete matching set. A non-exhaustive client returns exactly one page.
func (c *Client) List(ctx context.Context, rawWhere, sort string) ([]Record, error) {
	where, err := DecodeWhere(rawWhere)
	if err != nil {
		return nil, err
	}

	all := []Record{}
	offset := 0
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(c.pageSize))
		q.Set("offset", strconv.Itoa(offset))
		if where != "" {
			q.Set("where", where)
		}
		if sort != "" {
			q.Set("sort", sort)
		}

		status, body, err := c.do(ctx, http.MethodGet, c.recordsURL("")+"?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		if !ok(status) {
			c.log.Error().Int("status", status).Str("body", string(body)).Str("table", c.tableID).Msg("list failed")
			return nil, &StatusError{Op: "list", Status: status, Body: string(body)}
		}

		var page listResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("nocodb: decoding list response: %w", err)
		}
		all = append(all, page.List...)

		// An absent PageInfo or an empty page also means we're done, so a
		// store that omits the marker can't spin the loop forever.
		if !c.exhaustive || page.PageInfo.IsLastPage || len(page.List) == 0 {
			break
		}
		offset += c.pageSize
	}
	return all, nil
}

// LinkRecords attaches target records to recordID through the table's link
// field. For the expense table this registers the expense's MAG entry.
func (c *Client) LinkRecords(ctx context.Context, linkFieldID, recordID string, targetIDs []string) error {
	payload := make([]map[string]string, 0, len(targetIDs))
	for _, id := range targetIDs {
		payload = append(payload, map[string]string{"Id": id})
	}
	linkURL := fmt.Sprintf("%s/api/v2/tables/%s/links/%s/records/%s", c.baseURL, c.tableID, linkFieldID, recordID)

	status, body, err := c.do(ctx, http.MethodPost, linkURL, payload)
	if err != nil {
		return err
	}
	if !ok(status) {
		c.log.Error().Int("status", status).Str("body", string(body)).Str("table", c.tableID).Msg("link failed")
		return &StatusError{Op: "link", Status: status, Body: string(body)}
	}
	return nil
}
