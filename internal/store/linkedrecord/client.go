// Package linkedrecord implements the store contract on a hosted,
// REST-accessed record store. The backend has no relational joins and no
// offset pagination: relationships are arrays of referenced record ids,
// list calls are filtered with a formula expression and paged with a
// continuation token, and batched writes are capped at a fixed number of
// records per request.
package linkedrecord

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

	"github.com/coretrack/warranty-api/internal/domain"
	"go.uber.org/zap"
)

// Collection names in the hosted record store
const (
	collCompanies   = "Companies"
	collProducts    = "Products"
	collWarranties  = "Warranties"
	collServices    = "Services"
	collParts       = "ServiceParts"
	collTechnicians = "Technicians"
	collAttachments = "Attachments"
)

// writeBatchLimit is the backend's per-request cap on batched creates,
// updates and deletes
const writeBatchLimit = 10

// record is the wire shape of one stored record
type record struct {
	ID          string                 `json:"id,omitempty"`
	Fields      map[string]interface{} `json:"fields"`
	CreatedTime time.Time              `json:"createdTime,omitempty"`
}

type recordPage struct {
	Records []record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

type recordBatch struct {
	Records []record `json:"records"`
}

// listOptions narrow a list call. MaxRecords of zero means unbounded.
type listOptions struct {
	Filter     string
	SortField  string
	SortDesc   bool
	MaxRecords int
	Fields     []string
}

// Client is the low-level REST client for the record store. All calls are
// sequential and carry the configured timeout; the backend's rate limit is
// shared across the whole process, so nothing here fans out in parallel.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientConfig carries the connection settings for the record store
type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// NewClient creates a record store client
func NewClient(cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("record store base URL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("record store API token is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

func (c *Client) do(ctx context.Context, method, collection string, query url.Values, body interface{}, out interface{}) error {
	u := c.baseURL + "/" + url.PathEscape(collection)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s %s: %w: %v", method, collection, domain.ErrBackendUnavailable, err)
		}
		return fmt.Errorf("%s %s: %w", method, collection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s %s: status %d: %w", method, collection, resp.StatusCode, domain.ErrBackendUnavailable)
	}
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, collection, resp.StatusCode, string(msg))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s %s: failed to decode response: %w", method, collection, err)
		}
	}
	return nil
}

// List walks the continuation token until MaxRecords records are collected
// or the collection is exhausted
func (c *Client) List(ctx context.Context, collection string, opts listOptions) ([]record, error) {
	var records []record
	offset := ""

	for {
		query := url.Values{}
		if opts.Filter != "" {
			query.Set("filterByFormula", opts.Filter)
		}
		if opts.SortField != "" {
			query.Set("sort[0][field]", opts.SortField)
			if opts.SortDesc {
				query.Set("sort[0][direction]", "desc")
			} else {
				query.Set("sort[0][direction]", "asc")
			}
		}
		if opts.MaxRecords > 0 {
			query.Set("maxRecords", strconv.Itoa(opts.MaxRecords))
		}
		for i, f := range opts.Fields {
			query.Set(fmt.Sprintf("fields[%d]", i), f)
		}
		if offset != "" {
			query.Set("offset", offset)
		}

		var page recordPage
		if err := c.do(ctx, http.MethodGet, collection, query, nil, &page); err != nil {
			return nil, err
		}
		records = append(records, page.Records...)

		if page.Offset == "" || (opts.MaxRecords > 0 && len(records) >= opts.MaxRecords) {
			break
		}
		offset = page.Offset
	}

	if opts.MaxRecords > 0 && len(records) > opts.MaxRecords {
		records = records[:opts.MaxRecords]
	}
	return records, nil
}

// Get fetches a single record by id. A missing record returns ErrNotFound.
func (c *Client) Get(ctx context.Context, collection, id string) (*record, error) {
	var rec record
	if err := c.do(ctx, http.MethodGet, collection+"/"+id, nil, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create persists up to writeBatchLimit records in one request and returns
// them with their assigned ids
func (c *Client) Create(ctx context.Context, collection string, fields []map[string]interface{}) ([]record, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	if len(fields) > writeBatchLimit {
		return nil, fmt.Errorf("create %s: batch of %d exceeds limit %d", collection, len(fields), writeBatchLimit)
	}
	batch := recordBatch{Records: make([]record, len(fields))}
	for i, f := range fields {
		batch.Records[i] = record{Fields: f}
	}
	var out recordBatch
	if err := c.do(ctx, http.MethodPost, collection, nil, batch, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

// Update patches the given fields of one record
func (c *Client) Update(ctx context.Context, collection, id string, fields map[string]interface{}) (*record, error) {
	batch := recordBatch{Records: []record{{ID: id, Fields: fields}}}
	var out recordBatch
	if err := c.do(ctx, http.MethodPatch, collection, nil, batch, &out); err != nil {
		return nil, err
	}
	if len(out.Records) == 0 {
		return nil, domain.ErrNotFound
	}
	return &out.Records[0], nil
}

// Delete removes up to writeBatchLimit records in one request
func (c *Client) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > writeBatchLimit {
		return fmt.Errorf("delete %s: batch of %d exceeds limit %d", collection, len(ids), writeBatchLimit)
	}
	query := url.Values{}
	for _, id := range ids {
		query.Add("records[]", id)
	}
	return c.do(ctx, http.MethodDelete, collection, query, nil, nil)
}
