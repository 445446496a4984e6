// Package provider talks to the upstream staffing provider's HTTP API.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/staffsync/internal/model"
	"github.com/tidwall/gjson"
)

const (
	jobsPath        = "/api/v1/jobs"
	facilitiesPath  = "/api/v1/facilities"
	specialtiesPath = "/api/v1/specialties"
	healthPath      = "/api/v1/health"

	maxBodyBytes = 32 << 20
)

// ListOptions selects one page of a listing.
type ListOptions struct {
	Page           int
	Limit          int
	IncludeDetails bool
	UpdatedSince   time.Time // zero means no filter
}

// Page is one page of a paginated listing.
type Page struct {
	Number     int
	TotalPages int // zero when the provider omits meta.total_pages
	Records    []Record
}

// Last reports whether pagination should stop at this page: it is empty, or
// it lies beyond the total the provider reported.
func (p Page) Last() bool {
	if len(p.Records) == 0 {
		return true
	}
	return p.TotalPages > 0 && p.Number > p.TotalPages
}

// Client is a thin client for the provider API. Authentication is the
// HTTP client's concern: pass one whose transport is an auth.Transport.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client for the API rooted at baseURL.
func NewClient(baseURL string, client *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

// ListJobs fetches one page of jobs.
func (c *Client) ListJobs(ctx context.Context, opts ListOptions) (Page, error) {
	return c.list(ctx, "list jobs", jobsPath, opts)
}

// GetJob fetches a single job by its provider id.
func (c *Client) GetJob(ctx context.Context, externalID string) (Record, error) {
	return c.getOne(ctx, "get job", jobsPath+"/"+url.PathEscape(externalID))
}

// ListFacilities fetches one page of facilities.
func (c *Client) ListFacilities(ctx context.Context, opts ListOptions) (Page, error) {
	return c.list(ctx, "list facilities", facilitiesPath, opts)
}

// GetFacility fetches a single facility by its provider id.
func (c *Client) GetFacility(ctx context.Context, externalID string) (Record, error) {
	return c.getOne(ctx, "get facility", facilitiesPath+"/"+url.PathEscape(externalID))
}

// ListSpecialties returns the provider's specialty vocabulary.
func (c *Client) ListSpecialties(ctx context.Context) ([]string, error) {
	const op = "list specialties"
	body, err := c.get(ctx, op, specialtiesPath, nil)
	if err != nil {
		return nil, err
	}
	rec := NewRecord(body)
	switch {
	case rec.Get("data").IsArray():
		return rec.Strings("data"), nil
	case gjson.ParseBytes(body).IsArray():
		return rec.Strings("@this"), nil
	}
	return nil, &model.TransportError{Op: op, Err: errors.New("response has no data array")}
}

// Health checks that the provider is reachable and accepts our credentials.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.get(ctx, "health", healthPath, nil)
	return err
}

func (c *Client) list(ctx context.Context, op, path string, opts ListOptions) (Page, error) {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.IncludeDetails {
		q.Set("include_details", "true")
	}
	if !opts.UpdatedSince.IsZero() {
		q.Set("updated_since", opts.UpdatedSince.UTC().Format(time.RFC3339))
	}

	body, err := c.get(ctx, op, path, q)
	if err != nil {
		return Page{}, err
	}

	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return Page{}, &model.TransportError{Op: op, Err: errors.New("response has no data array")}
	}
	page := Page{
		Number:     opts.Page,
		TotalPages: int(gjson.GetBytes(body, "meta.total_pages").Int()),
	}
	if page.Number == 0 {
		page.Number = int(gjson.GetBytes(body, "meta.page").Int())
	}
	data.ForEach(func(_, item gjson.Result) bool {
		page.Records = append(page.Records, NewRecord([]byte(item.Raw)))
		return true
	})
	return page, nil
}

// getOne accepts both {"data": {...}} envelopes and bare objects.
func (c *Client) getOne(ctx context.Context, op, path string) (Record, error) {
	body, err := c.get(ctx, op, path, nil)
	if err != nil {
		return Record{}, err
	}
	if data := gjson.GetBytes(body, "data"); data.IsObject() {
		return NewRecord([]byte(data.Raw)), nil
	}
	rec := NewRecord(body)
	if !rec.IsObject() {
		return Record{}, &model.TransportError{Op: op, Err: errors.New("response is not an object")}
	}
	return rec, nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &model.ClientError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyDoError(ctx, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &model.TransportError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}
	if err := classifyStatus(op, resp, body); err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, &model.TransportError{Op: op, Err: errors.New("response is not valid JSON")}
	}
	return body, nil
}
