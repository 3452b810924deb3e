// Package dirclient is a Go client for the organization directory HTTP API.
package dirclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client calls one directory API deployment.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// Option tunes the underlying resty client.
type Option func(*resty.Client)

// WithTimeout overrides the per-request timeout (default 10s).
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// WithRetries sets how many times transport failures are retried (default 3).
func WithRetries(n int) Option {
	return func(c *resty.Client) { c.SetRetryCount(n) }
}

// New returns a client for baseURL, e.g. "http://localhost:8000/api/v1".
func New(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(hc)
	}
	return &Client{http: hc, logger: logger}
}

type call struct {
	method string
	path   string
	params map[string]string
	query  map[string]string
	body   any
	result any
}

func (c *Client) do(ctx context.Context, in call) (*resty.Response, error) {
	req := c.http.R().
		SetContext(ctx).
		SetError(&errorBody{})
	if in.params != nil {
		req.SetPathParams(in.params)
	}
	if in.query != nil {
		req.SetQueryParams(in.query)
	}
	if in.body != nil {
		req.SetBody(in.body)
	}
	if in.result != nil {
		req.SetResult(in.result)
	}

	resp, err := req.Execute(in.method, in.path)
	if err != nil {
		c.logger.Warn("Directory API call failed",
			zap.String("method", in.method),
			zap.String("path", in.path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to call %s %s: %w", in.method, in.path, err)
	}
	if resp.IsError() {
		apiErr := &APIError{StatusCode: resp.StatusCode(), Detail: resp.Status()}
		if body, ok := resp.Error().(*errorBody); ok && body.Detail != "" {
			apiErr.Detail = body.Detail
		}
		return nil, apiErr
	}
	return resp, nil
}

func idParam(id int64) map[string]string {
	return map[string]string{"id": strconv.FormatInt(id, 10)}
}

func (c *Client) mutate(ctx context.Context, in call) (mutationResult, error) {
	var out mutationResult
	in.result = &out
	_, err := c.do(ctx, in)
	return out, err
}

// InitDB resets the directory to the demo data set.
func (c *Client) InitDB(ctx context.Context) error {
	_, err := c.do(ctx, call{method: http.MethodPost, path: "/init_db"})
	return err
}

func (c *Client) ListActivities(ctx context.Context) ([]*Activity, error) {
	var out []*Activity
	_, err := c.do(ctx, call{method: http.MethodGet, path: "/activities/get_all_activities", result: &out})
	return out, err
}

// CreateActivity adds a root activity when parentID is nil.
func (c *Client) CreateActivity(ctx context.Context, name string, parentID *int64) (int64, error) {
	body := map[string]any{"name": name}
	if parentID != nil {
		body["parent_id"] = *parentID
	}
	res, err := c.mutate(ctx, call{method: http.MethodPost, path: "/activities/create_activity", body: body})
	if err != nil {
		return 0, err
	}
	return deref(res.CreatedID), nil
}

func (c *Client) RenameActivity(ctx context.Context, id int64, name string) error {
	_, err := c.mutate(ctx, call{
		method: http.MethodPut,
		path:   "/activities/{id}",
		params: idParam(id),
		body:   map[string]string{"name": name},
	})
	return err
}

func (c *Client) DeleteActivity(ctx context.Context, id int64) error {
	_, err := c.mutate(ctx, call{method: http.MethodDelete, path: "/activities/{id}", params: idParam(id)})
	return err
}

func (c *Client) ListBuildings(ctx context.Context) ([]*Building, error) {
	var out []*Building
	_, err := c.do(ctx, call{method: http.MethodGet, path: "/buildings/get_all_buildings", result: &out})
	return out, err
}

func (c *Client) CreateBuilding(ctx context.Context, address string, coords Coordinates) (int64, error) {
	res, err := c.mutate(ctx, call{
		method: http.MethodPost,
		path:   "/buildings/create_building",
		body:   map[string]any{"address": address, "coordinates": coords},
	})
	if err != nil {
		return 0, err
	}
	return deref(res.CreatedID), nil
}

func (c *Client) DeleteBuilding(ctx context.Context, id int64) error {
	_, err := c.mutate(ctx, call{method: http.MethodDelete, path: "/buildings/{id}", params: idParam(id)})
	return err
}

func (c *Client) ListOrganizations(ctx context.Context) ([]*Organization, error) {
	return c.organizations(ctx, call{path: "/organizations/get_all_organizations"})
}

func (c *Client) GetOrganization(ctx context.Context, id int64) (*Organization, error) {
	return c.organization(ctx, call{path: "/organizations/{id}", params: idParam(id)})
}

func (c *Client) GetOrganizationByName(ctx context.Context, name string) (*Organization, error) {
	return c.organization(ctx, call{path: "/organizations/by_name/{name}", params: map[string]string{"name": name}})
}

func (c *Client) OrganizationsByActivityName(ctx context.Context, name string) ([]*Organization, error) {
	return c.organizations(ctx, call{path: "/organizations/by_activity_name/{name}", params: map[string]string{"name": name}})
}

func (c *Client) OrganizationsByActivityID(ctx context.Context, id int64) ([]*Organization, error) {
	return c.organizations(ctx, call{path: "/organizations/by_activity_id/{id}", params: idParam(id)})
}

func (c *Client) OrganizationsByBuilding(ctx context.Context, id int64) ([]*Organization, error) {
	return c.organizations(ctx, call{path: "/organizations/get_organizations_by_building/{id}", params: idParam(id)})
}

func (c *Client) OrganizationsInBox(ctx context.Context, box Box) ([]*Organization, error) {
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return c.organizations(ctx, call{
		path: "/organizations/by_geo",
		query: map[string]string{
			"lat_min": format(box.LatMin),
			"lon_min": format(box.LonMin),
			"lat_max": format(box.LatMax),
			"lon_max": format(box.LonMax),
		},
	})
}

func (c *Client) CreateOrganization(ctx context.Context, in OrganizationInput) (int64, error) {
	in = in.withActivityList()
	res, err := c.mutate(ctx, call{method: http.MethodPost, path: "/organizations/create_organization", body: in})
	if err != nil {
		return 0, err
	}
	return deref(res.CreatedID), nil
}

// UpdateOrganization replaces the organization and returns it as stored.
func (c *Client) UpdateOrganization(ctx context.Context, id int64, in OrganizationInput) (*Organization, error) {
	in = in.withActivityList()
	var out Organization
	_, err := c.do(ctx, call{
		method: http.MethodPut,
		path:   "/organizations/update/{id}",
		params: idParam(id),
		body:   in,
		result: &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteOrganization(ctx context.Context, id int64) error {
	_, err := c.mutate(ctx, call{method: http.MethodDelete, path: "/organizations/delete/{id}", params: idParam(id)})
	return err
}

// ExportOrganizations downloads the xlsx workbook of all organizations.
func (c *Client) ExportOrganizations(ctx context.Context) ([]byte, error) {
	resp, err := c.do(ctx, call{method: http.MethodGet, path: "/organizations/export"})
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func (c *Client) organizations(ctx context.Context, in call) ([]*Organization, error) {
	var out []*Organization
	in.method = http.MethodGet
	in.result = &out
	_, err := c.do(ctx, in)
	return out, err
}

func (c *Client) organization(ctx context.Context, in call) (*Organization, error) {
	var out Organization
	in.method = http.MethodGet
	in.result = &out
	if _, err := c.do(ctx, in); err != nil {
		return nil, err
	}
	return &out, nil
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
