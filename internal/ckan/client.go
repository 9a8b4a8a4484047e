// Package ckan is a small client for the CKAN action API used by HDX.
package ckan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"hrp_projects/internal/domain"
	"hrp_projects/internal/transport"
)

const (
	actionPath    = "/api/3/action/"
	notFoundError = "Not Found Error"
)

type Config struct {
	BaseURL   string
	APIKey    string
	UserAgent string
	PageSize  int
}

// readActions are safe to repeat, so they may go through a retrying client.
var readActions = map[string]bool{
	"package_show":       true,
	"package_search":     true,
	"resource_view_list": true,
}

type Client struct {
	reads     transport.Doer
	writes    transport.Doer
	baseURL   string
	apiKey    string
	userAgent string
	pageSize  int
	logger    *slog.Logger
}

// New builds a client. reads serves lookups and searches; writes serves
// every mutating action and should not retry, since a create whose
// response was lost would otherwise be applied twice.
func New(cfg Config, reads, writes transport.Doer, logger *slog.Logger) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Client{
		reads:     reads,
		writes:    writes,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		userAgent: cfg.UserAgent,
		pageSize:  pageSize,
		logger:    logger.With("component", "ckan"),
	}
}

// APIError is a CKAN response with success=false.
type APIError struct {
	Action  string
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (status %d): %s", e.Action, e.Type, e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == domain.ErrNotFound && e.Type == notFoundError
}

type envelope struct {
	Success bool                       `json:"success"`
	Result  json.RawMessage            `json:"result"`
	Error   map[string]json.RawMessage `json:"error"`
}

type searchResult struct {
	Count   int              `json:"count"`
	Results []domain.Dataset `json:"results"`
}

func (c *Client) ShowPackage(ctx context.Context, id string) (*domain.Dataset, error) {
	var ds domain.Dataset
	if err := c.call(ctx, "package_show", map[string]string{"id": id}, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

func (c *Client) CreatePackage(ctx context.Context, ds domain.Dataset) (*domain.Dataset, error) {
	var created domain.Dataset
	if err := c.call(ctx, "package_create", ds, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdatePackage replaces the whole package, including its resource list.
func (c *Client) UpdatePackage(ctx context.Context, ds domain.Dataset) (*domain.Dataset, error) {
	var updated domain.Dataset
	if err := c.call(ctx, "package_update", ds, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeletePackage(ctx context.Context, id string) error {
	return c.call(ctx, "package_delete", map[string]string{"id": id}, nil)
}

// SearchPackages pages through package_search until every match is read.
func (c *Client) SearchPackages(ctx context.Context, params domain.PackageQuery) ([]domain.Dataset, error) {
	var all []domain.Dataset

	for start := 0; ; start += c.pageSize {
		payload := map[string]any{
			"rows":  c.pageSize,
			"start": start,
		}
		if params.Query != "" {
			payload["q"] = params.Query
		}
		if params.FilterQuery != "" {
			payload["fq"] = params.FilterQuery
		}

		var page searchResult
		if err := c.call(ctx, "package_search", payload, &page); err != nil {
			return all, fmt.Errorf("search page at %d: %w", start, err)
		}
		all = append(all, page.Results...)

		c.logger.Debug("fetched search page",
			"start", start,
			"results", len(page.Results),
			"count", page.Count,
		)

		if len(page.Results) == 0 || start+len(page.Results) >= page.Count {
			break
		}
	}

	return all, nil
}

func (c *Client) ListResourceViews(ctx context.Context, resourceID string) ([]domain.ResourceView, error) {
	var views []domain.ResourceView
	if err := c.call(ctx, "resource_view_list", map[string]string{"id": resourceID}, &views); err != nil {
		return nil, err
	}
	return views, nil
}

func (c *Client) CreateResourceView(ctx context.Context, view domain.ResourceView) (*domain.ResourceView, error) {
	var created domain.ResourceView
	if err := c.call(ctx, "resource_view_create", view, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateResourceView(ctx context.Context, view domain.ResourceView) (*domain.ResourceView, error) {
	var updated domain.ResourceView
	if err := c.call(ctx, "resource_view_update", view, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) call(ctx context.Context, action string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+actionPath+action, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	client := c.writes
	if readActions[action] {
		client = c.reads
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: execute request: %w", action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", action, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s: unexpected status %d: decode response: %w", action, resp.StatusCode, err)
	}

	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		return newAPIError(action, resp.StatusCode, env.Error)
	}

	if result == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("%s: decode result: %w", action, err)
	}
	return nil
}

func newAPIError(action string, status int, fields map[string]json.RawMessage) *APIError {
	apiErr := &APIError{Action: action, Status: status}

	var messages []string
	for k, v := range fields {
		if k == "__type" {
			_ = json.Unmarshal(v, &apiErr.Type)
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			messages = append(messages, s)
			continue
		}
		messages = append(messages, fmt.Sprintf("%s: %s", k, string(v)))
	}
	if apiErr.Type == "" && status == http.StatusNotFound {
		apiErr.Type = notFoundError
	}
	sort.Strings(messages)
	apiErr.Message = strings.Join(messages, "; ")
	return apiErr
}

// IsNotFound reports whether err is a CKAN "Not Found Error".
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
