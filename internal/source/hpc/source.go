// Package hpc is a client for the public HPC.tools planning API.
package hpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"hrp_projects/internal/query"
	"hrp_projects/internal/transport"
)

const (
	plansPath         = "/v2/public/plan"
	projectSearchPath = "/v2/public/project/search"

	excludedProjectFields = "locations,governingEntities,targets"
	// Published resource URLs have always carried the singular form; changing
	// it would rewrite every dataset's resources on the next run.
	publishedExcludedFields = "location,governingEntities,targets"
	projectSearchLimit      = "100000"
)

type Config struct {
	BaseURL   string
	UserAgent string
}

type Source struct {
	client    transport.Doer
	baseURL   string
	userAgent string
	logger    *slog.Logger
}

func New(cfg Config, client transport.Doer, logger *slog.Logger) *Source {
	return &Source{
		client:    client,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		logger:    logger.With("source", "hpc"),
	}
}

// FetchPlans returns every plan currently published upstream.
func (s *Source) FetchPlans(ctx context.Context) ([]PlanEntry, error) {
	var resp PlansResponse
	if err := s.getJSON(ctx, s.baseURL+plansPath, &resp); err != nil {
		return nil, fmt.Errorf("fetch plans: %w", err)
	}

	s.logger.Debug("fetched plans", "count", len(resp.Data))

	return resp.Data, nil
}

// CountProjects returns how many projects are registered under a plan code.
func (s *Source) CountProjects(ctx context.Context, code string) (int, error) {
	var resp ProjectSearchResponse
	if err := s.getJSON(ctx, projectSearchURL(s.baseURL, code, excludedProjectFields), &resp); err != nil {
		return 0, fmt.Errorf("search projects for %s: %w", code, err)
	}
	return len(resp.Data.Results), nil
}

// ProjectSearchURL is the public JSON listing of a plan's projects, as
// linked from the published datasets.
func ProjectSearchURL(baseURL, code string) string {
	return projectSearchURL(baseURL, code, publishedExcludedFields)
}

func projectSearchURL(baseURL, code, exclude string) string {
	return query.New().
		Add("planCodes", code).
		Add("excludeFields", exclude).
		Add("limit", projectSearchLimit).
		Keep(",").
		URL(strings.TrimRight(baseURL, "/") + projectSearchPath)
}

func (s *Source) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
