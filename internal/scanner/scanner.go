// Package scanner discovers the plans that qualify for publication and
// groups them by country.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"hrp_projects/internal/domain"
	"hrp_projects/internal/source/hpc"
)

type PlanSource interface {
	FetchPlans(ctx context.Context) ([]hpc.PlanEntry, error)
	CountProjects(ctx context.Context, code string) (int, error)
}

// Recorder receives one outcome per scanned plan.
type Recorder interface {
	RecordPlan(outcome string)
}

const (
	OutcomeKept        = "kept"
	OutcomeNoCountry   = "no_country"
	OutcomeBeforeYear  = "before_cutoff"
	OutcomeNoProjects  = "no_projects"
	OutcomeCheckFailed = "check_failed"
)

type Config struct {
	Concurrency       int
	RequestsPerSecond float64
}

type Scanner struct {
	source      PlanSource
	recorder    Recorder
	concurrency int
	limiter     *rate.Limiter
	logger      *slog.Logger
}

func New(source PlanSource, recorder Recorder, cfg Config, logger *slog.Logger) *Scanner {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Scanner{
		source:      source,
		recorder:    recorder,
		concurrency: max(cfg.Concurrency, 1),
		limiter:     rate.NewLimiter(limit, 1),
		logger:      logger.With("component", "scanner"),
	}
}

// candidate is a plan that passed the local filters and still needs its
// project count checked.
type candidate struct {
	plan     domain.Plan
	projects int
	err      error
}

// Scan fetches all upstream plans and returns those from cutoffYear onwards
// that have at least one project, grouped by country.
func (s *Scanner) Scan(ctx context.Context, cutoffYear int) (*domain.Snapshot, error) {
	startTime := time.Now()
	s.logger.Info("scanning plans", "cutoff_year", cutoffYear)

	entries, err := s.source.FetchPlans(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := domain.NewSnapshot()
	var candidates []*candidate

	for _, entry := range entries {
		code := entry.PlanVersion.Code

		loc, ok := nationalLocation(entry)
		if !ok {
			s.logger.Info("skipping plan", "plan_code", code, "reason", "no country code")
			s.record(OutcomeNoCountry)
			continue
		}
		if _, seen := snapshot.Countries[loc.ISO3]; !seen {
			snapshot.Countries[loc.ISO3] = loc.Name
		}

		if !hasYearFrom(entry, cutoffYear) {
			s.logger.Info("skipping plan", "plan_code", code, "reason", fmt.Sprintf("before %d", cutoffYear))
			s.record(OutcomeBeforeYear)
			continue
		}

		candidates = append(candidates, &candidate{plan: toPlan(entry, loc.ISO3)})
	}

	if err := s.countProjects(ctx, candidates); err != nil {
		return nil, err
	}

	for _, c := range candidates {
		switch {
		case c.err != nil:
			s.logger.Error("project check failed, skipping plan", "plan_code", c.plan.Code, "error", c.err)
			s.record(OutcomeCheckFailed)
		case c.projects < 1:
			s.logger.Info("skipping plan", "plan_code", c.plan.Code, "reason", "no projects")
			s.record(OutcomeNoProjects)
		default:
			snapshot.Plans[c.plan.ISO3] = append(snapshot.Plans[c.plan.ISO3], c.plan)
			s.record(OutcomeKept)
		}
	}

	for iso3 := range snapshot.Countries {
		if len(snapshot.Plans[iso3]) == 0 {
			delete(snapshot.Countries, iso3)
		}
	}

	s.logger.Info("scan completed",
		"plans_upstream", len(entries),
		"plans_kept", snapshot.PlanCount(),
		"countries", len(snapshot.Plans),
		"duration", time.Since(startTime),
	)

	return snapshot, nil
}

// countProjects checks candidates in parallel. Per-plan failures are kept on
// the candidate; only cancellation aborts the scan.
func (s *Scanner) countProjects(ctx context.Context, candidates []*candidate) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, c := range candidates {
		g.Go(func() error {
			if err := s.limiter.Wait(gctx); err != nil {
				return err
			}
			s.logger.Debug("checking projects", "plan_code", c.plan.Code)
			c.projects, c.err = s.source.CountProjects(gctx, c.plan.Code)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("check projects: %w", err)
	}
	return nil
}

func (s *Scanner) record(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordPlan(outcome)
	}
}

// nationalLocation returns the first admin level 0 location with an ISO3.
func nationalLocation(entry hpc.PlanEntry) (hpc.Location, bool) {
	for _, loc := range entry.Locations {
		if loc.AdminLevel != nil && *loc.AdminLevel == 0 {
			loc.ISO3 = strings.ToUpper(strings.TrimSpace(loc.ISO3))
			if loc.ISO3 == "" {
				return hpc.Location{}, false
			}
			return loc, true
		}
	}
	return hpc.Location{}, false
}

func hasYearFrom(entry hpc.PlanEntry, cutoffYear int) bool {
	for _, y := range entry.Years {
		if y.Year != 0 && int(y.Year) >= cutoffYear {
			return true
		}
	}
	return false
}

func toPlan(entry hpc.PlanEntry, iso3 string) domain.Plan {
	p := domain.Plan{
		Code:  entry.PlanVersion.Code,
		Name:  entry.PlanVersion.Name,
		Start: entry.PlanVersion.StartDate,
		End:   entry.PlanVersion.EndDate,
		ISO3:  iso3,
	}
	if len(entry.Categories) > 0 {
		p.Type = entry.Categories[0].Name
	}
	return p
}
