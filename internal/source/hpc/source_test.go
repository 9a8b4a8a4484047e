package hpc

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"
)

type SourceTestSuite struct {
	suite.Suite
	server  *httptest.Server
	handler http.HandlerFunc
	source  *Source
}

func (s *SourceTestSuite) SetupTest() {
	s.handler = nil
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("hrp-projects-test", r.Header.Get("User-Agent"))
		s.handler(w, r)
	}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.source = New(Config{BaseURL: s.server.URL + "/", UserAgent: "hrp-projects-test"}, s.server.Client(), logger)
}

func (s *SourceTestSuite) TearDownTest() {
	s.server.Close()
}

func TestSourceTestSuite(t *testing.T) {
	suite.Run(t, new(SourceTestSuite))
}

func (s *SourceTestSuite) TestFetchPlans() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		s.Equal(plansPath, r.URL.Path)
		_, _ = io.WriteString(w, `{"data": [{
			"id": 1185,
			"planVersion": {"code": "HAB24", "name": "Abc 2024", "startDate": "2024-01-01", "endDate": "2024-12-31"},
			"categories": [{"name": "Humanitarian response plan"}],
			"locations": [{"iso3": "ABC", "name": "Abc", "adminLevel": 0}, {"name": "Region", "adminLevel": 1}],
			"years": [{"year": "2024"}, {"year": 2025}, {"id": 3}]
		}]}`)
	}

	plans, err := s.source.FetchPlans(context.Background())

	s.Require().NoError(err)
	s.Require().Len(plans, 1)
	p := plans[0]
	s.Equal("HAB24", p.PlanVersion.Code)
	s.Equal("Humanitarian response plan", p.Categories[0].Name)
	s.Require().NotNil(p.Locations[0].AdminLevel)
	s.Equal(0, *p.Locations[0].AdminLevel)
	s.Equal([]PlanYear{{Year: 2024}, {Year: 2025}, {Year: 0}}, p.Years)
}

func (s *SourceTestSuite) TestFetchPlans_BadStatus() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	_, err := s.source.FetchPlans(context.Background())

	s.Error(err)
	s.Contains(err.Error(), "fetch plans")
	s.Contains(err.Error(), "503")
}

func (s *SourceTestSuite) TestCountProjects() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		s.Equal(projectSearchPath, r.URL.Path)
		s.Equal("HAB24", r.URL.Query().Get("planCodes"))
		s.Equal("locations,governingEntities,targets", r.URL.Query().Get("excludeFields"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"results": []any{map[string]any{"id": 1}, map[string]any{"id": 2}, map[string]any{"id": 3}}},
		})
	}

	n, err := s.source.CountProjects(context.Background(), "HAB24")

	s.NoError(err)
	s.Equal(3, n)
}

func (s *SourceTestSuite) TestCountProjects_MalformedJSON() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>Bad gateway</html>")
	}

	_, err := s.source.CountProjects(context.Background(), "HAB24")

	s.Error(err)
	s.Contains(err.Error(), "decode response")
}

func TestProjectSearchURL(t *testing.T) {
	got := ProjectSearchURL("https://api.hpc.tools/", "HAB24")

	want := "https://api.hpc.tools/v2/public/project/search?planCodes=HAB24&excludeFields=location,governingEntities,targets&limit=100000"
	if got != want {
		t.Fatalf("ProjectSearchURL() = %q, want %q", got, want)
	}
}
