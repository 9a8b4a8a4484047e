package hpc

import (
	"encoding/json"
	"strconv"
	"strings"
)

// PlansResponse represents the HPC.tools plan list response.
type PlansResponse struct {
	Data []PlanEntry `json:"data"`
}

type PlanEntry struct {
	ID          int64       `json:"id"`
	PlanVersion PlanVersion `json:"planVersion"`
	Categories  []Category  `json:"categories"`
	Locations   []Location  `json:"locations"`
	Years       []PlanYear  `json:"years"`
}

type PlanVersion struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type Category struct {
	Name string `json:"name"`
}

type Location struct {
	ID         int64  `json:"id"`
	ISO3       string `json:"iso3"`
	Name       string `json:"name"`
	AdminLevel *int   `json:"adminLevel"`
}

type PlanYear struct {
	Year Year `json:"year"`
}

// Year accepts both "2024" and 2024. Missing or malformed years decode to 0.
type Year int

func (y *Year) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*y = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		*y = 0
		return nil
	}
	*y = Year(n)
	return nil
}

// ProjectSearchResponse is the project search envelope. Only the result
// count matters here, so results stay raw.
type ProjectSearchResponse struct {
	Data struct {
		Results []json.RawMessage `json:"results"`
	} `json:"data"`
}
