package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	noForecastTitle      = "No forecast available"
	noForecastBottomLine = "Forecast data not available."
	noBottomLine         = "No bottom line available."
	unknownField         = "Unknown"

	validDayCurrent  = "current"
	validDayTomorrow = "tomorrow"
)

// forecastDoc is the subset of the provider product read during extraction.
// Every field is optional.
type forecastDoc struct {
	PublishedTime    *string        `json:"published_time"`
	BottomLine       *string        `json:"bottom_line"`
	HazardDiscussion *string        `json:"hazard_discussion"`
	Author           *string        `json:"author"`
	ForecastZone     []forecastZone `json:"forecast_zone"`
	Danger           []dangerEntry  `json:"danger"`
	Problems         []problemEntry `json:"forecast_avalanche_problems"`
}

type forecastZone struct {
	URL *string `json:"url"`
}

type dangerEntry struct {
	ValidDay string  `json:"valid_day"`
	Upper    flexInt `json:"upper"`
	Middle   flexInt `json:"middle"`
	Lower    flexInt `json:"lower"`
}

type problemEntry struct {
	Name       *string      `json:"name"`
	Likelihood *string      `json:"likelihood"`
	Size       []flexNumber `json:"size"`
}

// flexInt accepts a JSON number, a numeric string, or null.
type flexInt struct {
	value *int
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	n, ok := parseLooseNumber(data)
	if !ok {
		f.value = nil
		return nil
	}
	v := int(n)
	f.value = &v
	return nil
}

// flexNumber accepts a JSON number or numeric string; anything else is dropped.
type flexNumber struct {
	value *float64
}

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	n, ok := parseLooseNumber(data)
	if !ok {
		f.value = nil
		return nil
	}
	f.value = &n
	return nil
}

func parseLooseNumber(data []byte) (float64, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, false
	}
	s := string(data)
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(str)
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Extract normalizes a stored payload into a ForecastSummary. zoneName, when
// non-empty, prefixes the title. The result depends only on the inputs.
//
// An error wrapping ErrCorruptData is returned when the forecast body is not
// a JSON object or no usable date can be determined.
func Extract(p RawForecastPayload, zoneName string) (ForecastSummary, error) {
	if !p.HasForecast() {
		requested, err := p.RequestedAt()
		if err != nil {
			return ForecastSummary{}, err
		}
		return ForecastSummary{
			Title:      noForecastTitle,
			Date:       requested,
			BottomLine: noForecastBottomLine,
			Problems:   []Problem{},
		}, nil
	}

	var doc forecastDoc
	if err := json.Unmarshal(p.Forecast, &doc); err != nil {
		return ForecastSummary{}, fmt.Errorf("decode forecast: %w: %w", ErrCorruptData, err)
	}

	date, err := p.EffectiveDate()
	if err != nil {
		return ForecastSummary{}, err
	}

	summary := ForecastSummary{
		Date:               date,
		BottomLine:         stringOr(doc.BottomLine, noBottomLine),
		ForecastDiscussion: nonEmpty(doc.HazardDiscussion),
		Author:             nonEmpty(doc.Author),
		Problems:           make([]Problem, 0, len(doc.Problems)),
	}

	if len(doc.ForecastZone) > 0 {
		summary.URL = nonEmpty(doc.ForecastZone[0].URL)
	}

	// Later entries for the same day replace earlier ones.
	for _, entry := range doc.Danger {
		switch entry.ValidDay {
		case validDayCurrent:
			summary.DangerCurrent = entry.rating()
		case validDayTomorrow:
			summary.DangerTomorrow = entry.rating()
		}
	}
	if summary.DangerCurrent != nil {
		summary.OverallDanger = summary.DangerCurrent.Max()
	}

	for _, problem := range doc.Problems {
		summary.Problems = append(summary.Problems, problem.normalize())
	}

	summary.Title = forecastTitle(zoneName, summary.DateKey())
	return summary, nil
}

func forecastTitle(zoneName, dateKey string) string {
	if zoneName != "" {
		return zoneName + " Avalanche Forecast for " + dateKey
	}
	return "Avalanche Forecast for " + dateKey
}

func (e dangerEntry) rating() *DangerRating {
	return &DangerRating{
		Upper:  e.Upper.value,
		Middle: e.Middle.value,
		Lower:  e.Lower.value,
	}
}

func (p problemEntry) normalize() Problem {
	sizes := make([]float64, 0, len(p.Size))
	for _, s := range p.Size {
		if s.value != nil {
			sizes = append(sizes, *s.value)
		}
	}
	return Problem{
		Name:       stringOr(p.Name, unknownField),
		Likelihood: stringOr(p.Likelihood, unknownField),
		Size:       sizes,
	}
}

func stringOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
