package domain

import (
	"slices"
	"strconv"
	"time"
)

// DangerRating holds the 1..5 rating per elevation band for one day.
// A nil band was not rated by the provider.
type DangerRating struct {
	Upper  *int `json:"upper"`
	Middle *int `json:"middle"`
	Lower  *int `json:"lower"`
}

// Max returns the highest rated band, or nil when every band is unrated.
func (d DangerRating) Max() *int {
	var highest *int
	for _, band := range []*int{d.Upper, d.Middle, d.Lower} {
		if band == nil {
			continue
		}
		if highest == nil || *band > *highest {
			v := *band
			highest = &v
		}
	}
	return highest
}

// Problem is one avalanche problem in forecast order.
type Problem struct {
	Name       string    `json:"name"`
	Likelihood string    `json:"likelihood"`
	Size       []float64 `json:"size"`
}

// SizeText formats the destructive size range: "D2" for one size, "D1-D3"
// (smallest to largest) for several, "Unknown" for none.
func (p Problem) SizeText() string {
	if len(p.Size) == 0 {
		return "Unknown"
	}
	lo, hi := slices.Min(p.Size), slices.Max(p.Size)
	if len(p.Size) == 1 {
		return "D" + formatSize(lo)
	}
	return "D" + formatSize(lo) + "-D" + formatSize(hi)
}

func formatSize(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ForecastSummary is the normalized view of one forecast used by every rendering surface.
type ForecastSummary struct {
	Title              string        `json:"title"`
	Date               time.Time     `json:"date"`
	BottomLine         string        `json:"bottom_line"`
	ForecastDiscussion *string       `json:"forecast_discussion,omitempty"`
	URL                *string       `json:"url,omitempty"`
	Author             *string       `json:"author,omitempty"`
	DangerCurrent      *DangerRating `json:"danger_current,omitempty"`
	DangerTomorrow     *DangerRating `json:"danger_tomorrow,omitempty"`
	OverallDanger      *int          `json:"overall_danger,omitempty"`
	Problems           []Problem     `json:"problems"`
}

// DateKey returns the summary date as YYYY-MM-DD.
func (s ForecastSummary) DateKey() string {
	return s.Date.Format(DateLayout)
}
