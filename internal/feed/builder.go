// Package feed turns normalized forecast summaries into syndication feeds and
// HTML pages. Building is pure apart from the clock used to stamp an empty feed.
package feed

import (
	"strings"
	"time"

	"github.com/couchcryptid/avyrss/internal/domain"
	"github.com/jonboulle/clockwork"
)

const (
	noDataSuffix      = "no-data"
	noDataTitle       = "No Forecasts Available"
	noDataDescription = "No forecast data has been downloaded yet for this zone."
)

// ZoneMeta names the zone a feed is built for.
type ZoneMeta struct {
	CenterSlug string
	CenterName string
	ZoneSlug   string
	ZoneName   string
}

// Entry is one feed item. ID is stable for a given forecast date.
type Entry struct {
	ID              string
	Title           string
	PublishedAt     time.Time
	DescriptionHTML string
	Link            *string
	// Summary is nil for the no-data placeholder.
	Summary *domain.ForecastSummary
}

// Document is a complete feed, newest entry first.
type Document struct {
	ID          string
	Title       string
	Description string
	SelfLink    string
	Language    string
	Updated     time.Time
	Entries     []Entry
}

// Builder renders feed documents for zones. It is safe for concurrent use.
type Builder struct {
	baseURL     string
	iconBaseURL string
	clock       clockwork.Clock
}

// NewBuilder creates a Builder. baseURL is the public root feeds are served
// from; iconBaseURL is where {level}.png danger icons live.
func NewBuilder(baseURL, iconBaseURL string, clock clockwork.Clock) *Builder {
	return &Builder{
		baseURL:     strings.TrimRight(baseURL, "/"),
		iconBaseURL: strings.TrimRight(iconBaseURL, "/"),
		clock:       clock,
	}
}

// FeedURL is the public URL of a zone's feed. It doubles as the feed id.
func (b *Builder) FeedURL(centerSlug, zoneSlug string) string {
	return b.baseURL + "/feed/" + centerSlug + "/" + zoneSlug
}

// PreviewURL is the public URL of a zone's HTML preview.
func (b *Builder) PreviewURL(centerSlug, zoneSlug string) string {
	return b.baseURL + "/preview/" + centerSlug + "/" + zoneSlug
}

// Build renders summaries, which must already be ordered newest first.
// With no summaries the feed holds a single placeholder entry whose id never
// changes, so readers do not see a new item each time an empty feed is rebuilt.
func (b *Builder) Build(meta ZoneMeta, summaries []domain.ForecastSummary) Document {
	feedID := b.FeedURL(meta.CenterSlug, meta.ZoneSlug)
	doc := Document{
		ID:          feedID,
		Title:       meta.CenterName + " - " + meta.ZoneName + " - Avalanche Forecast",
		Description: "RSS feed for avalanche forecasts from " + meta.CenterName + ", " + meta.ZoneName + " zone",
		SelfLink:    feedID,
		Language:    "en",
	}

	if len(summaries) == 0 {
		now := b.clock.Now().UTC()
		doc.Updated = now
		doc.Entries = []Entry{{
			ID:              feedID + "/" + noDataSuffix,
			Title:           noDataTitle,
			PublishedAt:     now,
			DescriptionHTML: noDataDescription,
		}}
		return doc
	}

	doc.Entries = make([]Entry, 0, len(summaries))
	for i := range summaries {
		s := summaries[i]
		doc.Entries = append(doc.Entries, Entry{
			ID:              feedID + "/" + s.DateKey(),
			Title:           s.Title,
			PublishedAt:     s.Date,
			DescriptionHTML: b.DescriptionHTML(s),
			Link:            s.URL,
			Summary:         &s,
		})
	}
	// The newest forecast dates the feed so identical inputs give identical output.
	doc.Updated = summaries[0].Date
	return doc
}

// IsPlaceholder reports whether e is the no-data entry.
func (e Entry) IsPlaceholder() bool {
	return e.Summary == nil
}
