package feed

import (
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/avyrss/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL = "https://avyrss.example.com/"
	testIconURL = "https://icons.example.com/danger-icons"
)

var testMeta = ZoneMeta{
	CenterSlug: "northwest-avalanche-center",
	CenterName: "Northwest Avalanche Center",
	ZoneSlug:   "snoqualmie-pass",
	ZoneName:   "Snoqualmie Pass",
}

func intPtr(v int) *int       { return &v }
func strPtr(s string) *string { return &s }

func newTestBuilder(clock clockwork.Clock) *Builder {
	return NewBuilder(testBaseURL, testIconURL, clock)
}

func fullSummary(date time.Time) domain.ForecastSummary {
	return domain.ForecastSummary{
		Title:              "Snoqualmie Pass Avalanche Forecast for " + date.Format(domain.DateLayout),
		Date:               date,
		BottomLine:         "<p>Watch for wind slabs.</p>",
		ForecastDiscussion: strPtr("<p>Cold nights.</p>"),
		URL:                strPtr("https://nwac.us/avalanche-forecast/#/snoqualmie-pass"),
		Author:             strPtr("A & B"),
		DangerCurrent:      &domain.DangerRating{Upper: intPtr(3), Middle: intPtr(2), Lower: intPtr(1)},
		DangerTomorrow:     &domain.DangerRating{Upper: intPtr(2), Middle: intPtr(2), Lower: nil},
		OverallDanger:      intPtr(3),
		Problems: []domain.Problem{
			{Name: "Wind Slab", Likelihood: "LIKELY", Size: []float64{1, 2}},
			{Name: "Loose <Wet>", Likelihood: "possible", Size: []float64{1}},
		},
	}
}

func TestBuild_FeedMetadata(t *testing.T) {
	b := newTestBuilder(clockwork.NewFakeClock())
	doc := b.Build(testMeta, nil)

	assert.Equal(t, "https://avyrss.example.com/feed/northwest-avalanche-center/snoqualmie-pass", doc.ID)
	assert.Equal(t, doc.ID, doc.SelfLink)
	assert.Equal(t, "Northwest Avalanche Center - Snoqualmie Pass - Avalanche Forecast", doc.Title)
	assert.Contains(t, doc.Description, "Northwest Avalanche Center")
	assert.Contains(t, doc.Description, "Snoqualmie Pass")
}

func TestBuild_EmptyHasStablePlaceholder(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC))
	b := newTestBuilder(clock)

	first := b.Build(testMeta, nil)
	clock.Advance(6 * time.Hour)
	second := b.Build(testMeta, []domain.ForecastSummary{})

	require.Len(t, first.Entries, 1)
	require.Len(t, second.Entries, 1)
	assert.Equal(t, first.Entries[0].ID, second.Entries[0].ID)
	assert.True(t, strings.HasSuffix(first.Entries[0].ID, "/no-data"))
	assert.Equal(t, "No Forecasts Available", first.Entries[0].Title)
	assert.True(t, first.Entries[0].IsPlaceholder())
	assert.Equal(t, time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC), first.Entries[0].PublishedAt)
	assert.Equal(t, time.Date(2024, 1, 5, 18, 0, 0, 0, time.UTC), second.Entries[0].PublishedAt)
}

func TestBuild_EntriesInOrderWithStableIDs(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := newTestBuilder(clock)
	summaries := []domain.ForecastSummary{
		fullSummary(time.Date(2024, 1, 5, 7, 0, 0, 0, time.UTC)),
		fullSummary(time.Date(2024, 1, 4, 7, 0, 0, 0, time.UTC)),
	}
	summaries[1].URL = nil

	first := b.Build(testMeta, summaries)
	clock.Advance(24 * time.Hour)
	second := b.Build(testMeta, summaries)

	require.Len(t, first.Entries, 2)
	assert.Equal(t, first.ID+"/2024-01-05", first.Entries[0].ID)
	assert.Equal(t, first.ID+"/2024-01-04", first.Entries[1].ID)
	assert.Equal(t, summaries[0].Title, first.Entries[0].Title)
	assert.Equal(t, summaries[0].Date, first.Entries[0].PublishedAt)
	require.NotNil(t, first.Entries[0].Link)
	assert.Nil(t, first.Entries[1].Link)
	assert.Equal(t, summaries[0].Date, first.Updated)

	for i := range first.Entries {
		assert.Equal(t, first.Entries[i].ID, second.Entries[i].ID)
		assert.Equal(t, first.Entries[i].DescriptionHTML, second.Entries[i].DescriptionHTML)
	}
}

func TestEncodeRSS_ParsesBack(t *testing.T) {
	b := newTestBuilder(clockwork.NewFakeClock())
	summaries := []domain.ForecastSummary{
		fullSummary(time.Date(2024, 1, 5, 7, 0, 0, 0, time.UTC)),
		fullSummary(time.Date(2024, 1, 4, 7, 0, 0, 0, time.UTC)),
	}
	doc := b.Build(testMeta, summaries)

	out, err := EncodeRSS(doc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<?xml"))

	parsed, err := gofeed.NewParser().ParseString(out)
	require.NoError(t, err)
	assert.Equal(t, "rss", parsed.FeedType)
	assert.Equal(t, doc.Title, parsed.Title)
	assert.Equal(t, "en", parsed.Language)
	require.Len(t, parsed.Items, 2)
	assert.Equal(t, doc.Entries[0].ID, parsed.Items[0].GUID)
	assert.Equal(t, doc.Entries[0].Title, parsed.Items[0].Title)
	assert.Equal(t, "https://nwac.us/avalanche-forecast/#/snoqualmie-pass", parsed.Items[0].Link)
	assert.Contains(t, parsed.Items[0].Description, "The Bottom Line")
	require.NotNil(t, parsed.Items[0].PublishedParsed)
	assert.True(t, parsed.Items[0].PublishedParsed.Equal(doc.Entries[0].PublishedAt))
}

func TestEncodeRSS_OmitsMissingLinksAndMarksGUIDs(t *testing.T) {
	b := newTestBuilder(clockwork.NewFakeClock())
	noURL := fullSummary(time.Date(2024, 1, 5, 7, 0, 0, 0, time.UTC))
	noURL.URL = nil

	type item struct {
		Link *string `xml:"link"`
		GUID struct {
			Value       string `xml:",chardata"`
			IsPermaLink string `xml:"isPermaLink,attr"`
		} `xml:"guid"`
	}
	type rss struct {
		Items []item `xml:"channel>item"`
	}

	for name, summaries := range map[string][]domain.ForecastSummary{
		"without url": {noURL},
		"placeholder": nil,
	} {
		t.Run(name, func(t *testing.T) {
			doc := b.Build(testMeta, summaries)
			out, err := EncodeRSS(doc)
			require.NoError(t, err)
			assert.NotContains(t, out, "<link></link>")

			var parsed rss
			require.NoError(t, xml.Unmarshal([]byte(out), &parsed))
			require.Len(t, parsed.Items, 1)
			assert.Nil(t, parsed.Items[0].Link)
			assert.Equal(t, doc.Entries[0].ID, parsed.Items[0].GUID.Value)
			assert.Equal(t, "false", parsed.Items[0].GUID.IsPermaLink)
		})
	}
}

func TestEncodeRSS_DeterministicForSameInput(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := newTestBuilder(clock)
	summaries := []domain.ForecastSummary{fullSummary(time.Date(2024, 1, 5, 7, 0, 0, 0, time.UTC))}

	a, err := EncodeRSS(b.Build(testMeta, summaries))
	require.NoError(t, err)
	clock.Advance(time.Hour)
	c, err := EncodeRSS(b.Build(testMeta, summaries))
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

// End-to-end: raw payload to normalized summary to feed.
func TestBuild_FromExtractedPayload(t *testing.T) {
	p := domain.RawForecastPayload{
		RequestTime: "2024-01-05T08:00:00Z",
		Forecast: json.RawMessage(`{"published_time":"2024-01-05T07:00:00Z","bottom_line":"Watch for wind slabs.",
			"danger":[{"valid_day":"current","upper":3,"middle":2,"lower":1}]}`),
	}
	s, err := domain.Extract(p, testMeta.ZoneName)
	require.NoError(t, err)
	require.NotNil(t, s.OverallDanger)
	assert.Equal(t, 3, *s.OverallDanger)

	doc := newTestBuilder(clockwork.NewFakeClock()).Build(testMeta, []domain.ForecastSummary{s})
	require.Len(t, doc.Entries, 1)
	entry := doc.Entries[0]
	assert.Contains(t, entry.Title, "2024-01-05")
	assert.Contains(t, entry.DescriptionHTML, "Avalanche Danger")
	assert.Contains(t, entry.DescriptionHTML, ">Today<")
	assert.NotContains(t, entry.DescriptionHTML, "Tomorrow")
	assert.Nil(t, entry.Link)
}
