package feed

import (
	"encoding/xml"
	"fmt"

	"github.com/gorilla/feeds"
)

// rssChannel mirrors feeds.RssFeed with an item type whose link is optional.
type rssChannel struct {
	XMLName       xml.Name   `xml:"channel"`
	Title         string     `xml:"title"`
	Link          string     `xml:"link"`
	Description   string     `xml:"description"`
	Language      string     `xml:"language,omitempty"`
	PubDate       string     `xml:"pubDate,omitempty"`
	LastBuildDate string     `xml:"lastBuildDate,omitempty"`
	Items         []*rssItem `xml:"item"`
}

// rssItem mirrors feeds.RssItem. Link is omitted when the forecast has no URL.
type rssItem struct {
	XMLName     xml.Name       `xml:"item"`
	Title       string         `xml:"title"`
	Link        string         `xml:"link,omitempty"`
	Description string         `xml:"description"`
	Guid        *feeds.RssGuid `xml:"guid"`
	PubDate     string         `xml:"pubDate,omitempty"`
}

type rssDocument struct {
	XMLName xml.Name    `xml:"rss"`
	Version string      `xml:"version,attr"`
	Channel *rssChannel `xml:"channel"`
}

// FeedXml implements feeds.XmlFeed.
func (c *rssChannel) FeedXml() interface{} {
	return &rssDocument{Version: "2.0", Channel: c}
}

// EncodeRSS serializes a document as an RSS 2.0 XML string. Entry ids become
// guids that are not permalinks, since they name a date rather than a page.
func EncodeRSS(doc Document) (string, error) {
	f := &feeds.Feed{
		Id:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		Link:        &feeds.Link{Href: doc.SelfLink, Rel: "self"},
		Created:     doc.Updated,
		Updated:     doc.Updated,
		Items:       make([]*feeds.Item, 0, len(doc.Entries)),
	}
	for _, e := range doc.Entries {
		item := &feeds.Item{
			Id:          e.ID,
			IsPermaLink: "false",
			Title:       e.Title,
			Description: e.DescriptionHTML,
			Created:     e.PublishedAt,
		}
		if e.Link != nil {
			item.Link = &feeds.Link{Href: *e.Link}
		}
		f.Items = append(f.Items, item)
	}

	rss := (&feeds.Rss{Feed: f}).RssFeed()
	channel := &rssChannel{
		Title:         rss.Title,
		Link:          rss.Link,
		Description:   rss.Description,
		Language:      doc.Language,
		PubDate:       rss.PubDate,
		LastBuildDate: rss.LastBuildDate,
		Items:         make([]*rssItem, 0, len(rss.Items)),
	}
	for _, it := range rss.Items {
		channel.Items = append(channel.Items, &rssItem{
			Title:       it.Title,
			Link:        it.Link,
			Description: it.Description,
			Guid:        it.Guid,
			PubDate:     it.PubDate,
		})
	}

	out, err := feeds.ToXML(channel)
	if err != nil {
		return "", fmt.Errorf("encode rss %s: %w", doc.ID, err)
	}
	return out, nil
}
