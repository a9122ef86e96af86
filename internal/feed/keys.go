package feed

// Layout of generated files within the feeds store.

// IndexKey is the landing page.
const IndexKey = "index.html"

// RSSKey is where a zone's RSS document is written.
func RSSKey(centerSlug, zoneSlug string) string {
	return centerSlug + "/" + zoneSlug + ".xml"
}

// PreviewKey is where a zone's HTML preview is written.
func PreviewKey(centerSlug, zoneSlug string) string {
	return centerSlug + "/" + zoneSlug + ".html"
}
