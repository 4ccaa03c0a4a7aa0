package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"time"

	"github.com/lysyi3m/rss-curator/app/database"
)

const approvedFeedPath = "/feeds/approved.xml"

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Generator renders approved items as an RSS 2.0 channel
type Generator struct {
	baseURL string
	port    string
	version string
}

func NewGenerator(baseURL, port, version string) *Generator {
	return &Generator{baseURL: baseURL, port: port, version: version}
}

func (g *Generator) Run(items []database.Item) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	selfLink := g.selfLink()
	g.writeElement(&buf, "title", "RSS Curator: approved items", 4)
	g.writeElement(&buf, "link", selfLink, 4)
	g.writeElement(&buf, "description", "Items approved for publication", 4)
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := time.Now()
	if len(items) > 0 {
		if published, ok := parsePubDate(items[0].PublishedAt); ok {
			lastBuildDate = published
		} else if !items[0].CreatedAt.IsZero() {
			lastBuildDate = items[0].CreatedAt
		}
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("RSS-Curator/%s", g.version), 4)

	for _, item := range items {
		g.writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, item database.Item) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"true\">")
	xml.EscapeText(buf, []byte(item.Link))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", item.Title, 6)
	g.writeElement(buf, "link", item.Link, 6)

	description := item.Summary
	if item.AISuggestion != nil && *item.AISuggestion != "" {
		description = *item.AISuggestion
	}
	g.writeElement(buf, "description", cmp.Or(description, "No description available"), 6)

	if published, ok := parsePubDate(item.PublishedAt); ok {
		g.writeElement(buf, "pubDate", published.Format(time.RFC1123Z), 6)
	}

	g.writeElement(buf, "category", item.Category, 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) selfLink() string {
	if g.baseURL != "" {
		return g.baseURL + approvedFeedPath
	}
	return fmt.Sprintf("http://localhost:%s%s", g.port, approvedFeedPath)
}

// publishedAt is stored as the feed gave it; only well-known layouts are rendered
func parsePubDate(s string) (time.Time, bool) {
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
