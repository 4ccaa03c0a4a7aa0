package feed

import (
	"testing"
)

func TestParseRSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <item>
      <title>Test Item 1</title>
      <link>https://example.com/item1</link>
      <description>&lt;p&gt;Test Item 1 Description&lt;/p&gt;</description>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <category>Technology</category>
      <category>Programming</category>
    </item>
    <item>
      <title>Test Item 2</title>
      <description>No link here</description>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	entries, outcome := parser.Run([]byte(rssData))

	if outcome.Kind != OutcomeOk {
		t.Fatalf("Expected ok outcome, got: %s", outcome)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got: %d", len(entries))
	}

	first := entries[0]
	if first.Title == nil || *first.Title != "Test Item 1" {
		t.Errorf("Expected title 'Test Item 1', got: %v", first.Title)
	}
	if first.Link == nil || *first.Link != "https://example.com/item1" {
		t.Errorf("Expected link 'https://example.com/item1', got: %v", first.Link)
	}
	if first.Summary != "<p>Test Item 1 Description</p>" {
		t.Errorf("Expected HTML summary, got: %s", first.Summary)
	}
	if first.Published != "Mon, 03 Jul 2023 10:00:00 GMT" {
		t.Errorf("Expected raw published date, got: %s", first.Published)
	}
	if len(first.Tags) != 2 || first.Tags[0] != "Technology" {
		t.Errorf("Expected tags [Technology Programming], got: %v", first.Tags)
	}

	if entries[1].Link != nil {
		t.Errorf("Expected missing link to be nil, got: %s", *entries[1].Link)
	}
}

func TestParseAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Feed</title>
  <id>urn:uuid:feed</id>
  <updated>2023-07-03T12:00:00Z</updated>
  <entry>
    <title>Atom Entry</title>
    <link href="https://example.com/atom1"/>
    <id>urn:uuid:entry1</id>
    <updated>2023-07-03T11:00:00Z</updated>
    <content type="html">&lt;b&gt;Body&lt;/b&gt;</content>
  </entry>
</feed>`

	entries, outcome := NewParser().Run([]byte(atomData))

	if outcome.Kind != OutcomeOk {
		t.Fatalf("Expected ok outcome, got: %s", outcome)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(entries))
	}

	entry := entries[0]
	if entry.Link == nil || *entry.Link != "https://example.com/atom1" {
		t.Errorf("Expected link 'https://example.com/atom1', got: %v", entry.Link)
	}
	if entry.Summary != "" {
		t.Errorf("Expected empty summary, got: %s", entry.Summary)
	}
	if entry.Description != "<b>Body</b>" {
		t.Errorf("Expected content as description, got: %s", entry.Description)
	}
	if entry.Updated != "2023-07-03T11:00:00Z" {
		t.Errorf("Expected updated '2023-07-03T11:00:00Z', got: %s", entry.Updated)
	}
}

func TestParseEmptyFeedIsOk(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Empty</title><link>https://example.com</link></channel></rss>`

	entries, outcome := NewParser().Run([]byte(rssData))

	if outcome.Kind != OutcomeOk {
		t.Errorf("Expected ok outcome, got: %s", outcome)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got: %d", len(entries))
	}
}

func TestParseControlCharactersIsPartial(t *testing.T) {
	rssData := "<?xml version=\"1.0\"?>\n<rss version=\"2.0\"><channel><title>Broken</title>" +
		"<item><title>Bad\x01 Title</title><link>https://example.com/bad</link></item>" +
		"</channel></rss>"

	entries, outcome := NewParser().Run([]byte(rssData))

	if outcome.Kind != OutcomePartialParseOk {
		t.Fatalf("Expected partial parse outcome, got: %s", outcome)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(entries))
	}
	if *entries[0].Title != "Bad Title" {
		t.Errorf("Expected control character removed, got: %q", *entries[0].Title)
	}
}

func TestParseInvalidUTF8IsPartial(t *testing.T) {
	rssData := "<?xml version=\"1.0\"?>\n<rss version=\"2.0\"><channel><title>Legacy</title>" +
		"<item><title>Caf\xe9</title><link>https://example.com/cafe</link></item>" +
		"</channel></rss>"

	entries, outcome := NewParser().Run([]byte(rssData))

	if outcome.Kind != OutcomePartialParseOk {
		t.Fatalf("Expected partial parse outcome, got: %s", outcome)
	}
	if len(entries) != 1 || *entries[0].Title != "Café" {
		t.Errorf("Expected title 'Café', got: %v", entries)
	}
}

func TestParseMalformedWithoutEntriesFails(t *testing.T) {
	rssData := "<?xml version=\"1.0\"?>\n<rss version=\"2.0\"><channel><title>Bad\x01</title></channel></rss>"

	entries, outcome := NewParser().Run([]byte(rssData))

	if outcome.Kind != OutcomeFailed {
		t.Errorf("Expected failed outcome, got: %s", outcome)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got: %d", len(entries))
	}
}

func TestParseNotAFeedFails(t *testing.T) {
	entries, outcome := NewParser().Run([]byte("this is not a feed"))

	if !outcome.IsFailed() {
		t.Errorf("Expected failed outcome, got: %s", outcome)
	}
	if entries != nil {
		t.Errorf("Expected nil entries, got: %v", entries)
	}
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		changed bool
	}{
		{"clean", "<a>x &amp; y</a>", "<a>x &amp; y</a>", false},
		{"bare ampersand", "<a>x & y</a>", "<a>x &amp; y</a>", true},
		{"numeric entity kept", "<a>&#38; &#x26;</a>", "<a>&#38; &#x26;</a>", false},
		{"cdata untouched", "<a><![CDATA[x & y]]></a>", "<a><![CDATA[x & y]]></a>", false},
		{"control char", "<a>x\x0by</a>", "<a>xy</a>", true},
		{"latin1 byte", "<a>na\xefve</a>", "<a>naïve</a>", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := repair([]byte(tt.input))
			if string(got) != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, string(got))
			}
			if changed != tt.changed {
				t.Errorf("Expected changed=%v, got %v", tt.changed, changed)
			}
		})
	}
}
