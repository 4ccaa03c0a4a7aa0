package feed

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"
	"golang.org/x/text/encoding/charmap"
)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Run parses an RSS, Atom or JSON feed document. A document that fails to
// parse gets one repair pass; if the repaired document yields entries the
// outcome is PartialParseOk, otherwise Failed.
func (p *Parser) Run(data []byte) ([]RawEntry, FetchOutcome) {
	entries, err := p.parse(data)
	if err == nil {
		return entries, Ok()
	}

	repaired, changed := repair(data)
	if !changed {
		return nil, Failed(fmt.Sprintf("failed to parse feed: %v", err))
	}

	entries, repairErr := p.parse(repaired)
	if repairErr != nil {
		return nil, Failed(fmt.Sprintf("failed to parse feed: %v", err))
	}
	if len(entries) == 0 {
		return nil, Failed(fmt.Sprintf("malformed feed without entries: %v", err))
	}

	return entries, PartialParseOk(err.Error())
}

func (p *Parser) parse(data []byte) ([]RawEntry, error) {
	// gofeed.Parser keeps per-document state, one per call
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	entries := make([]RawEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, toRawEntry(item))
	}

	return entries, nil
}

// gofeed reports an absent title and an empty one the same way, so the title
// is always present here and an empty one becomes "No Title" downstream.
func toRawEntry(item *gofeed.Item) RawEntry {
	title := item.Title
	entry := RawEntry{
		Title:       &title,
		Summary:     item.Description,
		Description: item.Content,
		Published:   item.Published,
		Updated:     item.Updated,
		Tags:        item.Categories,
	}

	link := strings.TrimSpace(item.Link)
	if link == "" {
		for _, l := range item.Links {
			if l = strings.TrimSpace(l); l != "" {
				link = l
				break
			}
		}
	}
	if link != "" {
		entry.Link = &link
	}

	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Subject) > 0 {
		entry.Category = item.DublinCoreExt.Subject[0]
	}

	return entry
}

var (
	cdataStart = []byte("<![CDATA[")
	cdataEnd   = []byte("]]>")
	entityRe   = regexp.MustCompile(`^&(#[0-9]+|#[xX][0-9a-fA-F]+|[A-Za-z][A-Za-z0-9._-]*);`)
)

// repair rewrites the byte-level defects that make encoding/xml give up on a
// feed: invalid UTF-8 (decoded as Windows-1252), characters XML forbids, and
// bare ampersands outside CDATA. It reports whether anything changed.
func repair(data []byte) ([]byte, bool) {
	var buf bytes.Buffer
	buf.Grow(len(data))

	changed := false
	inCDATA := false

	for i := 0; i < len(data); {
		switch {
		case !inCDATA && bytes.HasPrefix(data[i:], cdataStart):
			inCDATA = true
			buf.Write(cdataStart)
			i += len(cdataStart)
			continue
		case inCDATA && bytes.HasPrefix(data[i:], cdataEnd):
			inCDATA = false
			buf.Write(cdataEnd)
			i += len(cdataEnd)
			continue
		}

		r, size := utf8.DecodeRune(data[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			buf.WriteRune(charmap.Windows1252.DecodeByte(data[i]))
			changed = true
		case !isXMLChar(r):
			changed = true
		case r == '&' && !inCDATA && !entityRe.Match(data[i:min(i+40, len(data))]):
			buf.WriteString("&amp;")
			changed = true
		default:
			buf.Write(data[i : i+size])
		}
		i += size
	}

	return buf.Bytes(), changed
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}
