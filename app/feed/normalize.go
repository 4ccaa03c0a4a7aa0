package feed

import (
	"cmp"
	"regexp"
	"strings"
)

const (
	DefaultTitle    = "No Title"
	DefaultCategory = "General"
)

var tagRe = regexp.MustCompile(`<[^<]+?>`)

// Normalize maps a raw entry to a canonical item. It returns false when the
// entry has no title or no link; such entries are dropped silently.
//
// Field precedence:
//   - summary: Summary, then Description, tags stripped and trimmed
//   - publishedAt: Published, then Updated, stored as given
//   - category: first non-empty tag, then Category, then "General"
func Normalize(entry RawEntry) (Item, bool) {
	if entry.Title == nil || entry.Link == nil {
		return Item{}, false
	}

	link := strings.TrimSpace(*entry.Link)
	if link == "" {
		return Item{}, false
	}

	item := Item{
		Title:       cmp.Or(strings.TrimSpace(*entry.Title), DefaultTitle),
		Summary:     stripTags(cmp.Or(entry.Summary, entry.Description)),
		Link:        link,
		PublishedAt: cmp.Or(entry.Published, entry.Updated),
		Category:    DefaultCategory,
	}

	if category := firstTag(entry.Tags); category != "" {
		item.Category = category
	} else if category := strings.TrimSpace(entry.Category); category != "" {
		item.Category = category
	}

	return item, true
}

func stripTags(s string) string {
	return strings.TrimSpace(tagRe.ReplaceAllString(s, ""))
}

func firstTag(tags []string) string {
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			return tag
		}
	}
	return ""
}
