package feed

// RawEntry is one upstream entry with every field the document offered.
// Title and Link are nil when the entry did not carry them.
type RawEntry struct {
	Title       *string
	Link        *string
	Summary     string
	Description string
	Published   string
	Updated     string
	Tags        []string
	Category    string
}

// Item is a canonical entry ready for deduplication and storage
type Item struct {
	Title       string
	Summary     string
	Link        string
	Category    string
	PublishedAt string
}

type OutcomeKind int

const (
	OutcomeOk OutcomeKind = iota
	OutcomePartialParseOk
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOk:
		return "ok"
	case OutcomePartialParseOk:
		return "partial_parse_ok"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchOutcome reports how a fetch went. A failed fetch is a value, not an error.
// Validators carries the response's ETag and Last-Modified; the caller
// decides whether to remember them once the entries are safely stored.
type FetchOutcome struct {
	Kind       OutcomeKind
	Reason     string
	Validators Validators
}

const ReasonTimeout = "timeout"

func Ok() FetchOutcome {
	return FetchOutcome{Kind: OutcomeOk}
}

func PartialParseOk(reason string) FetchOutcome {
	return FetchOutcome{Kind: OutcomePartialParseOk, Reason: reason}
}

func Failed(reason string) FetchOutcome {
	return FetchOutcome{Kind: OutcomeFailed, Reason: reason}
}

func (o FetchOutcome) IsFailed() bool {
	return o.Kind == OutcomeFailed
}

func (o FetchOutcome) String() string {
	if o.Reason == "" {
		return o.Kind.String()
	}
	return o.Kind.String() + ": " + o.Reason
}

// Validators are the HTTP cache validators remembered for a feed URL
type Validators struct {
	ETag         string
	LastModified string
}

func (v Validators) IsZero() bool {
	return v.ETag == "" && v.LastModified == ""
}
