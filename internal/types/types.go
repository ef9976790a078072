package types

import "strings"

// Severity is a coarse-grained risk level for a finding.
type Severity string

const (
	SevLow      Severity = "low"
	SevMed      Severity = "medium"
	SevHigh     Severity = "high"
	SevCritical Severity = "critical"
)

// ParseSeverity maps a rule severity to a Severity. Named levels are matched
// case-insensitively; numeric scores (1-100) are bucketed. ok is false when
// the value is neither.
func ParseSeverity(s string) (Severity, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch Severity(s) {
	case SevLow, SevMed, SevHigh, SevCritical:
		return Severity(s), true
	case "med":
		return SevMed, true
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", false
		}
		n = n*10 + int(s[i]-'0')
		if n > 100 {
			return "", false
		}
	}
	switch {
	case s == "" || n == 0:
		return "", false
	case n >= 90:
		return SevCritical, true
	case n >= 70:
		return SevHigh, true
	case n >= 40:
		return SevMed, true
	default:
		return SevLow, true
	}
}

// Scope names the aspect of a card a rule targets.
type Scope string

const (
	ScopeAttachments Scope = "attachments"
	ScopeText        Scope = "text"
)

// Scopes lists every supported scope in scan order.
func Scopes() []Scope { return []Scope{ScopeAttachments, ScopeText} }

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeAttachments || s == ScopeText
}

// Member is a board member as reported alongside a finding.
type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Board is the parent board of a matched card, including its members.
type Board struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Closed      bool     `json:"closed"`
	URL         string   `json:"url"`
	Members     []Member `json:"members"`
}

// Attachment describes a file attached to a card.
type Attachment struct {
	ID       string `json:"attachment_id"`
	Uploaded string `json:"attachment_uploaded"`
	Name     string `json:"attachment_name"`
	Filename string `json:"attachment_filename"`
	URL      string `json:"attachment_url"`
}

// MatchLocation names the card field whose content confirmed a text match.
type MatchLocation string

const (
	MatchDescription MatchLocation = "description"
	MatchTitle       MatchLocation = "title"
	MatchAction      MatchLocation = "action"
)

// AttachmentResult is a recent card carrying at least one attachment.
type AttachmentResult struct {
	CardID       string       `json:"card_id"`
	LastActivity string       `json:"last_activity"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	URL          string       `json:"card_url"`
	Attachments  []Attachment `json:"attachments"`
	Board        Board        `json:"board"`
}

// Key identifies the matched card.
func (r AttachmentResult) Key() string { return r.CardID }

// TextResult is a recent card whose text content matched a rule pattern.
type TextResult struct {
	CardID        string        `json:"card_id"`
	LastActivity  string        `json:"last_activity"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	URL           string        `json:"card_url"`
	MatchString   string        `json:"match_string"`
	MatchLocation MatchLocation `json:"match_location"`
	Board         Board         `json:"board"`
}

// Key identifies the matched card.
func (r TextResult) Key() string { return r.CardID }

// Finding is the flattened, sink-independent view of a single result used by
// reports.
type Finding struct {
	Rule         string   `json:"rule"`
	Scope        Scope    `json:"scope"`
	Severity     Severity `json:"severity"`
	CardID       string   `json:"card_id"`
	CardURL      string   `json:"card_url"`
	Title        string   `json:"title"`
	Board        string   `json:"board,omitempty"`
	Match        string   `json:"match,omitempty"`
	LastActivity string   `json:"last_activity"`
}
