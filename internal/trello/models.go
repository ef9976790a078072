package trello

// Card is the card summary returned inline by the search endpoint.
type Card struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Desc             string       `json:"desc"`
	URL              string       `json:"url"`
	ShortURL         string       `json:"shortUrl,omitempty"`
	DateLastActivity string       `json:"dateLastActivity"`
	IDBoard          string       `json:"idBoard"`
	Closed           bool         `json:"closed"`
	Attachments      []Attachment `json:"attachments"`
}

// Attachment is a file attached to a card.
type Attachment struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Date     string `json:"date"`
	FileName string `json:"fileName"`
	URL      string `json:"url"`
	Bytes    int64  `json:"bytes,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// Board is a board as returned by /boards/{id}.
type Board struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Desc   string `json:"desc"`
	Closed bool   `json:"closed"`
	URL    string `json:"url"`
}

// Member is a Trello member.
type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName,omitempty"`
}

// Action is an entry of a card's activity feed.
type Action struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Date string `json:"date"`
	Data struct {
		Text string `json:"text"`
	} `json:"data"`
	MemberCreator *Member `json:"memberCreator,omitempty"`
}

// Text returns the comment text carried by the action, if any.
func (a Action) Text() string { return a.Data.Text }

// SearchResult is the subset of the search response the scanner consumes.
type SearchResult struct {
	Cards  []Card  `json:"cards"`
	Boards []Board `json:"boards"`
}
