package trello

import (
	"context"
	"net/url"
)

// Search runs a full-text search. The query is sent verbatim, so quoted
// strings keep the service's exact-phrase semantics.
func (c *Client) Search(ctx context.Context, query string) (SearchResult, error) {
	var out SearchResult
	err := c.get(ctx, "search", url.Values{"query": {query}}, &out)
	return out, err
}

// GetBoard fetches a board by id.
func (c *Client) GetBoard(ctx context.Context, id string) (Board, error) {
	var out Board
	err := c.get(ctx, "boards/"+url.PathEscape(id), nil, &out)
	return out, err
}

// GetBoardMembers lists the members of a board.
func (c *Client) GetBoardMembers(ctx context.Context, id string) ([]Member, error) {
	var out []Member
	err := c.get(ctx, "boards/"+url.PathEscape(id)+"/members", nil, &out)
	return out, err
}

// GetCardActions returns the activity feed of a card, newest first.
func (c *Client) GetCardActions(ctx context.Context, id string) ([]Action, error) {
	var out []Action
	err := c.get(ctx, "cards/"+url.PathEscape(id)+"/actions", nil, &out)
	return out, err
}

// GetCard fetches a single card.
func (c *Client) GetCard(ctx context.Context, id string) (Card, error) {
	var out Card
	err := c.get(ctx, "cards/"+url.PathEscape(id), nil, &out)
	return out, err
}

// GetMember fetches a member by id or username.
func (c *Client) GetMember(ctx context.Context, id string) (Member, error) {
	var out Member
	err := c.get(ctx, "members/"+url.PathEscape(id), nil, &out)
	return out, err
}

// GetMe returns the member the credentials belong to.
func (c *Client) GetMe(ctx context.Context) (Member, error) {
	return c.GetMember(ctx, "me")
}
