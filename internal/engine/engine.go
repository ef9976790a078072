package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/varalys/trello-watchman/internal/dedupe"
	"github.com/varalys/trello-watchman/internal/rules"
	"github.com/varalys/trello-watchman/internal/sink"
	"github.com/varalys/trello-watchman/internal/trello"
	"github.com/varalys/trello-watchman/internal/types"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds concurrent enrichment calls per search string.
const DefaultWorkers = 4

// Gateway is the subset of the Trello client the engine drives.
type Gateway interface {
	Search(ctx context.Context, query string) (trello.SearchResult, error)
	GetBoard(ctx context.Context, id string) (trello.Board, error)
	GetBoardMembers(ctx context.Context, id string) ([]trello.Member, error)
	GetCardActions(ctx context.Context, id string) ([]trello.Action, error)
}

// Engine runs rules against the API. It holds no state between calls.
type Engine struct {
	gw      Gateway
	sink    sink.Sink
	now     func() time.Time
	workers int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used by the recency filter.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithWorkers sets the enrichment concurrency. 1 makes enrichment sequential.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// New returns an Engine reporting progress to s.
func New(gw Gateway, s sink.Sink, opts ...Option) *Engine {
	e := &Engine{gw: gw, sink: s, now: time.Now, workers: DefaultWorkers}
	for _, o := range opts {
		o(e)
	}
	if e.sink == nil {
		e.sink = sink.Discard()
	}
	return e
}

// FindAttachments returns recent cards carrying attachments for every search
// string of r. A nil slice with a nil error means the invocation ran and
// nothing survived filtering.
func (e *Engine) FindAttachments(ctx context.Context, r *rules.Rule, tf Timeframe) ([]types.AttachmentResult, error) {
	now := e.now()
	var results []types.AttachmentResult

	for _, q := range r.Strings {
		cards, err := e.search(ctx, q, tf, now, true)
		if err != nil {
			return nil, err
		}
		found, err := enrich(ctx, e.workers, cards, func(ctx context.Context, c trello.Card) (*types.AttachmentResult, error) {
			board, err := e.board(ctx, c.IDBoard)
			if err != nil {
				return nil, err
			}
			res := types.AttachmentResult{
				CardID:       c.ID,
				LastActivity: c.DateLastActivity,
				Title:        c.Name,
				Description:  c.Desc,
				URL:          c.URL,
				Attachments:  convertAttachments(c.Attachments),
				Board:        board,
			}
			return &res, nil
		})
		if err != nil {
			return nil, err
		}
		results = append(results, found...)
	}
	return finish(e.sink, results), nil
}

// FindText returns recent cards whose description, title or comment feed
// matches the rule pattern.
func (e *Engine) FindText(ctx context.Context, r *rules.Rule, tf Timeframe) ([]types.TextResult, error) {
	now := e.now()
	var results []types.TextResult

	for _, q := range r.Strings {
		cards, err := e.search(ctx, q, tf, now, false)
		if err != nil {
			return nil, err
		}
		found, err := enrich(ctx, e.workers, cards, func(ctx context.Context, c trello.Card) (*types.TextResult, error) {
			match, loc, err := e.confirm(ctx, r, c)
			if err != nil || loc == "" {
				return nil, err
			}
			board, err := e.board(ctx, c.IDBoard)
			if err != nil {
				return nil, err
			}
			return &types.TextResult{
				CardID:        c.ID,
				LastActivity:  c.DateLastActivity,
				Title:         c.Name,
				Description:   c.Desc,
				URL:           c.URL,
				MatchString:   match,
				MatchLocation: loc,
				Board:         board,
			}, nil
		})
		if err != nil {
			return nil, err
		}
		results = append(results, found...)
	}
	return finish(e.sink, results), nil
}

// search runs one query and keeps the cards that pass the recency filter.
func (e *Engine) search(ctx context.Context, q string, tf Timeframe, now time.Time, needAttachments bool) ([]trello.Card, error) {
	res, err := e.gw.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", q, err)
	}
	e.sink.Info(fmt.Sprintf("%d cards found matching: %s", len(res.Cards), strings.ReplaceAll(q, `"`, "")))

	var keep []trello.Card
	for _, c := range res.Cards {
		if needAttachments && len(c.Attachments) == 0 {
			continue
		}
		ts, err := ConvertTime(c.DateLastActivity)
		if err != nil {
			return nil, fmt.Errorf("card %s: %w", c.ID, err)
		}
		if tf.Includes(now, ts) {
			keep = append(keep, c)
		}
	}
	return keep, nil
}

// confirm applies the rule pattern to the description, then the title, then
// each comment of the card's action feed. The feed is only fetched when the
// first two fields do not match.
func (e *Engine) confirm(ctx context.Context, r *rules.Rule, c trello.Card) (string, types.MatchLocation, error) {
	if m, ok := find(r.Pattern, c.Desc); ok {
		return m, types.MatchDescription, nil
	}
	if m, ok := find(r.Pattern, c.Name); ok {
		return m, types.MatchTitle, nil
	}
	actions, err := e.gw.GetCardActions(ctx, c.ID)
	if err != nil {
		return "", "", fmt.Errorf("card %s actions: %w", c.ID, err)
	}
	for _, a := range actions {
		if m, ok := find(r.Pattern, a.Text()); ok {
			return m, types.MatchAction, nil
		}
	}
	return "", "", nil
}

// find returns the leftmost match of re in s.
func find(re *regexp.Regexp, s string) (string, bool) {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return "", false
	}
	return s[loc[0]:loc[1]], true
}

// board fetches a board and its members.
func (e *Engine) board(ctx context.Context, id string) (types.Board, error) {
	b, err := e.gw.GetBoard(ctx, id)
	if err != nil {
		return types.Board{}, fmt.Errorf("board %s: %w", id, err)
	}
	members, err := e.gw.GetBoardMembers(ctx, id)
	if err != nil {
		return types.Board{}, fmt.Errorf("board %s members: %w", id, err)
	}
	out := types.Board{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Desc,
		Closed:      b.Closed,
		URL:         b.URL,
		Members:     make([]types.Member, 0, len(members)),
	}
	for _, m := range members {
		out.Members = append(out.Members, types.Member{ID: m.ID, Username: m.Username})
	}
	return out, nil
}

// enrich calls fn for every card on a bounded pool and returns the non-nil
// results in card order. The first error cancels the remaining calls.
func enrich[T any](ctx context.Context, workers int, cards []trello.Card, fn func(context.Context, trello.Card) (*T, error)) ([]T, error) {
	if len(cards) == 0 {
		return nil, nil
	}
	slots := make([]*T, len(cards))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range cards {
		g.Go(func() error {
			res, err := fn(gctx, c)
			if err != nil {
				return err
			}
			slots[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []T
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out, nil
}

func finish[T dedupe.Record](s sink.Sink, results []T) []T {
	if len(results) == 0 {
		s.Info("No matches found after filtering")
		return nil
	}
	out := dedupe.Dedupe(results)
	s.Info(fmt.Sprintf("%d total matches found after filtering", len(out)))
	return out
}

func convertAttachments(in []trello.Attachment) []types.Attachment {
	out := make([]types.Attachment, 0, len(in))
	for _, a := range in {
		out = append(out, types.Attachment{
			ID:       a.ID,
			Uploaded: a.Date,
			Name:     a.Name,
			Filename: a.FileName,
			URL:      a.URL,
		})
	}
	return out
}
