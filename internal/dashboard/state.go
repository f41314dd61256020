// Package dashboard holds the client's view state: the active assignments
// with their live dose status, and the reference lists views pick from.
// State is replaced wholesale by re-fetching after every mutation.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/medtrack/internal/dosing"
	"github.com/dukerupert/medtrack/internal/medapi"
	"github.com/dukerupert/medtrack/internal/model"
	"github.com/dukerupert/medtrack/internal/refresher"
)

// API is what the dashboard reads.
type API interface {
	ListAssignments(ctx context.Context, f medapi.AssignmentFilter) ([]model.Assignment, error)
	GetAssignment(ctx context.Context, id int64) (*model.Assignment, error)
	LastAdministration(ctx context.Context, assignmentID int64) (*model.Administration, error)
}

var _ API = (*medapi.Client)(nil)

// Card is one assignment as displayed.
type Card struct {
	Assignment model.Assignment
	Last       *model.Administration
	Verdict    model.StatusVerdict
	// Err is set when the verdict could not be computed, e.g. the medication
	// has no frequency configured.
	Err error
}

// LastGiven describes the last administration relative to now.
func (c Card) LastGiven(now time.Time) string {
	if c.Last == nil {
		return "never"
	}
	return humanize.RelTime(c.Last.AdministeredAt, now, "ago", "from now")
}

// NextDue describes how long until the next dose can be given.
func (c Card) NextDue() string {
	if c.Err != nil {
		return c.Err.Error()
	}
	if c.Verdict.TimeUntilNext == nil {
		return dosing.FormatTimeUntilNext(0)
	}
	return dosing.FormatTimeUntilNext(*c.Verdict.TimeUntilNext)
}

type State struct {
	mu          sync.RWMutex
	api         API
	timers      *refresher.Refresher
	policy      dosing.Policy
	logger      *slog.Logger
	now         func() time.Time
	concurrency int
	cards       map[int64]Card
	onUpdate    func(Card)
}

func NewState(api API, timers *refresher.Refresher, policy dosing.Policy, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	return &State{
		api:         api,
		timers:      timers,
		policy:      policy,
		logger:      logger,
		now:         time.Now,
		concurrency: 8,
		cards:       make(map[int64]Card),
	}
}

// OnUpdate registers fn to run whenever a card is recomputed by a refresh.
func (s *State) OnUpdate(fn func(Card)) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// Load fetches the active assignments and their last administrations,
// replaces the cards and (re)starts a live refresh per assignment.
func (s *State) Load(ctx context.Context) error {
	active := true
	list, err := s.api.ListAssignments(ctx, medapi.AssignmentFilter{Active: &active})
	if err != nil {
		return fmt.Errorf("list assignments: %w", err)
	}

	cards := make([]Card, len(list))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, a := range list {
		g.Go(func() error {
			last, err := s.api.LastAdministration(gctx, a.ID)
			if err != nil {
				return fmt.Errorf("last administration for assignment %d: %w", a.ID, err)
			}
			cards[i] = s.compute(a, last)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	next := make(map[int64]Card, len(cards))
	for _, c := range cards {
		next[c.Assignment.ID] = c
	}

	s.mu.Lock()
	prev := s.cards
	s.cards = next
	s.mu.Unlock()

	if s.timers == nil {
		return nil
	}
	for id := range prev {
		if _, ok := next[id]; !ok {
			s.timers.Stop(id)
		}
	}
	// Timers outlive this call; Close or the next Load stops them.
	base := context.WithoutCancel(ctx)
	for id := range next {
		s.timers.Start(base, id, func(ctx context.Context) error {
			return s.Refresh(ctx, id)
		})
	}
	return nil
}

// Reload is Load; it lets State take part in ReloadAll.
func (s *State) Reload(ctx context.Context) error {
	return s.Load(ctx)
}

// Refresh re-fetches one assignment's last administration and recomputes its
// card. An assignment that is gone or stopped is dropped. A card that a
// concurrent Load removed is not brought back.
func (s *State) Refresh(ctx context.Context, id int64) error {
	a, err := s.api.GetAssignment(ctx, id)
	if err != nil && !medapi.IsNotFound(err) {
		return fmt.Errorf("get assignment %d: %w", id, err)
	}
	if a == nil || !a.Active {
		s.drop(id)
		return nil
	}

	last, err := s.api.LastAdministration(ctx, id)
	if err != nil {
		return fmt.Errorf("last administration for assignment %d: %w", id, err)
	}
	card := s.compute(*a, last)

	s.mu.Lock()
	if _, ok := s.cards[id]; !ok {
		s.mu.Unlock()
		return nil
	}
	s.cards[id] = card
	fn := s.onUpdate
	s.mu.Unlock()

	if fn != nil {
		fn(card)
	}
	return nil
}

func (s *State) drop(id int64) {
	s.mu.Lock()
	delete(s.cards, id)
	s.mu.Unlock()
	if s.timers != nil {
		s.timers.Stop(id)
	}
}

func (s *State) compute(a model.Assignment, last *model.Administration) Card {
	c := Card{Assignment: a, Last: last}
	v, err := s.policy.ComputeStatus(a, last, s.now())
	if err != nil {
		s.logger.Warn("cannot compute status", "assignment_id", a.ID, "error", err)
		c.Err = err
		return c
	}
	c.Verdict = v
	return c
}

// Cards returns the current cards, most urgent first. Cards that failed to
// compute sort last.
func (s *State) Cards() []Card {
	s.mu.RLock()
	out := make([]Card, 0, len(s.cards))
	for _, c := range s.cards {
		out = append(out, c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if (out[i].Err == nil) != (out[j].Err == nil) {
			return out[i].Err == nil
		}
		if dosing.Less(out[i].Verdict, out[j].Verdict) {
			return true
		}
		if dosing.Less(out[j].Verdict, out[i].Verdict) {
			return false
		}
		return out[i].Assignment.ID < out[j].Assignment.ID
	})
	return out
}

func (s *State) Card(id int64) (Card, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[id]
	return c, ok
}

// Close stops the live refresh of every card.
func (s *State) Close() error {
	s.mu.Lock()
	ids := make([]int64, 0, len(s.cards))
	for id := range s.cards {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	if s.timers != nil {
		for _, id := range ids {
			s.timers.Stop(id)
		}
	}
	return nil
}
