package lifecycle

import (
	"context"

	"github.com/dukerupert/medtrack/internal/model"
)

// Decision is the answer to a duplicate-assignment conflict.
type Decision int

const (
	Cancel Decision = iota
	Reuse
	Reactivate
)

func (d Decision) String() string {
	switch d {
	case Reuse:
		return "reuse"
	case Reactivate:
		return "reactivate"
	}
	return "cancel"
}

// Resolver decides what to do when an assignment already exists.
type Resolver interface {
	ResolveConflict(ctx context.Context, c model.AssignmentConflict) (Decision, error)
}

type ResolverFunc func(ctx context.Context, c model.AssignmentConflict) (Decision, error)

func (f ResolverFunc) ResolveConflict(ctx context.Context, c model.AssignmentConflict) (Decision, error) {
	return f(ctx, c)
}

// AcceptExisting uses an active conflict and reactivates an inactive one.
var AcceptExisting = ResolverFunc(func(_ context.Context, c model.AssignmentConflict) (Decision, error) {
	if c.IsActive {
		return Reuse, nil
	}
	return Reactivate, nil
})

// CancelOnConflict gives up whenever an assignment already exists.
var CancelOnConflict = ResolverFunc(func(context.Context, model.AssignmentConflict) (Decision, error) {
	return Cancel, nil
})
