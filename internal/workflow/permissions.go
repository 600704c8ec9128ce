package workflow

import (
	"context"

	"github.com/rpggio/sciflow/internal/fsm"
)

// allow builds a permission predicate admitting any of tiers.
func allow[E scoped](tiers ...tier) fsm.Permission[E] {
	return func(ctx context.Context, actorID string, env E) (bool, error) {
		return env.runner().permits(ctx, actorID, env.owner(), tiers...)
	}
}

// cascadeOnly admits no caller. Transitions carrying it run only as a
// cascade from a document transition.
func cascadeOnly[E any]() fsm.Permission[E] {
	return func(context.Context, string, E) (bool, error) { return false, nil }
}
