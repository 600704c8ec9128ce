// Package fsm provides a small finite state machine over an entity's status
// field. Transitions are declared up front with their source states, target,
// named guards, a permission predicate and an optional side effect. The
// machine itself holds no entity state: every call receives an environment
// value E from which the current status is read and into which the new status
// is written.
package fsm

import (
	"context"
	"fmt"
	"slices"
)

// Guard is a named domain precondition. Guards never look at the actor.
type Guard[E any] struct {
	Name  string
	Check func(env E) bool
}

// Permission reports whether actorID may invoke a transition on env.
type Permission[E any] func(ctx context.Context, actorID string, env E) (bool, error)

// Effect runs after the status has been updated in env. A returned error
// restores the previous status.
type Effect[E any] func(ctx context.Context, env E) error

// Transition declares one edge (or a fan-in of edges) of the graph.
type Transition[S ~string, E any] struct {
	Name       string
	Source     []S
	Target     S
	Guards     []Guard[E]
	Permission Permission[E]
	Effect     Effect[E]
}

// From reports whether status is one of the transition's source states.
func (t Transition[S, E]) From(status S) bool {
	return slices.Contains(t.Source, status)
}

// Hook runs once a transition has passed every check, before the status
// changes and before the side effect.
type Hook[S ~string, E any] func(ctx context.Context, env E, t Transition[S, E]) error

// Accessors read and write the status carried by an environment.
type Accessors[S ~string, E any] struct {
	Get func(env E) S
	Set func(env E, status S)
}

// Machine is an immutable set of declared transitions over the states S.
type Machine[S ~string, E any] struct {
	name         string
	states       []S
	transitions  []Transition[S, E]
	access       Accessors[S, E]
	beforeEffect Hook[S, E]
}

// Option configures a Machine.
type Option[S ~string, E any] func(*Machine[S, E])

// WithBeforeEffect installs a hook invoked for every applied transition.
func WithBeforeEffect[S ~string, E any](hook Hook[S, E]) Option[S, E] {
	return func(m *Machine[S, E]) { m.beforeEffect = hook }
}

// New builds a machine. It panics when a transition references an undeclared
// state or when two transitions sharing a name have overlapping sources;
// both are programming errors caught at startup.
func New[S ~string, E any](name string, states []S, access Accessors[S, E], transitions []Transition[S, E], opts ...Option[S, E]) *Machine[S, E] {
	if access.Get == nil || access.Set == nil {
		panic(fmt.Sprintf("fsm %s: status accessors are required", name))
	}
	m := &Machine[S, E]{
		name:        name,
		states:      slices.Clone(states),
		transitions: slices.Clone(transitions),
		access:      access,
	}
	for _, opt := range opts {
		opt(m)
	}

	for i, t := range m.transitions {
		if t.Name == "" {
			panic(fmt.Sprintf("fsm %s: transition %d has no name", name, i))
		}
		if !m.HasState(t.Target) {
			panic(fmt.Sprintf("fsm %s: transition %q targets undeclared state %q", name, t.Name, t.Target))
		}
		if len(t.Source) == 0 {
			panic(fmt.Sprintf("fsm %s: transition %q has no source states", name, t.Name))
		}
		for _, src := range t.Source {
			if !m.HasState(src) {
				panic(fmt.Sprintf("fsm %s: transition %q leaves undeclared state %q", name, t.Name, src))
			}
		}
		for _, other := range m.transitions[:i] {
			if other.Name != t.Name {
				continue
			}
			for _, src := range t.Source {
				if other.From(src) {
					panic(fmt.Sprintf("fsm %s: transition %q declared twice from %q", name, t.Name, src))
				}
			}
		}
	}
	return m
}

// Name returns the machine name used in error messages.
func (m *Machine[S, E]) Name() string { return m.name }

// States returns the declared states in declaration order.
func (m *Machine[S, E]) States() []S { return slices.Clone(m.states) }

// HasState reports whether status is a declared state.
func (m *Machine[S, E]) HasState(status S) bool { return slices.Contains(m.states, status) }

// Transitions returns a copy of every declared transition.
func (m *Machine[S, E]) Transitions() []Transition[S, E] { return slices.Clone(m.transitions) }

// Lookup finds the transition called name that is valid from status.
func (m *Machine[S, E]) Lookup(status S, name string) (Transition[S, E], bool) {
	for _, t := range m.transitions {
		if t.Name == name && t.From(status) {
			return t, true
		}
	}
	return Transition[S, E]{}, false
}

// Fire validates and applies the named transition on behalf of actorID and
// returns the new status. Checks run in order: source state, guards,
// permission.
func (m *Machine[S, E]) Fire(ctx context.Context, name, actorID string, env E) (S, error) {
	return m.fire(ctx, name, actorID, env, true)
}

// Cascade applies the named transition as a consequence of another entity's
// transition. Source state and guards are checked; the permission predicate
// is not, since the triggering transition was already authorized.
func (m *Machine[S, E]) Cascade(ctx context.Context, name string, env E) (S, error) {
	return m.fire(ctx, name, "", env, false)
}

func (m *Machine[S, E]) fire(ctx context.Context, name, actorID string, env E, checkPermission bool) (S, error) {
	current := m.access.Get(env)
	t, ok := m.Lookup(current, name)
	if !ok {
		return current, fmt.Errorf("%s: %q from %q: %w", m.name, name, current, ErrInvalidTransition)
	}

	for _, g := range t.Guards {
		if g.Check != nil && !g.Check(env) {
			return current, &GuardError{Transition: name, Guard: g.Name}
		}
	}

	if checkPermission && t.Permission != nil {
		allowed, err := t.Permission(ctx, actorID, env)
		if err != nil {
			return current, fmt.Errorf("%s: checking permission for %q: %w", m.name, name, err)
		}
		if !allowed {
			return current, &PermissionError{Transition: name, ActorID: actorID}
		}
	}

	if m.beforeEffect != nil {
		if err := m.beforeEffect(ctx, env, t); err != nil {
			return current, err
		}
	}

	m.access.Set(env, t.Target)
	if t.Effect != nil {
		if err := t.Effect(ctx, env); err != nil {
			m.access.Set(env, current)
			return current, err
		}
	}
	return t.Target, nil
}

// Available lists the names of transitions declared from the current status
// that actorID is permitted to invoke. Guards are not evaluated, so a listed
// transition may still be blocked.
func (m *Machine[S, E]) Available(ctx context.Context, actorID string, env E) ([]string, error) {
	current := m.access.Get(env)
	var names []string
	for _, t := range m.transitions {
		if !t.From(current) || slices.Contains(names, t.Name) {
			continue
		}
		if t.Permission != nil {
			allowed, err := t.Permission(ctx, actorID, env)
			if err != nil {
				return nil, fmt.Errorf("%s: checking permission for %q: %w", m.name, t.Name, err)
			}
			if !allowed {
				continue
			}
		}
		names = append(names, t.Name)
	}
	return names, nil
}
