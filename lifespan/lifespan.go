// Package lifespan manages resources tied to the application's running
// lifetime: acquired in priority order at startup, released in reverse
// order at shutdown.
package lifespan

import (
	"context"
	"errors"
	"sort"

	"github.com/tbisgaard/bridgekit/internal/xerrors"
)

// DefaultPriority places a manager after most explicitly-prioritized ones.
const DefaultPriority = 1000

// Manager is a scoped resource: Start acquires it, Stop releases it.
type Manager interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Func adapts a pair of functions into a Manager. Nil fields are no-ops.
type Func struct {
	StartFunc func(ctx context.Context) error
	StopFunc  func(ctx context.Context) error
}

func (f Func) Start(ctx context.Context) error {
	if f.StartFunc == nil {
		return nil
	}
	return f.StartFunc(ctx)
}

func (f Func) Stop(ctx context.Context) error {
	if f.StopFunc == nil {
		return nil
	}
	return f.StopFunc(ctx)
}

// Stack holds managers grouped by priority. Up enters them strictly in
// ascending priority order; managers sharing a priority enter in an
// unspecified order relative to each other. Down releases in the exact
// reverse of the realized entry order.
//
// Stack is not safe for concurrent registration; managers are added
// during bootstrap, before Up.
type Stack struct {
	groups  map[int][]Manager
	entered []Manager
}

func NewStack() *Stack {
	return &Stack{groups: make(map[int][]Manager)}
}

// Add registers m at the given priority. Lower priorities start first.
func (s *Stack) Add(m Manager, priority int) {
	if m == nil {
		return
	}
	s.groups[priority] = append(s.groups[priority], m)
}

// Len reports the number of registered managers.
func (s *Stack) Len() int {
	n := 0
	for _, g := range s.groups {
		n += len(g)
	}
	return n
}

// Up starts all managers. If any Start fails, every manager that was
// already entered is stopped in reverse order and the start error is
// returned, joined with any release errors.
func (s *Stack) Up(ctx context.Context) error {
	priorities := make([]int, 0, len(s.groups))
	for p := range s.groups {
		priorities = append(priorities, p)
	}
	sort.Ints(priorities)

	for _, p := range priorities {
		for _, m := range s.groups[p] {
			if err := m.Start(ctx); err != nil {
				err = xerrors.Wrapf(err, "start lifespan manager (priority %d)", p)
				return errors.Join(err, s.Down(ctx))
			}
			s.entered = append(s.entered, m)
		}
	}
	return nil
}

// Down stops every entered manager in reverse entry order. All managers
// are attempted even when some fail; their errors are joined.
func (s *Stack) Down(ctx context.Context) error {
	var errs []error
	for i := len(s.entered) - 1; i >= 0; i-- {
		if err := s.entered[i].Stop(ctx); err != nil {
			errs = append(errs, xerrors.Wrap(err, "stop lifespan manager"))
		}
	}
	s.entered = nil
	return errors.Join(errs...)
}
