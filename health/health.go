// Package health provides a registry of named readiness checks backing
// the readiness probe endpoint.
package health

import (
	"context"

	"github.com/tbisgaard/bridgekit/internal/log"
	"github.com/tbisgaard/bridgekit/internal/xerrors"
)

// Check is a named readiness predicate. A false result or an error both
// mean "not ready"; errors are additionally logged by Evaluate.
type Check func(ctx context.Context) (bool, error)

// Fixed returns a check with a constant result.
func Fixed(ok bool) Check {
	return func(context.Context) (bool, error) { return ok, nil }
}

// ErrDuplicateCheck is returned when a check name is registered twice.
// Duplicate registration is a configuration error, not a runtime fault.
var ErrDuplicateCheck = xerrors.New("healthcheck name already used")

// Registry holds checks in registration order. Registration happens
// during bootstrap; Evaluate may be called concurrently afterwards.
type Registry struct {
	names  []string
	checks map[string]Check
}

func NewRegistry() *Registry {
	return &Registry{checks: make(map[string]Check)}
}

// Add registers a named check. Names must be unique.
func (r *Registry) Add(name string, check Check) error {
	if _, exists := r.checks[name]; exists {
		return xerrors.Wrapf(ErrDuplicateCheck, "%q", name)
	}
	r.names = append(r.names, name)
	r.checks[name] = check
	return nil
}

// Names returns the registered check names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Evaluate runs every check in registration order and reports whether
// all of them passed. A check error or panic aborts evaluation, is
// logged via the context logger, and yields not-ready; it is never
// propagated to the caller.
func (r *Registry) Evaluate(ctx context.Context) (ready bool) {
	L := log.FromContext(ctx)

	defer func() {
		if rec := recover(); rec != nil {
			L.Error(ctx, xerrors.Newf("panic: %v", rec), "readiness check panicked")
			ready = false
		}
	}()

	ready = true
	for _, name := range r.names {
		ok, err := r.checks[name](ctx)
		if err != nil {
			L.Error(ctx, err, "readiness check failed", "check", name)
			return false
		}
		if !ok {
			L.Warn(ctx, "readiness check not ready", "check", name)
			ready = false
		}
	}
	return ready
}
